// Package store defines the typed gateway onto the tool's own metadata
// keyspace (locks, bootstraps, migrations) and the cluster schema-agreement
// probe. internal/store/gocql provides the only production implementation;
// every other package depends on the Store interface, never on gocql
// directly, so they can be tested against fakes.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// MigrationRow is one row of the migrations table: the applied state of a
// single (keyspace, service, file).
type MigrationRow struct {
	Keyspace  string
	Service   string
	File      string
	AppliedOn time.Time
	Checksum  string
	Success   bool
	Body      string
}

// BootstrapRow is one row of the bootstraps table. Every attempt - success
// or failure - appends a new row; there is no update-in-place.
type BootstrapRow struct {
	Keyspace  string
	AppliedOn time.Time
	File      string
	Success   bool
	Body      string
}

// ExecOptions controls how a single CQL statement is executed.
type ExecOptions struct {
	Consistency Consistency
	Timeout     time.Duration
}

// Consistency mirrors the CQL consistency levels the gateway cares about.
type Consistency int

const (
	ConsistencyAll Consistency = iota
	ConsistencyOne
)

// Store is the typed gateway onto the tool's metadata keyspace.
// Implementations must use prepared-statement caching by default. Each
// typed save writes the full, explicit column list of its table; no field
// is omitted.
type Store interface {
	// Execute runs a single CQL statement with no return rows, used for
	// DDL and for the statements inside a script body.
	Execute(ctx context.Context, query string, params []any, opts ExecOptions) error

	// LoadMigration returns the current row for (keyspace, service, file),
	// or nil if no such row exists yet.
	LoadMigration(ctx context.Context, keyspace, service, file string) (*MigrationRow, error)

	// SaveMigration upserts the migrations row for row.Keyspace/Service/File.
	SaveMigration(ctx context.Context, row MigrationRow) error

	// SaveBootstrap appends a new bootstraps row. Bootstraps are never
	// updated in place.
	SaveBootstrap(ctx context.Context, row BootstrapRow) error

	// AcquireLock attempts INSERT ... IF NOT EXISTS for the given lock
	// name and client identity. Returns true iff the write was applied.
	// Any driver-level error is translated to false: an acquire failure is
	// not propagated as an error.
	AcquireLock(ctx context.Context, name string, client uuid.UUID) bool

	// ReleaseLock attempts DELETE ... IF client = C. Returns true iff the
	// write was applied, i.e. this client still owned the lock.
	ReleaseLock(ctx context.Context, name string, client uuid.UUID) bool

	// CheckSchemaAgreement reports whether every node known to the driver
	// currently reports the same schema version.
	CheckSchemaAgreement(ctx context.Context) (bool, error)

	// AwaitSchemaAgreement polls CheckSchemaAgreement every retryInterval
	// until it returns true. There is no timeout: a hanging cluster is
	// treated as safer than proceeding under disagreement.
	AwaitSchemaAgreement(ctx context.Context, retryInterval time.Duration) error
}
