package gocql

import (
	"context"
	"errors"
	"fmt"

	driver "github.com/apache/cassandra-gocql-driver/v2"
	"github.com/google/uuid"

	"github.com/carnegie-technologies/cqlmigrate/internal/store"
)

// Table names, unqualified. The session never binds a keyspace (see
// cluster.go), so every query below goes through g.table to prefix these
// with the tool's own keyspace. Column lists are explicit rather than
// reflected off the row structs: a renamed Go field must not silently
// rename a CQL column.
const (
	locksTable      = "locks"
	migrationsTable = "migrations"
	bootstrapsTable = "bootstraps"
)

// table qualifies a bare table name with the tool's own keyspace.
func (g *Gateway) table(name string) string {
	return g.keyspace + "." + name
}

// LoadMigration returns the current row for (keyspace, service, file), or
// nil if no such row exists yet.
func (g *Gateway) LoadMigration(ctx context.Context, keyspace, service, file string) (*store.MigrationRow, error) {
	row := store.MigrationRow{Keyspace: keyspace, Service: service, File: file}

	q := g.session.Query(
		fmt.Sprintf(`SELECT applied_on, checksum, success, body FROM %s WHERE keyspace_name = ? AND service = ? AND file = ?`, g.table(migrationsTable)),
		keyspace, service, file,
	).WithContext(ctx).Consistency(driver.All)

	if err := q.Scan(&row.AppliedOn, &row.Checksum, &row.Success, &row.Body); err != nil {
		if errors.Is(err, driver.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load migration row for %s/%s/%s: %w", keyspace, service, file, err)
	}

	return &row, nil
}

// SaveMigration upserts the migrations row for row.Keyspace/Service/File.
func (g *Gateway) SaveMigration(ctx context.Context, row store.MigrationRow) error {
	q := g.session.Query(
		fmt.Sprintf(`INSERT INTO %s (keyspace_name, service, file, applied_on, checksum, success, body) VALUES (?, ?, ?, ?, ?, ?, ?)`, g.table(migrationsTable)),
		row.Keyspace, row.Service, row.File, row.AppliedOn, row.Checksum, row.Success, row.Body,
	).WithContext(ctx).Consistency(driver.All)

	if err := q.Exec(); err != nil {
		return fmt.Errorf("failed to save migration row for %s/%s/%s: %w", row.Keyspace, row.Service, row.File, err)
	}

	return nil
}

// SaveBootstrap appends a new bootstraps row; there is no update-in-place.
func (g *Gateway) SaveBootstrap(ctx context.Context, row store.BootstrapRow) error {
	q := g.session.Query(
		fmt.Sprintf(`INSERT INTO %s (keyspace_name, applied_on, file, success, body) VALUES (?, ?, ?, ?, ?)`, g.table(bootstrapsTable)),
		row.Keyspace, row.AppliedOn, row.File, row.Success, row.Body,
	).WithContext(ctx).Consistency(driver.All)

	if err := q.Exec(); err != nil {
		return fmt.Errorf("failed to save bootstrap row for %s/%s: %w", row.Keyspace, row.File, err)
	}

	return nil
}

// AcquireLock attempts INSERT ... IF NOT EXISTS. A driver-level error is
// treated as a failed acquire rather than propagated: a caller that can't
// tell "lost the race" from "driver hiccup" should just back off either way.
func (g *Gateway) AcquireLock(ctx context.Context, name string, client uuid.UUID) bool {
	cqlClient, err := driver.UUIDFromBytes(client[:])
	if err != nil {
		g.warnLock("acquire", name, err)
		return false
	}

	applied, err := g.session.Query(
		fmt.Sprintf(`INSERT INTO %s (name, client) VALUES (?, ?) IF NOT EXISTS`, g.table(locksTable)),
		name, cqlClient,
	).WithContext(ctx).Consistency(driver.All).MapScanCAS(map[string]interface{}{})

	if err != nil {
		g.warnLock("acquire", name, err)
		return false
	}

	return applied
}

// ReleaseLock attempts DELETE ... IF client = C. A driver-level error is
// treated as a failed release, not propagated.
func (g *Gateway) ReleaseLock(ctx context.Context, name string, client uuid.UUID) bool {
	cqlClient, err := driver.UUIDFromBytes(client[:])
	if err != nil {
		g.warnLock("release", name, err)
		return false
	}

	applied, err := g.session.Query(
		fmt.Sprintf(`DELETE FROM %s WHERE name = ? IF client = ?`, g.table(locksTable)),
		name, cqlClient,
	).WithContext(ctx).Consistency(driver.All).MapScanCAS(map[string]interface{}{})

	if err != nil {
		g.warnLock("release", name, err)
		return false
	}

	return applied
}

func (g *Gateway) warnLock(op, name string, err error) {
	if g.logger == nil {
		return
	}
	g.logger.Warn().Err(err).Str("op", op).Str("lock", name).Msg("lock operation raised a driver error, treating as failure")
}
