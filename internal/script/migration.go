package script

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/carnegie-technologies/cqlmigrate/internal/canon"
	"github.com/carnegie-technologies/cqlmigrate/internal/store"
)

// ErrChecksumMismatch is fatal: a migration already recorded as
// success=true no longer matches the checksum of its current file
// contents. Applied migrations are immutable; a changed file means the
// on-disk script and the cluster's history have diverged.
var ErrChecksumMismatch = errors.New("script: checksum mismatch on previously applied migration")

// ErrFailedMigrationFound is fatal: a migration row exists with
// success=false and a non-null applied_on. Discovery refuses the whole run
// before calling Apply in this case; Apply re-checks it defensively.
var ErrFailedMigrationFound = errors.New("script: failed migration found, manual intervention required")

// Migration is a per-(keyspace, service, file) script applied at most once
// successfully and checksum-locked thereafter.
type Migration struct {
	coords  Coordinates
	body    string // canonical body of the current on-disk file
	db      store.Store
	timeout time.Duration
	now     func() time.Time

	hydrated       bool
	priorSuccess   bool
	priorChecksum  string
	priorAppliedOn time.Time

	checksum string
}

// NewMigration constructs a Migration from its coordinates and the already
// canonicalized body of the current on-disk file.
func NewMigration(coords Coordinates, canonicalBody string, db store.Store, timeout time.Duration) *Migration {
	return &Migration{
		coords:  coords,
		body:    canonicalBody,
		db:      db,
		timeout: timeout,
		now:     time.Now,
	}
}

func (m *Migration) Coordinates() Coordinates { return m.coords }
func (m *Migration) Body() string             { return m.body }

// Hydrate records the prior state loaded from the migrations table, if any.
// Discovery calls this while building the scheduler's queues.
func (m *Migration) Hydrate(row *store.MigrationRow) {
	if row == nil {
		m.hydrated = false
		return
	}

	m.hydrated = true
	m.priorSuccess = row.Success
	m.priorChecksum = row.Checksum
	m.priorAppliedOn = row.AppliedOn
}

// HydratedAsFailed reports whether the prior state is a terminal failure
// (success=false, applied_on set) - the condition Discovery must abort on
// before any Apply call, since a failed migration needs manual repair
// rather than a silent retry.
func (m *Migration) HydratedAsFailed() bool {
	return m.hydrated && !m.priorSuccess && !m.priorAppliedOn.IsZero()
}

// Apply checks the checksum of an already-applied migration, bails out on
// a known failure, then records a started row, executes the script, and
// finally records completion - in that order, so a crash mid-run leaves an
// unambiguous success=false row behind.
func (m *Migration) Apply(ctx context.Context) error {
	if m.hydrated && m.priorSuccess {
		current := canon.Checksum(m.body)
		if current != m.priorChecksum {
			return fmt.Errorf("%w: keyspace=%s service=%s file=%s", ErrChecksumMismatch,
				m.coords.Keyspace, m.coords.Service, m.coords.File)
		}
		return nil // already applied and unchanged: skip
	}

	if m.HydratedAsFailed() {
		return fmt.Errorf("%w: keyspace=%s service=%s file=%s", ErrFailedMigrationFound,
			m.coords.Keyspace, m.coords.Service, m.coords.File)
	}

	m.checksum = canon.Checksum(m.body)

	if err := m.save(ctx, m.now(), false); err != nil {
		return fmt.Errorf("failed to record migration start: %w", err)
	}

	if err := Execute(ctx, m.db, m.body, m.timeout); err != nil {
		return fmt.Errorf("failed to apply migration keyspace=%s service=%s file=%s: %w",
			m.coords.Keyspace, m.coords.Service, m.coords.File, err)
	}

	if err := m.save(ctx, m.now(), true); err != nil {
		return fmt.Errorf("failed to record migration completion: %w", err)
	}

	return nil
}

func (m *Migration) save(ctx context.Context, appliedOn time.Time, success bool) error {
	return m.db.SaveMigration(ctx, store.MigrationRow{
		Keyspace:  m.coords.Keyspace,
		Service:   m.coords.Service,
		File:      m.coords.File,
		AppliedOn: appliedOn,
		Checksum:  m.checksum,
		Success:   success,
		Body:      m.body,
	})
}
