// Package lock implements the cluster-wide mutual-exclusion lock used to
// guarantee that only one orchestrator process runs migrations at a time.
// Safety comes entirely from the store's conditional writes; this package
// only owns the process-scoped client identity and the acquire/release
// contract around it.
package lock

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/carnegie-technologies/cqlmigrate/internal/store"
)

// Name is the single lock row name every orchestrator contends for.
const Name = "MIGRATION_LOCK"

// Lock is process-scoped: acquired at most once per process, released on
// every termination path.
type Lock struct {
	db     store.Store
	client uuid.UUID
	logger *zerolog.Logger
}

// New draws a fresh random client identity and returns a Lock bound to db.
func New(db store.Store, logger *zerolog.Logger) (*Lock, error) {
	client, err := uuid.NewRandom()
	if err != nil {
		return nil, fmt.Errorf("failed to generate lock client identity: %w", err)
	}

	return &Lock{db: db, client: client, logger: logger}, nil
}

// Client returns this process's lock identity.
func (l *Lock) Client() uuid.UUID { return l.client }

// Acquire attempts the conditional insert. Any driver-level error is
// already folded into false by the Store implementation; Acquire never
// returns an error of its own, only whether the lock was obtained.
func (l *Lock) Acquire(ctx context.Context) bool {
	acquired := l.db.AcquireLock(ctx, Name, l.client)

	if l.logger != nil {
		l.logger.Debug().Bool("acquired", acquired).Str("client", l.client.String()).Msg("lock acquire attempted")
	}

	return acquired
}

// Release attempts the conditional delete, scoped to this process's client
// identity so a stale run can never clear a newer owner's lock.
func (l *Lock) Release(ctx context.Context) bool {
	released := l.db.ReleaseLock(ctx, Name, l.client)

	if l.logger != nil {
		l.logger.Debug().Bool("released", released).Str("client", l.client.String()).Msg("lock release attempted")
	}

	return released
}
