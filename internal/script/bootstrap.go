package script

import (
	"context"
	"fmt"
	"time"

	"github.com/carnegie-technologies/cqlmigrate/internal/store"
)

// Bootstrap is a per-keyspace setup script, re-applied every run and never
// checksummed.
type Bootstrap struct {
	coords  Coordinates
	body    string
	db      store.Store
	timeout time.Duration
	now     func() time.Time
}

func NewBootstrap(coords Coordinates, canonicalBody string, db store.Store, timeout time.Duration) *Bootstrap {
	return &Bootstrap{
		coords:  coords,
		body:    canonicalBody,
		db:      db,
		timeout: timeout,
		now:     time.Now,
	}
}

func (b *Bootstrap) Coordinates() Coordinates { return b.coords }
func (b *Bootstrap) Body() string             { return b.body }

// Apply executes the bootstrap's statements and appends exactly one row
// describing the attempt. There is no skip logic and no checksum: every
// run re-applies every bootstrap, and every attempt - successful or not -
// is its own append-only row, never an update of a previous one.
func (b *Bootstrap) Apply(ctx context.Context) error {
	appliedOn := b.now()
	execErr := Execute(ctx, b.db, b.body, b.timeout)

	saveErr := b.db.SaveBootstrap(ctx, store.BootstrapRow{
		Keyspace:  b.coords.Keyspace,
		AppliedOn: appliedOn,
		File:      b.coords.File,
		Success:   execErr == nil,
		Body:      b.body,
	})

	if execErr != nil {
		return fmt.Errorf("failed to apply bootstrap keyspace=%s file=%s: %w",
			b.coords.Keyspace, b.coords.File, execErr)
	}

	if saveErr != nil {
		return fmt.Errorf("failed to record bootstrap keyspace=%s file=%s: %w",
			b.coords.Keyspace, b.coords.File, saveErr)
	}

	return nil
}
