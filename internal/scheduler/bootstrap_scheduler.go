package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/carnegie-technologies/cqlmigrate/internal/script"
	"github.com/carnegie-technologies/cqlmigrate/internal/store"
)

// ErrBootstrapPhaseFailed is raised if any bootstrap fails. Every other
// bootstrap still runs to completion first; bootstraps have no ordering
// dependency on each other, so unlike migrations they need no round
// scheduling, only a single fan-out/fan-in.
var ErrBootstrapPhaseFailed = errors.New("scheduler: bootstrap phase failed")

// RunBootstraps fires every bootstrap concurrently, waits for all of them
// to finish, and then - if and only if all succeeded - blocks once on
// schema agreement before returning.
func RunBootstraps(ctx context.Context, bootstraps []*script.Bootstrap, db store.Store, retryInterval time.Duration) error {
	if len(bootstraps) == 0 {
		return nil
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)

	for _, b := range bootstraps {
		wg.Add(1)

		go func(b *script.Bootstrap) {
			defer wg.Done()

			if err := b.Apply(ctx); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("keyspace %s file %s: %w", b.Coordinates().Keyspace, b.Coordinates().File, err))
				mu.Unlock()
			}
		}(b)
	}

	wg.Wait()

	if joined := errors.Join(errs...); joined != nil {
		return fmt.Errorf("%w: %w", ErrBootstrapPhaseFailed, joined)
	}

	if err := db.AwaitSchemaAgreement(ctx, retryInterval); err != nil {
		return fmt.Errorf("failed waiting for schema agreement after bootstrap phase: %w", err)
	}

	return nil
}
