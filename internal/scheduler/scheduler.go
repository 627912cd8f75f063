// Package scheduler drives the per-service migration streams Discovery
// produces in synchronized rounds, blocking on cluster schema convergence
// between rounds.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/carnegie-technologies/cqlmigrate/internal/script"
	"github.com/carnegie-technologies/cqlmigrate/internal/store"
)

// ErrRoundFailed is raised once per round in which at least one migration
// failed. Every other migration in that round still ran to completion
// before this is raised; schema agreement is not waited on when a round
// fails, since there is nothing to converge on if the round is aborting.
var ErrRoundFailed = errors.New("scheduler: round failed")

// Scheduler pulls the head migration from every service queue that still
// has one, fires them concurrently as a round, and blocks on schema
// agreement between successful rounds.
type Scheduler struct {
	queues        map[string][]*script.Migration
	db            store.Store
	retryInterval time.Duration
	logger        *zerolog.Logger
}

// New copies every non-empty entry of migrations (service -> ascending
// ordered list) into the scheduler's own queues; draining rounds pops from
// those queues and leaves the caller's map unchanged.
func New(migrations map[string][]*script.Migration, db store.Store, retryInterval time.Duration, logger *zerolog.Logger) *Scheduler {
	queues := make(map[string][]*script.Migration, len(migrations))
	for service, list := range migrations {
		if len(list) > 0 {
			queues[service] = list
		}
	}

	return &Scheduler{queues: queues, db: db, retryInterval: retryInterval, logger: logger}
}

// Run drains every queue, round by round, until all are empty.
func (s *Scheduler) Run(ctx context.Context) error {
	round := 0

	for len(s.queues) > 0 {
		round++
		heads := s.nextRound()

		if s.logger != nil {
			s.logger.Debug().Int("round", round).Int("services", len(heads)).Msg("starting migration round")
		}

		if err := applyConcurrently(ctx, heads); err != nil {
			return fmt.Errorf("%w: round %d: %w", ErrRoundFailed, round, err)
		}

		if err := s.db.AwaitSchemaAgreement(ctx, s.retryInterval); err != nil {
			return fmt.Errorf("failed waiting for schema agreement after round %d: %w", round, err)
		}
	}

	return nil
}

// nextRound removes and returns the head migration of every non-empty
// queue, deleting any queue that becomes empty as a result.
func (s *Scheduler) nextRound() map[string]*script.Migration {
	heads := make(map[string]*script.Migration, len(s.queues))

	for service, queue := range s.queues {
		heads[service] = queue[0]

		if len(queue) == 1 {
			delete(s.queues, service)
		} else {
			s.queues[service] = queue[1:]
		}
	}

	return heads
}

func applyConcurrently(ctx context.Context, heads map[string]*script.Migration) error {
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		errs  []error
	)

	for service, mig := range heads {
		wg.Add(1)

		go func(service string, mig *script.Migration) {
			defer wg.Done()

			if err := mig.Apply(ctx); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("service %s: %w", service, err))
				mu.Unlock()
			}
		}(service, mig)
	}

	wg.Wait()

	return errors.Join(errs...)
}
