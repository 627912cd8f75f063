// Package cqlmigrate is the top-level lifecycle orchestrator. It drives
// init, locking, discovery, bootstrapping and migration, then release, in
// one fixed sequence:
//
//	START -> INIT -> LOCKING -> LOADING -> BOOTSTRAPPING -> MIGRATING -> RELEASING -> EXIT(code)
package cqlmigrate

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"time"

	"github.com/rs/zerolog"

	"github.com/carnegie-technologies/cqlmigrate/internal/canon"
	"github.com/carnegie-technologies/cqlmigrate/internal/discovery"
	"github.com/carnegie-technologies/cqlmigrate/internal/lock"
	"github.com/carnegie-technologies/cqlmigrate/internal/scheduler"
	"github.com/carnegie-technologies/cqlmigrate/internal/script"
	"github.com/carnegie-technologies/cqlmigrate/internal/store"
)

// Exit codes recognized by the caller: 0 on success, 1 on any failure
// path. There are no other codes.
const (
	ExitSuccess = 0
	ExitFailure = 1
)

// Orchestrator runs the full lifecycle once. Run returns the exit code the
// caller should use and whether the caller should exit at all: a failed
// lock release is a deliberate "look at me" signal and must not be turned
// into a process exit by the caller, since the migration phase it guarded
// may itself have succeeded.
type Orchestrator interface {
	Run(ctx context.Context) (code int, shouldExit bool)
}

type orchestratorImpl struct {
	fsys fs.FS
	dir  string
	cfg  discovery.Config

	db            store.Store
	lck           *lock.Lock
	retryInterval time.Duration
	logger        *zerolog.Logger
}

// New builds an Orchestrator. fsys/dir is the migration root; cfg carries
// the init/bootstrap filenames and the per-statement client timeout;
// retryInterval is the schema-agreement polling interval.
func New(fsys fs.FS, dir string, cfg discovery.Config, db store.Store, lck *lock.Lock, retryInterval time.Duration, logger *zerolog.Logger) Orchestrator {
	return &orchestratorImpl{
		fsys:          fsys,
		dir:           dir,
		cfg:           cfg,
		db:            db,
		lck:           lck,
		retryInterval: retryInterval,
		logger:        logger,
	}
}

func (o *orchestratorImpl) Run(ctx context.Context) (int, bool) {
	if err := o.runInit(ctx); err != nil {
		o.logError("init script failed", err)
		return ExitFailure, true
	}

	if !o.lck.Acquire(ctx) {
		o.logError("failed to acquire lock", nil)
		return ExitFailure, true
	}

	code := o.runLocked(ctx)

	if !o.lck.Release(ctx) {
		if o.logger != nil {
			o.logger.Warn().Msg("failed to release lock, manual recovery may be required")
		}
		return code, false
	}

	return code, true
}

// runInit reads and applies the depth-0 init script directly, bypassing
// Discovery: it is responsible for creating the tool's own keyspace and
// tables, so it must run strictly before lock acquisition, while
// Discovery's own walk - which depends on those tables already existing -
// runs strictly after.
func (o *orchestratorImpl) runInit(ctx context.Context) error {
	initPath := path.Join(o.dir, o.cfg.InitFilename)

	raw, err := fs.ReadFile(o.fsys, initPath)
	if errors.Is(err, fs.ErrNotExist) {
		if o.logger != nil {
			o.logger.Debug().Str("path", initPath).Msg("no init script found, skipping")
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read init script %s: %w", initPath, err)
	}

	body, err := canon.Canonicalize(string(raw))
	if err != nil {
		return fmt.Errorf("failed to canonicalize init script %s: %w", initPath, err)
	}

	return script.NewInit(body, o.db, o.cfg.ClientTimeout).Apply(ctx)
}

func (o *orchestratorImpl) runLocked(ctx context.Context) int {
	disc, err := discovery.New(o.fsys, o.dir, o.cfg, o.db, o.logger)
	if err != nil {
		o.logError("failed to set up discovery", err)
		return ExitFailure
	}

	result, err := disc.Discover(ctx)
	if err != nil {
		o.logError("discovery failed", err)
		return ExitFailure
	}

	if err := scheduler.RunBootstraps(ctx, result.Bootstraps, o.db, o.retryInterval); err != nil {
		o.logError("bootstrap phase failed", err)
		return ExitFailure
	}

	if err := scheduler.New(result.Migrations, o.db, o.retryInterval, o.logger).Run(ctx); err != nil {
		o.logError("migration phase failed", err)
		return ExitFailure
	}

	return ExitSuccess
}

func (o *orchestratorImpl) logError(msg string, err error) {
	if o.logger == nil {
		return
	}
	ev := o.logger.Error()
	if err != nil {
		ev = ev.Err(err)
	}
	ev.Msg(msg)
}
