// Package discovery walks the migration root, classifies every .cql file
// by path depth, and builds the Init script, the flat Bootstrap list, and
// the per-service ordered Migration streams the round scheduler drains.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/carnegie-technologies/cqlmigrate/internal/canon"
	"github.com/carnegie-technologies/cqlmigrate/internal/script"
	"github.com/carnegie-technologies/cqlmigrate/internal/store"
)

// ErrFailedMigrationFound aborts the whole run before anything is applied:
// a prior run left a migration with success=false and a non-null
// applied_on, which requires manual repair before any further migration
// can safely proceed.
var ErrFailedMigrationFound = errors.New("discovery: failed migration found, manual intervention required")

// Config carries the filenames and timing the walk and the constructed
// scripts need.
type Config struct {
	InitFilename      string
	BootstrapFilename string
	ClientTimeout     time.Duration
}

// Result is the fully hydrated output of one Discover call.
type Result struct {
	Init       *script.Init
	Bootstraps []*script.Bootstrap
	Migrations map[string][]*script.Migration // service -> ascending by File
}

// Discovery walks a filesystem rooted at dir, consulting db for each
// migration's prior state. Taking an fs.FS (rather than a concrete
// directory path) lets callers point it at os.DirFS(root) in production
// and at an in-memory testing/fstest.MapFS in tests.
type Discovery struct {
	fsys   fs.FS
	dir    string
	cfg    Config
	db     store.Store
	logger *zerolog.Logger
}

// New builds a Discovery rooted at dir within fsys. dir must exist and be
// a directory.
func New(fsys fs.FS, dir string, cfg Config, db store.Store, logger *zerolog.Logger) (*Discovery, error) {
	info, err := fs.Stat(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to stat migration root %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("migration root %s is not a directory", dir)
	}

	return &Discovery{fsys: fsys, dir: dir, cfg: cfg, db: db, logger: logger}, nil
}

func (d *Discovery) Discover(ctx context.Context) (*Result, error) {
	result := &Result{Migrations: make(map[string][]*script.Migration)}

	err := fs.WalkDir(d.fsys, d.dir, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() {
			return nil
		}
		info, err := entry.Info()
		if err != nil || !info.Mode().IsRegular() {
			return nil //nolint:nilerr
		}

		rel, err := relativeTo(d.dir, path)
		if err != nil {
			return err
		}

		kind, coords, ok := classify(rel, d.cfg.InitFilename, d.cfg.BootstrapFilename)
		if !ok {
			return nil
		}

		return d.handle(ctx, kind, coords, path, result)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk migration root %s: %w", d.dir, err)
	}

	for service, migrations := range result.Migrations {
		sort.Slice(migrations, func(i, j int) bool {
			return migrations[i].Coordinates().File < migrations[j].Coordinates().File
		})
		result.Migrations[service] = migrations
	}

	return result, nil
}

func relativeTo(dir, path string) (string, error) {
	if dir == "." {
		return path, nil
	}
	if !strings.HasPrefix(path, dir+"/") {
		return "", fmt.Errorf("path %s is not under root %s", path, dir)
	}
	return path[len(dir)+1:], nil
}

func (d *Discovery) handle(ctx context.Context, kind script.Type, coords script.Coordinates, path string, result *Result) error {
	raw, err := fs.ReadFile(d.fsys, path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	body, err := canon.Canonicalize(string(raw))
	if err != nil {
		return fmt.Errorf("failed to canonicalize %s: %w", path, err)
	}

	switch kind {
	case script.TypeInit:
		result.Init = script.NewInit(body, d.db, d.cfg.ClientTimeout)

	case script.TypeBootstrap:
		result.Bootstraps = append(result.Bootstraps, script.NewBootstrap(coords, body, d.db, d.cfg.ClientTimeout))

	case script.TypeMigration:
		mig := script.NewMigration(coords, body, d.db, d.cfg.ClientTimeout)

		prior, err := d.db.LoadMigration(ctx, coords.Keyspace, coords.Service, coords.File)
		if err != nil {
			return fmt.Errorf("failed to load prior state for keyspace=%s service=%s file=%s: %w",
				coords.Keyspace, coords.Service, coords.File, err)
		}
		mig.Hydrate(prior)

		if mig.HydratedAsFailed() {
			if d.logger != nil {
				d.logger.Error().
					Str("keyspace", coords.Keyspace).
					Str("service", coords.Service).
					Str("file", coords.File).
					Msg("failed migration found, manual intervention required")
			}
			return fmt.Errorf("%w: keyspace=%s service=%s file=%s", ErrFailedMigrationFound,
				coords.Keyspace, coords.Service, coords.File)
		}

		result.Migrations[coords.Service] = append(result.Migrations[coords.Service], mig)
	}

	return nil
}
