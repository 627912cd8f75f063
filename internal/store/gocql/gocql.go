// Package gocql is the production implementation of store.Store, backed by
// the Cassandra CQL driver.
package gocql

import (
	"context"
	"fmt"

	driver "github.com/apache/cassandra-gocql-driver/v2"
	"github.com/rs/zerolog"

	"github.com/carnegie-technologies/cqlmigrate/internal/store"
)

// peerLiveness reports whether the driver currently considers a peer
// address up. hostTracker (host_tracker.go) is the production
// implementation; tests substitute a fake.
type peerLiveness interface {
	IsUp(addr string) bool
}

// Gateway is the gocql-backed store.Store. Neither of its two sessions
// binds a keyspace at connect time, so both can dial a cluster on which
// the tool's own keyspace doesn't exist yet - the init script is what
// creates it. session carries all DML against locks/migrations/bootstraps,
// qualified with keyspace on every statement; adminSession is used only
// for the schema-agreement probe against system.local/system.peers.
type Gateway struct {
	session      *driver.Session
	adminSession *driver.Session
	keyspace     string
	liveness     peerLiveness
	logger       *zerolog.Logger
}

func New(session, adminSession *driver.Session, keyspace string, liveness peerLiveness, logger *zerolog.Logger) *Gateway {
	return &Gateway{
		session:      session,
		adminSession: adminSession,
		keyspace:     keyspace,
		liveness:     liveness,
		logger:       logger,
	}
}

var _ store.Store = (*Gateway)(nil)

// Execute runs a single CQL statement with no return rows, used for DDL
// and for each statement inside a script body.
func (g *Gateway) Execute(ctx context.Context, query string, params []any, opts store.ExecOptions) error {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	q := g.session.Query(query, params...).WithContext(ctx).Consistency(consistencyOf(opts.Consistency))

	if err := q.Exec(); err != nil {
		return fmt.Errorf("failed to execute statement: %w", err)
	}

	return nil
}

func consistencyOf(c store.Consistency) driver.Consistency {
	if c == store.ConsistencyOne {
		return driver.One
	}
	return driver.All
}
