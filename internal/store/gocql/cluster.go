package gocql

import (
	"fmt"
	"time"

	driver "github.com/apache/cassandra-gocql-driver/v2"
	"github.com/rs/zerolog"
)

// Config carries everything needed to stand up the two sessions a Gateway
// needs. Neither cluster.Keyspace is set: on a fresh cluster the tool's
// keyspace doesn't exist until the init script creates it, and binding a
// keyspace that doesn't exist yet fails CreateSession outright. The DML
// session instead qualifies every statement with Keyspace explicitly (see
// dao.go); the admin session never touches the tool's own tables at all.
type Config struct {
	ContactPoints []string
	Keyspace      string
	Timeout       time.Duration
}

// Open dials both sessions and returns a ready Gateway. Callers are
// responsible for calling Gateway.Close, which closes both sessions.
// Open succeeds even if cfg.Keyspace does
// not exist yet; running the init script through the returned Gateway is
// what creates it.
func Open(cfg Config, logger *zerolog.Logger) (*Gateway, error) {
	tracker := newHostTracker(driver.RoundRobinHostPolicy())

	cluster := driver.NewCluster(cfg.ContactPoints...)
	cluster.Consistency = driver.All
	cluster.Timeout = cfg.Timeout
	cluster.PoolConfig.HostSelectionPolicy = tracker

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("failed to open session: %w", err)
	}

	adminCluster := driver.NewCluster(cfg.ContactPoints...)
	adminCluster.Consistency = driver.One
	adminCluster.Timeout = cfg.Timeout

	adminSession, err := adminCluster.CreateSession()
	if err != nil {
		session.Close()
		return nil, fmt.Errorf("failed to open no-keyspace admin session: %w", err)
	}

	gw := New(session, adminSession, cfg.Keyspace, tracker, logger)
	return gw, nil
}

// Close releases both underlying sessions.
func (g *Gateway) Close() {
	g.session.Close()
	g.adminSession.Close()
}
