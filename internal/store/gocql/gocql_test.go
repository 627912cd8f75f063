package gocql_test

import (
	"context"
	"testing"
	"time"

	driver "github.com/apache/cassandra-gocql-driver/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/carnegie-technologies/cqlmigrate/internal/store"
	cqlstore "github.com/carnegie-technologies/cqlmigrate/internal/store/gocql"
)

const testKeyspace = "cqlmigrate_test"

func TestGateway(t *testing.T) {
	t.Parallel()

	if testing.Short() {
		t.Skip("skipping integration test for store/gocql")
	}

	ctx, container := makeTestContainer(t)
	defer func() {
		require.NoError(t, container.Terminate(ctx))
	}()

	contactPoint := endpoint(ctx, t, container)

	bootstrapKeyspaceAndTables(t, contactPoint)

	gw, err := cqlstore.Open(cqlstore.Config{
		ContactPoints: []string{contactPoint},
		Keyspace:      testKeyspace,
		Timeout:       10 * time.Second,
	}, nil)
	require.NoError(t, err)
	defer gw.Close()

	t.Run("migrations are absent until saved, then round-trip", func(t *testing.T) {
		row, err := gw.LoadMigration(ctx, "app_ks", "svc", "001_init.cql")
		require.NoError(t, err)
		assert.Nil(t, row)

		now := time.Now().UTC().Truncate(time.Millisecond)
		require.NoError(t, gw.SaveMigration(ctx, store.MigrationRow{
			Keyspace:  "app_ks",
			Service:   "svc",
			File:      "001_init.cql",
			AppliedOn: now,
			Checksum:  "deadbeef",
			Success:   true,
			Body:      "CREATE TABLE x (id uuid primary key);",
		}))

		row, err = gw.LoadMigration(ctx, "app_ks", "svc", "001_init.cql")
		require.NoError(t, err)
		require.NotNil(t, row)
		assert.Equal(t, "deadbeef", row.Checksum)
		assert.True(t, row.Success)
	})

	t.Run("bootstraps are append-only", func(t *testing.T) {
		require.NoError(t, gw.SaveBootstrap(ctx, store.BootstrapRow{
			Keyspace:  "app_ks",
			AppliedOn: time.Now().UTC(),
			File:      "bootstrap.cql",
			Success:   false,
			Body:      "garbage;",
		}))
		require.NoError(t, gw.SaveBootstrap(ctx, store.BootstrapRow{
			Keyspace:  "app_ks",
			AppliedOn: time.Now().UTC(),
			File:      "bootstrap.cql",
			Success:   true,
			Body:      "CREATE TABLE y (id uuid primary key);",
		}))
	})

	t.Run("lock is exclusive and release requires ownership", func(t *testing.T) {
		owner := uuid.New()
		contender := uuid.New()

		assert.True(t, gw.AcquireLock(ctx, "MIGRATION_LOCK_IT", owner))
		assert.False(t, gw.AcquireLock(ctx, "MIGRATION_LOCK_IT", contender))
		assert.False(t, gw.ReleaseLock(ctx, "MIGRATION_LOCK_IT", contender))
		assert.True(t, gw.ReleaseLock(ctx, "MIGRATION_LOCK_IT", owner))
		assert.True(t, gw.AcquireLock(ctx, "MIGRATION_LOCK_IT", contender))
		assert.True(t, gw.ReleaseLock(ctx, "MIGRATION_LOCK_IT", contender))
	})

	t.Run("single-node cluster always agrees with itself", func(t *testing.T) {
		agree, err := gw.CheckSchemaAgreement(ctx)
		require.NoError(t, err)
		assert.True(t, agree)

		require.NoError(t, gw.AwaitSchemaAgreement(ctx, 50*time.Millisecond))
	})
}

func makeTestContainer(t *testing.T) (context.Context, testcontainers.Container) {
	t.Helper()

	ctx := context.Background()
	req := testcontainers.ContainerRequest{
		Image:        "cassandra:4.1",
		ExposedPorts: []string{"9042/tcp"},
		WaitingFor:   wait.ForListeningPort("9042"),
	}

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatal(err)
	}

	return ctx, c
}

func endpoint(ctx context.Context, t *testing.T, c testcontainers.Container) string {
	t.Helper()

	ep, err := c.Endpoint(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	return ep
}

func bootstrapKeyspaceAndTables(t *testing.T, contactPoint string) {
	t.Helper()

	cluster := driver.NewCluster(contactPoint)
	cluster.Consistency = driver.One
	cluster.Timeout = 30 * time.Second

	session, err := cluster.CreateSession()
	require.NoError(t, err)
	defer session.Close()

	statements := []string{
		`CREATE KEYSPACE IF NOT EXISTS ` + testKeyspace + ` WITH replication = {'class': 'SimpleStrategy', 'replication_factor': 1}`,
		`CREATE TABLE IF NOT EXISTS ` + testKeyspace + `.locks (name text PRIMARY KEY, client uuid)`,
		`CREATE TABLE IF NOT EXISTS ` + testKeyspace + `.migrations (
			keyspace_name text, service text, file text,
			applied_on timestamp, checksum text, success boolean, body text,
			PRIMARY KEY ((keyspace_name), service, file)
		)`,
		`CREATE TABLE IF NOT EXISTS ` + testKeyspace + `.bootstraps (
			keyspace_name text, applied_on timestamp, file text, success boolean, body text,
			PRIMARY KEY ((keyspace_name), applied_on)
		)`,
	}

	for _, stmt := range statements {
		require.NoError(t, session.Query(stmt).Exec())
	}
}
