package lock_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carnegie-technologies/cqlmigrate/internal/lock"
	"github.com/carnegie-technologies/cqlmigrate/internal/store"
)

// -- testing double for store.Store ----------
//
// fakeStore models a single-row locks table: at most one holder at a time,
// release only succeeds for the current holder. This mirrors the real
// store's conditional-write contract, just in-memory.

type fakeStore struct {
	held   bool
	holder uuid.UUID
}

func (f *fakeStore) Execute(context.Context, string, []any, store.ExecOptions) error { return nil }

func (f *fakeStore) LoadMigration(context.Context, string, string, string) (*store.MigrationRow, error) {
	return nil, nil
}

func (f *fakeStore) SaveMigration(context.Context, store.MigrationRow) error { return nil }
func (f *fakeStore) SaveBootstrap(context.Context, store.BootstrapRow) error { return nil }

func (f *fakeStore) AcquireLock(_ context.Context, _ string, client uuid.UUID) bool {
	if f.held {
		return false
	}
	f.held = true
	f.holder = client
	return true
}

func (f *fakeStore) ReleaseLock(_ context.Context, _ string, client uuid.UUID) bool {
	if !f.held || f.holder != client {
		return false
	}
	f.held = false
	return true
}

func (f *fakeStore) CheckSchemaAgreement(context.Context) (bool, error) { return true, nil }
func (f *fakeStore) AwaitSchemaAgreement(context.Context, time.Duration) error {
	return nil
}

func TestLock_AcquireThenRelease(t *testing.T) {
	t.Parallel()

	db := &fakeStore{}
	l, err := lock.New(db, nil)
	require.NoError(t, err)

	assert.True(t, l.Acquire(context.Background()))
	assert.True(t, l.Release(context.Background()))
}

func TestLock_MutualExclusion(t *testing.T) {
	t.Parallel()

	db := &fakeStore{}

	owner, err := lock.New(db, nil)
	require.NoError(t, err)
	contender, err := lock.New(db, nil)
	require.NoError(t, err)

	assert.True(t, owner.Acquire(context.Background()), "first acquirer should win the lock")
	assert.False(t, contender.Acquire(context.Background()), "second acquirer should fail while the lock is held")

	assert.False(t, contender.Release(context.Background()), "non-owner release must fail")
	assert.True(t, owner.Release(context.Background()), "owner release must succeed")

	assert.True(t, contender.Acquire(context.Background()), "lock is free once the owner releases it")
}

func TestLock_DoubleAcquireBySameOwnerFails(t *testing.T) {
	t.Parallel()

	db := &fakeStore{}
	l, err := lock.New(db, nil)
	require.NoError(t, err)

	require.True(t, l.Acquire(context.Background()))
	assert.False(t, l.Acquire(context.Background()), "acquiring an already-held row returns false, not an error")
}

func TestLock_ClientIdentityIsStableAndUnique(t *testing.T) {
	t.Parallel()

	db := &fakeStore{}

	a, err := lock.New(db, nil)
	require.NoError(t, err)
	b, err := lock.New(db, nil)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, a.Client())
	assert.NotEqual(t, a.Client(), b.Client())
}
