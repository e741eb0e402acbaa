package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsageReserveCap(t *testing.T) {
	db := testDB(t)
	repo := NewUsageRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Ensure(ctx, "fp-1", "10.0.0.1", "test-agent"))

	for i := 0; i < 3; i++ {
		ok, err := repo.Reserve(ctx, "fp-1", 3)
		require.NoError(t, err)
		assert.True(t, ok, "reservation %d", i+1)
	}

	// Cap exhausted; the count stays put.
	ok, err := repo.Reserve(ctx, "fp-1", 3)
	require.NoError(t, err)
	assert.False(t, ok)

	record, err := repo.Get(ctx, "fp-1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), record.UsageCount)
}

func TestUsageEnsureRefreshesClientDetails(t *testing.T) {
	db := testDB(t)
	repo := NewUsageRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Ensure(ctx, "fp-1", "10.0.0.1", "agent-a"))
	ok, err := repo.Reserve(ctx, "fp-1", 3)
	require.NoError(t, err)
	require.True(t, ok)

	// Re-ensuring keeps the count but refreshes where the device was
	// last seen.
	require.NoError(t, repo.Ensure(ctx, "fp-1", "10.0.0.2", "agent-b"))

	record, err := repo.Get(ctx, "fp-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), record.UsageCount)
	assert.Equal(t, "10.0.0.2", record.ClientIP)
	assert.Equal(t, "agent-b", record.UserAgent)
}

func TestConsumeTransferOnce(t *testing.T) {
	db := testDB(t)
	repo := NewUsageRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Ensure(ctx, "fp-1", "10.0.0.1", "test-agent"))
	ok, err := repo.Reserve(ctx, "fp-1", 3)
	require.NoError(t, err)
	require.True(t, ok)

	usageCount, applied, err := repo.ConsumeTransfer(ctx, "fp-1", "alice")
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, int64(1), usageCount)

	// Second consume is a no-op, even for another account.
	_, applied, err = repo.ConsumeTransfer(ctx, "fp-1", "bob")
	require.NoError(t, err)
	assert.False(t, applied)

	record, err := repo.Get(ctx, "fp-1")
	require.NoError(t, err)
	assert.True(t, record.IsTransferUsed)
	assert.Equal(t, "alice", record.TransferredTo)
	assert.NotNil(t, record.TransferredAt)
}
