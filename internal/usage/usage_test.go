package usage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kukshaus/transcribe-sub000/internal/ledger"
	"github.com/kukshaus/transcribe-sub000/internal/models"
	"github.com/kukshaus/transcribe-sub000/internal/storage"
)

type fixture struct {
	tracker    *Tracker
	reconciler *Reconciler
	ledger     *ledger.Ledger
	ledgerRepo *storage.LedgerRepository
	jobRepo    *storage.JobRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	usageRepo := storage.NewUsageRepository(db)
	ledgerRepo := storage.NewLedgerRepository(db)
	jobRepo := storage.NewJobRepository(db)

	l := ledger.New(ledgerRepo, 3)
	tracker := NewTracker(usageRepo, 3)
	return &fixture{
		tracker:    tracker,
		reconciler: NewReconciler(l, usageRepo, jobRepo, tracker),
		ledger:     l,
		ledgerRepo: ledgerRepo,
		jobRepo:    jobRepo,
	}
}

func TestCheckAndReserve(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for want := int64(2); want >= 0; want-- {
		res, err := f.tracker.CheckAndReserve(ctx, "fp-1", "10.0.0.1", "agent")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, want, res.Remaining)
	}

	_, err := f.tracker.CheckAndReserve(ctx, "fp-1", "10.0.0.1", "agent")
	assert.ErrorIs(t, err, ErrLimitReached)
}

func TestRemainingUnseenFingerprint(t *testing.T) {
	f := newFixture(t)

	remaining, err := f.tracker.Remaining(context.Background(), "never-seen")
	require.NoError(t, err)
	assert.Equal(t, int64(3), remaining)
}

func TestReconcileFreshAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// No fingerprint: only the starter grant applies.
	result, err := f.reconciler.Reconcile(ctx, "alice", "")
	require.NoError(t, err)
	assert.True(t, result.StarterGranted)
	assert.Equal(t, int64(0), result.TransferredCredits)

	balance, err := f.ledger.CheckBalance(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(3), balance.Amount)
}

func TestReconcileMigratesAnonymousHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// The device used one of its three free transcriptions and owns
	// one anonymous job.
	_, err := f.tracker.CheckAndReserve(ctx, "fp-1", "10.0.0.1", "agent")
	require.NoError(t, err)
	require.NoError(t, f.jobRepo.Create(ctx, &models.TranscriptionJob{
		SourceURL:   "https://example.com/v/1",
		Fingerprint: "fp-1",
	}))

	result, err := f.reconciler.Reconcile(ctx, "alice", "fp-1")
	require.NoError(t, err)
	assert.True(t, result.StarterGranted)
	assert.Equal(t, int64(2), result.TransferredCredits)
	assert.Equal(t, int64(1), result.ReassignedJobs)

	// Starter 3 + transferred 2.
	balance, err := f.ledger.CheckBalance(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(5), balance.Amount)

	jobs, err := f.jobRepo.ListByOwner(ctx, "alice", 0)
	require.NoError(t, err)
	assert.Len(t, jobs, 1)
}

// Reconciliation runs on every sign-in; repeats must change nothing.
func TestReconcileIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.tracker.CheckAndReserve(ctx, "fp-1", "10.0.0.1", "agent")
	require.NoError(t, err)

	first, err := f.reconciler.Reconcile(ctx, "alice", "fp-1")
	require.NoError(t, err)
	require.True(t, first.StarterGranted)
	require.Equal(t, int64(2), first.TransferredCredits)

	second, err := f.reconciler.Reconcile(ctx, "alice", "fp-1")
	require.NoError(t, err)
	assert.False(t, second.StarterGranted)
	assert.Equal(t, int64(0), second.TransferredCredits)
	assert.Equal(t, int64(0), second.ReassignedJobs)

	balance, err := f.ledger.CheckBalance(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(5), balance.Amount)

	// Exactly one grant entry and one transfer entry.
	entries, err := f.ledgerRepo.ListEntries(ctx, "alice", 0)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

// A fingerprint can only ever seed one account.
func TestReconcileTransferNotSharedAcrossAccounts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.tracker.CheckAndReserve(ctx, "fp-1", "10.0.0.1", "agent")
	require.NoError(t, err)

	_, err = f.reconciler.Reconcile(ctx, "alice", "fp-1")
	require.NoError(t, err)

	result, err := f.reconciler.Reconcile(ctx, "bob", "fp-1")
	require.NoError(t, err)
	assert.True(t, result.StarterGranted)
	assert.Equal(t, int64(0), result.TransferredCredits)

	balance, err := f.ledger.CheckBalance(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(3), balance.Amount)
}
