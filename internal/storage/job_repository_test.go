package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kukshaus/transcribe-sub000/internal/models"
)

func TestJobCreateAndGet(t *testing.T) {
	db := testDB(t)
	repo := NewJobRepository(db)
	ctx := context.Background()

	job := &models.TranscriptionJob{
		SourceURL:      "https://example.com/v/1",
		OwnerID:        "alice",
		NotesRequested: true,
	}
	require.NoError(t, repo.Create(ctx, job))
	require.NotEmpty(t, job.ID)

	got, err := repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, models.JobStatusPending, got.Status)
	assert.Equal(t, "alice", got.OwnerID)
	assert.True(t, got.NotesRequested)
	assert.Nil(t, got.StartedAt)

	missing, err := repo.GetByID(ctx, "00000000-0000-0000-0000-000000000000")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestClaimNextPending(t *testing.T) {
	db := testDB(t)
	repo := NewJobRepository(db)
	ctx := context.Background()

	first := &models.TranscriptionJob{SourceURL: "https://example.com/v/1", Fingerprint: "fp"}
	require.NoError(t, repo.Create(ctx, first))
	time.Sleep(5 * time.Millisecond) // distinct created_at ordering
	second := &models.TranscriptionJob{SourceURL: "https://example.com/v/2", Fingerprint: "fp"}
	require.NoError(t, repo.Create(ctx, second))

	claimed, err := repo.ClaimNextPending(ctx)
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, first.ID, claimed.ID)
	assert.Equal(t, models.JobStatusProcessing, claimed.Status)
	assert.NotNil(t, claimed.StartedAt)

	claimed2, err := repo.ClaimNextPending(ctx)
	require.NoError(t, err)
	require.NotNil(t, claimed2)
	assert.Equal(t, second.ID, claimed2.ID)

	// Queue drained.
	claimed3, err := repo.ClaimNextPending(ctx)
	require.NoError(t, err)
	assert.Nil(t, claimed3)
}

func TestUpdateProgressMonotonic(t *testing.T) {
	db := testDB(t)
	repo := NewJobRepository(db)
	ctx := context.Background()

	job := &models.TranscriptionJob{SourceURL: "https://example.com/v/1", Fingerprint: "fp"}
	require.NoError(t, repo.Create(ctx, job))
	_, err := repo.ClaimNextPending(ctx)
	require.NoError(t, err)

	require.NoError(t, repo.UpdateProgress(ctx, job.ID, 2, 5, 40, "downloading audio"))
	// A stale lower percentage must not move the bar backwards.
	require.NoError(t, repo.UpdateProgress(ctx, job.ID, 3, 5, 10, "preparing audio"))

	got, err := repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, 40, got.Percentage)
	assert.Equal(t, 3, got.StepNumber)
	assert.Equal(t, "preparing audio", got.Details)
}

func TestCompleteAndFailAreGuarded(t *testing.T) {
	db := testDB(t)
	repo := NewJobRepository(db)
	ctx := context.Background()

	job := &models.TranscriptionJob{SourceURL: "https://example.com/v/1", Fingerprint: "fp"}
	require.NoError(t, repo.Create(ctx, job))
	_, err := repo.ClaimNextPending(ctx)
	require.NoError(t, err)

	require.NoError(t, repo.Complete(ctx, job.ID, "hello world", 1234))

	// A late Fail on a terminal job is a no-op.
	require.NoError(t, repo.Fail(ctx, job.ID, "boom", 99))

	got, err := repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, got.Status)
	assert.Equal(t, "hello world", got.Transcript)
	assert.Equal(t, int64(1234), got.ProcessingMs)
	assert.Equal(t, 100, got.Percentage)
	assert.Empty(t, got.Error)
	assert.NotNil(t, got.CompletedAt)
}

func TestReassignFingerprintJobs(t *testing.T) {
	db := testDB(t)
	repo := NewJobRepository(db)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		require.NoError(t, repo.Create(ctx, &models.TranscriptionJob{
			SourceURL:   "https://example.com/v/1",
			Fingerprint: "fp-x",
		}))
	}
	require.NoError(t, repo.Create(ctx, &models.TranscriptionJob{
		SourceURL: "https://example.com/v/2",
		OwnerID:   "someone-else",
	}))

	moved, err := repo.ReassignFingerprintJobs(ctx, "fp-x", "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(2), moved)

	// Second run finds nothing left to move.
	moved, err = repo.ReassignFingerprintJobs(ctx, "fp-x", "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(0), moved)

	jobs, err := repo.ListByOwner(ctx, "alice", 0)
	require.NoError(t, err)
	assert.Len(t, jobs, 2)
}
