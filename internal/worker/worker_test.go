package worker

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kukshaus/transcribe-sub000/internal/models"
	"github.com/kukshaus/transcribe-sub000/internal/storage"
)

func testRepo(t *testing.T) *storage.JobRepository {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return storage.NewJobRepository(db)
}

func TestPoolProcessesPendingJobs(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	job := &models.TranscriptionJob{SourceURL: "https://example.com/v/1", Fingerprint: "fp"}
	require.NoError(t, repo.Create(ctx, job))

	var mu sync.Mutex
	var handled []string
	pool := NewPool(repo, func(ctx context.Context, job *models.TranscriptionJob) error {
		mu.Lock()
		handled = append(handled, job.ID)
		mu.Unlock()
		return repo.Complete(ctx, job.ID, "done", 1)
	}, 2)
	pool.SetInterval(10 * time.Millisecond)
	pool.Start(ctx)
	defer pool.Stop()

	require.Eventually(t, func() bool {
		got, err := repo.GetByID(ctx, job.ID)
		return err == nil && got.Status == models.JobStatusCompleted
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{job.ID}, handled)
}

// A handler that errors out without finalizing its job must not leave
// the row stuck in processing.
func TestPoolFailsAbandonedJobs(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	job := &models.TranscriptionJob{SourceURL: "https://example.com/v/1", Fingerprint: "fp"}
	require.NoError(t, repo.Create(ctx, job))

	pool := NewPool(repo, func(ctx context.Context, job *models.TranscriptionJob) error {
		return errors.New("handler crashed mid-flight")
	}, 1)
	pool.SetInterval(10 * time.Millisecond)
	pool.Start(ctx)
	defer pool.Stop()

	require.Eventually(t, func() bool {
		got, err := repo.GetByID(ctx, job.ID)
		return err == nil && got.Status == models.JobStatusError
	}, 2*time.Second, 10*time.Millisecond)

	got, err := repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, got.Error)
}

// A handler that already drove its job to a terminal state before
// returning an error keeps that state; the backstop Fail is a no-op.
func TestPoolBackstopRespectsTerminalState(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	job := &models.TranscriptionJob{SourceURL: "https://example.com/v/1", Fingerprint: "fp"}
	require.NoError(t, repo.Create(ctx, job))

	pool := NewPool(repo, func(ctx context.Context, job *models.TranscriptionJob) error {
		if err := repo.Complete(ctx, job.ID, "finished anyway", 1); err != nil {
			return err
		}
		return errors.New("late bookkeeping error")
	}, 1)
	pool.SetInterval(10 * time.Millisecond)
	pool.Start(ctx)
	defer pool.Stop()

	require.Eventually(t, func() bool {
		got, err := repo.GetByID(ctx, job.ID)
		return err == nil && got.IsTerminal()
	}, 2*time.Second, 10*time.Millisecond)

	got, err := repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, got.Status)
	assert.Equal(t, "finished anyway", got.Transcript)
	assert.Empty(t, got.Error)
}
