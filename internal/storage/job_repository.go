package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kukshaus/transcribe-sub000/internal/models"
)

// JobRepository is the data access layer for transcription jobs.
type JobRepository struct {
	db *DB
}

// NewJobRepository creates a new JobRepository.
func NewJobRepository(db *DB) *JobRepository {
	return &JobRepository{db: db}
}

const jobColumns = `id, source_url, owner_id, fingerprint, status,
	step_number, total_steps, percentage, details,
	title, duration_seconds, thumbnail_url,
	transcript, notes, requirements_doc, audio_path,
	notes_requested, processing_ms, error,
	created_at, updated_at, started_at, completed_at`

func scanJob(row interface{ Scan(...any) error }) (*models.TranscriptionJob, error) {
	var j models.TranscriptionJob
	var ownerID, fingerprint sql.NullString
	var startedAt, completedAt sql.NullTime
	err := row.Scan(
		&j.ID, &j.SourceURL, &ownerID, &fingerprint, &j.Status,
		&j.StepNumber, &j.TotalSteps, &j.Percentage, &j.Details,
		&j.Title, &j.DurationSeconds, &j.ThumbnailURL,
		&j.Transcript, &j.Notes, &j.RequirementsDoc, &j.AudioPath,
		&j.NotesRequested, &j.ProcessingMs, &j.Error,
		&j.CreatedAt, &j.UpdatedAt, &startedAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}
	j.OwnerID = ownerID.String
	j.Fingerprint = fingerprint.String
	if startedAt.Valid {
		j.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		j.CompletedAt = &completedAt.Time
	}
	return &j, nil
}

func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Create inserts a new job in pending state.
func (r *JobRepository) Create(ctx context.Context, job *models.TranscriptionJob) error {
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	now := time.Now()
	job.CreatedAt = now
	job.UpdatedAt = now
	if job.Status == "" {
		job.Status = models.JobStatusPending
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO transcription_jobs (
			id, source_url, owner_id, fingerprint, status,
			step_number, total_steps, percentage, details,
			title, duration_seconds, thumbnail_url,
			transcript, notes, requirements_doc, audio_path,
			notes_requested, processing_ms, error,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, 0, 0, 0, '', '', 0, '', '', '', '', '', ?, 0, '', ?, ?)`,
		job.ID, job.SourceURL, nullStr(job.OwnerID), nullStr(job.Fingerprint), job.Status,
		job.NotesRequested, job.CreatedAt, job.UpdatedAt,
	)
	return err
}

// GetByID returns a job, or nil if it does not exist.
func (r *JobRepository) GetByID(ctx context.Context, id string) (*models.TranscriptionJob, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM transcription_jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return job, nil
}

// ClaimNextPending atomically moves the oldest pending job to
// processing and returns it. The conditional update is the
// serialization point between competing workers; nil means the queue
// is empty.
func (r *JobRepository) ClaimNextPending(ctx context.Context) (*models.TranscriptionJob, error) {
	now := time.Now()
	row := r.db.QueryRowContext(ctx, `
		UPDATE transcription_jobs
		SET status = ?, started_at = ?, updated_at = ?
		WHERE id = (
			SELECT id FROM transcription_jobs
			WHERE status = ?
			ORDER BY created_at
			LIMIT 1
		) AND status = ?
		RETURNING `+jobColumns,
		models.JobStatusProcessing, now, now,
		models.JobStatusPending, models.JobStatusPending,
	)
	job, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return job, nil
}

// UpdateProgress records a pipeline step. MAX() keeps the stored
// percentage monotonically non-decreasing even if steps report out of
// order.
func (r *JobRepository) UpdateProgress(ctx context.Context, id string, step, total, percentage int, details string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE transcription_jobs
		SET step_number = ?, total_steps = ?,
		    percentage = MAX(percentage, ?), details = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		step, total, percentage, details, time.Now(), id, models.JobStatusProcessing,
	)
	return err
}

// SetMetadata stores best-effort media metadata on the job.
func (r *JobRepository) SetMetadata(ctx context.Context, id, title string, durationSeconds float64, thumbnailURL string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE transcription_jobs
		SET title = ?, duration_seconds = ?, thumbnail_url = ?, updated_at = ?
		WHERE id = ?`,
		title, durationSeconds, thumbnailURL, time.Now(), id,
	)
	return err
}

// SetAudioPath records the acquired audio artifact location.
func (r *JobRepository) SetAudioPath(ctx context.Context, id, path string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE transcription_jobs SET audio_path = ?, updated_at = ? WHERE id = ?`,
		path, time.Now(), id,
	)
	return err
}

// Complete finalizes a successful job with its transcript.
func (r *JobRepository) Complete(ctx context.Context, id, transcript string, processingMs int64) error {
	now := time.Now()
	_, err := r.db.ExecContext(ctx, `
		UPDATE transcription_jobs
		SET status = ?, transcript = ?, processing_ms = ?, percentage = 100,
		    details = '', completed_at = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		models.JobStatusCompleted, transcript, processingMs, now, now,
		id, models.JobStatusProcessing,
	)
	return err
}

// Fail finalizes a failed job with its user-facing error message.
func (r *JobRepository) Fail(ctx context.Context, id, errorMsg string, processingMs int64) error {
	now := time.Now()
	_, err := r.db.ExecContext(ctx, `
		UPDATE transcription_jobs
		SET status = ?, error = ?, processing_ms = ?, completed_at = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		models.JobStatusError, errorMsg, processingMs, now, now,
		id, models.JobStatusProcessing,
	)
	return err
}

// SetNotes stores generated notes on a completed job.
func (r *JobRepository) SetNotes(ctx context.Context, id, notes string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE transcription_jobs SET notes = ?, updated_at = ? WHERE id = ?`,
		notes, time.Now(), id,
	)
	return err
}

// SetRequirementsDoc stores a generated requirements document.
func (r *JobRepository) SetRequirementsDoc(ctx context.Context, id, doc string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE transcription_jobs SET requirements_doc = ?, updated_at = ? WHERE id = ?`,
		doc, time.Now(), id,
	)
	return err
}

// ListByOwner returns an owner's jobs, newest first.
func (r *JobRepository) ListByOwner(ctx context.Context, ownerID string, limit int) ([]models.TranscriptionJob, error) {
	if limit == 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+jobColumns+` FROM transcription_jobs
		 WHERE owner_id = ? ORDER BY created_at DESC LIMIT ?`,
		ownerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectJobs(rows)
}

// ListByFingerprint returns an anonymous caller's jobs, newest first.
func (r *JobRepository) ListByFingerprint(ctx context.Context, fingerprint string, limit int) ([]models.TranscriptionJob, error) {
	if limit == 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+jobColumns+` FROM transcription_jobs
		 WHERE fingerprint = ? AND owner_id IS NULL
		 ORDER BY created_at DESC LIMIT ?`,
		fingerprint, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectJobs(rows)
}

// ReassignFingerprintJobs moves ownership of all jobs created under a
// fingerprint (and not yet owned) to the given account. Returns the
// number of jobs moved.
func (r *JobRepository) ReassignFingerprintJobs(ctx context.Context, fingerprint, ownerID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE transcription_jobs
		SET owner_id = ?, updated_at = ?
		WHERE fingerprint = ? AND owner_id IS NULL`,
		ownerID, time.Now(), fingerprint,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CountByStatus returns job counts grouped by status.
func (r *JobRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM transcription_jobs GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

func collectJobs(rows *sql.Rows) ([]models.TranscriptionJob, error) {
	var jobs []models.TranscriptionJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}
