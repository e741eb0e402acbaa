// Package transcription orchestrates the job lifecycle: authorizing
// creation against the ledger or the anonymous tracker, running the
// acquisition/adaptation/transcription pipeline, and serving the
// on-demand notes and requirements-doc generators.
package transcription

import (
	"context"
	"fmt"
	"net/url"

	"github.com/google/uuid"
	"github.com/kukshaus/transcribe-sub000/internal/ledger"
	"github.com/kukshaus/transcribe-sub000/internal/media"
	"github.com/kukshaus/transcribe-sub000/internal/models"
	"github.com/kukshaus/transcribe-sub000/internal/notes"
	"github.com/kukshaus/transcribe-sub000/internal/storage"
	"github.com/kukshaus/transcribe-sub000/internal/transcribe"
	"github.com/kukshaus/transcribe-sub000/internal/usage"
)

// Service wires the job pipeline to its collaborators. Balance changes
// always go through the ledger; the service never touches account rows
// directly.
type Service struct {
	jobs      *storage.JobRepository
	ledger    *ledger.Ledger
	tracker   *usage.Tracker
	fetcher   media.Fetcher
	encoder   media.Encoder
	engine    transcribe.Engine
	generator notes.Generator

	dataDir        string
	sizeLimitBytes int64
}

// Options carries the service tunables.
type Options struct {
	DataDir string
	// SizeLimitBytes overrides the engine upload ceiling; zero selects
	// the default.
	SizeLimitBytes int64
}

// NewService creates a Service.
func NewService(
	jobs *storage.JobRepository,
	l *ledger.Ledger,
	tracker *usage.Tracker,
	fetcher media.Fetcher,
	encoder media.Encoder,
	engine transcribe.Engine,
	generator notes.Generator,
	opts Options,
) *Service {
	limit := opts.SizeLimitBytes
	if limit <= 0 {
		limit = media.DefaultSizeLimitBytes
	}
	return &Service{
		jobs:           jobs,
		ledger:         l,
		tracker:        tracker,
		fetcher:        fetcher,
		encoder:        encoder,
		engine:         engine,
		generator:      generator,
		dataDir:        opts.DataDir,
		sizeLimitBytes: limit,
	}
}

// Caller identifies who is making a request: an authenticated account,
// or an anonymous device fingerprint.
type Caller struct {
	OwnerID     string
	Fingerprint string
	ClientIP    string
	UserAgent   string
}

// CreateJobRequest is a job submission.
type CreateJobRequest struct {
	URL       string
	Caller    Caller
	WithNotes bool // generate notes inline after transcription
}

// CreateJob authorizes and records a new pending job. Authenticated
// callers are charged one credit up front; the charge is not refunded
// if the pipeline later fails. Anonymous callers consume one free-tier
// slot instead. The pipeline itself runs on the worker pool; this
// returns as soon as the job row exists.
func (s *Service) CreateJob(ctx context.Context, req CreateJobRequest) (*models.TranscriptionJob, error) {
	if err := validateSourceURL(req.URL); err != nil {
		return nil, err
	}

	job := &models.TranscriptionJob{
		ID:             uuid.New().String(),
		SourceURL:      req.URL,
		Status:         models.JobStatusPending,
		NotesRequested: req.WithNotes,
	}

	if req.Caller.OwnerID != "" {
		// Prepaid: debit before the job exists, no refund on failure.
		if _, err := s.ledger.Debit(ctx, req.Caller.OwnerID, ledger.CostTranscription, models.ReasonTranscriptionCreation, job.ID); err != nil {
			return nil, err
		}
		job.OwnerID = req.Caller.OwnerID
	} else {
		if req.Caller.Fingerprint == "" {
			return nil, fmt.Errorf("%w: missing account or device fingerprint", ErrValidation)
		}
		if _, err := s.tracker.CheckAndReserve(ctx, req.Caller.Fingerprint, req.Caller.ClientIP, req.Caller.UserAgent); err != nil {
			return nil, err
		}
		job.Fingerprint = req.Caller.Fingerprint
	}

	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}
	return job, nil
}

// GetJob returns the job view after an ownership check.
func (s *Service) GetJob(ctx context.Context, jobID string, caller Caller) (*models.JobView, error) {
	job, err := s.authorizedJob(ctx, jobID, caller)
	if err != nil {
		return nil, err
	}
	view := job.View()
	return &view, nil
}

// ListJobs returns the caller's jobs, newest first.
func (s *Service) ListJobs(ctx context.Context, caller Caller, limit int) ([]models.JobView, error) {
	var jobs []models.TranscriptionJob
	var err error
	switch {
	case caller.OwnerID != "":
		jobs, err = s.jobs.ListByOwner(ctx, caller.OwnerID, limit)
	case caller.Fingerprint != "":
		jobs, err = s.jobs.ListByFingerprint(ctx, caller.Fingerprint, limit)
	default:
		return nil, fmt.Errorf("%w: missing account or device fingerprint", ErrValidation)
	}
	if err != nil {
		return nil, err
	}
	views := make([]models.JobView, len(jobs))
	for i := range jobs {
		views[i] = jobs[i].View()
	}
	return views, nil
}

// NotesResult is the outcome of an on-demand notes generation.
type NotesResult struct {
	NotesText        string `json:"notes_text"`
	RemainingBalance int64  `json:"remaining_balance"`
}

// GenerateNotes produces structured notes for a completed job.
// Pay-on-success: the balance is verified first, the external
// generation runs, and only a successful generation is debited. A
// generation failure leaves the balance untouched.
func (s *Service) GenerateNotes(ctx context.Context, jobID string, caller Caller) (*NotesResult, error) {
	job, err := s.ownedCompletedJob(ctx, jobID, caller)
	if err != nil {
		return nil, err
	}

	if job.Notes != "" {
		balance, err := s.ledger.CheckBalance(ctx, caller.OwnerID)
		if err != nil {
			return nil, err
		}
		return &NotesResult{NotesText: job.Notes, RemainingBalance: balance.Amount}, nil
	}

	balance, err := s.ledger.CheckBalance(ctx, caller.OwnerID)
	if err != nil {
		return nil, err
	}
	if balance.Amount < ledger.CostNotes {
		return nil, ledger.ErrInsufficientFunds
	}

	notesText, err := s.generator.Summarize(ctx, job.Transcript)
	if err != nil {
		return nil, fmt.Errorf("notes generation failed: %w", err)
	}

	remaining, err := s.ledger.Debit(ctx, caller.OwnerID, ledger.CostNotes, models.ReasonNotesGeneration, job.ID)
	if err != nil {
		return nil, err
	}
	if err := s.jobs.SetNotes(ctx, job.ID, notesText); err != nil {
		return nil, err
	}
	return &NotesResult{NotesText: notesText, RemainingBalance: remaining}, nil
}

// RequirementsResult is the outcome of a requirements-doc generation.
type RequirementsResult struct {
	DocText          string `json:"doc_text"`
	RemainingBalance int64  `json:"remaining_balance"`
}

// GenerateRequirementsDoc drafts a requirements document from the
// job's notes. Costs two credits, taken as one atomic debit.
func (s *Service) GenerateRequirementsDoc(ctx context.Context, jobID string, caller Caller) (*RequirementsResult, error) {
	job, err := s.ownedCompletedJob(ctx, jobID, caller)
	if err != nil {
		return nil, err
	}
	if job.Notes == "" {
		return nil, ErrNotesRequired
	}

	if job.RequirementsDoc != "" {
		balance, err := s.ledger.CheckBalance(ctx, caller.OwnerID)
		if err != nil {
			return nil, err
		}
		return &RequirementsResult{DocText: job.RequirementsDoc, RemainingBalance: balance.Amount}, nil
	}

	balance, err := s.ledger.CheckBalance(ctx, caller.OwnerID)
	if err != nil {
		return nil, err
	}
	if balance.Amount < ledger.CostRequirementsDoc {
		return nil, ledger.ErrInsufficientFunds
	}

	docText, err := s.generator.DraftRequirements(ctx, job.Notes)
	if err != nil {
		return nil, fmt.Errorf("requirements doc generation failed: %w", err)
	}

	remaining, err := s.ledger.Debit(ctx, caller.OwnerID, ledger.CostRequirementsDoc, models.ReasonRequirementsDoc, job.ID)
	if err != nil {
		return nil, err
	}
	if err := s.jobs.SetRequirementsDoc(ctx, job.ID, docText); err != nil {
		return nil, err
	}
	return &RequirementsResult{DocText: docText, RemainingBalance: remaining}, nil
}

// authorizedJob loads a job and verifies the caller may see it.
func (s *Service) authorizedJob(ctx context.Context, jobID string, caller Caller) (*models.TranscriptionJob, error) {
	if _, err := uuid.Parse(jobID); err != nil {
		return nil, fmt.Errorf("%w: malformed job id", ErrValidation)
	}
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, ErrNotFound
	}
	if job.OwnerID != "" {
		if job.OwnerID != caller.OwnerID {
			return nil, ErrAccessDenied
		}
	} else if job.Fingerprint != caller.Fingerprint {
		return nil, ErrAccessDenied
	}
	return job, nil
}

// ownedCompletedJob is the precondition for the paid generators:
// authenticated owner, completed job, transcript present.
func (s *Service) ownedCompletedJob(ctx context.Context, jobID string, caller Caller) (*models.TranscriptionJob, error) {
	if caller.OwnerID == "" {
		return nil, ErrAccessDenied
	}
	job, err := s.authorizedJob(ctx, jobID, caller)
	if err != nil {
		return nil, err
	}
	if job.Status != models.JobStatusCompleted || job.Transcript == "" {
		return nil, ErrNotReady
	}
	return job, nil
}

// validateSourceURL accepts absolute http(s) URLs only.
func validateSourceURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("%w: source URL must be absolute http(s)", ErrValidation)
	}
	return nil
}
