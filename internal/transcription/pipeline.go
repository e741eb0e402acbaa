package transcription

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kukshaus/transcribe-sub000/internal/ledger"
	"github.com/kukshaus/transcribe-sub000/internal/media"
	"github.com/kukshaus/transcribe-sub000/internal/models"
)

// Pipeline steps. Metadata resolution is best-effort; everything else
// is fatal on failure.
const (
	stepMetadata   = 1
	stepDownload   = 2
	stepAdapt      = 3
	stepTranscribe = 4
	stepFinalize   = 5
	totalSteps     = 5
)

// Process runs the whole pipeline for a claimed job. It always drives
// the job to a terminal state and always removes the job's temporary
// work directory, on the success and failure paths alike. The returned
// error is for worker logging only; no caller is waiting on it.
func (s *Service) Process(ctx context.Context, job *models.TranscriptionJob) error {
	start := time.Now()

	workDir := filepath.Join(s.dataDir, "tmp", job.ID)
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return s.fail(ctx, job, start, fmt.Errorf("failed to create work directory: %w", err))
	}
	defer os.RemoveAll(workDir)

	// Step 1: resolve metadata. Non-fatal: a missing title never
	// blocks a transcription the user already paid for.
	s.progress(ctx, job, stepMetadata, 5, "resolving metadata")
	var knownDuration float64
	if meta, err := s.fetcher.Metadata(ctx, job.SourceURL); err != nil {
		log.Printf("Job %s: metadata resolution failed: %v", job.ID, err)
	} else {
		knownDuration = meta.DurationSeconds
		if err := s.jobs.SetMetadata(ctx, job.ID, meta.Title, meta.DurationSeconds, meta.ThumbnailURL); err != nil {
			log.Printf("Job %s: failed to store metadata: %v", job.ID, err)
		}
	}

	// Step 2: acquire audio.
	s.progress(ctx, job, stepDownload, 10, "downloading audio")
	download, err := s.fetcher.Fetch(ctx, job.SourceURL, workDir)
	if err != nil {
		return s.fail(ctx, job, start, err)
	}
	if err := s.jobs.SetAudioPath(ctx, job.ID, download.Path); err != nil {
		log.Printf("Job %s: failed to store audio path: %v", job.ID, err)
	}

	// Step 3: adapt to the engine's size ceiling.
	s.progress(ctx, job, stepAdapt, 35, "preparing audio")
	chunkPaths, err := s.adaptAudio(ctx, job, download, knownDuration, workDir)
	if err != nil {
		return s.fail(ctx, job, start, err)
	}

	// Step 4: transcribe sequentially. One call at a time bounds
	// engine concurrency and memory; order is preserved.
	texts := make([]string, 0, len(chunkPaths))
	for i, chunkPath := range chunkPaths {
		detail := fmt.Sprintf("transcribing chunk %d of %d", i+1, len(chunkPaths))
		percentage := 40 + 50*i/len(chunkPaths)
		s.progress(ctx, job, stepTranscribe, percentage, detail)

		text, err := s.engine.Transcribe(ctx, chunkPath)
		if err != nil {
			// A lost chunk means a silently incomplete transcript, so
			// the job fails rather than papering over the hole.
			return s.fail(ctx, job, start, fmt.Errorf("chunk %d of %d: %w", i+1, len(chunkPaths), err))
		}
		texts = append(texts, strings.TrimSpace(text))
	}
	transcript := strings.Join(texts, " ")

	// Step 5: finalize, with optional inline notes.
	s.progress(ctx, job, stepFinalize, 95, "finalizing")
	if job.NotesRequested {
		s.generateInlineNotes(ctx, job, transcript)
	}

	if err := s.jobs.Complete(ctx, job.ID, transcript, time.Since(start).Milliseconds()); err != nil {
		return fmt.Errorf("failed to complete job %s: %w", job.ID, err)
	}
	log.Printf("Job %s completed in %s (%d chunks)", job.ID, time.Since(start).Round(time.Millisecond), len(chunkPaths))
	return nil
}

// adaptAudio turns the downloaded artifact into one or more files that
// each fit the engine limit.
func (s *Service) adaptAudio(ctx context.Context, job *models.TranscriptionJob, download *media.Download, knownDuration float64, workDir string) ([]string, error) {
	duration := knownDuration
	if duration <= 0 {
		probed, err := s.encoder.Probe(ctx, download.Path)
		if err != nil {
			return nil, err
		}
		duration = probed
	}

	plan := media.PlanAdaptation(download.SizeBytes, duration, s.sizeLimitBytes)
	log.Printf("Job %s: %d bytes, %.0fs, adaptation=%s", job.ID, download.SizeBytes, duration, plan.Action)

	var chunkPaths []string
	switch plan.Action {
	case media.AdaptNone:
		chunkPaths = []string{download.Path}

	case media.AdaptReencode:
		reencoded := filepath.Join(workDir, "reencoded.mp3")
		if err := s.encoder.Reencode(ctx, download.Path, reencoded); err != nil {
			return nil, err
		}
		info, err := os.Stat(reencoded)
		if err != nil {
			return nil, err
		}
		if info.Size() <= s.sizeLimitBytes {
			chunkPaths = []string{reencoded}
			break
		}
		// Still too large: fall through to chunking the re-encode.
		split := media.ChunkPlan(info.Size(), duration)
		chunkPaths, err = s.encoder.Split(ctx, reencoded, filepath.Join(workDir, "chunks"), split.ChunkSeconds)
		if err != nil {
			return nil, err
		}

	case media.AdaptChunk:
		var err error
		chunkPaths, err = s.encoder.Split(ctx, download.Path, filepath.Join(workDir, "chunks"), plan.ChunkSeconds)
		if err != nil {
			return nil, err
		}
	}

	// Post-adaptation guarantee: every piece must fit, or the job is
	// unprocessable.
	for _, chunkPath := range chunkPaths {
		info, err := os.Stat(chunkPath)
		if err != nil {
			return nil, err
		}
		if info.Size() > s.sizeLimitBytes {
			return nil, fmt.Errorf("%w: %s is %d bytes", media.ErrSizeLimitExceeded, filepath.Base(chunkPath), info.Size())
		}
	}
	return chunkPaths, nil
}

// generateInlineNotes is the best-effort step 5 extra: notes are
// generated only if the owner still has funds, charged only on
// success, and never fail the job.
func (s *Service) generateInlineNotes(ctx context.Context, job *models.TranscriptionJob, transcript string) {
	if job.IsAnonymous() {
		return // no balance to charge
	}

	balance, err := s.ledger.CheckBalance(ctx, job.OwnerID)
	if err != nil {
		log.Printf("Job %s: inline notes balance check failed: %v", job.ID, err)
		return
	}
	if balance.Amount < ledger.CostNotes {
		log.Printf("Job %s: inline notes skipped, insufficient credits", job.ID)
		s.progress(ctx, job, stepFinalize, 95, "notes skipped (insufficient credits)")
		return
	}

	notesText, err := s.generator.Summarize(ctx, transcript)
	if err != nil {
		log.Printf("Job %s: inline notes generation failed: %v", job.ID, err)
		return
	}
	if _, err := s.ledger.Debit(ctx, job.OwnerID, ledger.CostNotes, models.ReasonNotesGeneration, job.ID); err != nil {
		log.Printf("Job %s: inline notes debit failed: %v", job.ID, err)
		return
	}
	if err := s.jobs.SetNotes(ctx, job.ID, notesText); err != nil {
		log.Printf("Job %s: failed to store inline notes: %v", job.ID, err)
	}
}

// progress records a step transition. Failures are logged, not fatal:
// a missed progress update must never kill a running pipeline.
func (s *Service) progress(ctx context.Context, job *models.TranscriptionJob, step, percentage int, details string) {
	if err := s.jobs.UpdateProgress(ctx, job.ID, step, totalSteps, percentage, details); err != nil {
		log.Printf("Job %s: failed to update progress: %v", job.ID, err)
	}
}

// fail classifies the error, stores the user-facing message and drives
// the job to its error state. The raw error goes to the log only.
func (s *Service) fail(ctx context.Context, job *models.TranscriptionJob, start time.Time, err error) error {
	log.Printf("Job %s failed: %v", job.ID, err)
	if dbErr := s.jobs.Fail(ctx, job.ID, userMessage(err), time.Since(start).Milliseconds()); dbErr != nil {
		log.Printf("Job %s: failed to record failure: %v", job.ID, dbErr)
	}
	return err
}
