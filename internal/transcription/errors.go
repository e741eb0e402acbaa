package transcription

import (
	"errors"

	"github.com/kukshaus/transcribe-sub000/internal/media"
	"github.com/kukshaus/transcribe-sub000/internal/transcribe"
)

// Synchronous failures returned to the caller before any job exists.
var (
	// ErrValidation: malformed URL or job id.
	ErrValidation = errors.New("invalid request")
	// ErrNotFound: no such job.
	ErrNotFound = errors.New("job not found")
	// ErrAccessDenied: the job belongs to someone else.
	ErrAccessDenied = errors.New("access denied")
	// ErrNotesRequired: a requirements doc needs notes first.
	ErrNotesRequired = errors.New("notes must be generated first")
	// ErrNotReady: the job has no transcript yet.
	ErrNotReady = errors.New("transcription is not completed yet")
)

// User-facing messages stored on failed jobs. Raw pipeline errors are
// classified into this fixed set; the details stay in the server log.
const (
	msgAccessRestricted = "This video is private, age-restricted or otherwise unavailable. Try a different URL."
	msgFormatMissing    = "No downloadable audio was found for this URL."
	msgInterrupted      = "The download was interrupted. Please try again."
	msgEncoderMissing   = "Audio processing is temporarily unavailable. Please try again later."
	msgTooLarge         = "This recording is too large to process."
	msgEngineQuota      = "The transcription service is over capacity right now. Please try again in a few minutes."
	msgEngineAuth       = "The transcription service rejected the request. Please contact support."
	msgGeneric          = "Transcription failed. Please try again later."
)

// userMessage maps a pipeline error onto its user-facing message.
func userMessage(err error) string {
	switch {
	case errors.Is(err, media.ErrAccessRestricted):
		return msgAccessRestricted
	case errors.Is(err, media.ErrFormatUnavailable):
		return msgFormatMissing
	case errors.Is(err, media.ErrInterrupted):
		return msgInterrupted
	case errors.Is(err, media.ErrEncoderUnavailable):
		return msgEncoderMissing
	case errors.Is(err, media.ErrSizeLimitExceeded):
		return msgTooLarge
	}

	if engineErr, ok := transcribe.AsEngineError(err); ok {
		switch engineErr.Kind {
		case transcribe.KindQuota:
			return msgEngineQuota
		case transcribe.KindAuth:
			return msgEngineAuth
		}
	}
	return msgGeneric
}
