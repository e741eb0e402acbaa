// Package transcribe wraps the hosted speech-to-text engine.
package transcribe

import (
	"context"
	"errors"
	"fmt"
)

// MaxUploadBytes is the engine's hard per-call upload ceiling. The
// media package sizes its chunks against this.
const MaxUploadBytes = 25 << 20

// Engine converts one audio file into text.
type Engine interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// ErrorKind distinguishes engine failure classes.
type ErrorKind string

const (
	// KindQuota: rate or usage quota exceeded.
	KindQuota ErrorKind = "quota"
	// KindAuth: rejected credentials.
	KindAuth ErrorKind = "auth"
	// KindTransient: network or upstream hiccup.
	KindTransient ErrorKind = "transient"
)

// EngineError is a classified failure from the engine.
type EngineError struct {
	Kind    ErrorKind
	Status  int
	Message string
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("transcription engine %s error (http %d): %s", e.Kind, e.Status, e.Message)
}

// AsEngineError unwraps an EngineError, if err carries one.
func AsEngineError(err error) (*EngineError, bool) {
	var engineErr *EngineError
	if errors.As(err, &engineErr) {
		return engineErr, true
	}
	return nil, false
}

// classifyStatus maps an HTTP status to an error kind.
func classifyStatus(status int) ErrorKind {
	switch status {
	case 401, 403:
		return KindAuth
	case 429:
		return KindQuota
	default:
		return KindTransient
	}
}
