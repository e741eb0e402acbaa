// Package notes derives structured artifacts (meeting-style notes, a
// requirements document) from a transcript via a hosted LLM.
package notes

import (
	"context"
	"errors"
	"fmt"
)

// Generator produces AI-derived artifacts from text.
type Generator interface {
	// Summarize turns a raw transcript into structured notes.
	Summarize(ctx context.Context, transcript string) (string, error)
	// DraftRequirements turns notes into a requirements document.
	DraftRequirements(ctx context.Context, notesText string) (string, error)
}

// GeneratorError is a classified failure from the generator backend.
type GeneratorError struct {
	Status  int
	Message string
}

func (e *GeneratorError) Error() string {
	return fmt.Sprintf("generator error (http %d): %s", e.Status, e.Message)
}

// IsQuotaOrAuth reports whether err is a quota or credential failure,
// the generator's distinct failure class.
func IsQuotaOrAuth(err error) bool {
	var genErr *GeneratorError
	if !errors.As(err, &genErr) {
		return false
	}
	switch genErr.Status {
	case 401, 403, 429:
		return true
	}
	return false
}
