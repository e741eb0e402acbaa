package transcription

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kukshaus/transcribe-sub000/internal/media"
	"github.com/kukshaus/transcribe-sub000/internal/transcribe"
)

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"access restricted", media.ErrAccessRestricted, msgAccessRestricted},
		{"wrapped access restricted", fmt.Errorf("video abc: %w", media.ErrAccessRestricted), msgAccessRestricted},
		{"format unavailable", media.ErrFormatUnavailable, msgFormatMissing},
		{"interrupted", media.ErrInterrupted, msgInterrupted},
		{"encoder missing", media.ErrEncoderUnavailable, msgEncoderMissing},
		{"too large", fmt.Errorf("%w: chunk_001.mp3 is 30000000 bytes", media.ErrSizeLimitExceeded), msgTooLarge},
		{"engine quota", &transcribe.EngineError{Kind: transcribe.KindQuota, Status: 429}, msgEngineQuota},
		{"engine auth", &transcribe.EngineError{Kind: transcribe.KindAuth, Status: 401}, msgEngineAuth},
		{"engine transient", &transcribe.EngineError{Kind: transcribe.KindTransient, Status: 502}, msgGeneric},
		{"wrapped engine error", fmt.Errorf("chunk 2 of 5: %w", &transcribe.EngineError{Kind: transcribe.KindQuota, Status: 429}), msgEngineQuota},
		{"unclassified", errors.New("disk full"), msgGeneric},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, userMessage(tt.err))
		})
	}
}
