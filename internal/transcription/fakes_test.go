package transcription

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kukshaus/transcribe-sub000/internal/media"
)

// Test doubles for the external collaborators: media platform, audio
// encoder, speech-to-text engine and notes generator.

func writeBytes(path string, n int) error {
	return os.WriteFile(path, make([]byte, n), 0644)
}

type fakeFetcher struct {
	meta      *media.Metadata
	metaErr   error
	fetchErr  error
	audioSize int
}

func (f *fakeFetcher) Metadata(ctx context.Context, url string) (*media.Metadata, error) {
	if f.metaErr != nil {
		return nil, f.metaErr
	}
	if f.meta != nil {
		return f.meta, nil
	}
	return &media.Metadata{Title: "Test Video", DurationSeconds: 60}, nil
}

func (f *fakeFetcher) Fetch(ctx context.Context, url, destDir string) (*media.Download, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	path := filepath.Join(destDir, "audio.m4a")
	if err := writeBytes(path, f.audioSize); err != nil {
		return nil, err
	}
	return &media.Download{Path: path, SizeBytes: int64(f.audioSize)}, nil
}

type fakeEncoder struct {
	probeSeconds  float64
	reencodedSize int
	chunkSizes    []int
	splitSeconds  float64 // records the requested chunk duration
}

func (e *fakeEncoder) Probe(ctx context.Context, path string) (float64, error) {
	if e.probeSeconds <= 0 {
		return 60, nil
	}
	return e.probeSeconds, nil
}

func (e *fakeEncoder) Reencode(ctx context.Context, inputPath, outputPath string) error {
	return writeBytes(outputPath, e.reencodedSize)
}

func (e *fakeEncoder) Split(ctx context.Context, inputPath, outputDir string, chunkSeconds float64) ([]string, error) {
	e.splitSeconds = chunkSeconds
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, err
	}
	var paths []string
	for i, size := range e.chunkSizes {
		path := filepath.Join(outputDir, fmt.Sprintf("chunk_%03d.mp3", i))
		if err := writeBytes(path, size); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

type fakeEngine struct {
	texts []string // one per call, cycled from the front
	errAt int      // 1-based call index that fails; 0 = never
	err   error
	calls []string // audio paths, in call order
}

func (e *fakeEngine) Transcribe(ctx context.Context, audioPath string) (string, error) {
	e.calls = append(e.calls, audioPath)
	if e.errAt > 0 && len(e.calls) == e.errAt {
		return "", e.err
	}
	if len(e.texts) == 0 {
		return "transcribed", nil
	}
	text := e.texts[0]
	if len(e.texts) > 1 {
		e.texts = e.texts[1:]
	}
	return text, nil
}

type fakeGenerator struct {
	notesText      string
	docText        string
	summarizeErr   error
	draftErr       error
	summarizeCalls int
	draftCalls     int
}

func (g *fakeGenerator) Summarize(ctx context.Context, transcript string) (string, error) {
	g.summarizeCalls++
	if g.summarizeErr != nil {
		return "", g.summarizeErr
	}
	if g.notesText == "" {
		return "notes for: " + transcript, nil
	}
	return g.notesText, nil
}

func (g *fakeGenerator) DraftRequirements(ctx context.Context, notesText string) (string, error) {
	g.draftCalls++
	if g.draftErr != nil {
		return "", g.draftErr
	}
	if g.docText == "" {
		return "requirements from: " + notesText, nil
	}
	return g.docText, nil
}
