package media

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
)

// Encoder adapts audio artifacts: probing duration, shrinking via a
// lossy re-encode, and splitting into time-bounded chunks.
type Encoder interface {
	Probe(ctx context.Context, path string) (float64, error)
	Reencode(ctx context.Context, inputPath, outputPath string) error
	Split(ctx context.Context, inputPath, outputDir string, chunkSeconds float64) ([]string, error)
}

// reencodeArgs is the reduced profile applied to oversized audio:
// mono, 16 kHz, 48 kbps mp3. Plenty for speech recognition and roughly
// 21 MB per hour.
var reencodeArgs = []string{"-ac", "1", "-ar", "16000", "-b:a", "48k", "-codec:a", "libmp3lame"}

// FFmpegEncoder shells out to ffmpeg/ffprobe.
type FFmpegEncoder struct{}

// NewFFmpegEncoder creates an FFmpegEncoder.
func NewFFmpegEncoder() *FFmpegEncoder {
	return &FFmpegEncoder{}
}

// Probe returns the duration of an audio file in seconds.
func (e *FFmpegEncoder) Probe(ctx context.Context, path string) (float64, error) {
	if _, err := exec.LookPath("ffprobe"); err != nil {
		return 0, fmt.Errorf("%w: ffprobe not found", ErrEncoderUnavailable)
	}

	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "csv=p=0",
		path,
	)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("failed to probe audio duration: %w", err)
	}

	var duration float64
	if _, err := fmt.Sscanf(strings.TrimSpace(string(output)), "%f", &duration); err != nil {
		return 0, fmt.Errorf("failed to parse duration: %w", err)
	}
	return duration, nil
}

// Reencode rewrites the input with the reduced profile.
func (e *FFmpegEncoder) Reencode(ctx context.Context, inputPath, outputPath string) error {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return fmt.Errorf("%w: ffmpeg not found", ErrEncoderUnavailable)
	}
	if _, err := os.Stat(inputPath); os.IsNotExist(err) {
		return fmt.Errorf("input file not found: %s", inputPath)
	}

	args := append([]string{"-i", inputPath}, reencodeArgs...)
	args = append(args, "-y", outputPath)
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg re-encode failed: %w\nOutput: %s", err, string(output))
	}
	return nil
}

// Split cuts the input into sequential chunks of chunkSeconds, each
// re-encoded with the reduced profile. Near-empty chunks (below
// MinChunkBytes) are discarded. Returned paths are in playback order.
func (e *FFmpegEncoder) Split(ctx context.Context, inputPath, outputDir string, chunkSeconds float64) ([]string, error) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return nil, fmt.Errorf("%w: ffmpeg not found", ErrEncoderUnavailable)
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create chunk directory: %w", err)
	}

	pattern := filepath.Join(outputDir, "chunk_%03d.mp3")
	args := append([]string{"-i", inputPath}, reencodeArgs...)
	args = append(args,
		"-f", "segment",
		"-segment_time", fmt.Sprintf("%.0f", chunkSeconds),
		"-reset_timestamps", "1",
		"-y", pattern,
	)
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("ffmpeg split failed: %w\nOutput: %s", err, string(output))
	}

	matches, err := filepath.Glob(filepath.Join(outputDir, "chunk_*.mp3"))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches) // %03d keeps lexical order == playback order

	var chunks []string
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		if info.Size() < MinChunkBytes {
			os.Remove(path)
			continue
		}
		chunks = append(chunks, path)
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("split produced no usable chunks")
	}
	return chunks, nil
}
