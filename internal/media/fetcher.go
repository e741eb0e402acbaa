// Package media acquires remote audio and adapts it to the
// transcription engine's per-call size ceiling.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	ytdl "github.com/kkdai/youtube/v2"
)

// Metadata is the best-effort descriptive information for a source URL.
type Metadata struct {
	Title           string
	DurationSeconds float64
	ThumbnailURL    string
}

// Download is a locally acquired audio artifact.
type Download struct {
	Path      string
	SizeBytes int64
}

// Fetcher resolves a remote URL into metadata and a local audio file.
type Fetcher interface {
	Metadata(ctx context.Context, url string) (*Metadata, error)
	Fetch(ctx context.Context, url, destDir string) (*Download, error)
}

// audioFormatOrder is the acquisition preference: compact m4a first,
// then webm/opus, then whatever audio track is left.
var audioFormatOrder = []string{"mp4", "webm", "any"}

// YouTubeFetcher implements Fetcher for YouTube URLs.
type YouTubeFetcher struct {
	client ytdl.Client
}

// NewYouTubeFetcher creates a YouTubeFetcher.
func NewYouTubeFetcher() *YouTubeFetcher {
	return &YouTubeFetcher{client: ytdl.Client{}}
}

// Metadata resolves title, duration and thumbnail for a video.
func (f *YouTubeFetcher) Metadata(ctx context.Context, url string) (*Metadata, error) {
	video, err := f.client.GetVideoContext(ctx, url)
	if err != nil {
		return nil, classifyFetchErr(err)
	}

	meta := &Metadata{
		Title:           video.Title,
		DurationSeconds: video.Duration.Seconds(),
	}
	// Largest thumbnail wins.
	var best int
	for _, t := range video.Thumbnails {
		if int(t.Width)*int(t.Height) >= best {
			best = int(t.Width) * int(t.Height)
			meta.ThumbnailURL = t.URL
		}
	}
	return meta, nil
}

// Fetch downloads the audio track into destDir, walking the format
// preference list until one succeeds. The last failure is returned if
// every format fails.
func (f *YouTubeFetcher) Fetch(ctx context.Context, url, destDir string) (*Download, error) {
	video, err := f.client.GetVideoContext(ctx, url)
	if err != nil {
		return nil, classifyFetchErr(err)
	}

	var lastErr error
	for _, mimeFilter := range audioFormatOrder {
		format := selectAudioFormat(video, mimeFilter)
		if format == nil {
			lastErr = fmt.Errorf("%w: no %s audio track", ErrFormatUnavailable, mimeFilter)
			continue
		}

		download, err := f.downloadFormat(ctx, video, format, destDir)
		if err != nil {
			lastErr = err
			continue
		}
		return download, nil
	}
	if lastErr == nil {
		lastErr = ErrFormatUnavailable
	}
	return nil, lastErr
}

// selectAudioFormat picks the most compact audio-only format matching
// the mime filter, preferring the default language track.
func selectAudioFormat(video *ytdl.Video, mimeFilter string) *ytdl.Format {
	var candidates []*ytdl.Format
	for i := range video.Formats {
		format := &video.Formats[i]
		if !strings.HasPrefix(format.MimeType, "audio/") {
			continue
		}
		if mimeFilter != "any" && !strings.Contains(format.MimeType, mimeFilter) {
			continue
		}
		// Skip non-default alternate language tracks.
		if format.AudioTrack != nil && !format.AudioTrack.AudioIsDefault {
			continue
		}
		candidates = append(candidates, format)
	}
	if len(candidates) == 0 {
		return nil
	}

	// Lowest bitrate first: transcription does not benefit from high
	// fidelity and smaller files adapt faster.
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Bitrate < candidates[j].Bitrate
	})
	return candidates[0]
}

func (f *YouTubeFetcher) downloadFormat(ctx context.Context, video *ytdl.Video, format *ytdl.Format, destDir string) (*Download, error) {
	stream, _, err := f.client.GetStreamContext(ctx, video, format)
	if err != nil {
		return nil, classifyFetchErr(err)
	}
	defer stream.Close()

	outputPath := filepath.Join(destDir, "audio"+extensionFor(format.MimeType))
	file, err := os.Create(outputPath)
	if err != nil {
		return nil, err
	}

	written, err := io.Copy(file, stream)
	closeErr := file.Close()
	if err != nil {
		os.Remove(outputPath) // remove partial file on failure
		return nil, fmt.Errorf("%w: %v", ErrInterrupted, err)
	}
	if closeErr != nil {
		os.Remove(outputPath)
		return nil, closeErr
	}

	return &Download{Path: outputPath, SizeBytes: written}, nil
}

// extensionFor maps a MIME type to a file extension.
func extensionFor(mimeType string) string {
	if strings.Contains(mimeType, "mp4") {
		return ".m4a"
	}
	if strings.Contains(mimeType, "webm") {
		return ".webm"
	}
	return ".audio"
}

// classifyFetchErr maps platform errors onto the acquisition taxonomy.
func classifyFetchErr(err error) error {
	var playErr *ytdl.ErrPlayabiltyStatus
	if errors.As(err, &playErr) {
		return fmt.Errorf("%w: %s", ErrAccessRestricted, playErr.Reason)
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "login required"),
		strings.Contains(msg, "age restricted"),
		strings.Contains(msg, "private"),
		strings.Contains(msg, "unavailable"):
		return fmt.Errorf("%w: %v", ErrAccessRestricted, err)
	case strings.Contains(msg, "no format"),
		strings.Contains(msg, "cipher"):
		return fmt.Errorf("%w: %v", ErrFormatUnavailable, err)
	default:
		return err
	}
}
