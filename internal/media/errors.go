package media

import "errors"

// Acquisition and adaptation failure classes. The pipeline maps these
// onto user-facing messages; everything else stays an internal error.
var (
	// ErrAccessRestricted: the platform refused to serve the media
	// (private, age-restricted, login required, region-locked).
	ErrAccessRestricted = errors.New("media access restricted")

	// ErrFormatUnavailable: no downloadable audio format exists.
	ErrFormatUnavailable = errors.New("no usable audio format")

	// ErrInterrupted: the transfer started but did not finish.
	ErrInterrupted = errors.New("download interrupted")

	// ErrEncoderUnavailable: ffmpeg/ffprobe is not installed. A
	// configuration error, fatal to the pipeline.
	ErrEncoderUnavailable = errors.New("audio encoder unavailable")

	// ErrSizeLimitExceeded: the artifact still exceeds the engine
	// ceiling after re-encoding and chunking.
	ErrSizeLimitExceeded = errors.New("audio exceeds size limit after adaptation")
)
