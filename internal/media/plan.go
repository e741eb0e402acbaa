package media

import "math"

// Sizing constants for the transcription engine's hard per-call
// ceiling and the chunking strategy that works around it.
const (
	// DefaultSizeLimitBytes is the engine's per-call upload ceiling.
	DefaultSizeLimitBytes = 25 << 20

	// TargetChunkBytes is the size each chunk aims for, kept under the
	// limit so re-encoding variance cannot push a chunk over it.
	TargetChunkBytes = 20 << 20

	// Chunk durations are clamped to this window: long enough that the
	// per-call overhead stays small, short enough to bound memory.
	MinChunkSeconds = 5 * 60
	MaxChunkSeconds = 10 * 60

	// MinChunkBytes filters out near-empty trailing chunks.
	MinChunkBytes = 1024
)

// Adaptation is the strategy chosen for an acquired audio artifact.
type Adaptation int

const (
	// AdaptNone: the artifact already fits, transcribe it directly.
	AdaptNone Adaptation = iota
	// AdaptReencode: a lossy re-encode should bring it under the
	// limit; fall through to chunking if it does not.
	AdaptReencode
	// AdaptChunk: split into sequential time-bounded chunks.
	AdaptChunk
)

func (a Adaptation) String() string {
	switch a {
	case AdaptNone:
		return "none"
	case AdaptReencode:
		return "reencode"
	case AdaptChunk:
		return "chunk"
	default:
		return "unknown"
	}
}

// Plan describes how to make an artifact fit the engine limit.
type Plan struct {
	Action       Adaptation
	ChunkSeconds float64
	ChunkCount   int
}

// PlanAdaptation decides between direct use, re-encoding and chunking.
// Between 1x and 3x the limit a mono low-bitrate re-encode usually
// fits; beyond that chunking is certain, so re-encoding the whole file
// first would only waste a pass.
func PlanAdaptation(sizeBytes int64, durationSeconds float64, limitBytes int64) Plan {
	if limitBytes <= 0 {
		limitBytes = DefaultSizeLimitBytes
	}
	if sizeBytes <= limitBytes {
		return Plan{Action: AdaptNone}
	}
	if sizeBytes < 3*limitBytes {
		return Plan{Action: AdaptReencode}
	}
	return ChunkPlan(sizeBytes, durationSeconds)
}

// ChunkPlan estimates a chunk duration that lands each chunk near
// TargetChunkBytes, clamped to the allowed window.
func ChunkPlan(sizeBytes int64, durationSeconds float64) Plan {
	chunkSeconds := durationSeconds * float64(TargetChunkBytes) / float64(sizeBytes)
	if chunkSeconds < MinChunkSeconds {
		chunkSeconds = MinChunkSeconds
	}
	if chunkSeconds > MaxChunkSeconds {
		chunkSeconds = MaxChunkSeconds
	}
	count := int(math.Ceil(durationSeconds / chunkSeconds))
	if count < 1 {
		count = 1
	}
	return Plan{Action: AdaptChunk, ChunkSeconds: chunkSeconds, ChunkCount: count}
}
