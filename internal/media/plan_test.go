package media

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlanAdaptation(t *testing.T) {
	const mb = 1 << 20

	tests := []struct {
		name            string
		sizeBytes       int64
		durationSeconds float64
		want            Adaptation
	}{
		{"fits exactly", 25 * mb, 600, AdaptNone},
		{"small file", 3 * mb, 120, AdaptNone},
		{"just over limit", 26 * mb, 600, AdaptReencode},
		{"under triple limit", 74 * mb, 1800, AdaptReencode},
		{"triple limit", 75 * mb, 1800, AdaptChunk},
		{"huge file", 500 * mb, 7200, AdaptChunk},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := PlanAdaptation(tt.sizeBytes, tt.durationSeconds, DefaultSizeLimitBytes)
			assert.Equal(t, tt.want, plan.Action)
		})
	}
}

// 1800s of audio at 90MB against the 25MB limit must chunk into
// pieces whose estimated size stays at or under the 20MB target and
// whose duration lands inside the [5min, 10min] window.
func TestChunkPlanSizing(t *testing.T) {
	const mb = 1 << 20
	sizeBytes := int64(90 * mb)
	duration := 1800.0

	plan := PlanAdaptation(sizeBytes, duration, 25*mb)

	assert.Equal(t, AdaptChunk, plan.Action)
	assert.GreaterOrEqual(t, plan.ChunkSeconds, float64(MinChunkSeconds))
	assert.LessOrEqual(t, plan.ChunkSeconds, float64(MaxChunkSeconds))

	estimatedChunkBytes := float64(sizeBytes) * plan.ChunkSeconds / duration
	assert.LessOrEqual(t, estimatedChunkBytes, float64(TargetChunkBytes))

	wantCount := int(math.Ceil(duration / plan.ChunkSeconds))
	assert.Equal(t, wantCount, plan.ChunkCount)
	// 90MB * 400s/1800s = 20MB per chunk, 5 chunks of 400s.
	assert.Equal(t, 400.0, plan.ChunkSeconds)
	assert.Equal(t, 5, plan.ChunkCount)
}

func TestChunkPlanClamping(t *testing.T) {
	const mb = 1 << 20

	// Dense audio: natural chunk would be tiny, clamp to 5 minutes.
	dense := ChunkPlan(1000*mb, 1200)
	assert.Equal(t, float64(MinChunkSeconds), dense.ChunkSeconds)

	// Sparse audio: natural chunk would be enormous, clamp to 10
	// minutes.
	sparse := ChunkPlan(80*mb, 36000)
	assert.Equal(t, float64(MaxChunkSeconds), sparse.ChunkSeconds)

	// At least one chunk even for degenerate durations.
	tiny := ChunkPlan(80*mb, 1)
	assert.Equal(t, 1, tiny.ChunkCount)
}
