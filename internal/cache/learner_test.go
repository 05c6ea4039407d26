package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/clearqueue/staffing/internal/erlang"
)

func learnerPattern(volume float64) CallPattern {
	return CallPattern{
		ServiceID:        "support",
		VolumeBucket:     volume,
		HandleTimeBucket: 180,
		TargetSLBucket:   0.80,
		Type:             PatternNormal,
		Confidence:       0.9,
	}
}

func TestLearner_Seed(t *testing.T) {
	t.Run("averages enough observations", func(t *testing.T) {
		l := newLearner(1, 16, zap.NewNop())
		for _, agents := range []int{8, 9, 10} {
			l.observe(learnerPattern(100), erlang.StaffingResult{
				Agents:               agents,
				AchievedServiceLevel: 0.83,
			})
		}
		l.close()

		seeded, ok := l.seed(learnerPattern(100))
		require.True(t, ok)
		assert.Equal(t, 9, seeded.Agents)
		assert.InDelta(t, 0.83, seeded.AchievedServiceLevel, 1e-9)
	})

	t.Run("too few observations do not seed", func(t *testing.T) {
		l := newLearner(1, 16, zap.NewNop())
		l.observe(learnerPattern(100), erlang.StaffingResult{Agents: 8})
		l.observe(learnerPattern(100), erlang.StaffingResult{Agents: 9})
		l.close()

		_, ok := l.seed(learnerPattern(100))
		assert.False(t, ok)
	})

	t.Run("unseen shape does not seed", func(t *testing.T) {
		l := newLearner(1, 16, zap.NewNop())
		l.close()

		_, ok := l.seed(learnerPattern(100))
		assert.False(t, ok)
	})

	t.Run("volumes in the same bucket share an average", func(t *testing.T) {
		l := newLearner(1, 16, zap.NewNop())
		// 100, 110 and 120 calls/hr all land in the same 50-wide bucket.
		for _, volume := range []float64{100, 110, 120} {
			l.observe(learnerPattern(volume), erlang.StaffingResult{Agents: 9})
		}
		l.close()

		seeded, ok := l.seed(learnerPattern(105))
		require.True(t, ok)
		assert.Equal(t, 9, seeded.Agents)
		assert.Equal(t, 1, l.len())
	})

	t.Run("distinct shapes keep distinct averages", func(t *testing.T) {
		l := newLearner(1, 16, zap.NewNop())
		peak := learnerPattern(100)
		peak.Type = PatternPeak
		for i := 0; i < 3; i++ {
			l.observe(learnerPattern(100), erlang.StaffingResult{Agents: 8})
			l.observe(peak, erlang.StaffingResult{Agents: 12})
		}
		l.close()

		assert.Equal(t, 2, l.len())
		normal, ok := l.seed(learnerPattern(100))
		require.True(t, ok)
		seededPeak, ok := l.seed(peak)
		require.True(t, ok)
		assert.Equal(t, 8, normal.Agents)
		assert.Equal(t, 12, seededPeak.Agents)
	})
}

func TestLearner_DropsOnFullQueue(t *testing.T) {
	// No workers and a single-slot queue: the second observe must be
	// dropped rather than block the query path.
	l := newLearner(0, 1, zap.NewNop())
	defer l.close()

	l.observe(learnerPattern(100), erlang.StaffingResult{Agents: 8})
	l.observe(learnerPattern(100), erlang.StaffingResult{Agents: 9})

	l.mu.RLock()
	dropped := l.dropped
	l.mu.RUnlock()
	assert.Equal(t, int64(1), dropped)
}

func TestLearner_CloseIsIdempotent(t *testing.T) {
	l := newLearner(2, 16, zap.NewNop())
	l.close()
	assert.NotPanics(t, l.close)
}
