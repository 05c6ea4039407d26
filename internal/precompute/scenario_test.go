package precompute

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScenarioKey(t *testing.T) {
	input := ScenarioInput{
		ArrivalRate:        100,
		AHTSeconds:         180,
		TargetServiceLevel: 0.80,
		TargetWaitSeconds:  20,
	}

	t.Run("deterministic for identical inputs", func(t *testing.T) {
		assert.Equal(t, NewScenarioKey(input), NewScenarioKey(input))
	})

	t.Run("insensitive below rounding granularity", func(t *testing.T) {
		nudged := input
		nudged.ArrivalRate = 100.04 // rounds back to 100.0
		assert.Equal(t, NewScenarioKey(input), NewScenarioKey(nudged))
	})

	t.Run("differs when any rounded input differs", func(t *testing.T) {
		variants := []ScenarioInput{
			{ArrivalRate: 101, AHTSeconds: 180, TargetServiceLevel: 0.80, TargetWaitSeconds: 20},
			{ArrivalRate: 100, AHTSeconds: 181, TargetServiceLevel: 0.80, TargetWaitSeconds: 20},
			{ArrivalRate: 100, AHTSeconds: 180, TargetServiceLevel: 0.81, TargetWaitSeconds: 20},
			{ArrivalRate: 100, AHTSeconds: 180, TargetServiceLevel: 0.80, TargetWaitSeconds: 30},
		}
		for _, v := range variants {
			assert.NotEqual(t, NewScenarioKey(input), NewScenarioKey(v), "%+v", v)
		}
	})

	t.Run("rounded key snaps to the coarse grid", func(t *testing.T) {
		near := ScenarioInput{
			ArrivalRate:        98,
			AHTSeconds:         172,
			TargetServiceLevel: 0.82,
			TargetWaitSeconds:  20,
		}
		assert.Equal(t, NewScenarioKey(input), RoundedKey(near))

		rounded := RoundedInput(near)
		assert.Equal(t, 100.0, rounded.ArrivalRate)
		assert.Equal(t, 180.0, rounded.AHTSeconds)
		assert.Equal(t, 0.80, rounded.TargetServiceLevel)
	})
}

func TestGrids(t *testing.T) {
	t.Run("standard grid is the full cartesian product", func(t *testing.T) {
		grid := StandardGrid()
		assert.Len(t, grid, 12*8*6*6)
	})

	t.Run("extended grid covers high volume short handle time", func(t *testing.T) {
		grid := ExtendedGrid()
		assert.Len(t, grid, 4*3*6*2)
		for _, in := range grid {
			assert.GreaterOrEqual(t, in.ArrivalRate, 1500.0)
			assert.LessOrEqual(t, in.AHTSeconds, 120.0)
		}
	})

	t.Run("full grid has no duplicate keys", func(t *testing.T) {
		grid := FullGrid()
		seen := make(map[ScenarioKey]bool, len(grid))
		for _, in := range grid {
			key := NewScenarioKey(in)
			assert.False(t, seen[key], "duplicate key %s", key)
			seen[key] = true
		}
	})
}

func TestServiceRate(t *testing.T) {
	in := ScenarioInput{AHTSeconds: 180}
	assert.Equal(t, 20.0, in.ServiceRate())
}
