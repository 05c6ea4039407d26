package precompute

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestManagerRun(t *testing.T) {
	t.Run("forced run computes and persists the whole grid", func(t *testing.T) {
		store := NewMemoryStore()
		manager := NewManager(ManagerConfig{Workers: 4}, store, zap.NewNop())

		report, err := manager.Run(context.Background(), true)
		require.NoError(t, err)

		assert.False(t, report.Skipped)
		assert.Equal(t, len(FullGrid()), report.Requested)
		assert.Equal(t, report.Requested, report.Computed)
		assert.Zero(t, report.Failed)
		assert.NotEmpty(t, report.RunID)

		count, err := store.Count(context.Background())
		require.NoError(t, err)
		assert.Equal(t, report.Computed, count)
	})

	t.Run("re-running is idempotent", func(t *testing.T) {
		store := NewMemoryStore()
		manager := NewManager(ManagerConfig{Workers: 4}, store, zap.NewNop())

		_, err := manager.Run(context.Background(), true)
		require.NoError(t, err)
		first, err := store.Count(context.Background())
		require.NoError(t, err)

		_, err = manager.Run(context.Background(), true)
		require.NoError(t, err)
		second, err := store.Count(context.Background())
		require.NoError(t, err)

		assert.Equal(t, first, second, "upserts must not duplicate rows")
	})

	t.Run("populated table short circuits a non-forced run", func(t *testing.T) {
		store := NewMemoryStore()
		manager := NewManager(ManagerConfig{Workers: 4}, store, zap.NewNop())

		_, err := manager.Run(context.Background(), true)
		require.NoError(t, err)

		report, err := manager.Run(context.Background(), false)
		require.NoError(t, err)
		assert.True(t, report.Skipped)
		assert.Zero(t, report.Computed)
	})

	t.Run("stored scenarios carry solver quality", func(t *testing.T) {
		store := NewMemoryStore()
		manager := NewManager(ManagerConfig{Workers: 4}, store, zap.NewNop())

		_, err := manager.Run(context.Background(), true)
		require.NoError(t, err)

		key := NewScenarioKey(ScenarioInput{
			ArrivalRate:        100,
			AHTSeconds:         180,
			TargetServiceLevel: 0.80,
			TargetWaitSeconds:  30,
		})
		sc, ok, err := store.Get(context.Background(), key)
		require.NoError(t, err)
		require.True(t, ok, "a standard grid point must be present")

		assert.GreaterOrEqual(t, sc.Result.Agents, 5, "agents must cover the offered load")
		assert.GreaterOrEqual(t, sc.Result.AchievedServiceLevel, 0.80)
		assert.InDelta(t, 5.0, sc.OfferedLoad, 1e-9)
		assert.Greater(t, sc.Occupancy, 0.0)
		assert.Less(t, sc.Occupancy, 1.0)
		assert.Greater(t, sc.AvgWaitSeconds, 0.0)
		assert.NotEmpty(t, sc.RunID)
		assert.False(t, sc.VerifiedAt.IsZero())
	})

	t.Run("cancellation stops the run", func(t *testing.T) {
		store := NewMemoryStore()
		manager := NewManager(ManagerConfig{Workers: 2}, store, zap.NewNop())

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		report, err := manager.Run(ctx, true)
		assert.Error(t, err)
		assert.Less(t, report.Computed, report.Requested)
	})
}

func TestMemoryStore(t *testing.T) {
	t.Run("get miss returns not found", func(t *testing.T) {
		store := NewMemoryStore()
		_, ok, err := store.Get(context.Background(), ScenarioKey("missing"))
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("purge empties the table", func(t *testing.T) {
		store := NewMemoryStore()
		sc := &PrecomputedScenario{Key: ScenarioKey("k")}
		require.NoError(t, store.Upsert(context.Background(), []*PrecomputedScenario{sc}))

		require.NoError(t, store.Purge(context.Background()))
		count, err := store.Count(context.Background())
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("mark verified stamps entries", func(t *testing.T) {
		store := NewMemoryStore()
		sc := &PrecomputedScenario{Key: ScenarioKey("k")}
		require.NoError(t, store.Upsert(context.Background(), []*PrecomputedScenario{sc}))

		stamp := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
		require.NoError(t, store.MarkVerified(context.Background(), []ScenarioKey{"k"}, stamp))

		got, ok, err := store.Get(context.Background(), ScenarioKey("k"))
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, stamp, got.VerifiedAt)
	})

	t.Run("returned scenarios are copies", func(t *testing.T) {
		store := NewMemoryStore()
		sc := &PrecomputedScenario{Key: ScenarioKey("k")}
		require.NoError(t, store.Upsert(context.Background(), []*PrecomputedScenario{sc}))

		first, _, err := store.Get(context.Background(), ScenarioKey("k"))
		require.NoError(t, err)
		first.Result.Agents = 999

		second, _, err := store.Get(context.Background(), ScenarioKey("k"))
		require.NoError(t, err)
		assert.NotEqual(t, 999, second.Result.Agents)
	})
}
