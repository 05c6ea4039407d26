package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearqueue/staffing/internal/erlang"
)

func newEntry(key, serviceID string, confidence float64, now time.Time) *CacheEntry {
	return &CacheEntry{
		Key:          key,
		Result:       erlang.StaffingResult{Agents: 8, AchievedServiceLevel: 0.83},
		CreatedAt:    now,
		LastAccessed: now,
		ServiceID:    serviceID,
		Confidence:   confidence,
	}
}

func TestExactStore_TTL(t *testing.T) {
	now := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	store := newExactStore(10, 10*time.Minute, nil)
	store.put(newEntry("k", "support", 1.0, now), now)

	t.Run("fresh entry is served", func(t *testing.T) {
		entry, ok := store.get("k", "", now.Add(9*time.Minute))
		require.True(t, ok)
		assert.Equal(t, 8, entry.Result.Agents)
		assert.Equal(t, int64(1), entry.HitCount)
	})

	t.Run("stale entry is evicted on access", func(t *testing.T) {
		_, ok := store.get("k", "", now.Add(10*time.Minute))
		assert.False(t, ok)
		assert.Zero(t, store.len())
		assert.Equal(t, int64(1), store.evictionCount())
	})
}

func TestExactStore_PatternDrift(t *testing.T) {
	now := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)

	t.Run("matching fingerprint is served", func(t *testing.T) {
		store := newExactStore(10, time.Hour, nil)
		entry := newEntry("k", "support", 1.0, now)
		entry.PatternFingerprint = "support|normal|100|180|0.80"
		store.put(entry, now)

		_, ok := store.get("k", "support|normal|100|180|0.80", now)
		assert.True(t, ok)
	})

	t.Run("drifted fingerprint evicts the entry", func(t *testing.T) {
		store := newExactStore(10, time.Hour, nil)
		entry := newEntry("k", "support", 1.0, now)
		entry.PatternFingerprint = "support|normal|100|180|0.80"
		store.put(entry, now)

		_, ok := store.get("k", "support|peak|500|180|0.80", now)
		assert.False(t, ok)
		assert.Zero(t, store.len())
	})

	t.Run("queries without a pattern skip the check", func(t *testing.T) {
		store := newExactStore(10, time.Hour, nil)
		entry := newEntry("k", "support", 1.0, now)
		entry.PatternFingerprint = "support|normal|100|180|0.80"
		store.put(entry, now)

		_, ok := store.get("k", "", now)
		assert.True(t, ok)
	})
}

func TestExactStore_ScoredEviction(t *testing.T) {
	now := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	store := newExactStore(3, 10*time.Minute, nil)

	// e1 earns a hit and has full confidence; e4 has middling confidence;
	// e2 and e3 score lowest and must go when capacity is exceeded.
	store.put(newEntry("e1", "support", 1.0, now), now)
	store.put(newEntry("e2", "support", 0.0, now), now)
	store.put(newEntry("e3", "support", 0.0, now), now)
	_, ok := store.get("e1", "", now)
	require.True(t, ok)

	store.put(newEntry("e4", "support", 0.5, now), now)

	assert.Equal(t, 2, store.len(), "eviction drains to 90%% of capacity")
	assert.Equal(t, int64(2), store.evictionCount())

	_, ok = store.get("e1", "", now)
	assert.True(t, ok, "hit count and confidence must protect e1")
	_, ok = store.get("e4", "", now)
	assert.True(t, ok)
	_, ok = store.get("e2", "", now)
	assert.False(t, ok)
	_, ok = store.get("e3", "", now)
	assert.False(t, ok)
}

func TestExactStore_ActivePatternRelevance(t *testing.T) {
	now := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	active := map[string]bool{"support": true}
	store := newExactStore(2, 10*time.Minute, func(serviceID string) bool {
		return active[serviceID]
	})

	// Identical entries except service: the one whose service still has a
	// live pattern outscores the orphan.
	store.put(newEntry("kept", "support", 0.5, now), now)
	store.put(newEntry("orphan", "retired", 0.5, now), now)
	store.put(newEntry("new", "support", 0.5, now), now)

	_, ok := store.get("kept", "", now)
	assert.True(t, ok)
	_, ok = store.get("orphan", "", now)
	assert.False(t, ok)
}

func TestExactStore_PutRefreshesExisting(t *testing.T) {
	now := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	store := newExactStore(10, time.Hour, nil)

	store.put(newEntry("k", "support", 1.0, now), now)
	refreshed := newEntry("k", "support", 1.0, now.Add(time.Minute))
	refreshed.Result.Agents = 11
	store.put(refreshed, now.Add(time.Minute))

	assert.Equal(t, 1, store.len())
	entry, ok := store.get("k", "", now.Add(time.Minute))
	require.True(t, ok)
	assert.Equal(t, 11, entry.Result.Agents)
}

func TestExactStore_InvalidateService(t *testing.T) {
	now := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	store := newExactStore(10, time.Hour, nil)

	store.put(newEntry("a1", "alpha", 1.0, now), now)
	store.put(newEntry("a2", "alpha", 1.0, now), now)
	store.put(newEntry("b1", "beta", 1.0, now), now)

	removed := store.invalidateService("alpha")
	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, store.len())

	_, ok := store.get("b1", "", now)
	assert.True(t, ok)
}
