package cache

import (
	"container/list"
	"sync"
	"time"

	"github.com/clearqueue/staffing/internal/metrics"
)

// evictTargetRatio is the occupancy the scored eviction pass drains to.
const evictTargetRatio = 0.9

// exactStore is the exact-match tier: an LRU list with TTL expiry,
// pattern-drift invalidation, and scored eviction at capacity.
type exactStore struct {
	mu       sync.RWMutex
	capacity int
	ttl      time.Duration
	items    map[string]*list.Element
	lruList  *list.List

	// hasActivePattern reports whether a live pattern exists for a
	// service; entries for such services score higher at eviction time.
	hasActivePattern func(serviceID string) bool

	evictions int64
}

func newExactStore(capacity int, ttl time.Duration, hasActivePattern func(string) bool) *exactStore {
	return &exactStore{
		capacity:         capacity,
		ttl:              ttl,
		items:            make(map[string]*list.Element),
		lruList:          list.New(),
		hasActivePattern: hasActivePattern,
	}
}

// get returns the entry for key if it is fresh and still pattern-relevant.
// Stale or drifted entries are evicted immediately.
func (s *exactStore) get(key, currentFingerprint string, now time.Time) (*CacheEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	elem, exists := s.items[key]
	if !exists {
		return nil, false
	}

	entry := elem.Value.(*CacheEntry)
	if now.Sub(entry.CreatedAt) >= s.ttl {
		s.removeLocked(elem, entry)
		return nil, false
	}
	// Pattern drift: a fingerprint was stored and the service's pattern
	// has since changed.
	if entry.PatternFingerprint != "" && currentFingerprint != "" &&
		entry.PatternFingerprint != currentFingerprint {
		s.removeLocked(elem, entry)
		return nil, false
	}

	s.lruList.MoveToFront(elem)
	entry.LastAccessed = now
	entry.HitCount++
	return entry, true
}

// put inserts or refreshes an entry, running the scored eviction pass
// when the store is at capacity.
func (s *exactStore) put(entry *CacheEntry, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if elem, exists := s.items[entry.Key]; exists {
		s.lruList.MoveToFront(elem)
		elem.Value = entry
		return
	}

	elem := s.lruList.PushFront(entry)
	s.items[entry.Key] = elem

	if s.lruList.Len() > s.capacity {
		s.evictScored(now)
	}
}

// evictScored removes lowest-scoring entries until occupancy is back at
// 90% of capacity. Score favors recent, frequently hit, high-confidence
// entries belonging to services with an active pattern.
func (s *exactStore) evictScored(now time.Time) {
	target := int(float64(s.capacity) * evictTargetRatio)

	for s.lruList.Len() > target {
		var worst *list.Element
		worstScore := 0.0
		for elem := s.lruList.Front(); elem != nil; elem = elem.Next() {
			score := s.score(elem.Value.(*CacheEntry), now)
			if worst == nil || score < worstScore {
				worst, worstScore = elem, score
			}
		}
		if worst == nil {
			return
		}
		s.removeLocked(worst, worst.Value.(*CacheEntry))
	}
}

func (s *exactStore) score(entry *CacheEntry, now time.Time) float64 {
	age := now.Sub(entry.CreatedAt)
	recency := 10 * (1 - age.Seconds()/s.ttl.Seconds())
	if recency < 0 {
		recency = 0
	}

	hits := float64(entry.HitCount)
	if hits > 10 {
		hits = 10
	}

	relevance := 5.0
	if s.hasActivePattern != nil && s.hasActivePattern(entry.ServiceID) {
		relevance = 8.0
	}

	return recency + hits + 10*entry.Confidence + relevance
}

func (s *exactStore) removeLocked(elem *list.Element, entry *CacheEntry) {
	s.lruList.Remove(elem)
	delete(s.items, entry.Key)
	s.evictions++
	metrics.CacheEvictionsTotal.Inc()
}

// invalidateService drops every entry belonging to a service.
func (s *exactStore) invalidateService(serviceID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for elem := s.lruList.Front(); elem != nil; {
		next := elem.Next()
		entry := elem.Value.(*CacheEntry)
		if entry.ServiceID == serviceID {
			s.removeLocked(elem, entry)
			removed++
		}
		elem = next
	}
	return removed
}

func (s *exactStore) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lruList.Len()
}

func (s *exactStore) evictionCount() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.evictions
}

func (s *exactStore) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[string]*list.Element)
	s.lruList = list.New()
}
