package cache

import (
	"math"
	"sync"
	"time"

	"github.com/clearqueue/staffing/internal/erlang"
)

// patternStore holds recent (pattern, result) observations per service
// and answers "close enough" lookups by similarity.
type patternStore struct {
	mu            sync.RWMutex
	byService     map[string][]*storedPattern
	threshold     float64
	maxPerService int
}

type storedPattern struct {
	pattern  CallPattern
	result   erlang.StaffingResult
	storedAt time.Time
}

func newPatternStore(threshold float64, maxPerService int) *patternStore {
	return &patternStore{
		byService:     make(map[string][]*storedPattern),
		threshold:     threshold,
		maxPerService: maxPerService,
	}
}

// match finds the most similar stored pattern for the same service. On a
// hit the cached agent count is scaled by the ratio of current to
// historical volume; the returned confidence blends similarity with the
// pattern's own confidence.
func (s *patternStore) match(p CallPattern) (erlang.StaffingResult, float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *storedPattern
	bestSim := 0.0
	for _, sp := range s.byService[p.ServiceID] {
		sim := p.Similarity(sp.pattern)
		if sim >= s.threshold && sim > bestSim {
			best, bestSim = sp, sim
		}
	}
	if best == nil {
		return erlang.StaffingResult{}, 0, false
	}

	result := best.result
	if best.pattern.VolumeBucket > 0 && p.VolumeBucket > 0 {
		ratio := p.VolumeBucket / best.pattern.VolumeBucket
		result.Agents = int(math.Ceil(float64(result.Agents) * ratio))
	}
	confidence := bestSim * best.pattern.Confidence
	return result, confidence, true
}

// record stores an observation, keeping at most maxPerService per service
// (oldest dropped first).
func (s *patternStore) record(p CallPattern, r erlang.StaffingResult, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := s.byService[p.ServiceID]
	stored = append(stored, &storedPattern{pattern: p, result: r, storedAt: now})
	if len(stored) > s.maxPerService {
		stored = stored[len(stored)-s.maxPerService:]
	}
	s.byService[p.ServiceID] = stored
}

// hasActive reports whether any pattern is stored for the service.
func (s *patternStore) hasActive(serviceID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byService[serviceID]) > 0
}

func (s *patternStore) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0
	for _, stored := range s.byService {
		total += len(stored)
	}
	return total
}

func (s *patternStore) invalidateService(serviceID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byService, serviceID)
}

func (s *patternStore) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byService = make(map[string][]*storedPattern)
}
