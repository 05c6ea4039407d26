package precompute

import (
	"context"
	"sync"
	"time"
)

// ScenarioStore persists solved scenarios keyed by ScenarioKey.
// Implementations must make Upsert idempotent: re-running the grid
// overwrites rather than duplicates.
type ScenarioStore interface {
	Upsert(ctx context.Context, scenarios []*PrecomputedScenario) error
	Get(ctx context.Context, key ScenarioKey) (*PrecomputedScenario, bool, error)
	Count(ctx context.Context) (int, error)
	Purge(ctx context.Context) error
	MarkVerified(ctx context.Context, keys []ScenarioKey, at time.Time) error
}

// MemoryStore is an in-process ScenarioStore. It backs tests and
// deployments that run without a database.
type MemoryStore struct {
	mu        sync.RWMutex
	scenarios map[ScenarioKey]*PrecomputedScenario
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{scenarios: make(map[ScenarioKey]*PrecomputedScenario)}
}

// Upsert inserts or replaces scenarios by key.
func (s *MemoryStore) Upsert(ctx context.Context, scenarios []*PrecomputedScenario) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sc := range scenarios {
		copied := *sc
		s.scenarios[sc.Key] = &copied
	}
	return nil
}

// Get returns the scenario for key, if present.
func (s *MemoryStore) Get(ctx context.Context, key ScenarioKey) (*PrecomputedScenario, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sc, ok := s.scenarios[key]
	if !ok {
		return nil, false, nil
	}
	copied := *sc
	return &copied, true, nil
}

// Count returns the number of stored scenarios.
func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.scenarios), nil
}

// Purge removes all stored scenarios.
func (s *MemoryStore) Purge(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scenarios = make(map[ScenarioKey]*PrecomputedScenario)
	return nil
}

// MarkVerified stamps the given keys with a verification time.
func (s *MemoryStore) MarkVerified(ctx context.Context, keys []ScenarioKey, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range keys {
		if sc, ok := s.scenarios[key]; ok {
			sc.VerifiedAt = at
		}
	}
	return nil
}
