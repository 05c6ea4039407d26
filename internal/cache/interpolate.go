package cache

import (
	"math"
	"sync"

	"github.com/clearqueue/staffing/internal/erlang"
)

// Coarse bucket granularity for the interpolation tier.
const (
	bucketRateStep = 100 // calls per hour
	bucketMuStep   = 5   // calls per agent per hour
	bucketSLStep   = 10  // tenths of service level
)

type bucketKey struct {
	rate int
	mu   int
	sl   int
}

func bucketKeyFor(r Request) bucketKey {
	return bucketKey{
		rate: int(r.ArrivalRate / bucketRateStep),
		mu:   int(r.ServiceRate() / bucketMuStep),
		sl:   int(r.TargetServiceLevel * bucketSLStep),
	}
}

type bucketSample struct {
	serviceID string
	agents    int
	achieved  float64
}

// bucketStore is the interpolation tier: cached results grouped into
// coarse (rate, service rate, target) buckets, answered by averaging.
type bucketStore struct {
	mu           sync.RWMutex
	buckets      map[bucketKey][]bucketSample
	minSamples   int
	maxPerBucket int
}

func newBucketStore(minSamples, maxPerBucket int) *bucketStore {
	return &bucketStore{
		buckets:      make(map[bucketKey][]bucketSample),
		minSamples:   minSamples,
		maxPerBucket: maxPerBucket,
	}
}

// lookup averages the samples sharing the request's bucket. Fewer than
// minSamples is not enough to interpolate from.
func (s *bucketStore) lookup(r Request) (erlang.StaffingResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	samples := s.buckets[bucketKeyFor(r)]
	if len(samples) < s.minSamples {
		return erlang.StaffingResult{}, false
	}

	sumAgents, sumSL := 0.0, 0.0
	for _, sample := range samples {
		sumAgents += float64(sample.agents)
		sumSL += sample.achieved
	}
	n := float64(len(samples))
	return erlang.StaffingResult{
		Agents:               int(math.Ceil(sumAgents / n)),
		AchievedServiceLevel: sumSL / n,
	}, true
}

// add records a solved result in its bucket, dropping the oldest sample
// once the bucket is full.
func (s *bucketStore) add(r Request, result erlang.StaffingResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := bucketKeyFor(r)
	samples := append(s.buckets[key], bucketSample{
		serviceID: r.ServiceID,
		agents:    result.Agents,
		achieved:  result.AchievedServiceLevel,
	})
	if len(samples) > s.maxPerBucket {
		samples = samples[len(samples)-s.maxPerBucket:]
	}
	s.buckets[key] = samples
}

// invalidateService drops every sample contributed by a service, so
// invalidated results cannot leak back out through interpolation.
func (s *bucketStore) invalidateService(serviceID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, samples := range s.buckets {
		kept := samples[:0]
		for _, sample := range samples {
			if sample.serviceID != serviceID {
				kept = append(kept, sample)
			}
		}
		if len(kept) == 0 {
			delete(s.buckets, key)
		} else {
			s.buckets[key] = kept
		}
	}
}

func (s *bucketStore) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0
	for _, samples := range s.buckets {
		total += len(samples)
	}
	return total
}

func (s *bucketStore) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buckets = make(map[bucketKey][]bucketSample)
}
