package cache

import (
	"math"
	"sync"

	"go.uber.org/zap"

	"github.com/clearqueue/staffing/internal/erlang"
)

// learnVolumeBucketSize groups arrival rates for the learning table.
const learnVolumeBucketSize = 50

type learnKey struct {
	serviceID    string
	patternType  PatternType
	volumeBucket int
}

// learnedAverage is a moving average of observed (agents, service level)
// for one learning key.
type learnedAverage struct {
	Agents       float64
	ServiceLevel float64
	Samples      int64
}

type learnUpdate struct {
	key    learnKey
	result erlang.StaffingResult
}

// learner maintains the pattern-learning table. Writes arrive on a
// bounded queue drained by a fixed worker pool, so a burst of cache
// writes cannot grow memory without bound; updates that would overflow
// the queue are dropped and counted.
type learner struct {
	mu       sync.RWMutex
	averages map[learnKey]*learnedAverage

	queue   chan learnUpdate
	wg      sync.WaitGroup
	closing sync.Once
	dropped int64
	logger  *zap.Logger
}

func newLearner(workers, queueSize int, logger *zap.Logger) *learner {
	l := &learner{
		averages: make(map[learnKey]*learnedAverage),
		queue:    make(chan learnUpdate, queueSize),
		logger:   logger,
	}
	for i := 0; i < workers; i++ {
		l.wg.Add(1)
		go l.worker()
	}
	return l
}

func (l *learner) worker() {
	defer l.wg.Done()
	for u := range l.queue {
		l.apply(u)
	}
}

// observe enqueues an update without blocking the staffing query path.
func (l *learner) observe(p CallPattern, r erlang.StaffingResult) {
	u := learnUpdate{key: keyForPattern(p), result: r}
	select {
	case l.queue <- u:
	default:
		l.mu.Lock()
		l.dropped++
		dropped := l.dropped
		l.mu.Unlock()
		if dropped%1000 == 1 {
			l.logger.Warn("pattern learn queue full, dropping updates",
				zap.Int64("dropped", dropped))
		}
	}
}

func (l *learner) apply(u learnUpdate) {
	l.mu.Lock()
	defer l.mu.Unlock()

	avg, ok := l.averages[u.key]
	if !ok {
		avg = &learnedAverage{}
		l.averages[u.key] = avg
	}
	avg.Samples++
	n := float64(avg.Samples)
	avg.Agents += (float64(u.result.Agents) - avg.Agents) / n
	avg.ServiceLevel += (u.result.AchievedServiceLevel - avg.ServiceLevel) / n
}

// minLearnSamples gates seeding: an average of fewer observations is too
// noisy to answer queries with.
const minLearnSamples = 3

// seed returns the learned average for a pattern, if enough samples exist.
func (l *learner) seed(p CallPattern) (erlang.StaffingResult, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	avg, ok := l.averages[keyForPattern(p)]
	if !ok || avg.Samples < minLearnSamples {
		return erlang.StaffingResult{}, false
	}
	return erlang.StaffingResult{
		Agents:               int(math.Ceil(avg.Agents)),
		AchievedServiceLevel: avg.ServiceLevel,
	}, true
}

func (l *learner) len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.averages)
}

// close drains and stops the workers.
func (l *learner) close() {
	l.closing.Do(func() {
		close(l.queue)
	})
	l.wg.Wait()
}

func keyForPattern(p CallPattern) learnKey {
	return learnKey{
		serviceID:    p.ServiceID,
		patternType:  p.Type,
		volumeBucket: int(p.VolumeBucket / learnVolumeBucketSize),
	}
}
