package cache

import (
	"context"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/clearqueue/staffing/internal/erlang"
	"github.com/clearqueue/staffing/internal/metrics"
	"github.com/clearqueue/staffing/internal/precompute"
)

// Config carries construction-time cache tuning. Zero values select the
// defaults below.
type Config struct {
	Capacity                int           // exact-match entries
	TTL                     time.Duration // exact-match freshness window
	PatternThreshold        float64       // minimum similarity for a pattern hit
	PatternsPerService      int           // stored observations per service
	InterpolationMinSamples int           // samples required to interpolate
	InterpolationPerBucket  int           // samples kept per bucket
	LearnWorkers            int           // pattern-learning workers
	LearnQueueSize          int           // pattern-learning queue bound
	DefaultWaitSeconds      float64       // wait threshold when a request omits one
}

// ApplyDefaults fills in default values.
func (c *Config) ApplyDefaults() {
	if c.Capacity <= 0 {
		c.Capacity = 1000
	}
	if c.TTL <= 0 {
		c.TTL = 15 * time.Minute
	}
	if c.PatternThreshold <= 0 {
		c.PatternThreshold = 0.8
	}
	if c.PatternsPerService <= 0 {
		c.PatternsPerService = 32
	}
	if c.InterpolationMinSamples <= 0 {
		c.InterpolationMinSamples = 2
	}
	if c.InterpolationPerBucket <= 0 {
		c.InterpolationPerBucket = 16
	}
	if c.LearnWorkers <= 0 {
		c.LearnWorkers = 2
	}
	if c.LearnQueueSize <= 0 {
		c.LearnQueueSize = 1024
	}
	if c.DefaultWaitSeconds <= 0 {
		c.DefaultWaitSeconds = 20
	}
}

// Solver computes a staffing result on a total cache miss.
type Solver func(lambda, mu, targetSL float64, maxIterations int) (erlang.StaffingResult, error)

// tier is one lookup strategy; strategies are tried in priority order and
// the first hit short-circuits the rest.
type tier struct {
	name string
	fn   func(ctx context.Context, req Request, now time.Time) (tierResult, bool)
}

type tierResult struct {
	result      erlang.StaffingResult
	confidence  float64
	computeTime time.Duration
}

// ScenarioCache answers staffing queries through its tiers, falling back
// to the solver only on a total miss. The cache is an optimization, never
// a correctness dependency: a failing tier degrades to the next one.
type ScenarioCache struct {
	config Config
	logger *zap.Logger
	solver Solver

	exact     *exactStore
	patterns  *patternStore
	learner   *learner
	buckets   *bucketStore
	scenarios precompute.ScenarioStore // optional tier 3 backing table

	tiers []tier

	statsMu        sync.Mutex
	hits           int64
	misses         int64
	hitsByTier     map[string]int64
	totalCompute   time.Duration
	computeSamples int64
}

// New creates a ScenarioCache. scenarios may be nil, which disables the
// precomputed tier; logger may be nil.
func New(config Config, scenarios precompute.ScenarioStore, logger *zap.Logger) *ScenarioCache {
	config.ApplyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &ScenarioCache{
		config:     config,
		logger:     logger,
		solver:     erlang.FindMinimumStaffing,
		patterns:   newPatternStore(config.PatternThreshold, config.PatternsPerService),
		learner:    newLearner(config.LearnWorkers, config.LearnQueueSize, logger),
		buckets:    newBucketStore(config.InterpolationMinSamples, config.InterpolationPerBucket),
		scenarios:  scenarios,
		hitsByTier: make(map[string]int64),
	}
	c.exact = newExactStore(config.Capacity, config.TTL, c.patterns.hasActive)
	c.tiers = []tier{
		{TierExact, c.lookupExact},
		{TierPattern, c.lookupPattern},
		{TierPrecomputed, c.lookupPrecomputed},
		{TierInterpolated, c.lookupInterpolated},
	}
	return c
}

// SetSolver replaces the miss-path solver. Intended for tests.
func (c *ScenarioCache) SetSolver(solver Solver) {
	c.solver = solver
}

// StaffingFor answers a staffing query, trying each tier in priority
// order and computing through the solver on a total miss.
func (c *ScenarioCache) StaffingFor(ctx context.Context, req Request) (Lookup, error) {
	if req.ArrivalRate <= 0 {
		return Lookup{}, &erlang.DomainError{Param: "arrival rate", Value: req.ArrivalRate}
	}
	if req.AHTSeconds <= 0 {
		return Lookup{}, &erlang.DomainError{Param: "average handle time", Value: req.AHTSeconds}
	}
	if req.TargetServiceLevel <= 0 || req.TargetServiceLevel >= 1 {
		return Lookup{}, &erlang.DomainError{Param: "target service level", Value: req.TargetServiceLevel}
	}
	if req.TargetWaitSeconds <= 0 {
		req.TargetWaitSeconds = c.config.DefaultWaitSeconds
	}

	now := time.Now()
	for _, t := range c.tiers {
		if tr, ok := t.fn(ctx, req, now); ok {
			c.recordHit(t.name)
			return Lookup{
				Result:      tr.result,
				Tier:        t.name,
				ComputeTime: tr.computeTime,
				Confidence:  tr.confidence,
			}, nil
		}
	}

	return c.computeAndStore(req, now)
}

func (c *ScenarioCache) lookupExact(_ context.Context, req Request, now time.Time) (tierResult, bool) {
	entry, ok := c.exact.get(req.exactKey(), req.patternFingerprint(), now)
	if !ok {
		return tierResult{}, false
	}
	return tierResult{
		result:      entry.Result,
		confidence:  entry.Confidence,
		computeTime: entry.ComputeTime,
	}, true
}

func (c *ScenarioCache) lookupPattern(_ context.Context, req Request, _ time.Time) (tierResult, bool) {
	if req.Pattern == nil {
		return tierResult{}, false
	}
	result, confidence, ok := c.patterns.match(*req.Pattern)
	if !ok {
		// The learning table can seed an answer once it has seen enough
		// traffic for this (service, pattern type, volume) shape.
		seeded, seedOK := c.learner.seed(*req.Pattern)
		if !seedOK {
			return tierResult{}, false
		}
		result, confidence = seeded, req.Pattern.Confidence*0.8
	}
	result.Agents = clampAgents(result.Agents, req)
	return tierResult{result: result, confidence: confidence}, true
}

func (c *ScenarioCache) lookupPrecomputed(ctx context.Context, req Request, _ time.Time) (tierResult, bool) {
	if c.scenarios == nil {
		return tierResult{}, false
	}
	in := req.scenarioInput()

	sc, ok, err := c.scenarios.Get(ctx, precompute.NewScenarioKey(in))
	if err != nil {
		c.logger.Warn("precomputed tier unavailable", zap.Error(err))
		return tierResult{}, false
	}
	if ok {
		return tierResult{result: sc.Result, confidence: 0.95, computeTime: sc.ComputeTime}, true
	}

	// Rounded fallback: the nearest grid point, with the agent count
	// scaled for the volume rounding delta.
	rounded := precompute.RoundedInput(in)
	sc, ok, err = c.scenarios.Get(ctx, precompute.NewScenarioKey(rounded))
	if err != nil {
		c.logger.Warn("precomputed tier unavailable", zap.Error(err))
		return tierResult{}, false
	}
	if !ok {
		return tierResult{}, false
	}

	result := sc.Result
	if rounded.ArrivalRate > 0 {
		ratio := req.ArrivalRate / rounded.ArrivalRate
		result.Agents = int(math.Ceil(float64(result.Agents) * ratio))
	}
	result.Agents = clampAgents(result.Agents, req)
	return tierResult{result: result, confidence: 0.85, computeTime: sc.ComputeTime}, true
}

func (c *ScenarioCache) lookupInterpolated(_ context.Context, req Request, _ time.Time) (tierResult, bool) {
	result, ok := c.buckets.lookup(req)
	if !ok {
		return tierResult{}, false
	}
	result.Agents = clampAgents(result.Agents, req)
	return tierResult{result: result, confidence: 0.7}, true
}

// computeAndStore is the total-miss path: solve, then write the result
// back into every applicable tier.
func (c *ScenarioCache) computeAndStore(req Request, now time.Time) (Lookup, error) {
	started := time.Now()
	result, err := c.solver(req.ArrivalRate, req.ServiceRate(), req.TargetServiceLevel, 0)
	elapsed := time.Since(started)
	if err != nil {
		return Lookup{}, err
	}

	metrics.SolverDurationSeconds.Observe(elapsed.Seconds())
	metrics.SolverIterations.Observe(float64(result.Iterations))
	if result.SearchExhausted {
		metrics.SolverExhaustedTotal.Inc()
		c.logger.Warn("staffing search exhausted, returning best effort",
			zap.String("service_id", req.ServiceID),
			zap.Float64("arrival_rate", req.ArrivalRate),
			zap.Int("agents", result.Agents),
			zap.Float64("achieved_sl", result.AchievedServiceLevel))
	}

	entry := &CacheEntry{
		Key:                req.exactKey(),
		Result:             result,
		CreatedAt:          now,
		LastAccessed:       now,
		ComputeTime:        elapsed,
		ServiceID:          req.ServiceID,
		PatternFingerprint: req.patternFingerprint(),
		Confidence:         1.0,
	}
	c.exact.put(entry, now)
	c.buckets.add(req, result)
	if req.Pattern != nil {
		c.patterns.record(*req.Pattern, result, now)
		c.learner.observe(*req.Pattern, result)
	}

	c.recordMiss(elapsed)
	c.updateGauges()

	return Lookup{
		Result:      result,
		Tier:        TierComputed,
		ComputeTime: elapsed,
		Confidence:  1.0,
	}, nil
}

func (c *ScenarioCache) recordHit(tierName string) {
	metrics.CacheHitsTotal.WithLabelValues(tierName).Inc()
	c.statsMu.Lock()
	c.hits++
	c.hitsByTier[tierName]++
	c.statsMu.Unlock()
}

func (c *ScenarioCache) recordMiss(elapsed time.Duration) {
	metrics.CacheMissesTotal.Inc()
	c.statsMu.Lock()
	c.misses++
	c.totalCompute += elapsed
	c.computeSamples++
	c.statsMu.Unlock()
}

func (c *ScenarioCache) updateGauges() {
	metrics.CacheEntries.WithLabelValues(TierExact).Set(float64(c.exact.len()))
	metrics.CacheEntries.WithLabelValues(TierPattern).Set(float64(c.patterns.len()))
	metrics.CacheEntries.WithLabelValues(TierInterpolated).Set(float64(c.buckets.len()))
}

// Stats is the read-only monitoring snapshot.
type Stats struct {
	Hits               int64
	Misses             int64
	HitRate            float64
	Evictions          int64
	AverageComputeTime time.Duration
	EntriesByTier      map[string]int
	HitsByTier         map[string]int64
}

// Stats returns current cache statistics.
func (c *ScenarioCache) Stats() Stats {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()

	stats := Stats{
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.exact.evictionCount(),
		EntriesByTier: map[string]int{
			TierExact:        c.exact.len(),
			TierPattern:      c.patterns.len(),
			TierInterpolated: c.buckets.len(),
		},
		HitsByTier: make(map[string]int64, len(c.hitsByTier)),
	}
	for k, v := range c.hitsByTier {
		stats.HitsByTier[k] = v
	}
	if total := c.hits + c.misses; total > 0 {
		stats.HitRate = float64(c.hits) / float64(total)
	}
	if c.computeSamples > 0 {
		stats.AverageComputeTime = c.totalCompute / time.Duration(c.computeSamples)
	}
	return stats
}

// InvalidateService drops all cached state for one service.
func (c *ScenarioCache) InvalidateService(serviceID string) {
	removed := c.exact.invalidateService(serviceID)
	c.patterns.invalidateService(serviceID)
	c.buckets.invalidateService(serviceID)
	c.updateGauges()
	c.logger.Info("service invalidated",
		zap.String("service_id", serviceID),
		zap.Int("entries_removed", removed))
}

// Clear empties every tier store and resets statistics.
func (c *ScenarioCache) Clear() {
	c.exact.clear()
	c.patterns.clear()
	c.buckets.clear()

	c.statsMu.Lock()
	c.hits, c.misses = 0, 0
	c.hitsByTier = make(map[string]int64)
	c.totalCompute, c.computeSamples = 0, 0
	c.statsMu.Unlock()

	c.updateGauges()
}

// Close stops the background learning workers, draining their queue.
func (c *ScenarioCache) Close() {
	c.learner.close()
}

func clampAgents(agents int, req Request) int {
	if min := req.minAgents(); agents < min {
		return min
	}
	if agents < 1 {
		return 1
	}
	return agents
}
