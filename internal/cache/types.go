// Package cache implements the multi-tier scenario cache in front of the
// Erlang-C solver: an exact-match LRU/TTL store, a call-pattern-similarity
// store, the precomputed scenario table, and a bucketed interpolation
// store, tried in that order before falling back to a live computation.
package cache

import (
	"fmt"
	"math"
	"time"

	"github.com/clearqueue/staffing/internal/erlang"
	"github.com/clearqueue/staffing/internal/precompute"
)

// Tier names reported in Lookup and in cache statistics.
const (
	TierExact        = "exact"
	TierPattern      = "pattern"
	TierPrecomputed  = "precomputed"
	TierInterpolated = "interpolated"
	TierComputed     = "computed"
)

// PatternType classifies recent demand shape.
type PatternType string

const (
	PatternPeak     PatternType = "peak"
	PatternNormal   PatternType = "normal"
	PatternLow      PatternType = "low"
	PatternSeasonal PatternType = "seasonal"
)

// CallPattern is a fingerprint of recent demand for one service. It only
// decides whether cached results remain relevant; it never changes a
// staffing result's values.
type CallPattern struct {
	ServiceID        string
	VolumeBucket     float64 // calls per hour
	HandleTimeBucket float64 // seconds
	TargetSLBucket   float64
	Type             PatternType
	Confidence       float64 // 0..1
}

// Fingerprint identifies the pattern for drift detection: an exact-match
// entry stored under one fingerprint is invalid once the service's
// pattern changes.
func (p CallPattern) Fingerprint() string {
	return fmt.Sprintf("%s|%s|%.0f|%.0f|%.2f",
		p.ServiceID, p.Type, p.VolumeBucket, p.HandleTimeBucket, p.TargetSLBucket)
}

// Similarity scores how close two patterns are: a weighted blend of
// volume closeness (50%), handle-time closeness (30%) and target service
// level closeness (20%).
func (p CallPattern) Similarity(other CallPattern) float64 {
	return 0.5*closeness(p.VolumeBucket, other.VolumeBucket) +
		0.3*closeness(p.HandleTimeBucket, other.HandleTimeBucket) +
		0.2*closeness(p.TargetSLBucket, other.TargetSLBucket)
}

func closeness(a, b float64) float64 {
	if a == b {
		return 1
	}
	m := math.Max(math.Abs(a), math.Abs(b))
	if m == 0 {
		return 1
	}
	c := 1 - math.Abs(a-b)/m
	if c < 0 {
		return 0
	}
	return c
}

// Request is a staffing query.
type Request struct {
	ArrivalRate        float64 // calls per hour
	AHTSeconds         float64 // average handle time
	TargetServiceLevel float64
	TargetWaitSeconds  float64 // 0 selects the configured default
	ServiceID          string
	Pattern            *CallPattern
}

// ServiceRate converts the handle time to calls served per agent per hour.
func (r Request) ServiceRate() float64 {
	return 3600 / r.AHTSeconds
}

func (r Request) scenarioInput() precompute.ScenarioInput {
	return precompute.ScenarioInput{
		ArrivalRate:        r.ArrivalRate,
		AHTSeconds:         r.AHTSeconds,
		TargetServiceLevel: r.TargetServiceLevel,
		TargetWaitSeconds:  r.TargetWaitSeconds,
	}
}

// exactKey fingerprints the rounded request plus its service context for
// the exact-match tier.
func (r Request) exactKey() string {
	return fmt.Sprintf("%s|v%.1f|a%.0f|s%.3f|w%.0f",
		r.ServiceID, r.ArrivalRate, r.AHTSeconds, r.TargetServiceLevel, r.TargetWaitSeconds)
}

// patternFingerprint returns the request's pattern fingerprint, or empty.
func (r Request) patternFingerprint() string {
	if r.Pattern == nil {
		return ""
	}
	return r.Pattern.Fingerprint()
}

// minAgents is the stability floor implied by the request's offered load.
func (r Request) minAgents() int {
	return int(math.Ceil(r.ArrivalRate / r.ServiceRate()))
}

// Lookup is a staffing answer plus cache diagnostics.
type Lookup struct {
	Result      erlang.StaffingResult
	Tier        string
	ComputeTime time.Duration
	Confidence  float64
}

// CacheEntry is one exact-match record. Owned exclusively by the cache;
// only hit accounting and eviction mutate it.
type CacheEntry struct {
	Key                string
	Result             erlang.StaffingResult
	CreatedAt          time.Time
	LastAccessed       time.Time
	HitCount           int64
	ComputeTime        time.Duration
	ServiceID          string
	PatternFingerprint string
	Confidence         float64
}
