// Package precompute generates and persists an industry-standard grid of
// staffing scenarios so common queries can be answered without touching
// the solver.
package precompute

import (
	"fmt"
	"math"
	"time"

	"github.com/clearqueue/staffing/internal/erlang"
)

// ScenarioInput is one point of the precompute grid.
type ScenarioInput struct {
	ArrivalRate        float64 // calls per hour
	AHTSeconds         float64 // average handle time
	TargetServiceLevel float64
	TargetWaitSeconds  float64
}

// ServiceRate converts the handle time to calls served per agent per hour.
func (in ScenarioInput) ServiceRate() float64 {
	return 3600 / in.AHTSeconds
}

// ScenarioKey is a deterministic fingerprint of the rounded scenario
// inputs: the join key between the precomputed table and cache lookups.
// Equal rounded inputs always yield the same key, across restarts.
type ScenarioKey string

// NewScenarioKey fingerprints an input at fine granularity: rate to 0.1
// calls/hour, handle time to 1s, service level to 0.001, wait to 1s.
func NewScenarioKey(in ScenarioInput) ScenarioKey {
	return ScenarioKey(fmt.Sprintf("v%.1f_a%.0f_s%.3f_w%.0f",
		roundTo(in.ArrivalRate, 0.1),
		roundTo(in.AHTSeconds, 1),
		roundTo(in.TargetServiceLevel, 0.001),
		roundTo(in.TargetWaitSeconds, 1)))
}

// RoundedKey fingerprints an input at the coarse fallback granularity:
// volume to the nearest 10, handle time to the nearest 30s, service level
// to the nearest 0.05. Wait time keeps 1s granularity.
func RoundedKey(in ScenarioInput) ScenarioKey {
	return NewScenarioKey(ScenarioInput{
		ArrivalRate:        roundTo(in.ArrivalRate, 10),
		AHTSeconds:         roundTo(in.AHTSeconds, 30),
		TargetServiceLevel: roundTo(in.TargetServiceLevel, 0.05),
		TargetWaitSeconds:  in.TargetWaitSeconds,
	})
}

// RoundedInput returns the grid point RoundedKey maps to, so callers can
// adjust for the rounding delta.
func RoundedInput(in ScenarioInput) ScenarioInput {
	return ScenarioInput{
		ArrivalRate:        roundTo(in.ArrivalRate, 10),
		AHTSeconds:         roundTo(in.AHTSeconds, 30),
		TargetServiceLevel: roundTo(in.TargetServiceLevel, 0.05),
		TargetWaitSeconds:  in.TargetWaitSeconds,
	}
}

func roundTo(x, step float64) float64 {
	return math.Round(x/step) * step
}

// PrecomputedScenario is a solved grid point. Read-only after creation
// except for the periodic verification refresh.
type PrecomputedScenario struct {
	Key            ScenarioKey
	Input          ScenarioInput
	Result         erlang.StaffingResult
	OfferedLoad    float64
	Occupancy      float64
	AvgWaitSeconds float64
	ComputeTime    time.Duration
	RunID          string
	VerifiedAt     time.Time
}
