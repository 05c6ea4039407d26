// Package erlang implements the Erlang-C (M/M/s) staffing model: offered
// load and utilization arithmetic, a numerically stable wait-probability
// computation, and a bounded search for the minimum agent count meeting a
// target service level.
package erlang

import (
	"math"

	"github.com/clearqueue/staffing/internal/numeric"
)

const (
	// directComputationLimit bounds the offered load and agent count for
	// which R^k terms stay representable; beyond it the wait probability
	// switches to log-space arithmetic.
	directComputationLimit = 100

	// DefaultMaxIterations bounds both the exponential bound finding and
	// the binary search in FindMinimumStaffing.
	DefaultMaxIterations = 100

	// utilizationCeiling marks candidate staffing levels too close to
	// saturation to evaluate during the search.
	utilizationCeiling = 0.99
)

// StaffingResult is the answer to a staffing query. SearchExhausted marks
// the degenerate path where the search ran out of iterations before
// confirming feasibility; Agents then holds the last probed level and
// AchievedServiceLevel whatever that level actually delivers.
type StaffingResult struct {
	Agents               int
	AchievedServiceLevel float64
	Iterations           int // probes evaluated during the search
	SearchExhausted      bool
}

// OfferedLoad returns the traffic intensity lambda/mu in Erlangs.
func OfferedLoad(lambda, mu float64) (float64, error) {
	if mu <= 0 {
		return 0, &DomainError{Param: "service rate", Value: mu}
	}
	if lambda <= 0 {
		return 0, &DomainError{Param: "arrival rate", Value: lambda}
	}
	return lambda / mu, nil
}

// Utilization returns lambda/(agents*mu), the fraction of agent capacity
// consumed. The queue is stable only below 1.
func Utilization(lambda float64, agents int, mu float64) (float64, error) {
	if agents <= 0 {
		return 0, &DomainError{Param: "agents", Value: float64(agents)}
	}
	load, err := OfferedLoad(lambda, mu)
	if err != nil {
		return 0, err
	}
	return load / float64(agents), nil
}

// WaitProbability returns the Erlang-C probability that an arriving call
// has to queue, given agents servers and hourly rates lambda and mu.
// Returns InstabilityError when utilization >= 1.
func WaitProbability(agents int, lambda, mu float64) (float64, error) {
	rho, err := Utilization(lambda, agents, mu)
	if err != nil {
		return 0, err
	}
	if rho >= 1 {
		return 0, &InstabilityError{Agents: agents, Utilization: rho}
	}
	load := lambda / mu
	if load > directComputationLimit || agents > directComputationLimit {
		return logWaitProbability(agents, load, rho)
	}
	return directWaitProbability(agents, load, rho), nil
}

// directWaitProbability evaluates the textbook formula with an iteratively
// accumulated term, so no bare factorial or power is ever materialized.
func directWaitProbability(s int, load, rho float64) float64 {
	sum := 0.0
	term := 1.0 // R^0/0!
	for k := 0; k < s; k++ {
		sum += term
		term *= load / float64(k+1)
	}
	// term is now R^s/s!.
	erlangTerm := term / (1 - rho)
	return clamp01(erlangTerm / (sum + erlangTerm))
}

// logWaitProbability evaluates the same formula in log space. Each term
// log(R^k/k!) = k*ln(R) - ln(k!) stays small even when R^k would overflow,
// and the denominator is combined with the log-sum-exp trick.
func logWaitProbability(s int, load, rho float64) (float64, error) {
	logLoad := math.Log(load)

	logTerms := make([]float64, 0, s+1)
	maxLog := math.Inf(-1)
	for k := 0; k < s; k++ {
		logFact, err := numeric.LogFactorialSafe(k)
		if err != nil {
			return 0, err
		}
		lt := float64(k)*logLoad - logFact
		logTerms = append(logTerms, lt)
		if lt > maxLog {
			maxLog = lt
		}
	}

	logFactS, err := numeric.LogFactorialSafe(s)
	if err != nil {
		return 0, err
	}
	logErlang := float64(s)*logLoad - logFactS - math.Log(1-rho)
	logTerms = append(logTerms, logErlang)
	if logErlang > maxLog {
		maxLog = logErlang
	}

	// Subtract the running maximum before exponentiating, add it back after.
	expSum := 0.0
	for _, lt := range logTerms {
		expSum += math.Exp(lt - maxLog)
	}
	logDenominator := maxLog + math.Log(expSum)

	return clamp01(math.Exp(logErlang - logDenominator)), nil
}

// AverageWait returns the expected queueing delay in seconds (average
// speed of answer) for the given staffing level and hourly rates.
func AverageWait(agents int, lambda, mu float64) (float64, error) {
	p, err := WaitProbability(agents, lambda, mu)
	if err != nil {
		return 0, err
	}
	return p / (float64(agents)*mu - lambda) * 3600, nil
}

// ServiceLevelWithin returns the probability a call is answered within
// waitSeconds: 1 - C * exp(-(s*mu - lambda) * t).
func ServiceLevelWithin(agents int, lambda, mu, waitSeconds float64) (float64, error) {
	p, err := WaitProbability(agents, lambda, mu)
	if err != nil {
		return 0, err
	}
	surplus := float64(agents)*mu - lambda // calls per hour
	return clamp01(1 - p*math.Exp(-surplus*waitSeconds/3600)), nil
}

// FindMinimumStaffing returns the smallest agent count whose achieved
// service level (1 - wait probability) meets targetSL. The search seeds a
// lower bound from the closed-form staffing estimate, grows an upper bound
// exponentially until it is feasible, then binary-searches between them.
// maxIterations <= 0 selects DefaultMaxIterations.
func FindMinimumStaffing(lambda, mu, targetSL float64, maxIterations int) (StaffingResult, error) {
	if targetSL <= 0 || targetSL >= 1 {
		return StaffingResult{}, &DomainError{Param: "target service level", Value: targetSL}
	}
	load, err := OfferedLoad(lambda, mu)
	if err != nil {
		return StaffingResult{}, err
	}
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}

	// The stable floor is the smallest agent count with utilization < 1
	// and the left edge of the final binary search; the closed-form seed
	// (inflated by the stability buffer) only positions the first probe.
	stableFloor := int(math.Floor(load)) + 1
	seed, err := Estimate(load, targetSL)
	if err != nil {
		return StaffingResult{}, err
	}
	probeStart := int(math.Ceil(seed * stabilityBuffer(load)))
	if probeStart < stableFloor {
		probeStart = stableFloor
	}

	// Exponential bound finding: grow by 1.5x until feasible.
	upper := probeStart
	lastProbed := probeStart
	lastAchieved := 0.0
	probedStable := false
	feasible := false
	probes := 0
	var lastErr error
	for i := 0; i < maxIterations; i++ {
		probes++
		lastProbed = upper
		achieved, probeErr := achievedServiceLevel(upper, lambda, mu)
		if probeErr == nil {
			probedStable = true
			lastAchieved = achieved
			if achieved >= targetSL {
				feasible = true
				break
			}
		} else {
			lastErr = probeErr
		}
		upper = upper*3/2 + 1
	}
	if !probedStable {
		// Even the highest probe was unstable; nothing to fall back on.
		return StaffingResult{}, lastErr
	}
	if !feasible {
		return StaffingResult{
			Agents:               lastProbed,
			AchievedServiceLevel: lastAchieved,
			Iterations:           probes,
			SearchExhausted:      true,
		}, nil
	}

	// Binary search; upper is known feasible. Narrowing right downward on
	// success makes the smaller agent count win ties.
	left, right := stableFloor, upper
	best, bestAchieved := upper, lastAchieved
	exhausted := false
	for iter := 0; left < right; iter++ {
		if iter >= maxIterations {
			exhausted = true
			break
		}
		probes++
		mid := left + (right-left)/2
		rho, probeErr := Utilization(lambda, mid, mu)
		if probeErr != nil || rho >= utilizationCeiling {
			left = mid + 1
			continue
		}
		achieved, probeErr := achievedServiceLevel(mid, lambda, mu)
		if probeErr != nil {
			left = mid + 1
			continue
		}
		if achieved >= targetSL {
			best, bestAchieved = mid, achieved
			right = mid
		} else {
			left = mid + 1
		}
	}

	return StaffingResult{
		Agents:               best,
		AchievedServiceLevel: bestAchieved,
		Iterations:           probes,
		SearchExhausted:      exhausted,
	}, nil
}

func achievedServiceLevel(agents int, lambda, mu float64) (float64, error) {
	p, err := WaitProbability(agents, lambda, mu)
	if err != nil {
		return 0, err
	}
	return 1 - p, nil
}

// stabilityBuffer inflates the closed-form seed so the search starts from
// a point with utilization < 1; small systems need proportionally more
// headroom.
func stabilityBuffer(load float64) float64 {
	switch {
	case load < 10:
		return 1.10
	case load < 50:
		return 1.05
	case load < 200:
		return 1.02
	default:
		return 1.01
	}
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
