package erlang

import (
	"math"

	"github.com/clearqueue/staffing/internal/numeric"
)

// Boundary regions for BetaCorrection where the standard rational form
// loses precision to cancellation.
const (
	correctionLowTail  = 1e-3
	correctionHighTail = 0.999
)

// BetaStar returns the square-root staffing safety factor for a target
// service level: the standard normal quantile of epsilon.
func BetaStar(epsilon float64) (float64, error) {
	return numeric.InverseNormalCDF(epsilon)
}

// BetaCorrection is the service-level correction term added to the
// square-root staffing rule. Near the domain boundaries it switches to
// analytic asymptotics: ~(1/3)ln(1/eps) as eps -> 0 and ~(2/(3*pi))(1-eps)
// as eps -> 1.
func BetaCorrection(epsilon, load float64) float64 {
	var c float64
	switch {
	case epsilon < correctionLowTail:
		c = math.Log(1/epsilon) / 3
	case epsilon > correctionHighTail:
		c = 2 * (1 - epsilon) / (3 * math.Pi)
	default:
		c = math.Log(1/epsilon) * (1 - epsilon) / (3 * (1 + epsilon))
	}
	// Auxiliary damping for very small systems, where the continuous
	// approximation overshoots the integer answer.
	if load < 1 {
		c *= 0.5 * (1 + numeric.Erf(load))
	}
	return c
}

// Estimate returns the closed-form continuous staffing estimate
// load + beta*sqrt(load) + correction. It seeds the solver's search and
// is never returned as a final answer.
func Estimate(load, epsilon float64) (float64, error) {
	if load <= 0 {
		return 0, &DomainError{Param: "offered load", Value: load}
	}
	beta, err := BetaStar(epsilon)
	if err != nil {
		return 0, err
	}
	return load + beta*math.Sqrt(load) + BetaCorrection(epsilon, load), nil
}
