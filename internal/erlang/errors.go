package erlang

import "fmt"

// DomainError reports an input that no staffing computation can accept:
// a non-positive rate, a service level outside (0,1), or a non-positive
// candidate agent count. It is always surfaced to the caller.
type DomainError struct {
	Param string
	Value float64
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("erlang: invalid %s: %g", e.Param, e.Value)
}

// InstabilityError reports a staffing level whose utilization is >= 1,
// for which the Erlang-C wait probability is undefined. The staffing
// search recovers from it internally by probing higher agent counts.
type InstabilityError struct {
	Agents      int
	Utilization float64
}

func (e *InstabilityError) Error() string {
	return fmt.Sprintf("erlang: unstable system: %d agents at utilization %.4f", e.Agents, e.Utilization)
}
