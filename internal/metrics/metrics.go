// Package metrics exposes Prometheus observability for the staffing core:
// cache effectiveness by tier, solver cost, and precompute progress.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry is the custom prometheus registry for the staffing core.
var Registry = prometheus.NewRegistry()

// factory registers metrics on Registry directly.
var factory = promauto.With(Registry)

// CacheHitsTotal counts scenario-cache hits broken down by the tier that
// served them (exact, pattern, precomputed, interpolated).
var CacheHitsTotal = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "staffing",
	Subsystem: "cache",
	Name:      "hits_total",
	Help:      "Scenario cache hits by serving tier",
}, []string{"tier"})

// CacheMissesTotal counts lookups that fell through every tier to the solver.
var CacheMissesTotal = factory.NewCounter(prometheus.CounterOpts{
	Namespace: "staffing",
	Subsystem: "cache",
	Name:      "misses_total",
	Help:      "Scenario cache lookups that required a solver computation",
})

// CacheEvictionsTotal counts exact-match entries removed for any reason:
// scored eviction, TTL expiry, pattern drift, or service invalidation.
var CacheEvictionsTotal = factory.NewCounter(prometheus.CounterOpts{
	Namespace: "staffing",
	Subsystem: "cache",
	Name:      "evictions_total",
	Help:      "Exact-match entries removed by eviction, expiry, drift, or invalidation",
})

// CacheEntries tracks current occupancy by tier store.
var CacheEntries = factory.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "staffing",
	Subsystem: "cache",
	Name:      "entries",
	Help:      "Entries currently held per cache tier store",
}, []string{"tier"})

// SolverDurationSeconds tracks wall time of solver computations.
var SolverDurationSeconds = factory.NewHistogram(prometheus.HistogramOpts{
	Namespace: "staffing",
	Subsystem: "solver",
	Name:      "duration_seconds",
	Help:      "Time taken by Erlang-C minimum-staffing computations",
	Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1},
})

// SolverIterations tracks probes per minimum-staffing search.
var SolverIterations = factory.NewHistogram(prometheus.HistogramOpts{
	Namespace: "staffing",
	Subsystem: "solver",
	Name:      "iterations",
	Help:      "Staffing levels probed per minimum-staffing search",
	Buckets:   []float64{1, 2, 5, 10, 15, 20, 30, 50, 100},
})

// SolverExhaustedTotal counts searches that returned the exhausted flag.
var SolverExhaustedTotal = factory.NewCounter(prometheus.CounterOpts{
	Namespace: "staffing",
	Subsystem: "solver",
	Name:      "exhausted_total",
	Help:      "Staffing searches that hit the iteration ceiling without confirming feasibility",
})

// PrecomputeScenariosStored counts scenarios written by precompute runs.
var PrecomputeScenariosStored = factory.NewCounter(prometheus.CounterOpts{
	Namespace: "staffing",
	Subsystem: "precompute",
	Name:      "scenarios_stored_total",
	Help:      "Scenarios computed and persisted by precompute runs",
})

// PrecomputeRunDuration tracks full grid generation time.
var PrecomputeRunDuration = factory.NewHistogram(prometheus.HistogramOpts{
	Namespace: "staffing",
	Subsystem: "precompute",
	Name:      "run_duration_seconds",
	Help:      "Wall time of complete precompute runs",
	Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
})
