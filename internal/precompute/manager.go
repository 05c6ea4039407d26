package precompute

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/clearqueue/staffing/internal/erlang"
	"github.com/clearqueue/staffing/internal/metrics"
)

// ManagerConfig configures a precompute run.
type ManagerConfig struct {
	// Workers sizes the solver pool; 0 means GOMAXPROCS.
	Workers int
	// MinCoverage is the fraction of the grid that must already be stored
	// for a non-forced run to short-circuit.
	MinCoverage float64
	// PersistRate caps store upserts per second; 0 disables throttling.
	PersistRate float64
	// BatchSize groups scenarios per upsert.
	BatchSize int
}

// ApplyDefaults fills in default values.
func (c *ManagerConfig) ApplyDefaults() {
	if c.Workers <= 0 {
		c.Workers = runtime.GOMAXPROCS(0)
	}
	if c.MinCoverage <= 0 {
		c.MinCoverage = 0.9
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
}

// Manager computes the scenario grid through the solver and persists the
// results.
type Manager struct {
	config  ManagerConfig
	store   ScenarioStore
	logger  *zap.Logger
	limiter *rate.Limiter
}

// RunReport summarizes a precompute run.
type RunReport struct {
	RunID     string
	Requested int
	Computed  int
	Failed    int
	Skipped   bool
	Duration  time.Duration
}

// NewManager creates a precompute manager over the given store.
func NewManager(config ManagerConfig, store ScenarioStore, logger *zap.Logger) *Manager {
	config.ApplyDefaults()

	var limiter *rate.Limiter
	if config.PersistRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.PersistRate), config.BatchSize)
	}

	return &Manager{
		config:  config,
		store:   store,
		logger:  logger,
		limiter: limiter,
	}
}

// Run computes and persists the full grid. Unless force is set, the run
// short-circuits when the store already holds MinCoverage of the grid.
func (m *Manager) Run(ctx context.Context, force bool) (*RunReport, error) {
	grid := FullGrid()
	runID := uuid.New().String()
	started := time.Now()

	report := &RunReport{RunID: runID, Requested: len(grid)}

	if !force {
		count, err := m.store.Count(ctx)
		if err != nil {
			return nil, err
		}
		if float64(count) >= m.config.MinCoverage*float64(len(grid)) {
			m.logger.Info("precompute skipped, table sufficiently populated",
				zap.String("run_id", runID),
				zap.Int("stored", count),
				zap.Int("grid", len(grid)))
			report.Skipped = true
			report.Duration = time.Since(started)
			return report, nil
		}
	}

	m.logger.Info("precompute run starting",
		zap.String("run_id", runID),
		zap.Int("scenarios", len(grid)),
		zap.Int("workers", m.config.Workers))

	jobs := make(chan ScenarioInput)
	results := make(chan *PrecomputedScenario, m.config.BatchSize)

	var wg sync.WaitGroup
	for i := 0; i < m.config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for in := range jobs {
				sc := m.solve(in, runID)
				if sc == nil {
					continue
				}
				select {
				case results <- sc:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, in := range grid {
			select {
			case jobs <- in:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	batch := make([]*PrecomputedScenario, 0, m.config.BatchSize)
	var persistErr error
	for sc := range results {
		report.Computed++
		batch = append(batch, sc)
		if len(batch) >= m.config.BatchSize {
			if err := m.persist(ctx, batch); err != nil && persistErr == nil {
				persistErr = err
			}
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		if err := m.persist(ctx, batch); err != nil && persistErr == nil {
			persistErr = err
		}
	}

	report.Failed = report.Requested - report.Computed
	report.Duration = time.Since(started)
	metrics.PrecomputeScenariosStored.Add(float64(report.Computed))
	metrics.PrecomputeRunDuration.Observe(report.Duration.Seconds())

	m.logger.Info("precompute run finished",
		zap.String("run_id", runID),
		zap.Int("computed", report.Computed),
		zap.Int("failed", report.Failed),
		zap.Duration("duration", report.Duration))

	if persistErr != nil {
		return report, persistErr
	}
	return report, ctx.Err()
}

// solve computes one grid point. Scenarios the solver rejects outright
// (degenerate inputs) are dropped; exhausted searches are kept with their
// flag so the table mirrors what a live query would have received.
func (m *Manager) solve(in ScenarioInput, runID string) *PrecomputedScenario {
	started := time.Now()
	mu := in.ServiceRate()

	result, err := erlang.FindMinimumStaffing(in.ArrivalRate, mu, in.TargetServiceLevel, 0)
	if err != nil {
		m.logger.Warn("scenario rejected",
			zap.Float64("arrival_rate", in.ArrivalRate),
			zap.Float64("aht_seconds", in.AHTSeconds),
			zap.Error(err))
		return nil
	}

	load, _ := erlang.OfferedLoad(in.ArrivalRate, mu)
	occupancy, _ := erlang.Utilization(in.ArrivalRate, result.Agents, mu)
	avgWait, _ := erlang.AverageWait(result.Agents, in.ArrivalRate, mu)

	// Refine the stored service level with the wait threshold this grid
	// point was generated for.
	if within, slErr := erlang.ServiceLevelWithin(result.Agents, in.ArrivalRate, mu, in.TargetWaitSeconds); slErr == nil {
		result.AchievedServiceLevel = within
	}

	return &PrecomputedScenario{
		Key:            NewScenarioKey(in),
		Input:          in,
		Result:         result,
		OfferedLoad:    load,
		Occupancy:      occupancy,
		AvgWaitSeconds: avgWait,
		ComputeTime:    time.Since(started),
		RunID:          runID,
		VerifiedAt:     time.Now().UTC(),
	}
}

func (m *Manager) persist(ctx context.Context, batch []*PrecomputedScenario) error {
	if m.limiter != nil {
		if err := m.limiter.WaitN(ctx, len(batch)); err != nil {
			return err
		}
	}
	return m.store.Upsert(ctx, batch)
}
