package precompute

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq" // registers the postgres driver
)

// PostgresConfig holds scenario-table database configuration.
type PostgresConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string
}

// PostgresStore persists scenarios in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection pool against the scenario database.
func NewPostgresStore(cfg PostgresConfig) (*PostgresStore, error) {
	if cfg.SSLMode == "" {
		cfg.SSLMode = "disable"
	}

	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open scenario database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &PostgresStore{db: db}, nil
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// Ping verifies the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CreateTables creates the scenario table if it does not exist.
func (s *PostgresStore) CreateTables(ctx context.Context) error {
	query := `CREATE TABLE IF NOT EXISTS staffing_scenarios (
		key VARCHAR(255) PRIMARY KEY,
		arrival_rate DOUBLE PRECISION NOT NULL,
		aht_seconds DOUBLE PRECISION NOT NULL,
		target_sl DOUBLE PRECISION NOT NULL,
		wait_seconds DOUBLE PRECISION NOT NULL,
		agents INTEGER NOT NULL,
		achieved_sl DOUBLE PRECISION NOT NULL,
		search_exhausted BOOLEAN NOT NULL DEFAULT FALSE,
		offered_load DOUBLE PRECISION NOT NULL,
		occupancy DOUBLE PRECISION NOT NULL,
		avg_wait_seconds DOUBLE PRECISION NOT NULL,
		compute_micros BIGINT NOT NULL,
		run_id VARCHAR(64) NOT NULL,
		verified_at TIMESTAMP NOT NULL DEFAULT NOW()
	)`

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("create scenario table: %w", err)
	}
	return nil
}

// Upsert inserts or replaces scenarios by key, so re-running the grid is
// idempotent.
func (s *PostgresStore) Upsert(ctx context.Context, scenarios []*PrecomputedScenario) error {
	query := `INSERT INTO staffing_scenarios (
			key, arrival_rate, aht_seconds, target_sl, wait_seconds,
			agents, achieved_sl, search_exhausted, offered_load, occupancy,
			avg_wait_seconds, compute_micros, run_id, verified_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (key) DO UPDATE SET
			agents = EXCLUDED.agents,
			achieved_sl = EXCLUDED.achieved_sl,
			search_exhausted = EXCLUDED.search_exhausted,
			offered_load = EXCLUDED.offered_load,
			occupancy = EXCLUDED.occupancy,
			avg_wait_seconds = EXCLUDED.avg_wait_seconds,
			compute_micros = EXCLUDED.compute_micros,
			run_id = EXCLUDED.run_id,
			verified_at = EXCLUDED.verified_at`

	for _, sc := range scenarios {
		_, err := s.db.ExecContext(ctx, query,
			string(sc.Key),
			sc.Input.ArrivalRate,
			sc.Input.AHTSeconds,
			sc.Input.TargetServiceLevel,
			sc.Input.TargetWaitSeconds,
			sc.Result.Agents,
			sc.Result.AchievedServiceLevel,
			sc.Result.SearchExhausted,
			sc.OfferedLoad,
			sc.Occupancy,
			sc.AvgWaitSeconds,
			sc.ComputeTime.Microseconds(),
			sc.RunID,
			sc.VerifiedAt,
		)
		if err != nil {
			return fmt.Errorf("upsert scenario %s: %w", sc.Key, err)
		}
	}
	return nil
}

// Get returns the scenario for key, if present.
func (s *PostgresStore) Get(ctx context.Context, key ScenarioKey) (*PrecomputedScenario, bool, error) {
	query := `SELECT key, arrival_rate, aht_seconds, target_sl, wait_seconds,
			agents, achieved_sl, search_exhausted, offered_load, occupancy,
			avg_wait_seconds, compute_micros, run_id, verified_at
		FROM staffing_scenarios WHERE key = $1`

	var (
		sc           PrecomputedScenario
		rawKey       string
		computeMicro int64
	)
	err := s.db.QueryRowContext(ctx, query, string(key)).Scan(
		&rawKey,
		&sc.Input.ArrivalRate,
		&sc.Input.AHTSeconds,
		&sc.Input.TargetServiceLevel,
		&sc.Input.TargetWaitSeconds,
		&sc.Result.Agents,
		&sc.Result.AchievedServiceLevel,
		&sc.Result.SearchExhausted,
		&sc.OfferedLoad,
		&sc.Occupancy,
		&sc.AvgWaitSeconds,
		&computeMicro,
		&sc.RunID,
		&sc.VerifiedAt,
	)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query scenario %s: %w", key, err)
	}

	sc.Key = ScenarioKey(rawKey)
	sc.ComputeTime = time.Duration(computeMicro) * time.Microsecond
	return &sc, true, nil
}

// Count returns the number of stored scenarios.
func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM staffing_scenarios`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count scenarios: %w", err)
	}
	return count, nil
}

// Purge removes all stored scenarios.
func (s *PostgresStore) Purge(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM staffing_scenarios`); err != nil {
		return fmt.Errorf("purge scenarios: %w", err)
	}
	return nil
}

// MarkVerified stamps the given keys with a verification time.
func (s *PostgresStore) MarkVerified(ctx context.Context, keys []ScenarioKey, at time.Time) error {
	if len(keys) == 0 {
		return nil
	}
	raw := make([]string, len(keys))
	for i, k := range keys {
		raw[i] = string(k)
	}

	query := `UPDATE staffing_scenarios SET verified_at = $1 WHERE key = ANY($2)`
	if _, err := s.db.ExecContext(ctx, query, at, pq.Array(raw)); err != nil {
		return fmt.Errorf("mark scenarios verified: %w", err)
	}
	return nil
}
