package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/clearqueue/staffing/internal/config"
	"github.com/clearqueue/staffing/internal/logging"
	"github.com/clearqueue/staffing/internal/metrics"
	"github.com/clearqueue/staffing/internal/precompute"
)

func main() {
	// Load config: file if given, env overrides on top of defaults
	cfg := config.Default()
	if path := os.Getenv("STAFFING_CONFIG"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load config %s: %v\n", path, err)
			os.Exit(1)
		}
		cfg = loaded
	}
	config.LoadFromEnv(cfg)

	logger, err := logging.New(cfg.Server.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	// Choose the scenario store
	var store precompute.ScenarioStore
	if cfg.Database.Enabled() {
		pg, err := precompute.NewPostgresStore(precompute.PostgresConfig{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			Database: cfg.Database.Database,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			SSLMode:  cfg.Database.SSLMode,
		})
		if err != nil {
			logger.Fatal("failed to open scenario database", zap.Error(err))
		}
		defer func() { _ = pg.Close() }()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := pg.Ping(ctx); err != nil {
			cancel()
			logger.Fatal("scenario database unreachable", zap.Error(err))
		}
		cancel()
		if err := pg.CreateTables(context.Background()); err != nil {
			logger.Fatal("failed to create scenario table", zap.Error(err))
		}
		store = pg
		logger.Info("using postgres scenario store", zap.String("host", cfg.Database.Host))
	} else {
		store = precompute.NewMemoryStore()
		logger.Warn("no database configured, results will not survive this process")
	}

	// Expose metrics while the run is in flight
	metricsServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.MetricsPort),
		Handler:           promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()

	// Handle shutdown gracefully
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("interrupt received, cancelling run...")
		cancel()
	}()

	manager := precompute.NewManager(precompute.ManagerConfig{
		Workers:     cfg.Precompute.Workers,
		MinCoverage: cfg.Precompute.MinCoverage,
		PersistRate: cfg.Precompute.PersistRate,
		BatchSize:   cfg.Precompute.BatchSize,
	}, store, logger)

	report, err := manager.Run(ctx, cfg.Precompute.Force)
	if err != nil {
		logger.Fatal("precompute run failed", zap.Error(err))
	}

	logger.Info("precompute complete",
		zap.String("run_id", report.RunID),
		zap.Int("requested", report.Requested),
		zap.Int("computed", report.Computed),
		zap.Bool("skipped", report.Skipped),
		zap.Duration("duration", report.Duration))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = metricsServer.Shutdown(shutdownCtx)
}
