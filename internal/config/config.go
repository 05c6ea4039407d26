// Package config holds the file-based configuration for the staffing
// core and its precompute runner.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Cache      CacheConfig      `yaml:"cache"`
	Precompute PrecomputeConfig `yaml:"precompute"`
	Database   DatabaseConfig   `yaml:"database"`
}

type ServerConfig struct {
	MetricsPort int    `yaml:"metrics_port"`
	LogLevel    string `yaml:"log_level"`
}

type CacheConfig struct {
	Capacity           int           `yaml:"capacity"`
	TTL                time.Duration `yaml:"ttl"`
	PatternThreshold   float64       `yaml:"pattern_threshold"`
	LearnWorkers       int           `yaml:"learn_workers"`
	LearnQueueSize     int           `yaml:"learn_queue_size"`
	DefaultWaitSeconds float64       `yaml:"default_wait_seconds"`
}

type PrecomputeConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Workers     int     `yaml:"workers"`
	Force       bool    `yaml:"force"`
	MinCoverage float64 `yaml:"min_coverage"`
	PersistRate float64 `yaml:"persist_rate"`
	BatchSize   int     `yaml:"batch_size"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
}

// Enabled reports whether a database was configured at all.
func (d DatabaseConfig) Enabled() bool {
	return d.Host != ""
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			MetricsPort: 9090,
			LogLevel:    "info",
		},
		Cache: CacheConfig{
			Capacity:           1000,
			TTL:                15 * time.Minute,
			PatternThreshold:   0.8,
			LearnWorkers:       2,
			LearnQueueSize:     1024,
			DefaultWaitSeconds: 20,
		},
		Precompute: PrecomputeConfig{
			Enabled:     true,
			MinCoverage: 0.9,
			BatchSize:   100,
		},
	}
}

// Load reads configuration from a yaml file over the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path) // #nosec G304 - path comes from the operator
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
