package config

import (
	"os"
	"strconv"
	"time"
)

// LoadFromEnv overrides configuration from environment variables.
func LoadFromEnv(cfg *Config) {
	if port := os.Getenv("STAFFING_METRICS_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.MetricsPort = p
		}
	}

	if logLevel := os.Getenv("STAFFING_LOG_LEVEL"); logLevel != "" {
		cfg.Server.LogLevel = logLevel
	}

	// Cache settings
	if capacity := os.Getenv("STAFFING_CACHE_CAPACITY"); capacity != "" {
		if n, err := strconv.Atoi(capacity); err == nil {
			cfg.Cache.Capacity = n
		}
	}
	if ttl := os.Getenv("STAFFING_CACHE_TTL"); ttl != "" {
		if d, err := time.ParseDuration(ttl); err == nil {
			cfg.Cache.TTL = d
		}
	}

	// Database settings
	if host := os.Getenv("STAFFING_DB_HOST"); host != "" {
		cfg.Database.Host = host
	}
	if port := os.Getenv("STAFFING_DB_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Database.Port = p
		}
	}
	if password := os.Getenv("STAFFING_DB_PASSWORD"); password != "" {
		cfg.Database.Password = password
	}
}

// GetEnvOrDefault returns environment variable or default value.
func GetEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
