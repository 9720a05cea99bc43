package config

import (
	"errors"
	"fmt"
	"os"
	"time"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	// APIBaseURL is the root of the disease.sh-compatible data source,
	// without a trailing slash.
	APIBaseURL   string
	FetchTimeout time.Duration

	// DatabaseDriver is "sqlite" or "postgres".
	DatabaseDriver string
	// DatabaseURL is a file path / DSN for sqlite or a connection
	// string for postgres.
	DatabaseURL string

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// CacheTTL bounds how stale the dashboard's cached query results
	// may get before a reload.
	CacheTTL time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	fetchTimeout, err := envDuration("FETCH_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}
	shutdownTimeout, err := envDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	cacheTTL, err := envDuration("CACHE_TTL", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		APIBaseURL:      envOrDefault("API_BASE_URL", "https://disease.sh/v3/covid-19"),
		FetchTimeout:    fetchTimeout,
		DatabaseDriver:  envOrDefault("DATABASE_DRIVER", "sqlite"),
		DatabaseURL:     envOrDefault("DATABASE_URL", "covid.db"),
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
		CacheTTL:        cacheTTL,
	}

	if cfg.APIBaseURL == "" {
		return nil, errors.New("API_BASE_URL is required")
	}
	if cfg.DatabaseDriver != "sqlite" && cfg.DatabaseDriver != "postgres" {
		return nil, fmt.Errorf("invalid DATABASE_DRIVER %q (want sqlite or postgres)", cfg.DatabaseDriver)
	}
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return d, nil
}
