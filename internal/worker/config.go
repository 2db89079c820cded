// Package worker runs background territory clustering for FieldRoute.
package worker

import (
	"os"
	"strconv"
	"time"
)

// Config holds configuration for the clustering job.
type Config struct {
	// Concurrency is the number of tenants clustered at once.
	// Default: 3
	Concurrency int

	// TenantTimeout bounds a single tenant's run.
	// Default: 2 minutes
	TenantTimeout time.Duration

	// DefaultK is used when a message does not set k.
	// Default: 8
	DefaultK int
}

// DefaultConfig returns the default job configuration.
func DefaultConfig() Config {
	return Config{
		Concurrency:   3,
		TenantTimeout: 2 * time.Minute,
		DefaultK:      8,
	}
}

// ConfigFromEnv reads WORKER_CONCURRENCY, WORKER_JOB_TIMEOUT and
// WORKER_DEFAULT_K over the defaults.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	if v, err := strconv.Atoi(os.Getenv("WORKER_CONCURRENCY")); err == nil && v > 0 {
		cfg.Concurrency = v
	}
	if v, err := time.ParseDuration(os.Getenv("WORKER_JOB_TIMEOUT")); err == nil && v > 0 {
		cfg.TenantTimeout = v
	}
	if v, err := strconv.Atoi(os.Getenv("WORKER_DEFAULT_K")); err == nil && v > 0 {
		cfg.DefaultK = v
	}
	return cfg
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Concurrency <= 0 {
		c.Concurrency = d.Concurrency
	}
	if c.TenantTimeout <= 0 {
		c.TenantTimeout = d.TenantTimeout
	}
	if c.DefaultK <= 0 {
		c.DefaultK = d.DefaultK
	}
	return c
}
