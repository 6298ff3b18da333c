package backfill

import (
	"os"
	"strconv"
	"time"
)

// Config holds backfill-specific configuration.
type Config struct {
	// BatchSize is the number of missing levels fetched per gap query.
	BatchSize int

	// Concurrency is the number of concurrent block fetches per batch.
	Concurrency int

	// StartLevel overrides the start of the range (default: 0).
	StartLevel uint64

	// EndLevel overrides the end of the range. Zero means fetch the
	// current head from RPC.
	EndLevel uint64

	// DryRun only reports gaps without indexing.
	DryRun bool

	// ProgressInterval is how often to log progress.
	ProgressInterval time.Duration
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:        1000,
		Concurrency:      10,
		StartLevel:       0,
		EndLevel:         0,
		DryRun:           false,
		ProgressInterval: 10 * time.Second,
	}
}

// LoadConfig loads backfill configuration from environment variables.
func LoadConfig() *Config {
	cfg := DefaultConfig()

	if v := os.Getenv("BACKFILL_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.BatchSize = n
		}
	}

	if v := os.Getenv("BACKFILL_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Concurrency = n
		}
	}

	if v := os.Getenv("BACKFILL_START_LEVEL"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.StartLevel = n
		}
	}

	if v := os.Getenv("BACKFILL_END_LEVEL"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.EndLevel = n
		}
	}

	if v := os.Getenv("BACKFILL_DRY_RUN"); v == "true" || v == "1" {
		cfg.DryRun = true
	}

	if v := os.Getenv("BACKFILL_PROGRESS_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.ProgressInterval = d
		}
	}

	return cfg
}
