// Package config defines service configuration and its loader.
package config

import (
	"context"
	"fmt"
	"runtime"
	"time"
)

// Store drivers.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat is "text" or "json".
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// StoreDriver selects the document store: memory or sqlite.
	StoreDriver string `koanf:"store_driver"`
	// SQLitePath is the database file used by the sqlite driver.
	SQLitePath string `koanf:"sqlite_path"`

	// GraceWindowMS is how long a scan stays unlocked after it is created.
	GraceWindowMS int64 `koanf:"grace_window_ms"`

	// MaxCheckpoints caps the checkpoint count of a round.
	MaxCheckpoints int `koanf:"max_checkpoints"`
	// DefaultRoundCheckpoints is used when a round is created without a count.
	DefaultRoundCheckpoints int `koanf:"default_round_checkpoints"`
	// DefaultMissionWeight is the weight given to a freshly created MP topic.
	DefaultMissionWeight float64 `koanf:"default_mission_weight"`

	// BatchSize bounds the writes in one roster batch.
	BatchSize int `koanf:"batch_size"`
	// BatchConcurrency bounds the roster chunks committed in parallel.
	BatchConcurrency int `koanf:"batch_concurrency"`

	// ScanQueueSize bounds the in-memory scan event queue.
	ScanQueueSize int `koanf:"scan_queue_size"`
	// ScanWorkers sets the number of scan ingestion workers.
	ScanWorkers int `koanf:"scan_workers"`
	// DedupeSize sets the capacity of the scan event id cache.
	DedupeSize int `koanf:"dedupe_size"`

	// ScanLookbackHours limits the live scan view to recent scans.
	ScanLookbackHours int `koanf:"scan_lookback_hours"`
	// ScanQueryLimit caps the scans loaded into the live view.
	ScanQueryLimit int `koanf:"scan_query_limit"`

	// MaxRankingLimit caps GET /ranking?limit.
	MaxRankingLimit int `koanf:"max_ranking_limit"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:                "info",
		LogFormat:               "text",
		Addr:                    ":9080",
		StoreDriver:             DriverMemory,
		SQLitePath:              "scoreboard.db",
		GraceWindowMS:           60_000,
		MaxCheckpoints:          50,
		DefaultRoundCheckpoints: 6,
		DefaultMissionWeight:    20,
		BatchSize:               450,
		BatchConcurrency:        4,
		ScanQueueSize:           10_000,
		ScanWorkers:             runtime.NumCPU(),
		DedupeSize:              100_000,
		ScanLookbackHours:       12,
		ScanQueryLimit:          5000,
		MaxRankingLimit:         500,
	}
}

// GraceWindow returns GraceWindowMS as a duration.
func (c *Config) GraceWindow() time.Duration {
	return time.Duration(c.GraceWindowMS) * time.Millisecond
}

// ScanLookback returns ScanLookbackHours as a duration.
func (c *Config) ScanLookback() time.Duration {
	return time.Duration(c.ScanLookbackHours) * time.Hour
}

// Validate reports the first invalid setting.
func (c *Config) Validate(_ context.Context) error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.StoreDriver != DriverMemory && c.StoreDriver != DriverSQLite:
		return fmt.Errorf("%w: unknown store_driver %q", ErrInvalidConfig, c.StoreDriver)
	case c.StoreDriver == DriverSQLite && c.SQLitePath == "":
		return fmt.Errorf("%w: sqlite_path must not be empty", ErrInvalidConfig)
	case c.GraceWindowMS <= 0:
		return fmt.Errorf("%w: grace_window_ms must be positive", ErrInvalidConfig)
	case c.MaxCheckpoints <= 0:
		return fmt.Errorf("%w: max_checkpoints must be positive", ErrInvalidConfig)
	case c.DefaultRoundCheckpoints < 0 || c.DefaultRoundCheckpoints > c.MaxCheckpoints:
		return fmt.Errorf("%w: default_round_checkpoints out of range", ErrInvalidConfig)
	case c.BatchSize <= 0 || c.BatchSize > 500:
		return fmt.Errorf("%w: batch_size must be within 1..500", ErrInvalidConfig)
	case c.BatchConcurrency <= 0:
		return fmt.Errorf("%w: batch_concurrency must be positive", ErrInvalidConfig)
	case c.ScanQueueSize <= 0 || c.ScanWorkers <= 0 || c.DedupeSize <= 0:
		return fmt.Errorf("%w: scan queue, workers and dedupe size must be positive", ErrInvalidConfig)
	}
	return nil
}
