// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - External errors must be wrapped with this package's sentinel errors.
package config

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/okian/pmr/internal/domain/rating"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory match queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of rating workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets how many match ids are remembered for idempotency.
	DedupeSize int `koanf:"dedupe_size"`

	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// HistorySize caps the rating changes kept per player in memory.
	HistorySize int `koanf:"history_size"`

	// InitialPMR is the rating of a player's first match.
	InitialPMR float64 `koanf:"initial_pmr"`

	// Store selects the player store: memory or postgres.
	Store string `koanf:"store"`

	// DatabaseURL is the Postgres connection string used by the postgres store.
	DatabaseURL string `koanf:"database_url"`

	// Rating overrides individual rating model parameters.
	Rating rating.Overrides `koanf:"rating"`
}

// New creates a Config with defaults.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Addr:                ":9080",
		QueueSize:           100_000,
		WorkerCount:         runtime.NumCPU() * 2,
		DedupeSize:          500_000,
		MaxLeaderboardLimit: 100,
		HistorySize:         50,
		InitialPMR:          3.5,
		Store:               StoreMemory,
	}
}

// Params returns the rating parameters: defaults merged with Rating.
func (c *Config) Params() rating.Params {
	return rating.NewParams(c.Rating)
}

// Validate reports the first invalid setting as ErrInvalidConfig.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
	}

	switch {
	case strings.TrimSpace(c.Addr) == "":
		return invalid("addr must not be empty")
	case c.QueueSize < 1:
		return invalid("queue_size must be positive, got %d", c.QueueSize)
	case c.WorkerCount < 1:
		return invalid("worker_count must be positive, got %d", c.WorkerCount)
	case c.DedupeSize < 0:
		return invalid("dedupe_size must not be negative, got %d", c.DedupeSize)
	case c.MaxLeaderboardLimit < 1:
		return invalid("max_leaderboard_limit must be positive, got %d", c.MaxLeaderboardLimit)
	case c.HistorySize < 1:
		return invalid("history_size must be positive, got %d", c.HistorySize)
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return invalid("unknown log_level %q", c.LogLevel)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return invalid("unknown log_format %q", c.LogFormat)
	}

	switch c.Store {
	case StoreMemory:
	case StorePostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			return invalid("database_url is required for the postgres store")
		}
	default:
		return invalid("unknown store %q", c.Store)
	}

	p := c.Params()
	if err := p.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.InitialPMR < p.PMRMin || c.InitialPMR > p.PMRMax {
		return invalid("initial_pmr %v outside [%v, %v]", c.InitialPMR, p.PMRMin, p.PMRMax)
	}
	return nil
}
