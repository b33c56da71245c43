// Package config defines service configuration structures and loading hooks.
package config

import (
	"runtime"
	"time"

	scoring "github.com/Aimisnotavailable/DEPEDHRMPSB/internal/domain/scoring"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects "json" or "text" output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// DBPath is the SQLite database file.
	DBPath string `koanf:"db_path"`

	// RubricsPath optionally names a rubric catalog file. The embedded
	// default catalog is used when empty.
	RubricsPath string `koanf:"rubrics_path"`

	// QueueSize bounds the in-memory recompute queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of recompute workers.
	WorkerCount int `koanf:"worker_count"`

	// PendingSize bounds the number of coalesced pending recomputes.
	PendingSize int `koanf:"pending_size"`

	// MaxLeaderboardLimit caps GET /rounds/{round}/leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// DefaultBaselineWeight is used for baseline kinds a rubric gives no weight.
	DefaultBaselineWeight int `koanf:"default_baseline_weight"`

	// BracketStep is the level granularity used when a rubric sets none.
	BracketStep int `koanf:"bracket_step"`

	// EnforceWeightTotal rejects rubrics whose weights do not sum to MaxComposite.
	EnforceWeightTotal bool `koanf:"enforce_weight_total"`

	// MaxComposite is the composite ceiling used when a rubric sets none.
	MaxComposite float64 `koanf:"max_composite"`

	// MetricsInterval is how often the leaderboard cache reports its size, e.g. "5s".
	MetricsInterval time.Duration `koanf:"metrics_interval"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:              "info",
		LogFormat:             "json",
		Addr:                  ":9080",
		DBPath:                "psb.db",
		QueueSize:             10_000,
		WorkerCount:           runtime.NumCPU() * 2,
		PendingSize:           50_000,
		MaxLeaderboardLimit:   1000,
		DefaultBaselineWeight: scoring.DefaultBaselineWeight,
		BracketStep:           scoring.DefaultBracketStep,
		EnforceWeightTotal:    true,
		MaxComposite:          scoring.DefaultMaxComposite,
		MetricsInterval:       5 * time.Second,
	}
}

// RubricOptions returns the rubric validation options this config selects.
func (c *Config) RubricOptions() []scoring.RubricOption {
	return []scoring.RubricOption{
		scoring.WithDefaultBaselineWeight(c.DefaultBaselineWeight),
		scoring.WithBracketStep(c.BracketStep),
		scoring.WithMaxComposite(c.MaxComposite),
		scoring.WithWeightTotalCheck(c.EnforceWeightTotal),
	}
}
