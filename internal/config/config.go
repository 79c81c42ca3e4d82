// Package config defines and loads the orchestrator configuration.
package config

import (
	"errors"
	"time"
)

// Config is the top-level configuration struct for hackfang.
// Field tags use mapstructure for viper unmarshalling.
type Config struct {
	Orchestrator  OrchestratorConfig  `mapstructure:"orchestrator"`
	Scoring       ScoringConfig       `mapstructure:"scoring"`
	Snapshot      SnapshotConfig      `mapstructure:"snapshot"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// OrchestratorConfig holds scheduler loop knobs.
type OrchestratorConfig struct {
	TickIntervalMS    int  `mapstructure:"tick_interval_ms"`
	MaxTargetsPerTick int  `mapstructure:"max_targets_per_tick"`
	IgnoreHome        bool `mapstructure:"ignore_home"`
	UseFormulas       bool `mapstructure:"use_formulas"`
}

// TickInterval returns the loop interval as a duration.
func (c OrchestratorConfig) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalMS) * time.Millisecond
}

// ScoringConfig holds target admission knobs.
type ScoringConfig struct {
	MinGrowth float64  `mapstructure:"min_growth"`
	Blacklist []string `mapstructure:"blacklist"`
}

// SnapshotConfig holds artifact publishing paths.
type SnapshotConfig struct {
	ArtifactPath string `mapstructure:"artifact_path"`
	HistoryPath  string `mapstructure:"history_path"`
	HistoryCap   int    `mapstructure:"history_cap"`
}

// ObservabilityConfig holds metrics and logging knobs.
type ObservabilityConfig struct {
	MetricsAddr string `mapstructure:"metrics_addr"`
	LogJSON     bool   `mapstructure:"log_json"`
	Verbose     bool   `mapstructure:"verbose"`
}

// Defaults.
const (
	DefaultTickIntervalMS    = 1000
	DefaultMaxTargetsPerTick = 3
	DefaultMinGrowth         = 15.0
	DefaultArtifactPath      = "data/orchestrator-info.json"
	DefaultHistoryPath       = "data/orchestrator-history.lz4"
	DefaultHistoryCap        = 7200
)

// DefaultBlacklist lists chronically unprofitable hosts excluded by name.
var DefaultBlacklist = []string{"fulcrumassets"}

// Sentinel errors for configuration validation.
var (
	// ErrInvalidTickInterval indicates a non-positive tick interval.
	ErrInvalidTickInterval = errors.New("orchestrator.tick_interval_ms must be positive")
	// ErrInvalidMaxTargets indicates a non-positive fresh batch cap.
	ErrInvalidMaxTargets = errors.New("orchestrator.max_targets_per_tick must be at least 1")
	// ErrInvalidMinGrowth indicates a negative growth cutoff.
	ErrInvalidMinGrowth = errors.New("scoring.min_growth must be non-negative")
	// ErrInvalidHistoryCap indicates a negative history rotation cap.
	ErrInvalidHistoryCap = errors.New("snapshot.history_cap must be non-negative")
	// ErrMissingArtifactPath indicates an empty artifact path.
	ErrMissingArtifactPath = errors.New("snapshot.artifact_path must be set")
)

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Orchestrator.TickIntervalMS <= 0 {
		return ErrInvalidTickInterval
	}

	if c.Orchestrator.MaxTargetsPerTick < 1 {
		return ErrInvalidMaxTargets
	}

	if c.Scoring.MinGrowth < 0 {
		return ErrInvalidMinGrowth
	}

	if c.Snapshot.HistoryCap < 0 {
		return ErrInvalidHistoryCap
	}

	if c.Snapshot.ArtifactPath == "" {
		return ErrMissingArtifactPath
	}

	return nil
}
