// Finrec - Financial Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/finrec

package config

import (
	"time"

	"github.com/tomtom215/finrec/internal/recommend"
)

// Config holds all application configuration.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: Built-in defaults for every setting
//  2. Config File: Optional YAML config file (config.yaml)
//  3. Environment Variables: Override any mapped setting
//
// A .env file in the working directory is read into the process environment
// before layer 3, so it behaves like real environment variables.
//
// Config is immutable after Load and safe for concurrent read access.
type Config struct {
	Database   DatabaseConfig   `koanf:"database"`
	Pipeline   PipelineConfig   `koanf:"pipeline"`
	Pricing    PricingConfig    `koanf:"pricing"`
	Profile    ProfileConfig    `koanf:"profile"`
	Scoring    ScoringConfig    `koanf:"scoring"`
	Strategy   StrategyConfig   `koanf:"strategy"`
	Evaluation EvaluationConfig `koanf:"evaluation"`
	Model      ModelConfig      `koanf:"model"`
	Server     ServerConfig     `koanf:"server"`
	Events     EventsConfig     `koanf:"events"`
	Supervisor SupervisorConfig `koanf:"supervisor"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// DatabaseConfig holds DuckDB settings and the raw parquet inputs.
//
// Environment Variables:
//   - DUCKDB_PATH: Database file path (default: /data/finrec.duckdb)
//   - DUCKDB_MAX_MEMORY: DuckDB memory limit (default: 2GB)
//   - DUCKDB_THREADS: DuckDB worker threads, 0 means NumCPU (default: 0)
//   - EVENTS_PARQUET: Raw interaction events file
//   - ITEMS_PARQUET: Raw catalog items file
//   - USERS_PARQUET: Optional user roster file
type DatabaseConfig struct {
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"`

	// Raw inputs imported through read_parquet before each run.
	// Empty paths skip the import and use whatever the tables already hold.
	EventsParquet string `koanf:"events_parquet"`
	ItemsParquet  string `koanf:"items_parquet"`
	UsersParquet  string `koanf:"users_parquet"`
}

// PipelineConfig controls scheduled batch runs.
type PipelineConfig struct {
	// Interval between scheduled runs. Zero disables the schedule.
	Interval time.Duration `koanf:"interval"`

	// RunOnStartup triggers one run as soon as the service starts.
	RunOnStartup bool `koanf:"run_on_startup"`

	// Workers bounds per-user parallelism. Zero means one per CPU.
	Workers int `koanf:"workers"`

	// Timeout bounds one run.
	Timeout time.Duration `koanf:"timeout"`

	// Seed drives user sampling.
	Seed int64 `koanf:"seed"`

	// MaxUsers caps the profiled population. Zero profiles everyone.
	MaxUsers int `koanf:"max_users"`

	// CatalogPath is an optional product catalog JSON file. Empty uses the
	// built-in catalog.
	CatalogPath string `koanf:"catalog_path"`
}

// PricingConfig selects how catalog prices are corrected.
type PricingConfig struct {
	Mode              string  `koanf:"mode"` // auto, catalog, log_inverse, synthetic
	SyntheticBase     float64 `koanf:"synthetic_base"`
	SyntheticSpan     int     `koanf:"synthetic_span"`
	NullCategoryPrice float64 `koanf:"null_category_price"`
	LogFloorPrice     float64 `koanf:"log_floor_price"`
}

// ProfileConfig tunes profile construction.
type ProfileConfig struct {
	AffinityTopN              int     `koanf:"affinity_top_n"`
	AffinityInteractionWeight float64 `koanf:"affinity_interaction_weight"`
	MinStabilityEvents        int     `koanf:"min_stability_events"`
}

// ScoringConfig tunes candidate scoring.
type ScoringConfig struct {
	BaseScore   float64 `koanf:"base_score"`
	MinScore    float64 `koanf:"min_score"`
	ModelWeight float64 `koanf:"model_weight"`
	TopK        int     `koanf:"top_k"`

	// ScorerTimeout bounds one learned-scorer prediction before the circuit
	// breaker counts it as a failure.
	ScorerTimeout time.Duration `koanf:"scorer_timeout"`
}

// StrategyConfig tunes strategy selection.
type StrategyConfig struct {
	// Default is used when a run names no strategy. "auto" picks the
	// comparison winner.
	Default      string `koanf:"default"`
	BalancedTopK int    `koanf:"balanced_top_k"`
}

// EvaluationConfig controls what is written after a run.
type EvaluationConfig struct {
	// ExportDir receives parquet exports of profiles and recommendations
	// plus a JSON quality report. Empty disables exports.
	ExportDir string `koanf:"export_dir"`

	// KeepRuns is the number of persisted runs retained after each run.
	// Zero keeps every run.
	KeepRuns int `koanf:"keep_runs"`
}

// ModelConfig controls the learned scorer.
//
// Environment Variables:
//   - MODEL_ENABLED: Blend the learned scorer into final scores (default: false)
//   - MODEL_PATH: Directory of versioned model files (default: /data/models)
//   - MODEL_TRAIN_INTERVAL: Retraining schedule, 0 disables it (default: 24h)
type ModelConfig struct {
	Enabled        bool          `koanf:"enabled"`
	Path           string        `koanf:"path"`
	TrainInterval  time.Duration `koanf:"train_interval"`
	TrainOnStartup bool          `koanf:"train_on_startup"`

	// MinSamples is the number of labeled outcomes required before fitting.
	MinSamples int `koanf:"min_samples"`

	// Lambda is the ridge regularization strength.
	Lambda float64 `koanf:"lambda"`

	// Keep is the number of model versions retained after each save.
	Keep int `koanf:"keep"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Enabled         bool          `koanf:"enabled"`
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	Timeout         time.Duration `koanf:"timeout"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`

	// TriggerInterval is the minimum spacing of manual pipeline triggers.
	TriggerInterval time.Duration `koanf:"trigger_interval"`
}

// EventsConfig controls run-completed notifications.
type EventsConfig struct {
	Enabled bool `koanf:"enabled"`

	// Backend is "nats" for JetStream or "memory" for an in-process channel.
	Backend string `koanf:"backend"`
	URL     string `koanf:"url"`
	Topic   string `koanf:"topic"`

	// Stream is the JetStream stream that captures Topic.
	Stream string `koanf:"stream"`

	PublishTimeout time.Duration `koanf:"publish_timeout"`

	// BreakerFailures is the consecutive failure count that opens the breaker.
	BreakerFailures uint32        `koanf:"breaker_failures"`
	BreakerTimeout  time.Duration `koanf:"breaker_timeout"`
}

// SupervisorConfig holds suture failure handling settings.
type SupervisorConfig struct {
	FailureThreshold float64       `koanf:"failure_threshold"`
	FailureDecay     float64       `koanf:"failure_decay"`
	FailureBackoff   time.Duration `koanf:"failure_backoff"`
	ShutdownTimeout  time.Duration `koanf:"shutdown_timeout"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	Level string `koanf:"level"`

	// Format is json or console.
	Format string `koanf:"format"`

	// Caller includes caller file and line number in logs.
	Caller bool `koanf:"caller"`
}

// ToRecommendConfig builds the engine tunables from the application config.
// An "auto" default strategy resolves to balanced for the engine; the
// pipeline handles auto per run.
func (c *Config) ToRecommendConfig() *recommend.Config {
	rc := recommend.DefaultConfig()

	rc.Pricing.Mode = recommend.PricingMode(c.Pricing.Mode)
	rc.Pricing.SyntheticBase = c.Pricing.SyntheticBase
	rc.Pricing.SyntheticSpan = c.Pricing.SyntheticSpan
	rc.Pricing.NullCategoryPrice = c.Pricing.NullCategoryPrice
	rc.Pricing.LogFloorPrice = c.Pricing.LogFloorPrice

	rc.Profile.MaxUsers = c.Pipeline.MaxUsers
	rc.Profile.AffinityTopN = c.Profile.AffinityTopN
	rc.Profile.AffinityInteractionWeight = c.Profile.AffinityInteractionWeight
	rc.Profile.MinStabilityEvents = c.Profile.MinStabilityEvents

	rc.Scoring.BaseScore = c.Scoring.BaseScore
	rc.Scoring.MinScore = c.Scoring.MinScore
	rc.Scoring.ModelWeight = c.Scoring.ModelWeight
	rc.Scoring.TopK = c.Scoring.TopK

	rc.Strategy.BalancedTopK = c.Strategy.BalancedTopK
	if c.Strategy.Default != StrategyAuto {
		rc.Strategy.Default = recommend.Strategy(c.Strategy.Default)
	}

	rc.Workers = c.Pipeline.Workers
	rc.StageTimeout = c.Pipeline.Timeout
	rc.Seed = c.Pipeline.Seed
	return rc
}

// DefaultRunStrategy is the strategy label used for scheduled runs.
// Empty means the engine default.
func (c *Config) DefaultRunStrategy() string {
	if c.Strategy.Default == StrategyAuto {
		return StrategyAuto
	}
	return ""
}

// StrategyAuto selects the comparison winner per run.
const StrategyAuto = "auto"
