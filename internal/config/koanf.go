// Finrec - Financial Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/finrec

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/finrec/config.yaml",
	"/etc/finrec/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// DotEnvPath is the optional .env file read before environment variables.
var DotEnvPath = ".env"

// defaultConfig returns a Config struct with all default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:      "/data/finrec.duckdb",
			MaxMemory: "2GB",
			Threads:   0, // 0 = use runtime.NumCPU()
		},
		Pipeline: PipelineConfig{
			Interval:     6 * time.Hour,
			RunOnStartup: true,
			Workers:      0,
			Timeout:      5 * time.Minute,
			Seed:         42,
			MaxUsers:     0,
		},
		Pricing: PricingConfig{
			Mode:              "auto",
			SyntheticBase:     1000,
			SyntheticSpan:     9000,
			NullCategoryPrice: 2000,
			LogFloorPrice:     1000,
		},
		Profile: ProfileConfig{
			AffinityTopN:              10,
			AffinityInteractionWeight: 0.6,
			MinStabilityEvents:        10,
		},
		Scoring: ScoringConfig{
			BaseScore:     0.3,
			MinScore:      0.2,
			ModelWeight:   0.4,
			TopK:          5,
			ScorerTimeout: 250 * time.Millisecond,
		},
		Strategy: StrategyConfig{
			Default:      "balanced",
			BalancedTopK: 3,
		},
		Evaluation: EvaluationConfig{
			KeepRuns: 50,
		},
		Model: ModelConfig{
			Enabled:        false,
			Path:           "/data/models",
			TrainInterval:  24 * time.Hour,
			TrainOnStartup: false,
			MinSamples:     50,
			Lambda:         1.0,
			Keep:           5,
		},
		Server: ServerConfig{
			Enabled:         true,
			Host:            "0.0.0.0",
			Port:            8742,
			Timeout:         30 * time.Second,
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
			TriggerInterval: 30 * time.Second,
		},
		Events: EventsConfig{
			Enabled:         false,
			Backend:         "memory",
			URL:             "nats://127.0.0.1:4222",
			Topic:           "pipeline.completed",
			Stream:          "FINREC",
			PublishTimeout:  5 * time.Second,
			BreakerFailures: 5,
			BreakerTimeout:  30 * time.Second,
		},
		Supervisor: SupervisorConfig{
			FailureThreshold: 5.0,
			FailureDecay:     30.0,
			FailureBackoff:   15 * time.Second,
			ShutdownTimeout:  10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load loads configuration using Koanf v2 with layered sources:
//  1. Defaults: Built-in defaults
//  2. Config File: Optional YAML config file (if exists)
//  3. Environment Variables: Override any mapped setting, including those
//     read from an optional .env file
func Load() (*Config, error) {
	if err := loadDotEnv(DotEnvPath); err != nil {
		return nil, err
	}

	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Load environment variables (highest priority)
	// DUCKDB_PATH -> database.path
	// SCORING_TOP_K -> scoring.top_k
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// loadDotEnv reads a .env file into the process environment. Variables
// already set win over the file. A missing file is not an error.
func loadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"server.cors_origins",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
// Env vars arrive as strings while the config expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envMappings maps environment variable names to koanf config paths.
var envMappings = map[string]string{
	// Database
	"duckdb_path":       "database.path",
	"duckdb_max_memory": "database.max_memory",
	"duckdb_threads":    "database.threads",
	"events_parquet":    "database.events_parquet",
	"items_parquet":     "database.items_parquet",
	"users_parquet":     "database.users_parquet",

	// Pipeline
	"pipeline_interval":       "pipeline.interval",
	"pipeline_run_on_startup": "pipeline.run_on_startup",
	"pipeline_workers":        "pipeline.workers",
	"pipeline_timeout":        "pipeline.timeout",
	"pipeline_seed":           "pipeline.seed",
	"pipeline_max_users":      "pipeline.max_users",
	"catalog_path":            "pipeline.catalog_path",

	// Pricing
	"pricing_mode":                "pricing.mode",
	"pricing_synthetic_base":      "pricing.synthetic_base",
	"pricing_synthetic_span":      "pricing.synthetic_span",
	"pricing_null_category_price": "pricing.null_category_price",
	"pricing_log_floor_price":     "pricing.log_floor_price",

	// Profile
	"profile_affinity_top_n":              "profile.affinity_top_n",
	"profile_affinity_interaction_weight": "profile.affinity_interaction_weight",
	"profile_min_stability_events":        "profile.min_stability_events",

	// Scoring
	"scoring_base_score":     "scoring.base_score",
	"scoring_min_score":      "scoring.min_score",
	"scoring_model_weight":   "scoring.model_weight",
	"scoring_top_k":          "scoring.top_k",
	"scoring_scorer_timeout": "scoring.scorer_timeout",

	// Strategy
	"strategy_default":        "strategy.default",
	"strategy_balanced_top_k": "strategy.balanced_top_k",

	// Evaluation
	"export_dir": "evaluation.export_dir",
	"keep_runs":  "evaluation.keep_runs",

	// Model
	"model_enabled":          "model.enabled",
	"model_path":             "model.path",
	"model_train_interval":   "model.train_interval",
	"model_train_on_startup": "model.train_on_startup",
	"model_min_samples":      "model.min_samples",
	"model_lambda":           "model.lambda",
	"model_keep":             "model.keep",

	// Server
	"http_enabled":          "server.enabled",
	"http_host":             "server.host",
	"http_port":             "server.port",
	"http_timeout":          "server.timeout",
	"cors_origins":          "server.cors_origins",
	"rate_limit_requests":   "server.rate_limit_reqs",
	"rate_limit_window":     "server.rate_limit_window",
	"http_trigger_interval": "server.trigger_interval",

	// Events
	"events_enabled":          "events.enabled",
	"events_backend":          "events.backend",
	"nats_url":                "events.url",
	"events_topic":            "events.topic",
	"events_stream":           "events.stream",
	"events_publish_timeout":  "events.publish_timeout",
	"events_breaker_failures": "events.breaker_failures",
	"events_breaker_timeout":  "events.breaker_timeout",

	// Supervisor
	"supervisor_failure_threshold": "supervisor.failure_threshold",
	"supervisor_failure_decay":     "supervisor.failure_decay",
	"supervisor_failure_backoff":   "supervisor.failure_backoff",
	"supervisor_shutdown_timeout":  "supervisor.shutdown_timeout",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc transforms environment variable names to koanf config paths.
// Unmapped keys return "" so unrelated variables never pollute the config.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
