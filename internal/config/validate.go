// Finrec - Financial Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/finrec

package config

import (
	"fmt"
	"time"

	"github.com/tomtom215/finrec/internal/recommend"
)

// Validate checks that the configuration is usable. It returns the first error found.
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateDatabase,
		c.validatePipeline,
		c.validateStrategy,
		c.validateEngine,
		c.validateModel,
		c.validateServer,
		c.validateEvents,
		c.validateSupervisor,
		c.validateLogging,
	}
	for _, validator := range validators {
		if err := validator(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateDatabase() error {
	if c.Database.Path == "" {
		return fmt.Errorf("DUCKDB_PATH is required")
	}
	if c.Database.Threads < 0 {
		return fmt.Errorf("DUCKDB_THREADS must be non-negative")
	}
	return nil
}

func (c *Config) validatePipeline() error {
	if c.Pipeline.Interval < 0 {
		return fmt.Errorf("PIPELINE_INTERVAL must be non-negative")
	}
	if c.Pipeline.Interval > 0 && c.Pipeline.Interval < time.Minute {
		return fmt.Errorf("PIPELINE_INTERVAL must be at least 1m when set")
	}
	return nil
}

func (c *Config) validateStrategy() error {
	if c.Strategy.Default == StrategyAuto {
		return nil
	}
	if recommend.ParseStrategy(c.Strategy.Default) != recommend.Strategy(c.Strategy.Default) {
		return fmt.Errorf("STRATEGY_DEFAULT must be one of: auto, balanced, revenue, coverage, engagement")
	}
	return nil
}

// validateEngine checks the engine tunables through the engine's own rules.
func (c *Config) validateEngine() error {
	if err := c.ToRecommendConfig().Validate(); err != nil {
		return fmt.Errorf("engine configuration: %w", err)
	}
	if c.Scoring.ScorerTimeout <= 0 {
		return fmt.Errorf("SCORING_SCORER_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validateModel() error {
	if !c.Model.Enabled && !c.Model.TrainOnStartup && c.Model.TrainInterval == 0 {
		return nil
	}
	if c.Model.Path == "" {
		return fmt.Errorf("MODEL_PATH is required when the learned scorer is used")
	}
	if c.Model.MinSamples < 2 {
		return fmt.Errorf("MODEL_MIN_SAMPLES must be at least 2")
	}
	if c.Model.Lambda < 0 {
		return fmt.Errorf("MODEL_LAMBDA must be non-negative")
	}
	if c.Model.Keep < 1 {
		return fmt.Errorf("MODEL_KEEP must be at least 1")
	}
	if c.Model.TrainInterval < 0 {
		return fmt.Errorf("MODEL_TRAIN_INTERVAL must be non-negative")
	}
	return nil
}

func (c *Config) validateServer() error {
	if !c.Server.Enabled {
		return nil
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive")
	}
	if c.Server.RateLimitReqs < 1 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be at least 1")
	}
	if c.Server.RateLimitWindow < time.Second {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be at least 1s")
	}
	if c.Server.TriggerInterval < 0 {
		return fmt.Errorf("HTTP_TRIGGER_INTERVAL must be non-negative")
	}
	return nil
}

func (c *Config) validateEvents() error {
	if !c.Events.Enabled {
		return nil
	}
	switch c.Events.Backend {
	case "memory":
	case "nats":
		if err := validateNATSURL(c.Events.URL); err != nil {
			return fmt.Errorf("NATS_URL is invalid: %w", err)
		}
		if c.Events.Stream == "" {
			return fmt.Errorf("EVENTS_STREAM is required for the nats backend")
		}
	default:
		return fmt.Errorf("EVENTS_BACKEND must be one of: nats, memory")
	}
	if c.Events.Topic == "" {
		return fmt.Errorf("EVENTS_TOPIC is required")
	}
	if c.Events.PublishTimeout <= 0 {
		return fmt.Errorf("EVENTS_PUBLISH_TIMEOUT must be positive")
	}
	if c.Events.BreakerFailures == 0 {
		return fmt.Errorf("EVENTS_BREAKER_FAILURES must be at least 1")
	}
	return nil
}

func (c *Config) validateSupervisor() error {
	if c.Supervisor.FailureThreshold < 0 || c.Supervisor.FailureDecay < 0 {
		return fmt.Errorf("supervisor failure threshold and decay must be non-negative")
	}
	if c.Supervisor.FailureBackoff < 0 || c.Supervisor.ShutdownTimeout < 0 {
		return fmt.Errorf("supervisor durations must be non-negative")
	}
	return nil
}

// validLogLevels defines the allowed log levels
var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validLogFormats defines the allowed log formats
var validLogFormats = map[string]bool{
	"json":    true,
	"console": true,
}

func (c *Config) validateLogging() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}

// IsAutoStrategy reports whether runs select the comparison winner.
func (c *Config) IsAutoStrategy() bool {
	return c.Strategy.Default == StrategyAuto
}
