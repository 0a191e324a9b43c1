// Finrec - Financial Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/finrec

/*
Package config provides centralized configuration management for Finrec.

Configuration is layered with Koanf v2:

 1. Built-in defaults (structs provider)
 2. An optional YAML file: $CONFIG_PATH, config.yaml, or /etc/finrec/config.yaml
 3. Environment variables mapped through an explicit table

A .env file in the working directory is loaded into the process environment
before layer 3. Variables already set in the environment win over the file.

# Sections

  - database: DuckDB path and limits, raw parquet inputs
  - pipeline: schedule, workers, timeout, sampling seed, catalog file
  - pricing, profile, scoring, strategy: engine tunables
  - evaluation: parquet and report exports after each run
  - model: learned scorer storage and training schedule
  - server: HTTP listener, CORS, rate limits
  - events: run-completed notifications over NATS or an in-memory channel
  - supervisor: suture failure handling
  - logging: level, format, caller

# Environment Variables

Selected mappings (see envMappings for the full table):

  - DUCKDB_PATH: Database file path (default: /data/finrec.duckdb)
  - EVENTS_PARQUET, ITEMS_PARQUET, USERS_PARQUET: Raw inputs
  - PIPELINE_INTERVAL: Scheduled run interval (default: 6h, 0 disables)
  - PRICING_MODE: auto, catalog, log_inverse, synthetic (default: auto)
  - STRATEGY_DEFAULT: auto, balanced, revenue, coverage, engagement (default: balanced)
  - MODEL_ENABLED: Blend the learned scorer (default: false)
  - HTTP_PORT: Listen port (default: 8742)
  - EVENTS_ENABLED, EVENTS_BACKEND, NATS_URL: Notifications
  - LOG_LEVEL, LOG_FORMAT: Logging

# Engine Configuration

ToRecommendConfig builds the recommend.Config consumed by the pipeline. Engine
tunables are validated by recommend.Config.Validate as part of Validate, so a
loaded Config always yields a valid engine configuration.

# Thread Safety

The Config struct is immutable after Load returns.
*/
package config
