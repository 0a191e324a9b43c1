// Finrec - Financial Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/finrec

/*
Package metrics provides Prometheus metrics collection and export for observability.

Metrics are registered with promauto on the default registry and exposed at
the /metrics endpoint by the API server:

	curl http://localhost:8090/metrics

# Available Metrics

Pipeline:
  - finrec_pipeline_runs_total{status}: completed runs by outcome
  - finrec_pipeline_stage_duration_seconds{stage}: per-stage latency
  - finrec_profiles_built_total, finrec_profiles_skipped_total
  - finrec_candidates_scored_total
  - finrec_scorer_fallbacks_total{reason}: candidates scored without the model
  - finrec_diagnostics_total{stage,kind}: degraded computation paths
  - finrec_strategy_selected_total{strategy}
  - finrec_overall_quality_score: overall score of the latest run

Infrastructure:
  - duckdb_query_duration_seconds, duckdb_query_errors_total
  - api_requests_total, api_request_duration_seconds
  - finrec_events_published_total{status}
  - circuit_breaker_state{name}
*/
package metrics
