// Finrec - Financial Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/finrec

package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	gobreaker "github.com/sony/gobreaker/v2"
)

var (
	// Database Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "table"},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	// Pipeline Metrics
	PipelineRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finrec_pipeline_runs_total",
			Help: "Total number of recommendation pipeline runs",
		},
		[]string{"status"}, // "success", "degraded", "empty", "error"
	)

	PipelineStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "finrec_pipeline_stage_duration_seconds",
			Help:    "Duration of pipeline stages in seconds",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
		},
		[]string{"stage"},
	)

	ProfilesBuilt = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "finrec_profiles_built_total",
			Help: "Total number of user profiles built",
		},
	)

	ProfilesSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "finrec_profiles_skipped_total",
			Help: "Total number of users skipped after a profiling failure",
		},
	)

	CandidatesScored = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "finrec_candidates_scored_total",
			Help: "Total number of retained scored candidates",
		},
	)

	ScorerFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finrec_scorer_fallbacks_total",
			Help: "Total number of candidates scored without the learned model",
		},
		[]string{"reason"},
	)

	DiagnosticsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finrec_diagnostics_total",
			Help: "Total degraded computation paths observed, by stage and kind",
		},
		[]string{"stage", "kind"},
	)

	StrategySelected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finrec_strategy_selected_total",
			Help: "Number of runs in which each strategy was selected as best",
		},
		[]string{"strategy"},
	)

	OverallQualityScore = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "finrec_overall_quality_score",
			Help: "Overall quality score of the most recent run",
		},
	)

	ModelTrainings = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finrec_model_trainings_total",
			Help: "Total number of learned scorer training attempts",
		},
		[]string{"status"},
	)

	// Event Publishing Metrics
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finrec_events_published_total",
			Help: "Total number of run events published",
		},
		[]string{"status"}, // "success", "failure", "rejected"
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)
)

// RecordDBQuery records a database query metric.
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table).Inc()
	}
}

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordStage records the duration of one pipeline stage.
func RecordStage(stage string, duration time.Duration) {
	PipelineStageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordPublish records the outcome of publishing one event.
func RecordPublish(err error) {
	switch {
	case err == nil:
		EventsPublished.WithLabelValues("success").Inc()
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		EventsPublished.WithLabelValues("rejected").Inc()
	default:
		EventsPublished.WithLabelValues("failure").Inc()
	}
}

// BreakerStateValue maps a breaker state onto the circuit_breaker_state gauge.
func BreakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
