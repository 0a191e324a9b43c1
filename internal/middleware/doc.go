// Finrec - Financial Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/finrec

/*
Package middleware provides chi-compatible HTTP middleware for the Finrec API.

# Available Middleware

RequestID:
  - Reuses X-Request-ID and X-Correlation-ID from upstream when present
  - Generates a UUID request ID otherwise; the correlation ID defaults to it
  - Stores both in the context through the logging package

PrometheusMetrics:
  - Records api_requests_total and api_request_duration_seconds
  - Labels by chi route pattern, not raw path, to bound cardinality

AccessLog:
  - One zerolog line per request
  - Warn for slow requests, error for 5xx, debug otherwise

# Usage

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.AccessLog(logger, time.Second))
	r.Use(middleware.PrometheusMetrics)
*/
package middleware
