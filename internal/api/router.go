// Finrec - Financial Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/finrec

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/tomtom215/finrec/internal/middleware"
)

// slowRequestThreshold is the latency above which requests log at warn.
const slowRequestThreshold = 2 * time.Second

// RouterConfig holds router-level settings.
type RouterConfig struct {
	// RequestTimeout bounds read endpoints; 0 disables the bound.
	RequestTimeout time.Duration
}

// NewRouter builds the chi router.
//
// Global middleware order: request IDs first so every later layer can log
// them, then real IP (needed by the rate limiter), panic recovery, access
// log, metrics, CORS and compression.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewRouter(h *Handler, mw *ChiMiddleware, cfg RouterConfig, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.AccessLog(logger, slowRequestThreshold))
	r.Use(middleware.PrometheusMetrics)
	r.Use(mw.CORS())
	r.Use(chimiddleware.Compress(5, "application/json"))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NewResponseWriter(w, r).NotFound("route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		NewResponseWriter(w, r).Error(http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// Health probes bypass rate limiting.
		r.Get("/health", h.Health)
		r.Get("/health/live", h.HealthLive)

		r.Group(func(r chi.Router) {
			r.Use(mw.RateLimit())

			r.Group(func(r chi.Router) {
				if cfg.RequestTimeout > 0 {
					r.Use(chimiddleware.Timeout(cfg.RequestTimeout))
				}
				r.Get("/runs", h.ListRuns)
				r.Get("/runs/latest", h.LatestRun)
				r.Get("/runs/{runID}", h.GetRun)
				r.Get("/recommendations", h.Recommendations)
				r.Get("/strategies/compare", h.CompareStrategies)
				r.Get("/users/{userID}/profile", h.UserProfile)
				r.Get("/users/{userID}/recommendations", h.UserRecommendations)
				r.Get("/products", h.Products)
				r.Post("/outcomes", h.RecordOutcome)
			})

			// Triggered runs may wait far longer than RequestTimeout.
			r.Post("/pipeline/run", h.TriggerRun)
		})
	})

	return r
}
