// Finrec - Financial Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/finrec

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/tomtom215/finrec/internal/cache"
	"github.com/tomtom215/finrec/internal/database"
	"github.com/tomtom215/finrec/internal/recommend/pipeline"
)

// Health status values.
const (
	statusHealthy   = "healthy"
	statusUnhealthy = "unhealthy"
)

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status        string                 `json:"status"`
	UptimeSeconds float64                `json:"uptime_seconds"`
	Database      string                 `json:"database"`
	Counts        *database.RecordCounts `json:"counts,omitempty"`
	LatestRun     *pipeline.Summary      `json:"latest_run,omitempty"`
	Products      int                    `json:"products"`
	ReportCache   cache.Stats            `json:"report_cache"`
}

// HealthLive answers liveness probes without touching the database.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]string{"status": "alive"})
}

// Health reports database reachability, table sizes and the latest run.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	resp := HealthResponse{
		Status:        statusHealthy,
		UptimeSeconds: time.Since(h.startTime).Seconds(),
		Database:      "connected",
		Products:      len(h.products),
		ReportCache:   h.reports.Stats(),
	}

	if err := h.store.Ping(ctx); err != nil {
		h.logger.Warn().Err(err).Msg("Health check: database unreachable")
		resp.Status = statusUnhealthy
		resp.Database = "unreachable"
		rw.ErrorWithDetails(http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "database unreachable", resp)
		return
	}

	counts, err := h.store.Counts(ctx)
	if err != nil {
		h.logger.Warn().Err(err).Msg("Health check: counts unavailable")
	}
	resp.Counts = counts

	latest, err := h.store.LatestRun(ctx)
	switch {
	case err == nil:
		resp.LatestRun = &latest.Summary
	case !errors.Is(err, database.ErrNoRuns):
		h.logger.Warn().Err(err).Msg("Health check: latest run unavailable")
	}

	rw.Success(resp)
}
