// Finrec - Financial Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/finrec

package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/finrec/internal/database"
	"github.com/tomtom215/finrec/internal/recommend"
	"github.com/tomtom215/finrec/internal/validation"
)

// RunDetail is a run summary with its decoded report.
type RunDetail struct {
	database.RunRecord
	Report *database.RunReport `json:"report"`
}

// ListRuns returns run summaries, newest first.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	req, err := parseRunsRequest(r.URL.Query())
	if err != nil {
		respondRequestError(rw, err)
		return
	}
	if err := validation.ValidateStruct(req); err != nil {
		respondRequestError(rw, err)
		return
	}

	runs, err := h.store.ListRuns(r.Context(), req.Filter())
	if err != nil {
		respondStoreError(rw, err, "runs")
		return
	}
	if runs == nil {
		runs = []database.RunRecord{}
	}
	rw.List(runs, len(runs))
}

// LatestRun returns the newest run with its report.
func (h *Handler) LatestRun(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	rec, err := h.store.LatestRun(r.Context())
	if err != nil {
		respondStoreError(rw, err, "run")
		return
	}
	h.writeRunDetail(rw, rec)
}

// GetRun returns one run with its report.
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	rec, err := h.store.GetRun(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		respondStoreError(rw, err, "run")
		return
	}
	h.writeRunDetail(rw, rec)
}

func (h *Handler) writeRunDetail(rw *ResponseWriter, rec *database.RunRecord) {
	report, err := h.decodeReport(rec)
	if err != nil {
		rw.InternalError("failed to decode run report", err)
		return
	}
	detail := RunDetail{RunRecord: *rec, Report: report}
	detail.RunRecord.Report = nil
	rw.Success(detail)
}

// CompareStrategies returns the strategy comparison of a run, the latest
// one unless run_id is given.
func (h *Handler) CompareStrategies(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var (
		rec *database.RunRecord
		err error
	)
	if runID := r.URL.Query().Get("run_id"); runID != "" {
		rec, err = h.store.GetRun(r.Context(), runID)
	} else {
		rec, err = h.store.LatestRun(r.Context())
	}
	if err != nil {
		respondStoreError(rw, err, "run")
		return
	}

	report, err := h.decodeReport(rec)
	if err != nil {
		rw.InternalError("failed to decode run report", err)
		return
	}
	if report.Comparison == nil {
		rw.NotFound("run " + rec.RunID + " has no strategy comparison")
		return
	}
	rw.Success(report.Comparison)
}

// Recommendations lists persisted recommendations of a run.
func (h *Handler) Recommendations(w http.ResponseWriter, r *http.Request) {
	h.serveRecommendations(w, r, "")
}

// UserRecommendations lists the recommendations of one user in rank order.
func (h *Handler) UserRecommendations(w http.ResponseWriter, r *http.Request) {
	h.serveRecommendations(w, r, chi.URLParam(r, "userID"))
}

func (h *Handler) serveRecommendations(w http.ResponseWriter, r *http.Request, userID string) {
	rw := NewResponseWriter(w, r)
	req, err := parseRecommendationsRequest(r.URL.Query())
	if err != nil {
		respondRequestError(rw, err)
		return
	}
	if userID != "" {
		req.UserID = userID
	}
	if err := validation.ValidateStruct(req); err != nil {
		respondRequestError(rw, err)
		return
	}

	recs, err := h.store.Recommendations(r.Context(), req.Filter())
	if err != nil {
		respondStoreError(rw, err, "recommendations")
		return
	}
	if recs == nil {
		recs = []database.StoredRecommendation{}
	}
	rw.List(recs, len(recs))
}

// UserProfile returns the profile of one user from a run, the latest one
// unless run_id is given.
func (h *Handler) UserProfile(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	p, err := h.store.Profile(r.Context(), r.URL.Query().Get("run_id"), chi.URLParam(r, "userID"))
	if err != nil {
		respondStoreError(rw, err, "profile")
		return
	}
	rw.Success(p)
}

// Products lists the product catalog, optionally narrowed by ?type=.
func (h *Handler) Products(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	types := parseCSVParam(r.URL.Query(), "type")
	if len(types) == 0 {
		rw.List(h.products, len(h.products))
		return
	}

	out := []recommend.ProductDefinition{}
	for i := range h.products {
		for _, t := range types {
			if strings.EqualFold(h.products[i].Type, t) {
				out = append(out, h.products[i])
				break
			}
		}
	}
	rw.List(out, len(out))
}
