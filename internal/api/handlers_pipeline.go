// Finrec - Financial Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/finrec

package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/finrec/internal/database"
	"github.com/tomtom215/finrec/internal/jobs"
	"github.com/tomtom215/finrec/internal/logging"
	"github.com/tomtom215/finrec/internal/recommend/pipeline"
	"github.com/tomtom215/finrec/internal/validation"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 64 << 10

// TriggerResponse is the 202 body of POST /pipeline/run.
type TriggerResponse struct {
	Status        string `json:"status"`
	Strategy      string `json:"strategy,omitempty"`
	CorrelationID string `json:"correlation_id"`
}

// decodeBody decodes an optional JSON body into dst. An empty body leaves
// dst untouched.
func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return errors.New("invalid JSON body")
	}
	return nil
}

// TriggerRun starts a pipeline batch. The run outlives the request; with
// ?wait=true the handler blocks until it finishes and returns its summary.
func (h *Handler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if h.trigger == nil {
		rw.ServiceUnavailable("pipeline trigger is not configured")
		return
	}

	var req TriggerRequest
	if err := decodeBody(r, &req); err != nil {
		rw.BadRequest(err.Error())
		return
	}
	if err := validation.ValidateStruct(&req); err != nil {
		respondRequestError(rw, err)
		return
	}
	strategy := strings.ToLower(strings.TrimSpace(req.Strategy))
	wait, _ := strconv.ParseBool(r.URL.Query().Get("wait"))

	if h.limiter != nil {
		res := h.limiter.Reserve()
		if delay := res.Delay(); delay > 0 {
			res.Cancel()
			rw.TooManyRequests(delay)
			return
		}
	}

	ctx := context.WithoutCancel(r.Context())
	if logging.CorrelationIDFromContext(ctx) == "" {
		ctx = logging.ContextWithNewCorrelationID(ctx)
	}
	var cancel context.CancelFunc
	if h.runTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, h.runTimeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}

	outcomes, err := h.trigger.Start(ctx, strategy)
	if err != nil {
		cancel()
		if errors.Is(err, pipeline.ErrRunInProgress) {
			rw.Conflict("a pipeline run is already in progress")
			return
		}
		rw.InternalError("failed to start pipeline run", err)
		return
	}

	done := make(chan jobs.Outcome, 1)
	go func() {
		out := <-outcomes
		cancel()
		done <- out
	}()

	correlationID := logging.CorrelationIDFromContext(ctx)
	h.logger.Info().
		Str("strategy", strategy).
		Str("correlation_id", correlationID).
		Bool("wait", wait).
		Msg("Pipeline run triggered")

	if !wait {
		rw.Accepted(TriggerResponse{Status: "started", Strategy: strategy, CorrelationID: correlationID})
		return
	}

	select {
	case out := <-done:
		if out.Err != nil {
			rw.InternalError("pipeline run failed", out.Err)
			return
		}
		rw.Success(out.Result.Summarize())
	case <-r.Context().Done():
		// The client left; the run continues in the background.
	}
}

// RecordOutcome stores observed feedback for a recommended product.
func (h *Handler) RecordOutcome(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req OutcomeRequest
	if err := decodeBody(r, &req); err != nil {
		rw.BadRequest(err.Error())
		return
	}
	if err := validation.ValidateStruct(&req); err != nil {
		respondRequestError(rw, err)
		return
	}
	if _, ok := h.productIDs[req.ProductID]; !ok {
		rw.BadRequest("unknown product_id " + strconv.Quote(req.ProductID))
		return
	}

	o := database.Outcome{
		UserID:     req.UserID,
		ProductID:  req.ProductID,
		Label:      *req.Label,
		RecordedAt: time.Now().UTC(),
	}
	if err := h.store.RecordOutcome(r.Context(), o); err != nil {
		if errors.Is(err, database.ErrInvalidOutcome) {
			rw.BadRequest(err.Error())
			return
		}
		rw.InternalError("failed to record outcome", err)
		return
	}
	rw.Created(o)
}
