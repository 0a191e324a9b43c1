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

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/tomtom215/finrec/internal/cache"
	"github.com/tomtom215/finrec/internal/database"
	"github.com/tomtom215/finrec/internal/jobs"
	"github.com/tomtom215/finrec/internal/recommend"
	"github.com/tomtom215/finrec/internal/validation"
)

// Store is the read and feedback surface of the database the API serves.
type Store interface {
	Ping(ctx context.Context) error
	Counts(ctx context.Context) (*database.RecordCounts, error)
	ListRuns(ctx context.Context, f database.RunFilter) ([]database.RunRecord, error)
	GetRun(ctx context.Context, runID string) (*database.RunRecord, error)
	LatestRun(ctx context.Context) (*database.RunRecord, error)
	Recommendations(ctx context.Context, f database.RecommendationFilter) ([]database.StoredRecommendation, error)
	Profile(ctx context.Context, runID, userID string) (*recommend.UserProfile, error)
	RecordOutcome(ctx context.Context, o database.Outcome) error
}

// Trigger starts a background pipeline batch.
type Trigger interface {
	Start(ctx context.Context, strategy string) (<-chan jobs.Outcome, error)
}

var (
	_ Store   = (*database.DB)(nil)
	_ Trigger = (*jobs.Batch)(nil)
)

// healthCheckTimeout bounds the database probe of GET /health.
const healthCheckTimeout = 2 * time.Second

// HandlerConfig tunes the pipeline trigger.
type HandlerConfig struct {
	// TriggerInterval is the minimum spacing of manual triggers; 0 disables
	// the limit.
	TriggerInterval time.Duration

	// RunTimeout bounds a triggered run; 0 means no bound.
	RunTimeout time.Duration

	// ReportCacheSize and ReportCacheTTL bound the decoded report cache;
	// zero values use the cache defaults.
	ReportCacheSize int
	ReportCacheTTL  time.Duration
}

// Handler serves the Finrec HTTP API.
type Handler struct {
	store      Store
	trigger    Trigger
	products   []recommend.ProductDefinition
	productIDs map[string]struct{}
	limiter    *rate.Limiter
	reports    *cache.LRU[string, *database.RunReport]
	runTimeout time.Duration
	startTime  time.Time
	logger     zerolog.Logger
}

// NewHandler creates the API handler. trigger may be nil, in which case
// POST /pipeline/run answers 503.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewHandler(store Store, trigger Trigger, products []recommend.ProductDefinition, cfg HandlerConfig, logger zerolog.Logger) *Handler {
	h := &Handler{
		store:      store,
		trigger:    trigger,
		products:   products,
		productIDs: make(map[string]struct{}, len(products)),
		runTimeout: cfg.RunTimeout,
		reports:    cache.NewLRU[string, *database.RunReport](cfg.ReportCacheSize, cfg.ReportCacheTTL),
		startTime:  time.Now(),
		logger:     logger.With().Str("component", "api").Logger(),
	}
	for i := range products {
		h.productIDs[products[i].ID] = struct{}{}
	}
	if cfg.TriggerInterval > 0 {
		h.limiter = rate.NewLimiter(rate.Every(cfg.TriggerInterval), 1)
	}
	return h
}

// decodeReport returns the decoded report of rec. Persisted runs are
// immutable, so decoded reports are cached by run ID.
func (h *Handler) decodeReport(rec *database.RunRecord) (*database.RunReport, error) {
	return h.reports.GetOrLoad(rec.RunID, rec.DecodeReport)
}

// respondStoreError maps store errors onto HTTP statuses.
func respondStoreError(rw *ResponseWriter, err error, what string) {
	switch {
	case errors.Is(err, database.ErrNoRuns):
		rw.NotFound("no pipeline runs recorded")
	case errors.Is(err, database.ErrNotFound):
		rw.NotFound(what + " not found")
	case errors.Is(err, context.DeadlineExceeded):
		rw.Error(http.StatusGatewayTimeout, ErrCodeGatewayTimeout, "request timed out")
	default:
		rw.InternalError("failed to load "+what, err)
	}
}

// respondRequestError answers a malformed or invalid request.
func respondRequestError(rw *ResponseWriter, err error) {
	var ve *validation.RequestValidationError
	if errors.As(err, &ve) {
		rw.ErrorWithDetails(http.StatusBadRequest, validation.ErrorCode, ve.Error(), ve.Fields)
		return
	}
	rw.BadRequest(err.Error())
}
