// Finrec - Financial Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/finrec

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/finrec/internal/logging"
	"github.com/tomtom215/finrec/internal/metrics"
	"github.com/tomtom215/finrec/internal/recommend"
	"github.com/tomtom215/finrec/internal/recommend/enrich"
	"github.com/tomtom215/finrec/internal/recommend/evaluation"
	"github.com/tomtom215/finrec/internal/recommend/profile"
	"github.com/tomtom215/finrec/internal/recommend/scoring"
	"github.com/tomtom215/finrec/internal/recommend/strategy"
)

// ErrRunInProgress is returned by TryRun while another run holds the pipeline.
var ErrRunInProgress = errors.New("pipeline run already in progress")

// StrategyAuto selects the strategy that wins the comparison.
const StrategyAuto = "auto"

// DefaultDeliveryTimeout bounds persisting and announcing one completed run.
const DefaultDeliveryTimeout = 30 * time.Second

// Store persists a completed run.
type Store interface {
	SaveRun(ctx context.Context, r *Result) error
}

// Notifier announces a completed run.
type Notifier interface {
	RunCompleted(ctx context.Context, r *Result) error
}

// Input is one batch of source data.
type Input struct {
	Users   []recommend.User
	Events  []recommend.InteractionEvent
	Catalog []recommend.CatalogItem

	// Strategy is a strategy label, StrategyAuto, or empty for the configured default.
	Strategy string
}

// Pipeline ties enrichment, profiling, scoring, optimization and evaluation
// together. It is safe for concurrent use; runs are serialized.
type Pipeline struct {
	cfg      *recommend.Config
	products []recommend.ProductDefinition

	enricher  *enrich.Enricher
	builder   *profile.Builder
	optimizer *strategy.Optimizer
	evaluator *evaluation.Evaluator

	scorer          atomic.Pointer[scorerRef]
	store           Store
	notifier        Notifier
	deliveryTimeout time.Duration

	// sem admits one run at a time.
	sem    chan struct{}
	latest atomic.Pointer[Result]

	// base is the unscoped logger handed to per-run components.
	base   zerolog.Logger
	logger zerolog.Logger
}

// scorerRef lets a nil Scorer be stored atomically.
type scorerRef struct {
	s scoring.Scorer
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithScorer sets the learned scorer blended into rule scores.
func WithScorer(s scoring.Scorer) Option {
	return func(p *Pipeline) { p.scorer.Store(&scorerRef{s: s}) }
}

// WithStore persists every completed run.
func WithStore(s Store) Option {
	return func(p *Pipeline) { p.store = s }
}

// WithNotifier announces every completed run.
func WithNotifier(n Notifier) Option {
	return func(p *Pipeline) { p.notifier = n }
}

// WithDeliveryTimeout bounds the store and notifier calls of one run. They
// get their own deadline so a run that finishes late is still persisted.
func WithDeliveryTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.deliveryTimeout = d
		}
	}
}

// New creates a pipeline over a product catalog.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func New(cfg *recommend.Config, products []recommend.ProductDefinition, logger zerolog.Logger, opts ...Option) (*Pipeline, error) {
	if cfg == nil {
		cfg = recommend.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	cfg = cfg.Clone()

	p := &Pipeline{
		cfg:       cfg,
		products:  append([]recommend.ProductDefinition(nil), products...),
		enricher:  enrich.New(cfg.Pricing, logger),
		builder:   profile.NewBuilder(cfg, logger),
		optimizer: strategy.NewOptimizer(cfg.Strategy, logger),
		evaluator: evaluation.New(logger),
		sem:       make(chan struct{}, 1),
		base:      logger,
		logger:    logger.With().Str("component", "pipeline").Logger(),
	}
	p.scorer.Store(&scorerRef{})
	p.deliveryTimeout = DefaultDeliveryTimeout
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// SetScorer replaces the learned scorer for subsequent runs. A nil scorer
// disables blending.
func (p *Pipeline) SetScorer(s scoring.Scorer) {
	p.scorer.Store(&scorerRef{s: s})
	p.logger.Info().Bool("enabled", s != nil).Msg("Learned scorer replaced")
}

// Products returns the catalog the pipeline scores against.
func (p *Pipeline) Products() []recommend.ProductDefinition {
	return append([]recommend.ProductDefinition(nil), p.products...)
}

// Latest returns the most recent completed run, or nil.
func (p *Pipeline) Latest() *Result {
	return p.latest.Load()
}

// Run executes the pipeline, waiting for any run already in progress. It
// always returns a Result unless ctx is canceled; data problems degrade the
// result and are reported through its diagnostics and stage statuses.
func (p *Pipeline) Run(ctx context.Context, in Input) (*Result, error) {
	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		metrics.PipelineRuns.WithLabelValues("canceled").Inc()
		return nil, fmt.Errorf("wait for pipeline: %w", ctx.Err())
	}
	defer func() { <-p.sem }()
	return p.run(ctx, in)
}

// TryRun executes the pipeline if no other run is in progress.
func (p *Pipeline) TryRun(ctx context.Context, in Input) (*Result, error) {
	select {
	case p.sem <- struct{}{}:
	default:
		return nil, ErrRunInProgress
	}
	defer func() { <-p.sem }()
	return p.run(ctx, in)
}

func (p *Pipeline) run(ctx context.Context, in Input) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.StageTimeout)
	defer cancel()

	res := &Result{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Stages:    make(map[recommend.Stage]recommend.Status, 5),
	}
	ctx = logging.ContextWithRunID(ctx, res.RunID)
	if logging.CorrelationIDFromContext(ctx) == "" {
		ctx = logging.ContextWithNewCorrelationID(ctx)
	}
	logger := p.runLogger(ctx)
	logger.Info().
		Int("users", len(in.Users)).
		Int("events", len(in.Events)).
		Int("catalog_items", len(in.Catalog)).
		Int("products", len(p.products)).
		Str("strategy", in.Strategy).
		Msg("Pipeline run started")

	diag := recommend.NewDiagnostics()
	err := p.execute(ctx, in, res, diag)
	res.Diagnostics = diag.Items()
	res.Duration = time.Since(res.StartedAt)
	if err != nil {
		metrics.PipelineRuns.WithLabelValues("canceled").Inc()
		logger.Warn().Err(err).Dur("duration", res.Duration).Msg("Pipeline run canceled")
		return nil, err
	}

	p.record(res)

	logger.Info().
		Str("status", res.Status().String()).
		Str("strategy", string(res.Strategy)).
		Int("profiles", len(res.Profiles)).
		Int("candidates", len(res.Candidates)).
		Int("recommendations", len(res.Recommendations.Recommendations)).
		Float64("overall_score", res.Metrics.Overall.Score).
		Int("diagnostics", len(res.Diagnostics)).
		Dur("duration", res.Duration).
		Msg("Pipeline run complete")

	// res is only published once delivery has finished mutating it.
	p.deliver(ctx, res, logger)
	p.latest.Store(res)
	return res, nil
}

func (p *Pipeline) execute(ctx context.Context, in Input, res *Result, diag *recommend.Diagnostics) error {
	// Enrich
	start := time.Now()
	enriched := p.enricher.Enrich(in.Events, in.Catalog, diag)
	res.Pricing = enriched.Mode
	res.PriceQuality = enriched.Quality
	res.Stages[recommend.StageEnrich] = enriched.Status
	metrics.RecordStage(string(recommend.StageEnrich), time.Since(start))

	// Profile
	start = time.Now()
	profiles, profReport, err := p.builder.BuildEnriched(ctx, in.Users, enriched.Events, diag)
	if err != nil {
		return err
	}
	res.Profiles = profiles
	res.ProfileReport = profReport
	res.Stages[recommend.StageProfile] = profReport.Status
	metrics.RecordStage(string(recommend.StageProfile), time.Since(start))

	// Score
	start = time.Now()
	engine := p.engine()
	candidates, scoreReport, err := engine.ScoreAll(ctx, profiles, p.products, diag)
	if err != nil {
		return err
	}
	res.Candidates = candidates
	res.ScoreReport = scoreReport
	res.Stages[recommend.StageScore] = scoreReport.Status
	metrics.RecordStage(string(recommend.StageScore), time.Since(start))

	// Optimize and evaluate start only once every user is scored.
	start = time.Now()
	res.Comparison = p.evaluator.CompareStrategies(p.optimizer, candidates, profiles)
	res.Strategy = p.selectStrategy(in.Strategy, res.Comparison)
	res.Recommendations = p.optimizer.Apply(res.Strategy, candidates)
	res.Stages[recommend.StageOptimize] = recommend.StatusOK
	if len(res.Recommendations.Recommendations) == 0 {
		res.Stages[recommend.StageOptimize] = recommend.StatusEmpty
		if len(candidates) > 0 {
			diag.Add(recommend.StageOptimize, recommend.KindBatchEmpty, 1, "strategy produced no recommendations")
		}
	}
	metrics.RecordStage(string(recommend.StageOptimize), time.Since(start))

	start = time.Now()
	recs := res.Recommendations.Recommendations
	res.Metrics = p.evaluator.Evaluate(recs, profiles)
	res.Impact = p.evaluator.Impact(recs, profiles)
	res.Validation = evaluation.Validate(recs, profiles)
	switch {
	case len(recs) == 0:
		res.Stages[recommend.StageEvaluate] = recommend.StatusEmpty
	case !res.Validation.Valid():
		res.Stages[recommend.StageEvaluate] = recommend.StatusDegraded
		diag.Add(recommend.StageEvaluate, recommend.KindDataQuality, len(res.Validation.Issues),
			"recommendation set failed validation")
	default:
		res.Stages[recommend.StageEvaluate] = recommend.StatusOK
	}
	metrics.RecordStage(string(recommend.StageEvaluate), time.Since(start))

	return ctx.Err()
}

// engine builds a scoring engine around the current scorer.
func (p *Pipeline) engine() *scoring.Engine {
	var opts []scoring.Option
	if ref := p.scorer.Load(); ref != nil && ref.s != nil {
		opts = append(opts, scoring.WithScorer(ref.s))
	}
	return scoring.NewEngine(p.cfg, p.base, opts...)
}

// selectStrategy resolves the requested label. Auto picks the comparison
// winner; an empty label uses the configured default.
func (p *Pipeline) selectStrategy(label string, cmp *recommend.StrategyComparison) recommend.Strategy {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "":
		return p.cfg.Strategy.Default
	case StrategyAuto:
		return cmp.Best
	default:
		return recommend.ParseStrategy(label)
	}
}

func (p *Pipeline) record(res *Result) {
	metrics.PipelineRuns.WithLabelValues(res.Status().String()).Inc()
	metrics.ProfilesBuilt.Add(float64(res.ProfileReport.Profiled))
	metrics.ProfilesSkipped.Add(float64(res.ProfileReport.Skipped))
	metrics.CandidatesScored.Add(float64(res.ScoreReport.Pairs))
	for reason, n := range res.ScoreReport.Fallbacks {
		metrics.ScorerFallbacks.WithLabelValues(reason).Add(float64(n))
	}
	for _, d := range res.Diagnostics {
		metrics.DiagnosticsTotal.WithLabelValues(string(d.Stage), string(d.Kind)).Add(float64(d.Count))
	}
	metrics.StrategySelected.WithLabelValues(string(res.Strategy)).Inc()
	metrics.OverallQualityScore.Set(res.Metrics.Overall.Score)
}

// deliver hands the result to the store and notifier. Their failures are
// logged; the run itself has already succeeded.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func (p *Pipeline) deliver(ctx context.Context, res *Result, logger zerolog.Logger) {
	if p.store == nil && p.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.deliveryTimeout)
	defer cancel()

	if p.store != nil {
		if err := p.store.SaveRun(ctx, res); err != nil {
			logger.Error().Err(err).Msg("Failed to persist pipeline run")
		} else {
			res.Persisted = true
		}
	}
	if p.notifier != nil {
		if err := p.notifier.RunCompleted(ctx, res); err != nil {
			logger.Warn().Err(err).Msg("Failed to announce pipeline run")
		}
	}
}

func (p *Pipeline) runLogger(ctx context.Context) zerolog.Logger {
	l := p.logger.With()
	if id := logging.RunIDFromContext(ctx); id != "" {
		l = l.Str("run_id", id)
	}
	if id := logging.CorrelationIDFromContext(ctx); id != "" {
		l = l.Str("correlation_id", id)
	}
	return l.Logger()
}
