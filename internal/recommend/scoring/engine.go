// Finrec - Financial Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/finrec

// Package scoring scores user profiles against financial products.
//
// The rule score starts from a floor and accumulates fixed bonuses gated on
// profile thresholds. When a learned Scorer is injected, the final score is a
// convex blend of the rule score and the model prediction; any model failure
// falls back to the rule score without surfacing an error.
package scoring

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sort"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/finrec/internal/recommend"
)

// Fallback reasons reported when the learned scorer is bypassed.
const (
	FallbackError     = "error"
	FallbackNonFinite = "non_finite"
	FallbackPanic     = "panic"
	FallbackOpen      = "circuit_open"
)

// Engine scores profiles against the product catalog.
type Engine struct {
	cfg     recommend.ScoringConfig
	workers int
	scorer  Scorer
	logger  zerolog.Logger

	// explain renders candidate explanations; Explain unless replaced in tests.
	explain func(*recommend.UserProfile, *recommend.ProductDefinition, []string) string
}

// Option configures an Engine.
type Option func(*Engine)

// WithScorer injects a learned scorer.
func WithScorer(s Scorer) Option {
	return func(e *Engine) { e.scorer = s }
}

// NewEngine creates a scoring engine.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewEngine(cfg *recommend.Config, logger zerolog.Logger, opts ...Option) *Engine {
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	e := &Engine{
		cfg:     cfg.Scoring,
		workers: workers,
		logger:  logger.With().Str("component", "scoring").Logger(),
		explain: Explain,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// HasScorer reports whether a learned scorer is attached.
func (e *Engine) HasScorer() bool {
	return e.scorer != nil
}

// Score computes the rule score and the reasons that contributed to it.
// With no qualifying signals the score equals the configured floor.
func (e *Engine) Score(p *recommend.UserProfile, prod *recommend.ProductDefinition) (float64, []string) {
	score := e.cfg.BaseScore
	var reasons []string
	add := func(bonus float64, reason string) {
		score += bonus
		reasons = append(reasons, reason)
	}

	switch p.SpendingLevel {
	case recommend.SpendingHigh, recommend.SpendingVeryHigh:
		add(0.20, "High spending level")
	case recommend.SpendingMedium:
		add(0.10, "Medium spending level")
	}

	switch p.InteractionFrequency {
	case recommend.FrequencyHigh, recommend.FrequencyVeryHigh:
		add(0.15, "High activity")
	case recommend.FrequencyMedium:
		add(0.08, "Moderate activity")
	}

	switch {
	case p.TotalSpent > 50000:
		add(0.15, fmt.Sprintf("Significant total spend (%.0f)", p.TotalSpent))
	case p.TotalSpent > 20000:
		add(0.08, fmt.Sprintf("Notable total spend (%.0f)", p.TotalSpent))
	}

	switch {
	case p.AvgTransactionValue > 10000:
		add(0.10, "High average transaction")
	case p.AvgTransactionValue > 5000:
		add(0.05, "Above-average transaction")
	}

	switch {
	case p.CategoryDiversity > 0.3:
		add(0.10, "Broad range of interests")
	case p.CategoryDiversity > 0.1:
		add(0.05, "Diverse interests")
	}

	switch {
	case p.ActivityDurationDays > 180:
		add(0.08, "Long-term customer")
	case p.ActivityDurationDays > 30:
		add(0.04, "Steady activity")
	}

	if len(p.CategoryAffinity) > 0 {
		add(0.05, "Has clear category preferences")
	}

	return clamp01(score), reasons
}

// ScoreStats counts the outcome of scoring one or more users.
type ScoreStats struct {
	Pairs     int            `json:"pairs"`
	Retained  int            `json:"retained"`
	Enhanced  int            `json:"ml_enhanced"`
	Fallbacks map[string]int `json:"fallbacks,omitempty"`
}

func (s *ScoreStats) merge(o *ScoreStats) {
	s.Pairs += o.Pairs
	s.Retained += o.Retained
	s.Enhanced += o.Enhanced
	for k, v := range o.Fallbacks {
		if s.Fallbacks == nil {
			s.Fallbacks = make(map[string]int)
		}
		s.Fallbacks[k] += v
	}
}

func (s *ScoreStats) fallback(reason string) {
	if s.Fallbacks == nil {
		s.Fallbacks = make(map[string]int)
	}
	s.Fallbacks[reason]++
}

// TotalFallbacks sums fallbacks over all reasons.
func (s *ScoreStats) TotalFallbacks() int {
	total := 0
	for _, v := range s.Fallbacks {
		total += v
	}
	return total
}

// Candidates scores one profile against every product and returns at most
// TopK candidates above the acceptance threshold, sorted by final score with
// ties kept in catalog order.
func (e *Engine) Candidates(ctx context.Context, p *recommend.UserProfile, products []recommend.ProductDefinition) ([]recommend.ScoredCandidate, ScoreStats) {
	var stats ScoreStats
	out := make([]recommend.ScoredCandidate, 0, len(products))

	for i := range products {
		prod := &products[i]
		stats.Pairs++

		base, reasons := e.Score(p, prod)
		fit, matched, evaluable := recommend.TargetFit(prod.Target, p)
		if len(matched) > 0 {
			reasons = append(reasons, fmt.Sprintf("Meets %d of %d product targets", len(matched), evaluable))
		}

		final := base
		enhanced := false
		if e.scorer != nil {
			if ml, reason := e.predict(ctx, p, prod); reason == "" {
				final = (1-e.cfg.ModelWeight)*base + e.cfg.ModelWeight*ml
				enhanced = true
				stats.Enhanced++
			} else {
				stats.fallback(reason)
			}
		}
		final = round3(clamp01(final))

		if final <= e.cfg.MinScore {
			continue
		}
		out = append(out, recommend.ScoredCandidate{
			UserID:         p.UserID,
			ProductID:      prod.ID,
			ProductName:    prod.Name,
			ProductType:    prod.Type,
			BaseMatchScore: round3(base),
			FinalScore:     final,
			BusinessValue:  prod.BusinessValue,
			TargetFit:      round3(fit),
			Reasoning:      reasons,
			MLEnhanced:     enhanced,
			Explanation:    e.explain(p, prod, reasons),
			Confidence:     recommend.ConfidenceLabel(final),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].FinalScore > out[j].FinalScore
	})
	if len(out) > e.cfg.TopK {
		out = out[:e.cfg.TopK]
	}
	stats.Retained = len(out)
	return out, stats
}

// predict calls the learned scorer and returns a fallback reason on failure.
func (e *Engine) predict(ctx context.Context, p *recommend.UserProfile, prod *recommend.ProductDefinition) (ml float64, reason string) {
	defer func() {
		if r := recover(); r != nil {
			ml, reason = 0, FallbackPanic
		}
	}()
	v, err := e.scorer.Predict(ctx, p, prod)
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return 0, FallbackOpen
	case err != nil:
		return 0, FallbackError
	case math.IsNaN(v) || math.IsInf(v, 0):
		return 0, FallbackNonFinite
	}
	return clamp01(v), ""
}

// Report summarizes scoring over a batch of profiles.
type Report struct {
	ScoreStats
	Users   int              `json:"users"`
	Skipped int              `json:"skipped"`
	Status  recommend.Status `json:"status"`
}

// ScoreAll scores every profile in parallel and returns candidates grouped by
// user in profile order. The only error returned is context cancellation.
func (e *Engine) ScoreAll(ctx context.Context, profiles []recommend.UserProfile, products []recommend.ProductDefinition, diag *recommend.Diagnostics) ([]recommend.ScoredCandidate, Report, error) {
	report := Report{Users: len(profiles)}
	if len(profiles) == 0 || len(products) == 0 {
		report.Status = recommend.StatusEmpty
		diag.AddErr(recommend.StageScore, recommend.KindBatchEmpty, recommend.ErrNoCandidates)
		return []recommend.ScoredCandidate{}, report, nil
	}

	type userResult struct {
		candidates []recommend.ScoredCandidate
		stats      ScoreStats
		err        error
	}
	results := make([]userResult, len(profiles))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i := range profiles {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			results[i].candidates, results[i].stats, results[i].err = e.safeCandidates(gctx, &profiles[i], products)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, report, fmt.Errorf("score profiles: %w", err)
	}

	var all []recommend.ScoredCandidate
	for i := range results {
		if results[i].err != nil {
			report.Skipped++
			e.logger.Warn().Err(results[i].err).Str("user_id", profiles[i].UserID).Msg("Skipping user during scoring")
			continue
		}
		report.merge(&results[i].stats)
		all = append(all, results[i].candidates...)
	}
	if all == nil {
		all = []recommend.ScoredCandidate{}
	}

	if report.Skipped > 0 {
		diag.Add(recommend.StageScore, recommend.KindEntitySkipped, report.Skipped, "users skipped during scoring")
		report.Status = recommend.StatusDegraded
	}
	if n := report.TotalFallbacks(); n > 0 {
		diag.Add(recommend.StageScore, recommend.KindDegraded, n, "learned scorer bypassed; rule score used")
		report.Status = recommend.StatusDegraded
		e.logger.Warn().Int("fallbacks", n).Interface("reasons", report.Fallbacks).Msg("Learned scorer fallback")
	}
	if len(all) == 0 {
		report.Status = recommend.StatusEmpty
		diag.AddErr(recommend.StageScore, recommend.KindBatchEmpty, recommend.ErrNoCandidates)
	}

	e.logger.Info().
		Int("users", report.Users).
		Int("pairs", report.Pairs).
		Int("candidates", len(all)).
		Int("ml_enhanced", report.Enhanced).
		Msg("Scoring complete")

	return all, report, nil
}

var errScoringPanic = errors.New("scoring panic")

func (e *Engine) safeCandidates(ctx context.Context, p *recommend.UserProfile, products []recommend.ProductDefinition) (out []recommend.ScoredCandidate, stats ScoreStats, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: user %s: %v", errScoringPanic, p.UserID, r)
		}
	}()
	out, stats = e.Candidates(ctx, p, products)
	return out, stats, nil
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
