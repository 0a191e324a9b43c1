// Finrec - Financial Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/finrec

// Package strategy re-ranks and truncates the scored candidate set according
// to a business objective.
//
// Every strategy is a pure function of the candidate set: candidates are
// grouped per user in first-appearance order, ranked by the strategy's score
// and cut to the strategy's per-user cap. The input slice is never modified.
//
// Strategies:
//   - coverage: the single best candidate per user by final score
//   - revenue: 0.4*final + 0.6*business value, one per user
//   - engagement: currently the same selection as coverage
//   - balanced: 0.6*final + 0.4*business value, up to three per user
//
// Revenue and balanced overwrite FinalScore with their ranking score so that
// downstream consumers always read a single score field.
package strategy

import (
	"math"

	"github.com/rs/zerolog"

	"github.com/tomtom215/finrec/internal/recommend"
)

// Optimizer applies selection strategies to scored candidates.
type Optimizer struct {
	cfg    recommend.StrategyConfig
	logger zerolog.Logger
}

// NewOptimizer creates an optimizer.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewOptimizer(cfg recommend.StrategyConfig, logger zerolog.Logger) *Optimizer {
	if cfg.BalancedTopK <= 0 {
		cfg.BalancedTopK = 3
	}
	return &Optimizer{
		cfg:    cfg,
		logger: logger.With().Str("component", "strategy").Logger(),
	}
}

// Optimize applies the named strategy. Unknown labels use balanced.
func (o *Optimizer) Optimize(label string, candidates []recommend.ScoredCandidate) recommend.OptimizedSet {
	s := recommend.ParseStrategy(label)
	if string(s) != label {
		o.logger.Debug().Str("requested", label).Str("strategy", string(s)).Msg("Strategy label normalized")
	}
	return o.Apply(s, candidates)
}

// Apply runs a parsed strategy.
func (o *Optimizer) Apply(s recommend.Strategy, candidates []recommend.ScoredCandidate) recommend.OptimizedSet {
	var recs []recommend.ScoredCandidate
	switch s {
	case recommend.StrategyCoverage, recommend.StrategyEngagement:
		recs = topK(candidates, 1, finalScore, false)
	case recommend.StrategyRevenue:
		recs = topK(candidates, 1, RevenueScore, true)
	default:
		s = recommend.StrategyBalanced
		recs = topK(candidates, o.cfg.BalancedTopK, BalancedScore, true)
	}
	return recommend.OptimizedSet{Strategy: s, Recommendations: recs}
}

// Cap returns the per-user recommendation limit of a strategy.
func (o *Optimizer) Cap(s recommend.Strategy) int {
	if s == recommend.StrategyBalanced {
		return o.cfg.BalancedTopK
	}
	return 1
}

func finalScore(c *recommend.ScoredCandidate) float64 {
	return c.FinalScore
}

// RevenueScore weighs business value above relevance.
func RevenueScore(c *recommend.ScoredCandidate) float64 {
	return 0.4*c.FinalScore + 0.6*c.BusinessValue
}

// BalancedScore weighs relevance above business value.
func BalancedScore(c *recommend.ScoredCandidate) float64 {
	return 0.6*c.FinalScore + 0.4*c.BusinessValue
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
