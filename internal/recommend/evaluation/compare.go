// Finrec - Financial Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/finrec

package evaluation

import (
	"fmt"

	"github.com/tomtom215/finrec/internal/recommend"
)

// Selection weights. Business priorities differ from the display score, so
// the best strategy is not picked by the overall score.
const (
	selectBusiness  = 0.4
	selectCoverage  = 0.3
	selectRelevance = 0.3
)

// Optimizer applies a strategy to scored candidates.
type Optimizer interface {
	Apply(s recommend.Strategy, candidates []recommend.ScoredCandidate) recommend.OptimizedSet
}

// SelectionScore is the weighted objective used to rank strategies.
func SelectionScore(r *recommend.MetricsReport) float64 {
	return selectBusiness*r.Business.AvgBusinessValuePerRec +
		selectCoverage*r.Coverage.UserCoverageRate +
		selectRelevance*r.Relevance.AvgMatchScore
}

// CompareStrategies runs every strategy over the same candidates, evaluates
// each result and selects the best. Strategies producing no recommendations
// are skipped. With nothing to compare the choice falls back to balanced.
func (e *Evaluator) CompareStrategies(opt Optimizer, candidates []recommend.ScoredCandidate, profiles []recommend.UserProfile) *recommend.StrategyComparison {
	cmp := &recommend.StrategyComparison{
		Reports:       make(map[recommend.Strategy]*recommend.MetricsReport),
		Selection:     make(map[recommend.Strategy]float64),
		CandidateSize: len(candidates),
	}

	bestScore := -1.0
	for _, s := range recommend.AllStrategies() {
		set := opt.Apply(s, candidates)
		if len(set.Recommendations) == 0 {
			cmp.SkippedEmpty = append(cmp.SkippedEmpty, s)
			continue
		}
		report := e.Evaluate(set.Recommendations, profiles)
		score := round3(SelectionScore(report))
		cmp.Reports[s] = report
		cmp.Selection[s] = score
		// Strictly greater keeps the earlier strategy on ties.
		if score > bestScore {
			bestScore = score
			cmp.Best = s
		}
	}

	if len(cmp.Reports) == 0 {
		cmp.Best = recommend.StrategyBalanced
		cmp.Reason = "No data available"
		return cmp
	}

	best := cmp.Reports[cmp.Best]
	cmp.Reason = fmt.Sprintf(
		"Best balance of business value (%.3f), coverage (%.3f) and relevance (%.3f); weighted score %.3f",
		best.Business.AvgBusinessValuePerRec,
		best.Coverage.UserCoverageRate,
		best.Relevance.AvgMatchScore,
		bestScore,
	)

	e.logger.Info().
		Str("best_strategy", string(cmp.Best)).
		Float64("selection_score", bestScore).
		Int("strategies_compared", len(cmp.Reports)).
		Msg("Strategy comparison complete")
	return cmp
}
