// Finrec - Financial Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/finrec

package pipeline

import (
	"time"

	"github.com/tomtom215/finrec/internal/recommend"
	"github.com/tomtom215/finrec/internal/recommend/enrich"
	"github.com/tomtom215/finrec/internal/recommend/evaluation"
	"github.com/tomtom215/finrec/internal/recommend/profile"
	"github.com/tomtom215/finrec/internal/recommend/scoring"
)

// Result is the complete output of one run. It is not modified after Run
// returns, apart from Persisted which is set once the store accepts it.
type Result struct {
	RunID     string        `json:"run_id"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration_ns"`

	// Strategy is the strategy that produced Recommendations.
	Strategy recommend.Strategy `json:"strategy"`

	Pricing      recommend.PricingMode   `json:"pricing_mode"`
	PriceQuality *enrich.QualityReport   `json:"price_quality,omitempty"`
	Profiles     []recommend.UserProfile `json:"profiles"`

	ProfileReport profile.Report              `json:"profile_report"`
	Candidates    []recommend.ScoredCandidate `json:"candidates"`
	ScoreReport   scoring.Report              `json:"score_report"`

	Recommendations recommend.OptimizedSet        `json:"recommendations"`
	Metrics         *recommend.MetricsReport      `json:"metrics"`
	Comparison      *recommend.StrategyComparison `json:"comparison"`
	Impact          *evaluation.ImpactReport      `json:"impact"`
	Validation      *evaluation.ValidationReport  `json:"validation"`

	Diagnostics []recommend.Diagnostic               `json:"diagnostics"`
	Stages      map[recommend.Stage]recommend.Status `json:"stages"`

	Persisted bool `json:"persisted"`
}

// Status is the most severe stage status; any empty stage makes the run empty.
func (r *Result) Status() recommend.Status {
	status := recommend.StatusOK
	for _, s := range r.Stages {
		status = status.Worse(s)
	}
	return status
}

// StageStatus returns the status of one stage. Stages that never ran are empty.
func (r *Result) StageStatus(stage recommend.Stage) recommend.Status {
	s, ok := r.Stages[stage]
	if !ok {
		return recommend.StatusEmpty
	}
	return s
}

// Profile returns the profile of one user.
func (r *Result) Profile(userID string) (*recommend.UserProfile, bool) {
	for i := range r.Profiles {
		if r.Profiles[i].UserID == userID {
			return &r.Profiles[i], true
		}
	}
	return nil, false
}

// Summary is the compact form of a run used for listings and messages.
type Summary struct {
	RunID           string             `json:"run_id"`
	StartedAt       time.Time          `json:"started_at"`
	DurationMS      int64              `json:"duration_ms"`
	Status          string             `json:"status"`
	Strategy        recommend.Strategy `json:"strategy"`
	BestStrategy    recommend.Strategy `json:"best_strategy"`
	Profiles        int                `json:"profiles"`
	Candidates      int                `json:"candidates"`
	Recommendations int                `json:"recommendations"`
	OverallScore    float64            `json:"overall_score"`
	QualityRating   string             `json:"quality_rating"`
	Diagnostics     int                `json:"diagnostics"`
}

// Summarize returns the compact form of the run.
func (r *Result) Summarize() Summary {
	s := Summary{
		RunID:           r.RunID,
		StartedAt:       r.StartedAt,
		DurationMS:      r.Duration.Milliseconds(),
		Status:          r.Status().String(),
		Strategy:        r.Strategy,
		Profiles:        len(r.Profiles),
		Candidates:      len(r.Candidates),
		Recommendations: len(r.Recommendations.Recommendations),
		Diagnostics:     len(r.Diagnostics),
	}
	if r.Comparison != nil {
		s.BestStrategy = r.Comparison.Best
	}
	if r.Metrics != nil {
		s.OverallScore = r.Metrics.Overall.Score
		s.QualityRating = r.Metrics.Overall.Rating
	}
	return s
}
