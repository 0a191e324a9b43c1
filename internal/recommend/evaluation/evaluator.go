// Finrec - Financial Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/finrec

package evaluation

import (
	"math"
	"sort"

	"github.com/rs/zerolog"

	"github.com/tomtom215/finrec/internal/recommend"
)

// Overall score weights.
const (
	weightCoverage  = 0.25
	weightRelevance = 0.35
	weightDiversity = 0.20
	weightBusiness  = 0.20
)

// Revenue model: conversion rate by final score band.
const (
	conversionHigh   = 0.25 // final > 0.7
	conversionMedium = 0.15 // final in (0.5, 0.7]
	conversionLow    = 0.05 // final <= 0.5

	defaultProductValue = 20000
)

// productValues is the average value of one conversion per product type.
var productValues = map[string]float64{
	"premium_cards":    75000,
	"credit_cards":     25000,
	"savings":          50000,
	"savings_accounts": 50000,
	"investment":       100000,
	"investment_funds": 100000,
	"insurance":        30000,
}

// ProductValue returns the average conversion value for a product type.
func ProductValue(productType string) float64 {
	if v, ok := productValues[productType]; ok {
		return v
	}
	return defaultProductValue
}

// Evaluator computes quality metrics over recommendation sets.
type Evaluator struct {
	logger zerolog.Logger
}

// New creates an evaluator.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func New(logger zerolog.Logger) *Evaluator {
	return &Evaluator{logger: logger.With().Str("component", "evaluation").Logger()}
}

// Evaluate computes the metrics report for recs against the profiled users.
// An empty recommendation set yields the zero report.
func (e *Evaluator) Evaluate(recs []recommend.ScoredCandidate, profiles []recommend.UserProfile) *recommend.MetricsReport {
	if len(recs) == 0 {
		report := EmptyReport()
		report.Coverage.TotalUsers = len(profiles)
		return report
	}

	perUser := countPerUser(recs)
	report := &recommend.MetricsReport{
		Coverage:     coverage(perUser, len(profiles)),
		Relevance:    relevance(recs),
		Diversity:    diversity(recs),
		Business:     business(recs),
		Distribution: distribution(recs, perUser),
	}
	report.Overall = overall(report)

	e.logger.Debug().
		Int("recommendations", len(recs)).
		Float64("overall_score", report.Overall.Score).
		Str("rating", report.Overall.Rating).
		Msg("Recommendation set evaluated")
	return report
}

// EmptyReport returns the documented report for an empty recommendation set.
func EmptyReport() *recommend.MetricsReport {
	return &recommend.MetricsReport{
		Coverage:  recommend.CoverageMetrics{Quality: "low"},
		Relevance: recommend.RelevanceMetrics{Quality: "low"},
		Diversity: recommend.DiversityMetrics{
			ProductTypeDistribution: map[string]int{},
			Quality:                 "low",
		},
		Business: recommend.BusinessMetrics{Impact: "low"},
		Overall:  recommend.OverallScore{Rating: "poor"},
	}
}

// userCount is the number of recommendations of one user.
type userCount struct {
	userID string
	n      int
}

// countPerUser counts recommendations per user in first-appearance order.
func countPerUser(recs []recommend.ScoredCandidate) []userCount {
	index := make(map[string]int)
	var out []userCount
	for i := range recs {
		j, ok := index[recs[i].UserID]
		if !ok {
			j = len(out)
			index[recs[i].UserID] = j
			out = append(out, userCount{userID: recs[i].UserID})
		}
		out[j].n++
	}
	return out
}

func coverage(perUser []userCount, totalUsers int) recommend.CoverageMetrics {
	m := recommend.CoverageMetrics{
		TotalUsersCovered: len(perUser),
		TotalUsers:        totalUsers,
	}
	if totalUsers > 0 {
		m.UserCoverageRate = round3(float64(len(perUser)) / float64(totalUsers))
	}
	total := 0
	for _, u := range perUser {
		total += u.n
		if u.n > 1 {
			m.UsersWithMultipleRecommendations++
		}
	}
	if len(perUser) > 0 {
		m.AvgRecommendationsPerUser = round2(float64(total) / float64(len(perUser)))
	}
	m.Quality = label(m.UserCoverageRate, 0.7, 0.4)
	return m
}

func relevance(recs []recommend.ScoredCandidate) recommend.RelevanceMetrics {
	var m recommend.RelevanceMetrics
	var sumBase, sumFinal float64
	high := 0
	for i := range recs {
		sumBase += recs[i].BaseMatchScore
		sumFinal += recs[i].FinalScore
		f := recs[i].FinalScore
		if f > 0.7 {
			high++
		}
		switch {
		case f > 0.8:
			m.ConfidenceDistribution.VeryHigh++
		case f > 0.6:
			m.ConfidenceDistribution.High++
		case f > 0.4:
			m.ConfidenceDistribution.Medium++
		default:
			m.ConfidenceDistribution.Low++
		}
	}
	n := float64(len(recs))
	m.AvgMatchScore = round3(sumBase / n)
	m.AvgFinalScore = round3(sumFinal / n)
	m.HighConfidenceRate = round3(float64(high) / n)
	m.Quality = label(m.AvgMatchScore, 0.6, 0.4)
	return m
}

func diversity(recs []recommend.ScoredCandidate) recommend.DiversityMetrics {
	products := make(map[string]struct{})
	types := make(map[string]int)
	for i := range recs {
		products[recs[i].ProductID] = struct{}{}
		types[recs[i].ProductType]++
	}
	n := float64(len(recs))

	concentration := 0.0
	for _, c := range types {
		share := float64(c) / n
		concentration += share * share
	}
	index := round3(1 - concentration)

	return recommend.DiversityMetrics{
		UniqueProducts:          len(products),
		ProductDiversityScore:   round3(float64(len(products)) / n),
		DiversityIndex:          index,
		ProductTypeDistribution: types,
		Quality:                 label(index, 0.7, 0.4),
	}
}

func business(recs []recommend.ScoredCandidate) recommend.BusinessMetrics {
	var total, conversion, revenue float64
	premium := 0
	for i := range recs {
		r := &recs[i]
		total += r.BusinessValue * r.FinalScore
		conversion += r.FinalScore * 0.3
		if r.BusinessValue > 0.8 {
			premium++
		}
		revenue += ConversionRate(r.FinalScore) * ProductValue(r.ProductType)
	}
	n := float64(len(recs))
	avg := round3(total / n)
	return recommend.BusinessMetrics{
		TotalBusinessValue:         round3(total),
		AvgBusinessValuePerRec:     avg,
		PremiumRecommendationsRate: round3(float64(premium) / n),
		ExpectedConversionRate:     round3(conversion / n),
		EstimatedRevenue:           math.Round(revenue),
		Impact:                     label(avg, 0.6, 0.4),
	}
}

// ConversionRate is the assumed conversion probability for a final score.
func ConversionRate(final float64) float64 {
	switch {
	case final > 0.7:
		return conversionHigh
	case final > 0.5:
		return conversionMedium
	default:
		return conversionLow
	}
}

func distribution(recs []recommend.ScoredCandidate, perUser []userCount) recommend.DistributionMetrics {
	scores := make([]float64, len(recs))
	for i := range recs {
		scores[i] = recs[i].FinalScore
	}
	sort.Float64s(scores)

	counts := make([]float64, len(perUser))
	var cs recommend.CountStats
	cs.Min = math.MaxInt
	for i, u := range perUser {
		counts[i] = float64(u.n)
		if u.n < cs.Min {
			cs.Min = u.n
		}
		if u.n > cs.Max {
			cs.Max = u.n
		}
		if u.n == 1 {
			cs.UsersWithOne++
		}
		if u.n >= 3 {
			cs.UsersWithMany++
		}
	}
	cs.Mean = round2(mean(counts))
	cs.Std = round3(sampleStd(counts))

	return recommend.DistributionMetrics{
		Scores: recommend.ScoreStats{
			Mean: round3(mean(scores)),
			Std:  round3(sampleStd(scores)),
			Min:  round3(scores[0]),
			Max:  round3(scores[len(scores)-1]),
			Q25:  round3(quantile(scores, 0.25)),
			Q75:  round3(quantile(scores, 0.75)),
		},
		PerUser: cs,
	}
}

func overall(r *recommend.MetricsReport) recommend.OverallScore {
	c := recommend.ComponentScores{
		Coverage:  r.Coverage.UserCoverageRate,
		Relevance: r.Relevance.AvgMatchScore,
		Diversity: r.Diversity.DiversityIndex,
		Business:  math.Min(r.Business.AvgBusinessValuePerRec*2, 1),
	}
	score := c.Coverage*weightCoverage +
		c.Relevance*weightRelevance +
		c.Diversity*weightDiversity +
		c.Business*weightBusiness

	rating := "poor"
	switch {
	case score > 0.7:
		rating = "excellent"
	case score > 0.5:
		rating = "good"
	case score > 0.3:
		rating = "fair"
	}
	c.Business = round3(c.Business)
	return recommend.OverallScore{Score: round3(score), Rating: rating, Components: c}
}

// label maps a value onto high/medium/low with exclusive lower bounds.
func label(v, high, medium float64) string {
	switch {
	case v > high:
		return "high"
	case v > medium:
		return "medium"
	default:
		return "low"
	}
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	s := 0.0
	for _, x := range xs {
		s += x
	}
	return s / float64(len(xs))
}

func sampleStd(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := mean(xs)
	ss := 0.0
	for _, x := range xs {
		d := x - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}

// quantile uses linear interpolation between closest ranks. xs must be sorted.
func quantile(xs []float64, q float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	pos := q * float64(len(xs)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return xs[lo]
	}
	return xs[lo] + (xs[hi]-xs[lo])*(pos-float64(lo))
}

func round3(v float64) float64 { return math.Round(v*1000) / 1000 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }
