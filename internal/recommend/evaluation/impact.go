// Finrec - Financial Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/finrec

package evaluation

import (
	"math"
	"sort"

	"github.com/tomtom215/finrec/internal/recommend"
)

// User segment names.
const (
	SegmentHighValue    = "high_value"
	SegmentMediumValue  = "medium_value"
	SegmentLowValue     = "low_value"
	SegmentHighActivity = "high_activity"
	SegmentNewUsers     = "new_users"
)

// newUserInteractions is the interaction count below which a user is new.
const newUserInteractions = 10

// Segment summarizes one group of profiled users.
type Segment struct {
	Count       int     `json:"count"`
	Share       float64 `json:"percentage"`
	AvgSpending float64 `json:"avg_spending"`
}

// ProductImpact summarizes recommendations of one product type.
type ProductImpact struct {
	ProductType         string  `json:"product_type"`
	RecommendationCount int     `json:"recommendation_count"`
	UniqueUsers         int     `json:"unique_users_reached"`
	AvgMatchScore       float64 `json:"avg_match_score"`
	AvgBusinessValue    float64 `json:"avg_business_value"`
	AvgFinalScore       float64 `json:"avg_final_score"`
	PenetrationRate     float64 `json:"penetration_rate"`
}

// Conversion is the estimated outcome for one product type.
type Conversion struct {
	EstimatedConversions float64 `json:"estimated_conversions"`
	EstimatedRevenue     float64 `json:"estimated_revenue"`
	AvgProductValue      float64 `json:"avg_product_value"`
}

// ImpactReport estimates the business impact of a recommendation set.
type ImpactReport struct {
	Segments                  map[string]Segment    `json:"user_segments"`
	Products                  []ProductImpact       `json:"product_impact"`
	Conversions               map[string]Conversion `json:"conversion_breakdown"`
	EstimatedRevenue          float64               `json:"estimated_total_revenue"`
	CoverageRate              float64               `json:"user_coverage_rate"`
	AvgRecommendationsPerUser float64               `json:"avg_recommendations_per_user"`
	Confidence                string                `json:"confidence_level"`
}

// Impact segments the profiled users and estimates per-type impact of recs.
func (e *Evaluator) Impact(recs []recommend.ScoredCandidate, profiles []recommend.UserProfile) *ImpactReport {
	report := &ImpactReport{
		Segments:    segmentUsers(profiles),
		Products:    productImpact(recs),
		Conversions: make(map[string]Conversion),
		Confidence:  ImpactConfidence(recs),
	}

	for i := range recs {
		r := &recs[i]
		value := ProductValue(r.ProductType)
		rate := ConversionRate(r.FinalScore)
		c := report.Conversions[r.ProductType]
		c.AvgProductValue = value
		c.EstimatedConversions += rate
		c.EstimatedRevenue += rate * value
		report.Conversions[r.ProductType] = c
		report.EstimatedRevenue += rate * value
	}
	for k, c := range report.Conversions {
		c.EstimatedConversions = math.Round(c.EstimatedConversions)
		c.EstimatedRevenue = math.Round(c.EstimatedRevenue)
		report.Conversions[k] = c
	}
	report.EstimatedRevenue = math.Round(report.EstimatedRevenue)

	users := len(countPerUser(recs))
	if len(profiles) > 0 {
		report.CoverageRate = round3(float64(users) / float64(len(profiles)))
	}
	if users > 0 {
		report.AvgRecommendationsPerUser = round2(float64(len(recs)) / float64(users))
	}
	return report
}

func segmentUsers(profiles []recommend.UserProfile) map[string]Segment {
	members := map[string][]float64{
		SegmentHighValue:    nil,
		SegmentMediumValue:  nil,
		SegmentLowValue:     nil,
		SegmentHighActivity: nil,
		SegmentNewUsers:     nil,
	}
	for i := range profiles {
		p := &profiles[i]
		switch p.SpendingLevel {
		case recommend.SpendingHigh, recommend.SpendingVeryHigh:
			members[SegmentHighValue] = append(members[SegmentHighValue], p.TotalSpent)
		case recommend.SpendingMedium:
			members[SegmentMediumValue] = append(members[SegmentMediumValue], p.TotalSpent)
		default:
			members[SegmentLowValue] = append(members[SegmentLowValue], p.TotalSpent)
		}
		if p.InteractionFrequency >= recommend.FrequencyHigh {
			members[SegmentHighActivity] = append(members[SegmentHighActivity], p.TotalSpent)
		}
		if p.TotalInteractions < newUserInteractions {
			members[SegmentNewUsers] = append(members[SegmentNewUsers], p.TotalSpent)
		}
	}

	out := make(map[string]Segment, len(members))
	for name, spends := range members {
		s := Segment{Count: len(spends), AvgSpending: round2(mean(spends))}
		if len(profiles) > 0 {
			s.Share = round3(float64(len(spends)) / float64(len(profiles)))
		}
		out[name] = s
	}
	return out
}

func productImpact(recs []recommend.ScoredCandidate) []ProductImpact {
	type acc struct {
		n               int
		base, bv, final float64
		users           map[string]struct{}
	}
	byType := make(map[string]*acc)
	allUsers := make(map[string]struct{})
	for i := range recs {
		r := &recs[i]
		a, ok := byType[r.ProductType]
		if !ok {
			a = &acc{users: make(map[string]struct{})}
			byType[r.ProductType] = a
		}
		a.n++
		a.base += r.BaseMatchScore
		a.bv += r.BusinessValue
		a.final += r.FinalScore
		a.users[r.UserID] = struct{}{}
		allUsers[r.UserID] = struct{}{}
	}

	out := make([]ProductImpact, 0, len(byType))
	for t, a := range byType {
		n := float64(a.n)
		out = append(out, ProductImpact{
			ProductType:         t,
			RecommendationCount: a.n,
			UniqueUsers:         len(a.users),
			AvgMatchScore:       round3(a.base / n),
			AvgBusinessValue:    round3(a.bv / n),
			AvgFinalScore:       round3(a.final / n),
			PenetrationRate:     round3(float64(len(a.users)) / float64(len(allUsers))),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RecommendationCount != out[j].RecommendationCount {
			return out[i].RecommendationCount > out[j].RecommendationCount
		}
		return out[i].ProductType < out[j].ProductType
	})
	return out
}

// ImpactConfidence rates how much the revenue estimate can be trusted.
func ImpactConfidence(recs []recommend.ScoredCandidate) string {
	if len(recs) == 0 {
		return "very_low"
	}
	high := 0
	sum := 0.0
	for i := range recs {
		sum += recs[i].FinalScore
		if recs[i].FinalScore > 0.7 {
			high++
		}
	}
	ratio := float64(high) / float64(len(recs))
	avg := sum / float64(len(recs))

	switch {
	case ratio > 0.5 && avg > 0.6:
		return "high"
	case ratio > 0.3 && avg > 0.5:
		return "medium"
	case ratio > 0.1:
		return "low"
	default:
		return "very_low"
	}
}
