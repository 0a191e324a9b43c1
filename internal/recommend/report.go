// Finrec - Financial Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/finrec

package recommend

// MetricsReport is the quality summary of one recommendation set.
// It is derived per run and never mutated after creation.
type MetricsReport struct {
	Coverage     CoverageMetrics     `json:"coverage"`
	Relevance    RelevanceMetrics    `json:"relevance"`
	Diversity    DiversityMetrics    `json:"diversity"`
	Business     BusinessMetrics     `json:"business"`
	Distribution DistributionMetrics `json:"distribution"`
	Overall      OverallScore        `json:"overall_score"`
}

// CoverageMetrics describes how many profiled users received recommendations.
type CoverageMetrics struct {
	UserCoverageRate                 float64 `json:"user_coverage_rate"`
	TotalUsersCovered                int     `json:"total_users_covered"`
	TotalUsers                       int     `json:"total_users"`
	AvgRecommendationsPerUser        float64 `json:"avg_recommendations_per_user"`
	UsersWithMultipleRecommendations int     `json:"users_with_multiple_recommendations"`
	Quality                          string  `json:"coverage_quality"`
}

// ConfidenceHistogram buckets final scores: >0.8, (0.6,0.8], (0.4,0.6], <=0.4.
type ConfidenceHistogram struct {
	VeryHigh int `json:"very_high"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
}

// RelevanceMetrics describes score quality.
type RelevanceMetrics struct {
	AvgMatchScore          float64             `json:"avg_match_score"`
	AvgFinalScore          float64             `json:"avg_final_score"`
	HighConfidenceRate     float64             `json:"high_confidence_rate"`
	ConfidenceDistribution ConfidenceHistogram `json:"confidence_distribution"`
	Quality                string              `json:"relevance_quality"`
}

// DiversityMetrics describes how spread the recommended products are.
type DiversityMetrics struct {
	UniqueProducts          int            `json:"unique_products_recommended"`
	ProductDiversityScore   float64        `json:"product_diversity_score"`
	DiversityIndex          float64        `json:"diversity_index"`
	ProductTypeDistribution map[string]int `json:"product_type_distribution"`
	Quality                 string         `json:"diversity_quality"`
}

// BusinessMetrics describes expected business impact.
type BusinessMetrics struct {
	TotalBusinessValue         float64 `json:"total_business_value"`
	AvgBusinessValuePerRec     float64 `json:"avg_business_value_per_rec"`
	PremiumRecommendationsRate float64 `json:"premium_recommendations_rate"`
	ExpectedConversionRate     float64 `json:"expected_conversion_rate"`
	EstimatedRevenue           float64 `json:"estimated_revenue"`
	Impact                     string  `json:"business_impact"`
}

// ScoreStats summarizes the final score distribution.
type ScoreStats struct {
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Q25  float64 `json:"q25"`
	Q75  float64 `json:"q75"`
}

// CountStats summarizes recommendations per user.
type CountStats struct {
	Mean          float64 `json:"mean"`
	Std           float64 `json:"std"`
	Min           int     `json:"min"`
	Max           int     `json:"max"`
	UsersWithOne  int     `json:"users_with_1_rec"`
	UsersWithMany int     `json:"users_with_3plus_recs"`
}

// DistributionMetrics describes score and per-user count distributions.
type DistributionMetrics struct {
	Scores  ScoreStats `json:"score_distribution"`
	PerUser CountStats `json:"recommendations_per_user"`
}

// ComponentScores are the normalized inputs of the overall score.
type ComponentScores struct {
	Coverage  float64 `json:"coverage"`
	Relevance float64 `json:"relevance"`
	Diversity float64 `json:"diversity"`
	Business  float64 `json:"business"`
}

// OverallScore is the weighted composite of the metric groups.
type OverallScore struct {
	Score      float64         `json:"overall_score"`
	Rating     string          `json:"quality_rating"`
	Components ComponentScores `json:"component_scores"`
}

// StrategyComparison holds one report per strategy and the selected best.
type StrategyComparison struct {
	Reports       map[Strategy]*MetricsReport `json:"reports"`
	Selection     map[Strategy]float64        `json:"selection_scores"`
	Best          Strategy                    `json:"best_strategy"`
	Reason        string                      `json:"reason"`
	SkippedEmpty  []Strategy                  `json:"skipped_empty,omitempty"`
	CandidateSize int                         `json:"candidate_count"`
}
