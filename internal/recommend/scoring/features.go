// Finrec - Financial Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/finrec

package scoring

import (
	"github.com/tomtom215/finrec/internal/recommend"
)

// NumFeatures is the width of the learned scorer's input vector.
const NumFeatures = 7

// FeatureNames labels each position of the feature vector.
var FeatureNames = [NumFeatures]string{
	"total_spent",
	"avg_transaction_value",
	"activity_level",
	"category_diversity",
	"business_value",
	"spending_match",
	"target_fit",
}

// Features builds the learned scorer's input for a (profile, product) pair.
func Features(p *recommend.UserProfile, prod *recommend.ProductDefinition) []float64 {
	fit, _, _ := recommend.TargetFit(prod.Target, p)
	return []float64{
		p.TotalSpent,
		p.AvgTransactionValue,
		p.InteractionFrequency.ActivityLevel(),
		p.CategoryDiversity,
		prod.BusinessValue,
		spendingMatch(p.TotalSpent, prod.BusinessValue),
		fit,
	}
}

// spendingMatch rates how well a user's spend fits a product's value tier.
func spendingMatch(total, businessValue float64) float64 {
	switch {
	case total > 50000 && businessValue > 0.7:
		return 0.9
	case total > 20000 && businessValue > 0.5:
		return 0.7
	case total > 5000:
		return 0.5
	default:
		return 0.3
	}
}
