// Finrec - Financial Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/finrec

package recommend

import (
	"fmt"
	"strings"
)

// RuleKind enumerates the target rules a product can declare.
type RuleKind string

const (
	// RuleMinTotalSpent requires TotalSpent >= Threshold.
	RuleMinTotalSpent RuleKind = "min_total_spent"
	// RuleMinAvgTransaction requires AvgTransactionValue >= Threshold.
	RuleMinAvgTransaction RuleKind = "min_avg_transaction"
	// RuleMinFrequency requires InteractionFrequency >= Frequency.
	RuleMinFrequency RuleKind = "min_frequency"
	// RuleMinSpendingLevel requires SpendingLevel >= Level.
	RuleMinSpendingLevel RuleKind = "min_spending_level"
	// RuleCategoryAffinity requires affinity for any of Categories.
	RuleCategoryAffinity RuleKind = "category_affinity"
	// RuleMinStability requires PreferenceStability >= Threshold.
	RuleMinStability RuleKind = "min_stability"
	// RuleDemographic requires the roster Attribute to equal Value.
	RuleDemographic RuleKind = "demographic"
	// RulePropensity describes a trait the behavioral profile cannot observe,
	// such as savings behavior or risk tolerance. It is never evaluable.
	RulePropensity RuleKind = "propensity"
)

// TargetRule is one typed targeting condition of a product.
type TargetRule struct {
	Kind       RuleKind       `json:"kind"`
	Threshold  float64        `json:"threshold,omitempty"`
	Level      SpendingLevel  `json:"level,omitempty"`
	Frequency  FrequencyClass `json:"frequency,omitempty"`
	Categories []string       `json:"categories,omitempty"`
	Attribute  string         `json:"attribute,omitempty"`
	Value      string         `json:"value,omitempty"`
}

// Evaluate checks the rule against a profile. evaluable is false when the
// profile carries no information for the rule, in which case matched is false.
func (r *TargetRule) Evaluate(p *UserProfile) (matched, evaluable bool) {
	switch r.Kind {
	case RuleMinTotalSpent:
		return p.TotalSpent >= r.Threshold, true
	case RuleMinAvgTransaction:
		return p.AvgTransactionValue >= r.Threshold, true
	case RuleMinFrequency:
		if p.InteractionFrequency == FrequencyUnknown {
			return false, false
		}
		return p.InteractionFrequency >= r.Frequency, true
	case RuleMinSpendingLevel:
		return p.SpendingLevel >= r.Level, true
	case RuleCategoryAffinity:
		if len(r.Categories) == 0 {
			return false, false
		}
		for _, c := range r.Categories {
			if p.Affinity(c) > 0 {
				return true, true
			}
		}
		return false, true
	case RuleMinStability:
		return p.PreferenceStability >= r.Threshold, true
	case RuleDemographic:
		v, ok := p.Demographics.Attribute(r.Attribute)
		if !ok {
			return false, false
		}
		return strings.EqualFold(v, r.Value), true
	default:
		return false, false
	}
}

// Describe renders the rule as a short human-readable condition.
func (r *TargetRule) Describe() string {
	switch r.Kind {
	case RuleMinTotalSpent:
		return fmt.Sprintf("total spend of at least %.0f", r.Threshold)
	case RuleMinAvgTransaction:
		return fmt.Sprintf("average transaction of at least %.0f", r.Threshold)
	case RuleMinFrequency:
		return fmt.Sprintf("%s or higher activity", r.Frequency)
	case RuleMinSpendingLevel:
		return fmt.Sprintf("%s or higher spending", r.Level)
	case RuleCategoryAffinity:
		return "interest in " + strings.Join(r.Categories, ", ")
	case RuleMinStability:
		return fmt.Sprintf("preference stability of at least %.2f", r.Threshold)
	case RuleDemographic, RulePropensity:
		return fmt.Sprintf("%s %s", r.Attribute, r.Value)
	default:
		return string(r.Kind)
	}
}

// TargetFit evaluates all rules and returns the share of evaluable rules
// that matched, the matched rules, and the evaluable count.
// With no evaluable rules the fit is a neutral 0.5.
func TargetFit(rules []TargetRule, p *UserProfile) (fit float64, matched []TargetRule, evaluable int) {
	hits := 0
	for i := range rules {
		ok, can := rules[i].Evaluate(p)
		if !can {
			continue
		}
		evaluable++
		if ok {
			hits++
			matched = append(matched, rules[i])
		}
	}
	if evaluable == 0 {
		return 0.5, nil, 0
	}
	return float64(hits) / float64(evaluable), matched, evaluable
}
