// Finrec - Financial Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/finrec

package evaluation

import (
	"fmt"
	"math"

	"github.com/tomtom215/finrec/internal/recommend"
)

// IssueKind classifies a validation finding.
type IssueKind string

const (
	IssueScoreRange    IssueKind = "score_out_of_range"
	IssueDuplicate     IssueKind = "duplicate_recommendation"
	IssueMissingField  IssueKind = "missing_field"
	IssueNegativeSpend IssueKind = "negative_spend"
	IssueNonFinite     IssueKind = "non_finite"
)

// Issue is one validation finding.
type Issue struct {
	Kind      IssueKind `json:"kind"`
	UserID    string    `json:"user_id,omitempty"`
	ProductID string    `json:"product_id,omitempty"`
	Message   string    `json:"message"`
}

// ValidationReport lists every finding of a validation pass.
type ValidationReport struct {
	Issues []Issue `json:"issues"`
}

// Valid reports whether no issues were found.
func (v *ValidationReport) Valid() bool {
	return len(v.Issues) == 0
}

// Count returns the number of issues of a kind.
func (v *ValidationReport) Count(kind IssueKind) int {
	n := 0
	for _, is := range v.Issues {
		if is.Kind == kind {
			n++
		}
	}
	return n
}

func (v *ValidationReport) add(kind IssueKind, user, product, format string, args ...any) {
	v.Issues = append(v.Issues, Issue{
		Kind:      kind,
		UserID:    user,
		ProductID: product,
		Message:   fmt.Sprintf(format, args...),
	})
}

type field struct {
	name  string
	value float64
}

// Validate checks recommendations and profiles for structural problems.
func Validate(recs []recommend.ScoredCandidate, profiles []recommend.UserProfile) *ValidationReport {
	v := &ValidationReport{Issues: []Issue{}}

	seen := make(map[[2]string]struct{}, len(recs))
	for i := range recs {
		r := &recs[i]
		if r.UserID == "" || r.ProductID == "" {
			v.add(IssueMissingField, r.UserID, r.ProductID, "recommendation %d lacks user or product id", i)
		}
		for _, f := range []field{
			{"base_match_score", r.BaseMatchScore},
			{"final_score", r.FinalScore},
			{"business_value", r.BusinessValue},
		} {
			if math.IsNaN(f.value) || f.value < 0 || f.value > 1 {
				v.add(IssueScoreRange, r.UserID, r.ProductID, "%s %v outside [0,1]", f.name, f.value)
			}
		}
		key := [2]string{r.UserID, r.ProductID}
		if _, dup := seen[key]; dup {
			v.add(IssueDuplicate, r.UserID, r.ProductID, "product recommended more than once")
		}
		seen[key] = struct{}{}
	}

	for i := range profiles {
		p := &profiles[i]
		if p.UserID == "" {
			v.add(IssueMissingField, "", "", "profile %d lacks user id", i)
		}
		if p.TotalSpent < 0 || p.AvgTransactionValue < 0 || p.MaxTransaction < 0 {
			v.add(IssueNegativeSpend, p.UserID, "", "negative spend figures")
		}
		for _, f := range []field{
			{"total_spent", p.TotalSpent},
			{"spending_consistency", p.SpendingConsistency},
			{"category_diversity", p.CategoryDiversity},
			{"preference_stability", p.PreferenceStability},
			{"temporal_consistency", p.TemporalConsistency},
			{"profile_completeness", p.ProfileCompleteness},
		} {
			if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
				v.add(IssueNonFinite, p.UserID, "", "%s is not finite", f.name)
			}
		}
	}
	return v
}
