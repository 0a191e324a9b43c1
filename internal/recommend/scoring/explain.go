// Finrec - Financial Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/finrec

package scoring

import (
	"strings"

	"github.com/tomtom215/finrec/internal/recommend"
)

// maxExplainedReasons is how many scoring reasons an explanation repeats.
const maxExplainedReasons = 3

// Explain renders a short customer-facing explanation from the scoring
// reasons and the profile.
func Explain(p *recommend.UserProfile, prod *recommend.ProductDefinition, reasons []string) string {
	if len(reasons) == 0 {
		return "We recommend " + prod.Name + " based on an overall analysis of your profile."
	}

	var b strings.Builder
	b.WriteString("We recommend ")
	b.WriteString(prod.Name)
	b.WriteString(" because:")

	n := len(reasons)
	if n > maxExplainedReasons {
		n = maxExplainedReasons
	}
	for _, r := range reasons[:n] {
		b.WriteString(" • ")
		b.WriteString(r)
	}

	if p.SpendingLevel >= recommend.SpendingHigh {
		b.WriteString(" • your spending level is a good fit for this product")
	}
	if p.InteractionFrequency >= recommend.FrequencyHigh {
		b.WriteString(" • your activity shows strong potential")
	}
	if p.TotalSpent > 50000 {
		b.WriteString(" • your significant spending matches premium products")
	}
	return b.String()
}

// Personalize builds a longer explanation for a final recommendation, as
// shown to advisors alongside the confidence label.
func Personalize(c *recommend.ScoredCandidate, p *recommend.UserProfile) string {
	parts := []string{"We recommend " + c.ProductName + " because:"}

	if p.SpendingLevel >= recommend.SpendingHigh {
		parts = append(parts, "you have a high spending level suited to this product")
	}
	if p.AvgTransactionValue > 20000 {
		parts = append(parts, "your average purchase size matches premium products")
	}
	if p.InteractionFrequency >= recommend.FrequencyHigh {
		parts = append(parts, "you are highly active, which matters for this offer")
	}
	if p.PreferenceStability > 0.7 {
		parts = append(parts, "your preferences are stable")
	}
	if top, ok := p.TopCategory(); ok && p.CategoryAffinity[0].Score > 0.5 {
		parts = append(parts, "you often buy in the '"+top+"' category")
	}

	switch {
	case c.BaseMatchScore > 0.8:
		parts = append(parts, "this offer is an excellent match for your profile")
	case c.BaseMatchScore > 0.6:
		parts = append(parts, "this offer is a good match for your profile")
	default:
		parts = append(parts, "this offer may interest you based on your activity")
	}
	return strings.Join(parts, " • ")
}
