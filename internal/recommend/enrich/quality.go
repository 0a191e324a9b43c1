// Finrec - Financial Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/finrec

package enrich

import (
	"fmt"
	"math"
	"strings"

	"github.com/tomtom215/finrec/internal/recommend"
)

// QualityReport summarizes the catalog price column.
type QualityReport struct {
	Items    int     `json:"items"`
	Priced   int     `json:"priced"`
	Missing  int     `json:"missing"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Mean     float64 `json:"mean"`
	Negative int     `json:"negative"`
	Zero     int     `json:"zero"`
	BelowOne int     `json:"below_one"`

	// NullCategories counts items without a usable category.
	NullCategories int `json:"null_categories"`

	// LikelyLogScaled is set when every price is below 10, which no real
	// currency catalog of financial products produces.
	LikelyLogScaled bool `json:"likely_log_scaled"`
}

// Valid reports whether the price column looks like real currency.
func (r *QualityReport) Valid() bool {
	return r.Priced > 0 && r.Min >= 0 && r.Max > 10 && r.Mean > 0
}

// Issues lists human-readable anomalies.
func (r *QualityReport) Issues() []string {
	var out []string
	if r.Missing > 0 {
		out = append(out, fmt.Sprintf("%d items without a price", r.Missing))
	}
	if r.Negative > 0 {
		out = append(out, fmt.Sprintf("%d negative prices", r.Negative))
	}
	if r.Zero > 0 {
		out = append(out, fmt.Sprintf("%d zero prices", r.Zero))
	}
	if r.BelowOne > 0 {
		out = append(out, fmt.Sprintf("%d prices below 1", r.BelowOne))
	}
	if r.LikelyLogScaled {
		out = append(out, fmt.Sprintf("price column looks log-scaled (max %.2f, mean %.2f)", r.Max, r.Mean))
	}
	return out
}

// String renders the report on one line.
func (r *QualityReport) String() string {
	issues := r.Issues()
	if len(issues) == 0 {
		return "ok"
	}
	return strings.Join(issues, "; ")
}

// Inspect computes price statistics over the catalog.
func Inspect(catalog []recommend.CatalogItem) *QualityReport {
	r := &QualityReport{Items: len(catalog), Min: math.Inf(1), Max: math.Inf(-1)}
	sum := 0.0
	for i := range catalog {
		item := &catalog[i]
		if !recommend.IsKnownCategory(item.Category) {
			r.NullCategories++
		}
		if item.Price == nil || math.IsNaN(*item.Price) || math.IsInf(*item.Price, 0) {
			r.Missing++
			continue
		}
		p := *item.Price
		r.Priced++
		sum += p
		r.Min = math.Min(r.Min, p)
		r.Max = math.Max(r.Max, p)
		switch {
		case p < 0:
			r.Negative++
		case p == 0:
			r.Zero++
		}
		if p < 1 {
			r.BelowOne++
		}
	}

	if r.Priced == 0 {
		r.Min, r.Max = 0, 0
		return r
	}
	r.Mean = sum / float64(r.Priced)
	r.LikelyLogScaled = r.Max < 10
	return r
}
