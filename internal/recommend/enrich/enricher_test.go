// Finrec - Financial Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/finrec

package enrich

import (
	"io"
	"math"
	"testing"
	"time"

	"github.com/tomtom215/finrec/internal/logging"
	"github.com/tomtom215/finrec/internal/recommend"
)

func price(v float64) *float64 { return &v }

func newTestEnricher(mode recommend.PricingMode) *Enricher {
	cfg := recommend.DefaultConfig().Pricing
	cfg.Mode = mode
	return New(cfg, logging.NewTestLogger(io.Discard))
}

func TestEnrich_EmptyInputs(t *testing.T) {
	e := newTestEnricher(recommend.PricingAuto)
	events := []recommend.InteractionEvent{{UserID: "u1", ItemID: "i1"}}
	catalog := []recommend.CatalogItem{{ItemID: "i1", Category: "books", Price: price(100)}}

	tests := []struct {
		name    string
		events  []recommend.InteractionEvent
		catalog []recommend.CatalogItem
		cause   error
	}{
		{"no events", nil, catalog, recommend.ErrNoEvents},
		{"no catalog", events, nil, recommend.ErrNoCatalog},
		{"both empty", nil, nil, recommend.ErrNoEvents},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			diag := recommend.NewDiagnostics()
			res := e.Enrich(tt.events, tt.catalog, diag)
			if res.Events == nil || len(res.Events) != 0 {
				t.Errorf("Events = %v, want empty non-nil slice", res.Events)
			}
			if res.Status != recommend.StatusEmpty {
				t.Errorf("Status = %s, want empty", res.Status)
			}
			if diag.Count(recommend.StageEnrich, recommend.KindBatchEmpty) != 1 {
				t.Error("expected one batch_empty diagnostic")
			}
			if !diag.Has(tt.cause) {
				t.Errorf("diagnostics = %+v, want cause %v", diag.Items(), tt.cause)
			}
		})
	}
}

func TestEnrich_LeftJoinKeepsUnmatched(t *testing.T) {
	e := newTestEnricher(recommend.PricingCatalog)
	ts := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	events := []recommend.InteractionEvent{
		{UserID: "u1", ItemID: "i1", Action: recommend.ActionPurchase, Timestamp: ts},
		{UserID: "u1", ItemID: "missing", Action: recommend.ActionView, Timestamp: ts},
		{UserID: "u2", ItemID: "i2", Action: recommend.ActionClick, Timestamp: ts},
	}
	catalog := []recommend.CatalogItem{
		{ItemID: "i1", Category: "electronics", Subcategory: "phones", Price: price(1500)},
		{ItemID: "i2", Category: "null", Price: price(300)},
	}

	diag := recommend.NewDiagnostics()
	res := e.Enrich(events, catalog, diag)

	if len(res.Events) != 3 {
		t.Fatalf("len(Events) = %d, want 3", len(res.Events))
	}
	if got := res.Events[0]; got.Category != "electronics" || got.Price != 1500 || got.PriceSource != recommend.PriceCatalog {
		t.Errorf("matched event = %+v", got)
	}
	unmatched := res.Events[1]
	if unmatched.InCatalog || unmatched.Category != "" || unmatched.Price != 0 || unmatched.PriceSource != recommend.PriceNone {
		t.Errorf("unmatched event carries attributes: %+v", unmatched)
	}
	if res.Events[2].HasCategory() {
		t.Error("literal null category should be treated as missing")
	}
	if res.Unmatched != 1 {
		t.Errorf("Unmatched = %d, want 1", res.Unmatched)
	}
	if diag.Count(recommend.StageEnrich, recommend.KindMissingData) != 1 {
		t.Error("expected missing_data diagnostic for the unmatched event")
	}
	if res.Status != recommend.StatusOK {
		t.Errorf("Status = %s, want success", res.Status)
	}
}

func TestEnrich_AutoDetectsLogScaledPrices(t *testing.T) {
	e := newTestEnricher(recommend.PricingAuto)
	events := []recommend.InteractionEvent{
		{UserID: "u1", ItemID: "a"},
		{UserID: "u1", ItemID: "b"},
	}
	catalog := []recommend.CatalogItem{
		{ItemID: "a", Category: "cards", Price: price(math.Log(5000))},
		{ItemID: "b", Category: "cards", Price: price(-0.5)},
	}

	diag := recommend.NewDiagnostics()
	res := e.Enrich(events, catalog, diag)

	if res.Mode != recommend.PricingLogInverse {
		t.Fatalf("Mode = %s, want log_inverse", res.Mode)
	}
	if got := res.Events[0].Price; math.Abs(got-5000) > 1e-6 {
		t.Errorf("corrected price = %f, want 5000", got)
	}
	if got := res.Events[1].Price; got != 1000 {
		t.Errorf("non-positive log price = %f, want floor 1000", got)
	}
	if res.Events[0].PriceSource != recommend.PriceLogCorrected {
		t.Errorf("PriceSource = %s, want log_corrected", res.Events[0].PriceSource)
	}
	if res.Status != recommend.StatusDegraded {
		t.Errorf("Status = %s, want degraded", res.Status)
	}
	if diag.Count(recommend.StageEnrich, recommend.KindDataQuality) == 0 {
		t.Error("expected data_quality diagnostics")
	}
}

func TestSyntheticPricer(t *testing.T) {
	p := NewSyntheticPricer(recommend.DefaultConfig().Pricing)

	t.Run("deterministic and in band", func(t *testing.T) {
		for _, c := range []string{"electronics", "travel", "groceries", "fuel"} {
			a, b := p.Price(c), p.Price(c)
			if a != b {
				t.Errorf("Price(%q) not deterministic: %f vs %f", c, a, b)
			}
			if a < 1000 || a >= 10000 {
				t.Errorf("Price(%q) = %f, want [1000, 10000)", c, a)
			}
		}
	})

	t.Run("null category", func(t *testing.T) {
		if got := p.Price(""); got != 2000 {
			t.Errorf("Price(\"\") = %f, want 2000", got)
		}
	})
}

func TestCatalogPricer_FallsBackForMissingPrice(t *testing.T) {
	p := NewCatalogPricer(recommend.DefaultConfig().Pricing)
	v, src := p.Resolve(&recommend.CatalogItem{ItemID: "x", Category: "books"})
	if src != recommend.PriceSynthetic {
		t.Errorf("source = %s, want synthetic", src)
	}
	if v <= 0 {
		t.Errorf("price = %f, want positive", v)
	}
}

func TestLogInversePricer_OverflowFallsBack(t *testing.T) {
	p := NewLogInversePricer(recommend.DefaultConfig().Pricing)
	_, src := p.Resolve(&recommend.CatalogItem{ItemID: "x", Category: "books", Price: price(900)})
	if src != recommend.PriceSynthetic {
		t.Errorf("source = %s, want synthetic fallback", src)
	}
}

func TestInspect(t *testing.T) {
	catalog := []recommend.CatalogItem{
		{ItemID: "a", Price: price(-1)},
		{ItemID: "b", Price: price(0)},
		{ItemID: "c", Price: price(0.5)},
		{ItemID: "d", Price: price(8)},
		{ItemID: "e"},
	}
	r := Inspect(catalog)

	if r.Priced != 4 || r.Missing != 1 {
		t.Errorf("Priced/Missing = %d/%d, want 4/1", r.Priced, r.Missing)
	}
	if r.Negative != 1 || r.Zero != 1 || r.BelowOne != 3 {
		t.Errorf("Negative/Zero/BelowOne = %d/%d/%d, want 1/1/3", r.Negative, r.Zero, r.BelowOne)
	}
	if !r.LikelyLogScaled {
		t.Error("LikelyLogScaled = false, want true")
	}
	if r.Valid() {
		t.Error("Valid() = true, want false")
	}
	if r.NullCategories != 5 {
		t.Errorf("NullCategories = %d, want 5", r.NullCategories)
	}
}

func TestResolverFor(t *testing.T) {
	cfg := recommend.DefaultConfig().Pricing

	tests := []struct {
		name   string
		mode   recommend.PricingMode
		report *QualityReport
		want   recommend.PricingMode
	}{
		{"explicit synthetic", recommend.PricingSynthetic, &QualityReport{Priced: 3, Max: 5000}, recommend.PricingSynthetic},
		{"explicit catalog", recommend.PricingCatalog, &QualityReport{LikelyLogScaled: true}, recommend.PricingCatalog},
		{"auto without prices", recommend.PricingAuto, &QualityReport{}, recommend.PricingSynthetic},
		{"auto log scaled", recommend.PricingAuto, &QualityReport{Priced: 2, LikelyLogScaled: true}, recommend.PricingLogInverse},
		{"auto healthy", recommend.PricingAuto, &QualityReport{Priced: 2, Max: 9000, Mean: 4000}, recommend.PricingCatalog},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := cfg
			c.Mode = tt.mode
			if got := ResolverFor(c, tt.report).Mode(); got != tt.want {
				t.Errorf("ResolverFor() mode = %s, want %s", got, tt.want)
			}
		})
	}
}
