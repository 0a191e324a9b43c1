// Finrec - Financial Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/finrec

// Package enrich joins interaction events with catalog attributes and
// resolves every catalog price to a comparable positive currency value.
package enrich

import (
	"github.com/rs/zerolog"

	"github.com/tomtom215/finrec/internal/recommend"
)

// Enricher left-joins events to the catalog on item ID.
type Enricher struct {
	cfg    recommend.PricingConfig
	logger zerolog.Logger
}

// New creates an Enricher.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func New(cfg recommend.PricingConfig, logger zerolog.Logger) *Enricher {
	return &Enricher{
		cfg:    cfg,
		logger: logger.With().Str("component", "enrich").Logger(),
	}
}

// Result is the output of one enrichment pass.
type Result struct {
	Events  []recommend.EnrichedEvent
	Quality *QualityReport
	Mode    recommend.PricingMode
	Status  recommend.Status

	// Unmatched counts events whose item was not in the catalog.
	Unmatched int
	// NonAuthoritative counts events priced by a corrector or synthetically.
	NonAuthoritative int
}

// Enrich joins events with catalog attributes. Events whose item is missing
// from the catalog are kept with null attributes. If either input is empty an
// empty result is returned. Enrich never fails.
func (e *Enricher) Enrich(events []recommend.InteractionEvent, catalog []recommend.CatalogItem, diag *recommend.Diagnostics) *Result {
	if len(events) == 0 || len(catalog) == 0 {
		cause := recommend.ErrNoEvents
		if len(events) > 0 {
			cause = recommend.ErrNoCatalog
		}
		diag.AddErr(recommend.StageEnrich, recommend.KindBatchEmpty, cause)
		e.logger.Warn().
			Int("events", len(events)).
			Int("catalog_items", len(catalog)).
			Msg("Enrichment skipped: empty input")
		return &Result{Events: []recommend.EnrichedEvent{}, Status: recommend.StatusEmpty}
	}

	quality := Inspect(catalog)
	resolver := ResolverFor(e.cfg, quality)
	e.reportQuality(quality, resolver.Mode(), diag)

	type resolved struct {
		item   *recommend.CatalogItem
		price  float64
		source recommend.PriceSource
	}
	index := make(map[string]resolved, len(catalog))
	for i := range catalog {
		item := &catalog[i]
		if _, dup := index[item.ItemID]; dup {
			continue
		}
		price, source := resolver.Resolve(item)
		index[item.ItemID] = resolved{item: item, price: price, source: source}
	}

	out := make([]recommend.EnrichedEvent, len(events))
	res := &Result{Events: out, Quality: quality, Mode: resolver.Mode(), Status: recommend.StatusOK}
	for i := range events {
		out[i].InteractionEvent = events[i]
		r, ok := index[events[i].ItemID]
		if !ok {
			res.Unmatched++
			continue
		}
		out[i].InCatalog = true
		if recommend.IsKnownCategory(r.item.Category) {
			out[i].Category = r.item.Category
		}
		if recommend.IsKnownCategory(r.item.Subcategory) {
			out[i].Subcategory = r.item.Subcategory
		}
		out[i].Price = r.price
		out[i].PriceSource = r.source
		if !r.source.Authoritative() {
			res.NonAuthoritative++
		}
	}

	if res.Unmatched > 0 {
		diag.Add(recommend.StageEnrich, recommend.KindMissingData, res.Unmatched,
			"events reference items missing from the catalog")
	}
	if res.NonAuthoritative > 0 {
		diag.Add(recommend.StageEnrich, recommend.KindDataQuality, res.NonAuthoritative,
			"events priced by "+string(resolver.Mode())+" correction rather than catalog prices")
		res.Status = recommend.StatusDegraded
	}

	e.logger.Debug().
		Int("events", len(out)).
		Int("unmatched", res.Unmatched).
		Int("non_authoritative", res.NonAuthoritative).
		Str("pricing_mode", string(res.Mode)).
		Msg("Events enriched")

	return res
}

func (e *Enricher) reportQuality(q *QualityReport, mode recommend.PricingMode, diag *recommend.Diagnostics) {
	if q.Valid() && q.Missing == 0 && q.Negative == 0 && q.Zero == 0 {
		return
	}
	for _, issue := range q.Issues() {
		diag.Add(recommend.StageEnrich, recommend.KindDataQuality, 1, issue)
	}
	e.logger.Warn().
		Float64("min_price", q.Min).
		Float64("max_price", q.Max).
		Float64("mean_price", q.Mean).
		Int("missing", q.Missing).
		Int("negative", q.Negative).
		Bool("log_scaled", q.LikelyLogScaled).
		Str("pricing_mode", string(mode)).
		Msg("Catalog price column has data quality issues")
}
