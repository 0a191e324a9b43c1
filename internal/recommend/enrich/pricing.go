// Finrec - Financial Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/finrec

package enrich

import (
	"hash/fnv"
	"math"
	"strings"

	"github.com/tomtom215/finrec/internal/recommend"
)

// maxPlausiblePrice bounds exponentiated prices; anything above is not a log price.
const maxPlausiblePrice = 1e9

// PriceResolver turns a catalog item into a positive real-currency price.
type PriceResolver interface {
	Resolve(item *recommend.CatalogItem) (float64, recommend.PriceSource)
	Mode() recommend.PricingMode
}

// SyntheticPricer assigns a deterministic price from a hash of the category.
// Prices fall in [Base, Base+Span). This is an approximation, not a business rule.
type SyntheticPricer struct {
	Base         float64
	Span         int
	NullCategory float64
}

// NewSyntheticPricer creates a pricer from configuration.
func NewSyntheticPricer(cfg recommend.PricingConfig) *SyntheticPricer {
	return &SyntheticPricer{
		Base:         cfg.SyntheticBase,
		Span:         cfg.SyntheticSpan,
		NullCategory: cfg.NullCategoryPrice,
	}
}

// Price returns the synthetic price for a category.
func (p *SyntheticPricer) Price(category string) float64 {
	if !recommend.IsKnownCategory(category) {
		return p.NullCategory
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(strings.ToLower(strings.TrimSpace(category))))
	return p.Base + float64(h.Sum64()%uint64(p.Span))
}

// Resolve implements PriceResolver.
func (p *SyntheticPricer) Resolve(item *recommend.CatalogItem) (float64, recommend.PriceSource) {
	return p.Price(item.Category), recommend.PriceSynthetic
}

// Mode implements PriceResolver.
func (p *SyntheticPricer) Mode() recommend.PricingMode {
	return recommend.PricingSynthetic
}

// CatalogPricer trusts positive catalog prices and falls back to synthetic
// pricing for missing or non-positive ones.
type CatalogPricer struct {
	fallback *SyntheticPricer
}

// NewCatalogPricer creates a passthrough pricer.
func NewCatalogPricer(cfg recommend.PricingConfig) *CatalogPricer {
	return &CatalogPricer{fallback: NewSyntheticPricer(cfg)}
}

// Resolve implements PriceResolver.
func (p *CatalogPricer) Resolve(item *recommend.CatalogItem) (float64, recommend.PriceSource) {
	if item.Price != nil && *item.Price > 0 && !math.IsInf(*item.Price, 0) && !math.IsNaN(*item.Price) {
		return *item.Price, recommend.PriceCatalog
	}
	return p.fallback.Resolve(item)
}

// Mode implements PriceResolver.
func (p *CatalogPricer) Mode() recommend.PricingMode {
	return recommend.PricingCatalog
}

// LogInversePricer exponentiates a log-scaled price column back to currency.
// Non-positive values become Floor; missing values fall back to synthetic.
type LogInversePricer struct {
	Floor    float64
	fallback *SyntheticPricer
}

// NewLogInversePricer creates a log-inverse corrector.
func NewLogInversePricer(cfg recommend.PricingConfig) *LogInversePricer {
	return &LogInversePricer{Floor: cfg.LogFloorPrice, fallback: NewSyntheticPricer(cfg)}
}

// Resolve implements PriceResolver.
func (p *LogInversePricer) Resolve(item *recommend.CatalogItem) (float64, recommend.PriceSource) {
	if item.Price == nil || math.IsNaN(*item.Price) {
		return p.fallback.Resolve(item)
	}
	if *item.Price <= 0 {
		return p.Floor, recommend.PriceLogCorrected
	}
	v := math.Exp(*item.Price)
	if math.IsInf(v, 0) || v > maxPlausiblePrice {
		return p.fallback.Resolve(item)
	}
	return v, recommend.PriceLogCorrected
}

// Mode implements PriceResolver.
func (p *LogInversePricer) Mode() recommend.PricingMode {
	return recommend.PricingLogInverse
}

// ResolverFor picks the resolver for a pricing mode. Auto mode inspects the
// catalog: log-scaled columns get log-inverse correction, catalogs without
// any price get synthetic pricing, and everything else is trusted.
func ResolverFor(cfg recommend.PricingConfig, report *QualityReport) PriceResolver {
	switch cfg.Mode {
	case recommend.PricingSynthetic:
		return NewSyntheticPricer(cfg)
	case recommend.PricingLogInverse:
		return NewLogInversePricer(cfg)
	case recommend.PricingCatalog:
		return NewCatalogPricer(cfg)
	}

	switch {
	case report == nil || report.Priced == 0:
		return NewSyntheticPricer(cfg)
	case report.LikelyLogScaled:
		return NewLogInversePricer(cfg)
	default:
		return NewCatalogPricer(cfg)
	}
}
