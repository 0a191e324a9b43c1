// Finrec - Financial Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/finrec

package recommend

import (
	"fmt"
	"time"
)

// PricingMode selects the data-quality corrector applied to catalog prices.
type PricingMode string

const (
	// PricingAuto inspects the price column and picks a corrector.
	PricingAuto PricingMode = "auto"
	// PricingCatalog trusts catalog prices; missing prices fall back to synthetic.
	PricingCatalog PricingMode = "catalog"
	// PricingLogInverse exponentiates catalog prices back from log scale.
	PricingLogInverse PricingMode = "log_inverse"
	// PricingSynthetic ignores catalog prices and hashes the category.
	PricingSynthetic PricingMode = "synthetic"
)

// Config contains all tunables of the recommendation core.
type Config struct {
	// Pricing controls price resolution during enrichment.
	Pricing PricingConfig `json:"pricing"`

	// Profile controls profile construction.
	Profile ProfileConfig `json:"profile"`

	// Scoring controls candidate scoring.
	Scoring ScoringConfig `json:"scoring"`

	// Strategy controls optimization.
	Strategy StrategyConfig `json:"strategy"`

	// Workers bounds per-user parallelism. Zero means one worker per CPU.
	Workers int `json:"workers"`

	// StageTimeout bounds a single pipeline run.
	StageTimeout time.Duration `json:"stage_timeout"`

	// Seed drives user sampling so runs are reproducible.
	Seed int64 `json:"seed"`
}

// PricingConfig controls price resolution.
type PricingConfig struct {
	Mode PricingMode `json:"mode"`

	// SyntheticBase and SyntheticSpan define the synthetic band [base, base+span).
	SyntheticBase float64 `json:"synthetic_base"`
	SyntheticSpan int     `json:"synthetic_span"`

	// NullCategoryPrice is assigned synthetically when an item has no category.
	NullCategoryPrice float64 `json:"null_category_price"`

	// LogFloorPrice replaces non-positive log-scaled prices.
	LogFloorPrice float64 `json:"log_floor_price"`
}

// ProfileConfig controls profile construction.
type ProfileConfig struct {
	// MaxUsers caps the profiled population by seeded sampling. Zero disables it.
	MaxUsers int `json:"max_users"`

	// AffinityTopN is the number of affinity entries kept.
	AffinityTopN int `json:"affinity_top_n"`

	// AffinityInteractionWeight blends interaction share against spend share.
	AffinityInteractionWeight float64 `json:"affinity_interaction_weight"`

	// MinStabilityEvents is the history size below which stability is neutral.
	MinStabilityEvents int `json:"min_stability_events"`
}

// ScoringConfig controls candidate scoring.
type ScoringConfig struct {
	// BaseScore is the floor every product receives.
	BaseScore float64 `json:"base_score"`

	// MinScore is the acceptance threshold; candidates must exceed it.
	MinScore float64 `json:"min_score"`

	// ModelWeight is the learned scorer's share of the final blend.
	ModelWeight float64 `json:"model_weight"`

	// TopK is the number of candidates kept per user.
	TopK int `json:"top_k"`
}

// StrategyConfig controls optimization.
type StrategyConfig struct {
	// Default is the strategy used when a run does not name one.
	Default Strategy `json:"default"`

	// BalancedTopK is the per-user cap of the balanced strategy.
	BalancedTopK int `json:"balanced_top_k"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() *Config {
	return &Config{
		Pricing: PricingConfig{
			Mode:              PricingAuto,
			SyntheticBase:     1000,
			SyntheticSpan:     9000,
			NullCategoryPrice: 2000,
			LogFloorPrice:     1000,
		},
		Profile: ProfileConfig{
			MaxUsers:                  0,
			AffinityTopN:              10,
			AffinityInteractionWeight: 0.6,
			MinStabilityEvents:        10,
		},
		Scoring: ScoringConfig{
			BaseScore:   0.3,
			MinScore:    0.2,
			ModelWeight: 0.4,
			TopK:        5,
		},
		Strategy: StrategyConfig{
			Default:      StrategyBalanced,
			BalancedTopK: 3,
		},
		Workers:      0,
		StageTimeout: 5 * time.Minute,
		Seed:         42,
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	switch c.Pricing.Mode {
	case PricingAuto, PricingCatalog, PricingLogInverse, PricingSynthetic:
	default:
		return fmt.Errorf("pricing.mode must be one of auto, catalog, log_inverse, synthetic, got %q", c.Pricing.Mode)
	}
	if c.Pricing.SyntheticBase <= 0 {
		return fmt.Errorf("pricing.synthetic_base must be positive, got %f", c.Pricing.SyntheticBase)
	}
	if c.Pricing.SyntheticSpan < 1 {
		return fmt.Errorf("pricing.synthetic_span must be positive, got %d", c.Pricing.SyntheticSpan)
	}
	if c.Pricing.NullCategoryPrice <= 0 {
		return fmt.Errorf("pricing.null_category_price must be positive, got %f", c.Pricing.NullCategoryPrice)
	}
	if c.Pricing.LogFloorPrice <= 0 {
		return fmt.Errorf("pricing.log_floor_price must be positive, got %f", c.Pricing.LogFloorPrice)
	}

	if c.Profile.MaxUsers < 0 {
		return fmt.Errorf("profile.max_users must be non-negative, got %d", c.Profile.MaxUsers)
	}
	if c.Profile.AffinityTopN < 1 {
		return fmt.Errorf("profile.affinity_top_n must be positive, got %d", c.Profile.AffinityTopN)
	}
	if c.Profile.AffinityInteractionWeight < 0 || c.Profile.AffinityInteractionWeight > 1 {
		return fmt.Errorf("profile.affinity_interaction_weight must be in [0, 1], got %f", c.Profile.AffinityInteractionWeight)
	}
	if c.Profile.MinStabilityEvents < 2 {
		return fmt.Errorf("profile.min_stability_events must be at least 2, got %d", c.Profile.MinStabilityEvents)
	}

	if c.Scoring.BaseScore < 0 || c.Scoring.BaseScore > 1 {
		return fmt.Errorf("scoring.base_score must be in [0, 1], got %f", c.Scoring.BaseScore)
	}
	if c.Scoring.MinScore < 0 || c.Scoring.MinScore > 1 {
		return fmt.Errorf("scoring.min_score must be in [0, 1], got %f", c.Scoring.MinScore)
	}
	if c.Scoring.ModelWeight < 0 || c.Scoring.ModelWeight > 1 {
		return fmt.Errorf("scoring.model_weight must be in [0, 1], got %f", c.Scoring.ModelWeight)
	}
	if c.Scoring.TopK < 1 {
		return fmt.Errorf("scoring.top_k must be positive, got %d", c.Scoring.TopK)
	}

	if ParseStrategy(string(c.Strategy.Default)) != c.Strategy.Default {
		return fmt.Errorf("strategy.default must be a known strategy, got %q", c.Strategy.Default)
	}
	if c.Strategy.BalancedTopK < 1 {
		return fmt.Errorf("strategy.balanced_top_k must be positive, got %d", c.Strategy.BalancedTopK)
	}

	if c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", c.Workers)
	}
	if c.StageTimeout <= 0 {
		return fmt.Errorf("stage_timeout must be positive, got %v", c.StageTimeout)
	}
	return nil
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	// All nested structs contain only value types.
	clone := *c
	return &clone
}
