// Finrec - Financial Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/finrec

package recommend

import (
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	t.Run("scoring defaults", func(t *testing.T) {
		if cfg.Scoring.BaseScore != 0.3 {
			t.Errorf("BaseScore = %f, want 0.3", cfg.Scoring.BaseScore)
		}
		if cfg.Scoring.MinScore != 0.2 {
			t.Errorf("MinScore = %f, want 0.2", cfg.Scoring.MinScore)
		}
		if cfg.Scoring.TopK != 5 {
			t.Errorf("TopK = %d, want 5", cfg.Scoring.TopK)
		}
	})

	t.Run("strategy defaults", func(t *testing.T) {
		if cfg.Strategy.Default != StrategyBalanced {
			t.Errorf("Default = %q, want balanced", cfg.Strategy.Default)
		}
		if cfg.Strategy.BalancedTopK != 3 {
			t.Errorf("BalancedTopK = %d, want 3", cfg.Strategy.BalancedTopK)
		}
	})

	t.Run("seed is set for determinism", func(t *testing.T) {
		if cfg.Seed == 0 {
			t.Error("Seed = 0, want non-zero for determinism")
		}
	})
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		modify    func(*Config)
		wantError bool
	}{
		{name: "valid default", modify: func(c *Config) {}, wantError: false},
		{name: "unknown pricing mode", modify: func(c *Config) { c.Pricing.Mode = "guess" }, wantError: true},
		{name: "zero synthetic span", modify: func(c *Config) { c.Pricing.SyntheticSpan = 0 }, wantError: true},
		{name: "negative max users", modify: func(c *Config) { c.Profile.MaxUsers = -1 }, wantError: true},
		{name: "affinity weight above one", modify: func(c *Config) { c.Profile.AffinityInteractionWeight = 1.5 }, wantError: true},
		{name: "stability threshold too small", modify: func(c *Config) { c.Profile.MinStabilityEvents = 1 }, wantError: true},
		{name: "base score above one", modify: func(c *Config) { c.Scoring.BaseScore = 1.1 }, wantError: true},
		{name: "model weight negative", modify: func(c *Config) { c.Scoring.ModelWeight = -0.1 }, wantError: true},
		{name: "zero top k", modify: func(c *Config) { c.Scoring.TopK = 0 }, wantError: true},
		{name: "unknown default strategy", modify: func(c *Config) { c.Strategy.Default = "growth" }, wantError: true},
		{name: "negative workers", modify: func(c *Config) { c.Workers = -2 }, wantError: true},
		{name: "zero stage timeout", modify: func(c *Config) { c.StageTimeout = 0 }, wantError: true},
		{name: "log inverse mode", modify: func(c *Config) { c.Pricing.Mode = PricingLogInverse }, wantError: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantError {
				t.Errorf("Validate() error = %v, wantError %v", err, tt.wantError)
			}
		})
	}
}

func TestConfig_Clone(t *testing.T) {
	cfg := DefaultConfig()
	clone := cfg.Clone()
	clone.Scoring.TopK = 9
	clone.Pricing.Mode = PricingSynthetic

	if cfg.Scoring.TopK != 5 {
		t.Errorf("original TopK changed to %d", cfg.Scoring.TopK)
	}
	if cfg.Pricing.Mode != PricingAuto {
		t.Errorf("original pricing mode changed to %q", cfg.Pricing.Mode)
	}
}
