// Finrec - Financial Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/finrec

package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/tomtom215/finrec/internal/recommend"
)

func TestDefault(t *testing.T) {
	products := Default()
	if len(products) != 37 {
		t.Errorf("len = %d, want 37", len(products))
	}
	if err := Validate(products); err != nil {
		t.Fatalf("built-in catalog invalid: %v", err)
	}
	if got := len(Types(products)); got != 7 {
		t.Errorf("types = %d, want 7", got)
	}

	// Callers may mutate their copy.
	products[0].Name = "changed"
	if Default()[0].Name == "changed" {
		t.Error("Default must return a fresh copy")
	}
}

func TestDefault_RulesEvaluate(t *testing.T) {
	p := &recommend.UserProfile{
		TotalSpent:           60000,
		SpendingLevel:        recommend.SpendingVeryHigh,
		InteractionFrequency: recommend.FrequencyHigh,
		PreferenceStability:  0.8,
	}
	for _, prod := range Default() {
		if prod.ID != "premium_card_1" {
			continue
		}
		fit, matched, evaluable := recommend.TargetFit(prod.Target, p)
		if fit != 1 || len(matched) != 3 || evaluable != 3 {
			t.Errorf("premium card fit = %v matched = %d evaluable = %d", fit, len(matched), evaluable)
		}
		return
	}
	t.Fatal("premium_card_1 missing")
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    int
		wantErr bool
	}{
		{
			name: "flat array",
			data: `[{"id":"a","name":"A","type":"deposits","business_value":0.5,
				"target":[{"kind":"min_frequency","frequency":"medium"}]}]`,
			want: 1,
		},
		{
			name: "grouped by type",
			data: `{"credit_cards":[{"id":"c1","name":"C1","business_value":0.8}],
				"deposits":[{"id":"d1","name":"D1","business_value":0.6},{"id":"d2","name":"D2","business_value":0.7}]}`,
			want: 3,
		},
		{name: "empty", data: "  ", wantErr: true},
		{name: "no products", data: "[]", wantErr: true},
		{name: "duplicate id", data: `[{"id":"a","name":"A","type":"t"},{"id":"a","name":"B","type":"t"}]`, wantErr: true},
		{name: "value out of range", data: `[{"id":"a","name":"A","type":"t","business_value":1.5}]`, wantErr: true},
		{name: "missing type", data: `[{"id":"a","name":"A"}]`, wantErr: true},
		{name: "malformed", data: `[{"id":`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse([]byte(tt.data))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("len = %d, want %d", len(got), tt.want)
			}
		})
	}
}

func TestParse_GroupedSetsType(t *testing.T) {
	got, err := Parse([]byte(`{"credit_cards":[{"id":"c1","name":"C1","business_value":0.8}]}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got[0].Type != "credit_cards" {
		t.Errorf("type = %q, want credit_cards", got[0].Type)
	}
}

func TestParse_RuleLevels(t *testing.T) {
	got, err := Parse([]byte(`[{"id":"a","name":"A","type":"t","business_value":0.5,
		"target":[{"kind":"min_spending_level","level":"high"},{"kind":"min_frequency","frequency":"medium"}]}]`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	rules := got[0].Target
	if rules[0].Level != recommend.SpendingHigh || rules[1].Frequency != recommend.FrequencyMedium {
		t.Errorf("rules = %+v", rules)
	}
}

func TestLoad(t *testing.T) {
	products, err := Load("")
	if err != nil || len(products) != 37 {
		t.Fatalf("Load(\"\") = %d, %v", len(products), err)
	}

	path := filepath.Join(t.TempDir(), "catalog.json")
	if err := os.WriteFile(path, []byte(`[{"id":"x","name":"X","type":"deposits","business_value":0.4}]`), 0o600); err != nil {
		t.Fatal(err)
	}
	products, err = Load(path)
	if err != nil || len(products) != 1 {
		t.Fatalf("Load(file) = %d, %v", len(products), err)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}

	bad := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(bad, []byte(`[]`), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(bad); !errors.Is(err, ErrInvalidCatalog) {
		t.Errorf("err = %v, want ErrInvalidCatalog", err)
	}
}
