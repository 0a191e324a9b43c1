// Finrec - Financial Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/finrec

package strategy

import (
	"fmt"
	"testing"

	"github.com/rs/zerolog"

	"github.com/tomtom215/finrec/internal/recommend"
)

func newTestOptimizer() *Optimizer {
	return NewOptimizer(recommend.DefaultConfig().Strategy, zerolog.Nop())
}

func cand(user, product string, final, bv float64) recommend.ScoredCandidate {
	return recommend.ScoredCandidate{
		UserID:         user,
		ProductID:      product,
		ProductName:    product,
		ProductType:    "credit_cards",
		BaseMatchScore: final,
		FinalScore:     final,
		BusinessValue:  bv,
		Reasoning:      []string{"reason"},
	}
}

func TestRevenue_PicksHighValueProduct(t *testing.T) {
	candidates := []recommend.ScoredCandidate{
		cand("u1", "A", 0.9, 0.2),
		cand("u1", "B", 0.5, 0.9),
	}

	set := newTestOptimizer().Optimize("revenue", candidates)
	if set.Strategy != recommend.StrategyRevenue {
		t.Errorf("strategy = %s", set.Strategy)
	}
	if len(set.Recommendations) != 1 {
		t.Fatalf("len = %d, want 1", len(set.Recommendations))
	}
	got := set.Recommendations[0]
	if got.ProductID != "B" {
		t.Errorf("selected %s, want B", got.ProductID)
	}
	if got.FinalScore != 0.74 {
		t.Errorf("final = %v, want revenue score 0.74", got.FinalScore)
	}
	if candidates[1].FinalScore != 0.5 {
		t.Error("input candidates must not be mutated")
	}
}

func TestBalanced_TopThreeOrdered(t *testing.T) {
	candidates := []recommend.ScoredCandidate{
		cand("u1", "P1", 0.9, 0.5),
		cand("u1", "P2", 0.8, 0.5),
		cand("u1", "P3", 0.7, 0.5),
		cand("u1", "P4", 0.6, 0.5),
		cand("u1", "P5", 0.5, 0.5),
	}

	set := newTestOptimizer().Optimize("balanced", candidates)
	want := []struct {
		id    string
		score float64
	}{{"P1", 0.74}, {"P2", 0.68}, {"P3", 0.62}}

	if len(set.Recommendations) != len(want) {
		t.Fatalf("len = %d, want 3", len(set.Recommendations))
	}
	for i, w := range want {
		got := set.Recommendations[i]
		if got.ProductID != w.id || got.FinalScore != w.score {
			t.Errorf("rec[%d] = %s/%v, want %s/%v", i, got.ProductID, got.FinalScore, w.id, w.score)
		}
	}
}

func TestCoverage_OnePerUser(t *testing.T) {
	var candidates []recommend.ScoredCandidate
	for u := 0; u < 4; u++ {
		for p := 0; p < 5; p++ {
			candidates = append(candidates, cand(fmt.Sprintf("u%d", u), fmt.Sprintf("P%d", p), 0.3+0.1*float64(p), 0.5))
		}
	}

	for _, label := range []string{"coverage", "engagement"} {
		t.Run(label, func(t *testing.T) {
			set := newTestOptimizer().Optimize(label, candidates)
			if len(set.Recommendations) != 4 {
				t.Fatalf("len = %d, want 4", len(set.Recommendations))
			}
			for i, r := range set.Recommendations {
				if r.UserID != fmt.Sprintf("u%d", i) {
					t.Errorf("rec[%d] user = %s, users must keep first-appearance order", i, r.UserID)
				}
				if r.ProductID != "P4" {
					t.Errorf("rec[%d] product = %s, want P4", i, r.ProductID)
				}
				if r.FinalScore != 0.3+0.1*4 {
					t.Errorf("coverage must not rewrite final score, got %v", r.FinalScore)
				}
			}
		})
	}
}

func TestOptimize_Invariants(t *testing.T) {
	var candidates []recommend.ScoredCandidate
	for u := 0; u < 6; u++ {
		for p := 0; p < 5; p++ {
			final := 0.25 + 0.13*float64((u*7+p*3)%6)
			bv := 0.1 + 0.15*float64((u+p)%6)
			candidates = append(candidates, cand(fmt.Sprintf("u%d", u), fmt.Sprintf("P%d", p), final, bv))
		}
	}

	opt := newTestOptimizer()
	for _, s := range recommend.AllStrategies() {
		t.Run(string(s), func(t *testing.T) {
			set := opt.Apply(s, candidates)
			perUser := map[string]int{}
			seen := map[string]bool{}
			last := ""
			for i, r := range set.Recommendations {
				if r.UserID != last {
					if seen[r.UserID] {
						t.Fatalf("user %s is not contiguous", r.UserID)
					}
					seen[r.UserID] = true
					last = r.UserID
				} else if r.FinalScore > set.Recommendations[i-1].FinalScore && s != recommend.StrategyCoverage && s != recommend.StrategyEngagement {
					t.Errorf("group for %s not descending", r.UserID)
				}
				perUser[r.UserID]++
			}
			for u, n := range perUser {
				if n > opt.Cap(s) {
					t.Errorf("user %s has %d recs, cap %d", u, n, opt.Cap(s))
				}
			}
			if len(perUser) != 6 {
				t.Errorf("users covered = %d, want 6", len(perUser))
			}

			again := opt.Apply(s, candidates)
			for i := range set.Recommendations {
				if set.Recommendations[i].ProductID != again.Recommendations[i].ProductID ||
					set.Recommendations[i].FinalScore != again.Recommendations[i].FinalScore {
					t.Fatal("optimization is not deterministic")
				}
			}
		})
	}
}

func TestOptimize_UnknownLabelAndEmpty(t *testing.T) {
	opt := newTestOptimizer()

	set := opt.Optimize("maximize-everything", []recommend.ScoredCandidate{cand("u1", "A", 0.5, 0.5)})
	if set.Strategy != recommend.StrategyBalanced {
		t.Errorf("strategy = %s, want balanced", set.Strategy)
	}

	empty := opt.Optimize("coverage", nil)
	if empty.Recommendations == nil || len(empty.Recommendations) != 0 {
		t.Errorf("want empty non-nil recommendations, got %v", empty.Recommendations)
	}
}

func TestOptimizedSet_ForUser(t *testing.T) {
	set := newTestOptimizer().Optimize("balanced", []recommend.ScoredCandidate{
		cand("u1", "A", 0.5, 0.5),
		cand("u2", "B", 0.6, 0.5),
		cand("u1", "C", 0.7, 0.5),
	})
	got := set.ForUser("u1")
	if len(got) != 2 || got[0].ProductID != "C" {
		t.Errorf("ForUser(u1) = %+v", got)
	}
}
