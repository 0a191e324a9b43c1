// Finrec - Financial Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/finrec

package profile

import (
	"context"
	"errors"
	"io"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/tomtom215/finrec/internal/logging"
	"github.com/tomtom215/finrec/internal/recommend"
)

var day0 = time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)

func newTestBuilder(mutate func(*recommend.Config)) *Builder {
	cfg := recommend.DefaultConfig()
	cfg.Workers = 4
	if mutate != nil {
		mutate(cfg)
	}
	return NewBuilder(cfg, logging.NewTestLogger(io.Discard))
}

func ev(user, category string, p float64, at time.Time) recommend.EnrichedEvent {
	return recommend.EnrichedEvent{
		InteractionEvent: recommend.InteractionEvent{UserID: user, ItemID: category, Action: recommend.ActionPurchase, Timestamp: at},
		Category:         category,
		Price:            p,
		PriceSource:      recommend.PriceCatalog,
		InCatalog:        true,
	}
}

func TestBuild_ScenarioA(t *testing.T) {
	b := newTestBuilder(nil)
	events := []recommend.EnrichedEvent{
		ev("u1", "electronics", 1000, day0),
		ev("u1", "electronics", 2000, day0.Add(time.Hour)),
		ev("u1", "electronics", 3000, day0.Add(2*time.Hour)),
	}

	profiles, report, err := b.BuildEnriched(context.Background(), nil, events, recommend.NewDiagnostics())
	if err != nil {
		t.Fatalf("BuildEnriched: %v", err)
	}
	if len(profiles) != 1 || report.Profiled != 1 {
		t.Fatalf("profiles = %d, report = %+v", len(profiles), report)
	}
	p := profiles[0]
	if p.TotalSpent != 6000 {
		t.Errorf("TotalSpent = %f, want 6000", p.TotalSpent)
	}
	if p.AvgTransactionValue != 2000 {
		t.Errorf("AvgTransactionValue = %f, want 2000", p.AvgTransactionValue)
	}
	if p.MaxTransaction != 3000 {
		t.Errorf("MaxTransaction = %f, want 3000", p.MaxTransaction)
	}
	if p.SpendingLevel != recommend.SpendingMedium {
		t.Errorf("SpendingLevel = %s, want medium", p.SpendingLevel)
	}
	want := []recommend.CategoryScore{{Category: "electronics", Score: 1.0}}
	if !reflect.DeepEqual(p.CategoryAffinity, want) {
		t.Errorf("CategoryAffinity = %v, want %v", p.CategoryAffinity, want)
	}
	// stddev of [1000,2000,3000] with ddof=1 is 1000
	if math.Abs(p.SpendingConsistency-0.5) > 1e-9 {
		t.Errorf("SpendingConsistency = %f, want 0.5", p.SpendingConsistency)
	}
	if p.PreferenceStability != 0.5 {
		t.Errorf("PreferenceStability = %f, want neutral 0.5", p.PreferenceStability)
	}
	if p.CategoryDiversity != 1.0/3.0 {
		t.Errorf("CategoryDiversity = %f, want 1/3", p.CategoryDiversity)
	}
}

func TestBuild_ExcludesRosterUsersWithoutEvents(t *testing.T) {
	b := newTestBuilder(nil)
	users := []recommend.User{{UserID: "active"}, {UserID: "ghost"}}
	events := []recommend.EnrichedEvent{
		ev("active", "travel", 500, day0),
		ev("stranger", "travel", 500, day0),
	}
	diag := recommend.NewDiagnostics()

	profiles, report, err := b.BuildEnriched(context.Background(), users, events, diag)
	if err != nil {
		t.Fatalf("BuildEnriched: %v", err)
	}
	if len(profiles) != 1 || profiles[0].UserID != "active" {
		t.Fatalf("profiles = %+v, want only active", profiles)
	}
	if report.Excluded != 1 {
		t.Errorf("Excluded = %d, want 1", report.Excluded)
	}
	for _, p := range profiles {
		if p.TotalInteractions == 0 {
			t.Errorf("phantom profile for %s", p.UserID)
		}
	}
}

func TestBuild_SkipsFailingUser(t *testing.T) {
	b := newTestBuilder(nil)
	// Two purchases at 1e308 overflow the total to +Inf.
	events := []recommend.EnrichedEvent{
		ev("whale", "yachts", 1e308, day0),
		ev("whale", "yachts", 1e308, day0.Add(time.Hour)),
		ev("regular", "groceries", 40, day0),
		ev("regular", "groceries", 60, day0.Add(time.Hour)),
	}
	diag := recommend.NewDiagnostics()

	profiles, report, err := b.BuildEnriched(context.Background(), nil, events, diag)
	if err != nil {
		t.Fatalf("BuildEnriched: %v", err)
	}
	if len(profiles) != 1 || profiles[0].UserID != "regular" {
		t.Fatalf("profiles = %+v, want only regular", profiles)
	}
	if report.Profiled != 1 || report.Skipped != 1 {
		t.Errorf("report = %+v, want profiled=1 skipped=1", report)
	}
	if report.Status != recommend.StatusDegraded {
		t.Errorf("Status = %s, want degraded", report.Status)
	}
	if diag.Count(recommend.StageProfile, recommend.KindEntitySkipped) != 1 {
		t.Errorf("diagnostics = %+v, want one entity_skipped", diag.Items())
	}
}

func TestSafeProfile_NonFinite(t *testing.T) {
	b := newTestBuilder(nil)
	ue := userEvents{
		user: recommend.User{UserID: "whale"},
		events: []recommend.EnrichedEvent{
			ev("whale", "yachts", 1e308, day0),
			ev("whale", "yachts", 1e308, day0.Add(time.Hour)),
		},
	}
	if _, _, err := b.safeProfile(ue); !errors.Is(err, ErrNonFinite) {
		t.Errorf("safeProfile() error = %v, want ErrNonFinite", err)
	}
}

func TestBuild_EmptyEvents(t *testing.T) {
	b := newTestBuilder(nil)
	diag := recommend.NewDiagnostics()

	profiles, report, err := b.BuildEnriched(context.Background(), []recommend.User{{UserID: "u1"}}, nil, diag)
	if err != nil {
		t.Fatalf("BuildEnriched: %v", err)
	}
	if profiles == nil || len(profiles) != 0 {
		t.Errorf("profiles = %v, want empty", profiles)
	}
	if report.Status != recommend.StatusEmpty {
		t.Errorf("Status = %s, want empty", report.Status)
	}
	if !diag.Has(recommend.ErrNoEvents) {
		t.Error("expected ErrNoEvents diagnostic")
	}
}

func TestBuild_MissingTimestampsUseNeutralDefaults(t *testing.T) {
	b := newTestBuilder(nil)
	events := []recommend.EnrichedEvent{
		ev("u1", "fuel", 100, time.Time{}),
		ev("u1", "fuel", 200, day0),
	}

	profiles, report, err := b.BuildEnriched(context.Background(), nil, events, nil)
	if err != nil {
		t.Fatalf("BuildEnriched: %v", err)
	}
	p := profiles[0]
	if p.TemporalConsistency != 0.5 || p.ActivityDurationDays != 0 {
		t.Errorf("temporal = (%f, %d), want (0.5, 0)", p.TemporalConsistency, p.ActivityDurationDays)
	}
	if report.Defaulted != 1 || report.Status != recommend.StatusDegraded {
		t.Errorf("report = %+v, want one defaulted and degraded status", report)
	}
}

func TestBuild_NoTimestampsIsUnknownFrequency(t *testing.T) {
	b := newTestBuilder(nil)
	events := []recommend.EnrichedEvent{ev("u1", "fuel", 100, time.Time{})}

	profiles, _, _ := b.BuildEnriched(context.Background(), nil, events, nil)
	if profiles[0].InteractionFrequency != recommend.FrequencyUnknown {
		t.Errorf("InteractionFrequency = %s, want unknown", profiles[0].InteractionFrequency)
	}
}

func TestBuild_InvariantsHoldForAllProfiles(t *testing.T) {
	b := newTestBuilder(nil)
	var events []recommend.EnrichedEvent
	cats := []string{"travel", "", "groceries", "null", "fuel", "travel"}
	for u := 0; u < 20; u++ {
		user := string(rune('a' + u))
		for i := 0; i <= u; i++ {
			e := ev(user, cats[i%len(cats)], float64(i*731%5000), day0.Add(time.Duration(i*u)*time.Hour))
			if i%4 == 3 {
				e.InCatalog = false
				e.Price = 0
				e.Category = ""
			}
			events = append(events, e)
		}
	}

	profiles, _, err := b.BuildEnriched(context.Background(), nil, events, nil)
	if err != nil {
		t.Fatalf("BuildEnriched: %v", err)
	}
	if len(profiles) != 20 {
		t.Fatalf("len(profiles) = %d, want 20", len(profiles))
	}
	for i := range profiles {
		p := &profiles[i]
		if p.ProfileCompleteness < 0 || p.ProfileCompleteness > 1 {
			t.Errorf("%s: completeness = %f", p.UserID, p.ProfileCompleteness)
		}
		if !finite(p) {
			t.Errorf("%s: non-finite field in %+v", p.UserID, p)
		}
		if len(p.CategoryAffinity) > 10 {
			t.Errorf("%s: affinity has %d entries", p.UserID, len(p.CategoryAffinity))
		}
		for _, c := range p.CategoryAffinity {
			if !recommend.IsKnownCategory(c.Category) {
				t.Errorf("%s: null category %q in affinity", p.UserID, c.Category)
			}
		}
	}
}

func TestBuild_Deterministic(t *testing.T) {
	b := newTestBuilder(func(c *recommend.Config) { c.Profile.MaxUsers = 5 })
	var events []recommend.EnrichedEvent
	for u := 0; u < 12; u++ {
		for i := 0; i < 4; i++ {
			events = append(events, ev(string(rune('a'+u)), "cat", float64(100*(i+1)), day0.Add(time.Duration(i)*24*time.Hour)))
		}
	}

	first, r1, _ := b.BuildEnriched(context.Background(), nil, events, nil)
	second, r2, _ := b.BuildEnriched(context.Background(), nil, events, nil)
	if !reflect.DeepEqual(first, second) {
		t.Error("repeated builds differ")
	}
	if len(first) != 5 || r1.Sampled != 7 || r2.Sampled != 7 {
		t.Errorf("len = %d, sampled = %d, want 5 and 7", len(first), r1.Sampled)
	}
}

func TestBuild_ContextCanceled(t *testing.T) {
	b := newTestBuilder(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := b.BuildEnriched(ctx, nil, []recommend.EnrichedEvent{ev("u1", "x", 1, day0)}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestPreferenceStability(t *testing.T) {
	var events []recommend.EnrichedEvent
	for i := 0; i < 10; i++ {
		c := "a"
		if i >= 5 {
			c = "b"
		}
		if i == 9 {
			c = "a"
		}
		events = append(events, ev("u", c, 1, day0.Add(time.Duration(i)*time.Hour)))
	}
	// first half {a}, second half {a, b}: jaccard 1/2
	if got := preferenceStability(events, 10); got != 0.5 {
		t.Errorf("preferenceStability = %f, want 0.5", got)
	}

	var uncategorized []recommend.EnrichedEvent
	for i := 0; i < 10; i++ {
		uncategorized = append(uncategorized, ev("u", "", 1, day0))
	}
	if got := preferenceStability(uncategorized, 10); got != 0.5 {
		t.Errorf("preferenceStability(empty union) = %f, want 0.5", got)
	}
}

func TestTemporalMetrics(t *testing.T) {
	events := []recommend.EnrichedEvent{
		ev("u", "a", 1, day0),
		ev("u", "a", 1, day0.Add(24*time.Hour)),
		ev("u", "a", 1, day0.Add(48*time.Hour)),
	}
	consistency, duration, ok := temporalMetrics(events)
	if !ok || consistency != 1 || duration != 2 {
		t.Errorf("temporalMetrics = (%f, %d, %v), want (1, 2, true)", consistency, duration, ok)
	}

	irregular := []recommend.EnrichedEvent{
		ev("u", "a", 1, day0),
		ev("u", "a", 1, day0.Add(time.Hour)),
		ev("u", "a", 1, day0.Add(73*time.Hour)),
	}
	consistency, _, _ = temporalMetrics(irregular)
	if consistency >= 1 || consistency <= 0 {
		t.Errorf("irregular consistency = %f, want in (0, 1)", consistency)
	}
}

func TestCompleteness(t *testing.T) {
	var events []recommend.EnrichedEvent
	for i := 0; i < 5; i++ {
		c := "a"
		if i%2 == 0 {
			c = "b"
		}
		events = append(events, ev("u", c, 10, day0.Add(time.Duration(i)*time.Minute)))
	}
	if got := completeness(events, 50, 2); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("completeness = %f, want 1.0", got)
	}
	if got := completeness(events[:1], 0, 1); got != 0 {
		t.Errorf("completeness(single) = %f, want 0", got)
	}
}
