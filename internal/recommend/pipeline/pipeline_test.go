// Finrec - Financial Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/finrec

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/finrec/internal/logging"
	"github.com/tomtom215/finrec/internal/metrics"
	"github.com/tomtom215/finrec/internal/recommend"
	"github.com/tomtom215/finrec/internal/recommend/catalog"
	"github.com/tomtom215/finrec/internal/recommend/strategy"
)

var day0 = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func price(v float64) *float64 { return &v }

type fakeStore struct {
	mu        sync.Mutex
	runs      []*Result
	err       error
	deadlines []time.Time
	ctxErrs   []error
}

func (s *fakeStore) SaveRun(ctx context.Context, r *Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	deadline, _ := ctx.Deadline()
	s.deadlines = append(s.deadlines, deadline)
	s.ctxErrs = append(s.ctxErrs, ctx.Err())
	if s.err != nil {
		return s.err
	}
	s.runs = append(s.runs, r)
	return nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	runIDs []string
}

func (n *fakeNotifier) RunCompleted(_ context.Context, r *Result) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.runIDs = append(n.runIDs, r.RunID)
	return nil
}

type failingScorer struct{}

func (failingScorer) Predict(context.Context, *recommend.UserProfile, *recommend.ProductDefinition) (float64, error) {
	return 0, errors.New("model unavailable")
}

type constScorer float64

func (c constScorer) Predict(context.Context, *recommend.UserProfile, *recommend.ProductDefinition) (float64, error) {
	return float64(c), nil
}

func newTestPipeline(t *testing.T, mutate func(*recommend.Config), opts ...Option) *Pipeline {
	t.Helper()
	cfg := recommend.DefaultConfig()
	cfg.Workers = 4
	cfg.Pricing.Mode = recommend.PricingCatalog
	if mutate != nil {
		mutate(cfg)
	}
	p, err := New(cfg, catalog.Default(), logging.NewTestLogger(io.Discard), opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return p
}

// batch builds n users with varied histories over a small retail catalog.
func batch(n int) Input {
	categories := []string{"electronics", "travel", "groceries", "sports", "medicine"}
	var items []recommend.CatalogItem
	for i, c := range categories {
		for j := 0; j < 4; j++ {
			items = append(items, recommend.CatalogItem{
				ItemID:   fmt.Sprintf("%s-%d", c, j),
				Category: c,
				Price:    price(float64(500 + 750*i + 300*j)),
			})
		}
	}

	var users []recommend.User
	var events []recommend.InteractionEvent
	for u := 0; u < n; u++ {
		id := fmt.Sprintf("user-%03d", u)
		users = append(users, recommend.User{UserID: id})
		count := 3 + (u*7)%25
		for e := 0; e < count; e++ {
			item := items[(u*3+e*5)%len(items)]
			events = append(events, recommend.InteractionEvent{
				UserID:    id,
				ItemID:    item.ItemID,
				Action:    recommend.ActionPurchase,
				Timestamp: day0.Add(time.Duration(u*13+e*9) * time.Hour),
			})
		}
	}
	return Input{Users: users, Events: events, Catalog: items}
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := recommend.DefaultConfig()
	cfg.Scoring.TopK = 0
	if _, err := New(cfg, catalog.Default(), logging.NewTestLogger(io.Discard)); err == nil {
		t.Fatal("expected error for invalid config")
	}
}

func TestRun_ScenarioA(t *testing.T) {
	p := newTestPipeline(t, nil)
	in := Input{
		Catalog: []recommend.CatalogItem{
			{ItemID: "tv", Category: "electronics", Price: price(1000)},
			{ItemID: "phone", Category: "electronics", Price: price(2000)},
			{ItemID: "laptop", Category: "electronics", Price: price(3000)},
		},
		Events: []recommend.InteractionEvent{
			{UserID: "u1", ItemID: "tv", Action: recommend.ActionPurchase, Timestamp: day0},
			{UserID: "u1", ItemID: "phone", Action: recommend.ActionPurchase, Timestamp: day0.Add(time.Hour)},
			{UserID: "u1", ItemID: "laptop", Action: recommend.ActionPurchase, Timestamp: day0.Add(2 * time.Hour)},
		},
	}

	res, err := p.Run(context.Background(), in)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(res.Profiles) != 1 {
		t.Fatalf("profiles = %d, want 1", len(res.Profiles))
	}
	prof := res.Profiles[0]
	if prof.TotalSpent != 6000 || prof.AvgTransactionValue != 2000 {
		t.Errorf("spend = %v / %v, want 6000 / 2000", prof.TotalSpent, prof.AvgTransactionValue)
	}
	if prof.SpendingLevel != recommend.SpendingMedium {
		t.Errorf("SpendingLevel = %s, want medium", prof.SpendingLevel)
	}
	want := []recommend.CategoryScore{{Category: "electronics", Score: 1}}
	if !reflect.DeepEqual(prof.CategoryAffinity, want) {
		t.Errorf("CategoryAffinity = %v, want %v", prof.CategoryAffinity, want)
	}

	if res.Strategy != recommend.StrategyBalanced {
		t.Errorf("Strategy = %s, want balanced default", res.Strategy)
	}
	recs := res.Recommendations.Recommendations
	if len(recs) > 3 {
		t.Fatalf("recommendations = %d, want at most 3", len(recs))
	}
	for i := 1; i < len(recs); i++ {
		if recs[i].FinalScore > recs[i-1].FinalScore {
			t.Errorf("recommendations not sorted: %v > %v", recs[i].FinalScore, recs[i-1].FinalScore)
		}
	}
	if cov := res.Metrics.Coverage.UserCoverageRate; cov < 0 || cov > 1 {
		t.Errorf("coverage = %v, want within [0,1]", cov)
	}
	if res.StageStatus(recommend.StageScore) == recommend.StatusDegraded {
		t.Errorf("score stage = %s without a learned scorer", res.StageStatus(recommend.StageScore))
	}
	if p.Latest() != res {
		t.Error("Latest() should return the completed run")
	}
}

func TestRun_HighValueScoresStayInRange(t *testing.T) {
	p := newTestPipeline(t, nil)
	in := Input{Catalog: []recommend.CatalogItem{
		{ItemID: "flight", Category: "travel", Price: price(12000)},
		{ItemID: "watch", Category: "luxury", Price: price(15000)},
	}}
	for d := 0; d < 200; d += 25 {
		for k := 0; k < 4; k++ {
			item := "flight"
			if k%2 == 1 {
				item = "watch"
			}
			in.Events = append(in.Events, recommend.InteractionEvent{
				UserID: "vip", ItemID: item, Action: recommend.ActionPurchase,
				Timestamp: day0.Add(time.Duration(d)*24*time.Hour + time.Duration(k)*time.Hour),
			})
		}
	}

	res, err := p.Run(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	if res.Profiles[0].SpendingLevel != recommend.SpendingVeryHigh {
		t.Fatalf("SpendingLevel = %s, want very_high", res.Profiles[0].SpendingLevel)
	}
	for _, c := range res.Candidates {
		if c.FinalScore < 0 || c.FinalScore > 1 || c.BaseMatchScore > 1 {
			t.Errorf("%s score %v outside [0,1]", c.ProductID, c.FinalScore)
		}
	}
}

func TestRun_RevenueStrategyRescores(t *testing.T) {
	p := newTestPipeline(t, nil)
	in := batch(12)
	in.Strategy = "revenue"

	res, err := p.Run(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	if res.Strategy != recommend.StrategyRevenue {
		t.Fatalf("Strategy = %s", res.Strategy)
	}

	orig := make(map[string]recommend.ScoredCandidate)
	for _, c := range res.Candidates {
		orig[c.UserID+"/"+c.ProductID] = c
	}
	perUser := make(map[string]int)
	for _, r := range res.Recommendations.Recommendations {
		perUser[r.UserID]++
		c := orig[r.UserID+"/"+r.ProductID]
		want := math.Round(strategy.RevenueScore(&c)*1000) / 1000
		if r.FinalScore != want {
			t.Errorf("%s/%s revenue score = %v, want %v", r.UserID, r.ProductID, r.FinalScore, want)
		}
	}
	for u, n := range perUser {
		if n != 1 {
			t.Errorf("user %s has %d recommendations, want 1", u, n)
		}
	}
}

func TestRun_UnknownStrategyFallsBackToBalanced(t *testing.T) {
	p := newTestPipeline(t, nil)

	in := batch(10)
	in.Strategy = "maximize-synergy"
	unknown, err := p.Run(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	in.Strategy = "balanced"
	balanced, err := p.Run(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}

	if unknown.Strategy != recommend.StrategyBalanced {
		t.Errorf("Strategy = %s, want balanced", unknown.Strategy)
	}
	if !reflect.DeepEqual(unknown.Recommendations, balanced.Recommendations) {
		t.Error("unknown label should produce the balanced set")
	}
}

func TestRun_AutoUsesComparisonWinner(t *testing.T) {
	p := newTestPipeline(t, nil)
	in := batch(15)
	in.Strategy = StrategyAuto

	res, err := p.Run(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	if res.Strategy != res.Comparison.Best {
		t.Errorf("Strategy = %s, comparison best = %s", res.Strategy, res.Comparison.Best)
	}
	if len(res.Comparison.Reports) == 0 {
		t.Error("comparison should evaluate strategies")
	}
}

func TestRun_Idempotent(t *testing.T) {
	p := newTestPipeline(t, nil)
	in := batch(25)

	first, err := p.Run(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	second, err := p.Run(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}

	if first.RunID == second.RunID {
		t.Error("each run needs its own ID")
	}
	if !reflect.DeepEqual(first.Profiles, second.Profiles) {
		t.Error("profiles differ between identical runs")
	}
	if !reflect.DeepEqual(first.Candidates, second.Candidates) {
		t.Error("candidates differ between identical runs")
	}
	if !reflect.DeepEqual(first.Recommendations, second.Recommendations) {
		t.Error("recommendations differ between identical runs")
	}
	if !reflect.DeepEqual(first.Metrics, second.Metrics) {
		t.Error("metrics differ between identical runs")
	}
}

func TestRun_Invariants(t *testing.T) {
	p := newTestPipeline(t, nil)
	res, err := p.Run(context.Background(), batch(40))
	if err != nil {
		t.Fatal(err)
	}

	for _, prof := range res.Profiles {
		if prof.ProfileCompleteness < 0 || prof.ProfileCompleteness > 1 {
			t.Errorf("%s completeness = %v", prof.UserID, prof.ProfileCompleteness)
		}
	}
	perUser := make(map[string][]float64)
	for _, c := range res.Candidates {
		perUser[c.UserID] = append(perUser[c.UserID], c.FinalScore)
	}
	for u, scores := range perUser {
		if len(scores) > 5 {
			t.Errorf("user %s has %d candidates, want <= 5", u, len(scores))
		}
		for i := 1; i < len(scores); i++ {
			if scores[i] > scores[i-1] {
				t.Errorf("user %s candidates not sorted", u)
			}
		}
	}
	if !res.Validation.Valid() {
		t.Errorf("validation issues: %+v", res.Validation.Issues)
	}
}

func TestRun_EmptyInput(t *testing.T) {
	p := newTestPipeline(t, nil)

	res, err := p.Run(context.Background(), Input{})
	if err != nil {
		t.Fatalf("Run() error = %v, empty input must not fail", err)
	}
	if res.Status() != recommend.StatusEmpty {
		t.Errorf("Status() = %s, want empty", res.Status())
	}
	if len(res.Profiles) != 0 || len(res.Recommendations.Recommendations) != 0 {
		t.Error("empty input should yield empty collections")
	}
	if res.Metrics == nil || res.Metrics.Overall.Rating != "poor" {
		t.Errorf("metrics = %+v, want the zero report", res.Metrics)
	}
	if res.Comparison.Best != recommend.StrategyBalanced {
		t.Errorf("best = %s, want balanced", res.Comparison.Best)
	}

	found := false
	for _, d := range res.Diagnostics {
		if errors.Is(d.Err, recommend.ErrNoEvents) {
			found = true
		}
	}
	if !found {
		t.Error("expected a no-events diagnostic")
	}
}

func TestRun_ScorerFallbackDegrades(t *testing.T) {
	p := newTestPipeline(t, nil, WithScorer(failingScorer{}))
	res, err := p.Run(context.Background(), batch(5))
	if err != nil {
		t.Fatal(err)
	}
	if res.StageStatus(recommend.StageScore) != recommend.StatusDegraded {
		t.Errorf("score stage = %s, want degraded", res.StageStatus(recommend.StageScore))
	}
	if res.ScoreReport.TotalFallbacks() == 0 {
		t.Error("expected fallbacks to be counted")
	}
	if len(res.Recommendations.Recommendations) == 0 {
		t.Error("rule scores should still produce recommendations")
	}
}

func TestSetScorer(t *testing.T) {
	p := newTestPipeline(t, nil)
	in := batch(5)

	plain, err := p.Run(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	p.SetScorer(constScorer(1))
	blended, err := p.Run(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}

	if plain.ScoreReport.Enhanced != 0 {
		t.Errorf("Enhanced = %d without a scorer", plain.ScoreReport.Enhanced)
	}
	if blended.ScoreReport.Enhanced == 0 {
		t.Error("swapped-in scorer was not used")
	}

	p.SetScorer(nil)
	again, err := p.Run(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(plain.Candidates, again.Candidates) {
		t.Error("removing the scorer should restore rule-only scores")
	}
}

func TestRun_Canceled(t *testing.T) {
	p := newTestPipeline(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := p.Run(ctx, batch(10))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
	if res != nil {
		t.Error("canceled run should not return a result")
	}
}

func TestTryRun_Busy(t *testing.T) {
	p := newTestPipeline(t, nil)
	p.sem <- struct{}{}

	if _, err := p.TryRun(context.Background(), batch(2)); !errors.Is(err, ErrRunInProgress) {
		t.Errorf("TryRun() error = %v, want ErrRunInProgress", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := p.Run(ctx, batch(2)); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Run() error = %v, want deadline exceeded while waiting", err)
	}

	<-p.sem
	if _, err := p.TryRun(context.Background(), batch(2)); err != nil {
		t.Errorf("TryRun() error = %v after release", err)
	}
}

func TestRun_DeliversToStoreAndNotifier(t *testing.T) {
	store := &fakeStore{}
	notifier := &fakeNotifier{}
	p := newTestPipeline(t, nil, WithStore(store), WithNotifier(notifier))

	res, err := p.Run(context.Background(), batch(3))
	if err != nil {
		t.Fatal(err)
	}
	if len(store.runs) != 1 || store.runs[0] != res || !res.Persisted {
		t.Errorf("store runs = %d, persisted = %v", len(store.runs), res.Persisted)
	}
	if len(notifier.runIDs) != 1 || notifier.runIDs[0] != res.RunID {
		t.Errorf("notifier = %v", notifier.runIDs)
	}
}

func TestRun_StoreFailureDoesNotFailRun(t *testing.T) {
	store := &fakeStore{err: errors.New("disk full")}
	p := newTestPipeline(t, nil, WithStore(store))

	res, err := p.Run(context.Background(), batch(3))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Persisted {
		t.Error("Persisted should be false when the store fails")
	}
}

func TestRun_LatestIsSafeDuringRuns(t *testing.T) {
	p := newTestPipeline(t, nil, WithStore(&fakeStore{}))

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
			}
			if r := p.Latest(); r != nil && !r.Persisted {
				t.Error("Latest() published a run before it was persisted")
				return
			}
		}
	}()

	for i := 0; i < 20; i++ {
		if _, err := p.Run(context.Background(), batch(2)); err != nil {
			close(done)
			wg.Wait()
			t.Fatalf("Run() error = %v", err)
		}
	}
	close(done)
	wg.Wait()

	if r := p.Latest(); r == nil || !r.Persisted {
		t.Errorf("Latest() = %+v, want a persisted run", r)
	}
}

func TestRun_DeliveryHasOwnDeadline(t *testing.T) {
	store := &fakeStore{}
	p := newTestPipeline(t, func(c *recommend.Config) { c.StageTimeout = 5 * time.Second },
		WithStore(store), WithDeliveryTimeout(time.Hour))

	before := time.Now()
	res, err := p.Run(context.Background(), batch(3))
	if err != nil {
		t.Fatal(err)
	}
	if !res.Persisted || len(store.deadlines) != 1 {
		t.Fatalf("persisted = %v, saves = %d", res.Persisted, len(store.deadlines))
	}
	if store.ctxErrs[0] != nil {
		t.Errorf("store context error = %v", store.ctxErrs[0])
	}
	if got := store.deadlines[0]; got.Before(before.Add(30 * time.Minute)) {
		t.Errorf("store deadline = %v, want the delivery timeout rather than the run timeout", got)
	}
}

func TestRun_RecordsMetrics(t *testing.T) {
	p := newTestPipeline(t, nil)
	before := make(map[string]float64)
	for _, label := range []string{"success", "degraded", "empty"} {
		before[label] = testutil.ToFloat64(metrics.PipelineRuns.WithLabelValues(label))
	}
	built := testutil.ToFloat64(metrics.ProfilesBuilt)

	res, err := p.Run(context.Background(), batch(6))
	if err != nil {
		t.Fatal(err)
	}
	label := res.Status().String()
	if got := testutil.ToFloat64(metrics.PipelineRuns.WithLabelValues(label)) - before[label]; got != 1 {
		t.Errorf("%s runs delta = %v, want 1", label, got)
	}
	if got := testutil.ToFloat64(metrics.ProfilesBuilt) - built; got != 6 {
		t.Errorf("profiles built delta = %v, want 6", got)
	}
	if got := testutil.ToFloat64(metrics.OverallQualityScore); got != res.Metrics.Overall.Score {
		t.Errorf("quality gauge = %v, want %v", got, res.Metrics.Overall.Score)
	}
}

func TestResult_Summarize(t *testing.T) {
	p := newTestPipeline(t, nil)
	res, err := p.Run(context.Background(), batch(4))
	if err != nil {
		t.Fatal(err)
	}
	s := res.Summarize()
	if s.RunID != res.RunID || s.Profiles != 4 || s.Recommendations != len(res.Recommendations.Recommendations) {
		t.Errorf("Summarize() = %+v", s)
	}
	if s.BestStrategy != res.Comparison.Best || s.QualityRating != res.Metrics.Overall.Rating {
		t.Errorf("Summarize() = %+v", s)
	}
	if _, ok := res.Profile("user-002"); !ok {
		t.Error("Profile(user-002) not found")
	}
	if _, ok := res.Profile("nobody"); ok {
		t.Error("Profile(nobody) found")
	}
}
