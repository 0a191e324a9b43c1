// Finrec - Financial Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/finrec

package jobs

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/finrec/internal/config"
	"github.com/tomtom215/finrec/internal/database"
	"github.com/tomtom215/finrec/internal/logging"
	"github.com/tomtom215/finrec/internal/recommend"
	"github.com/tomtom215/finrec/internal/recommend/catalog"
	"github.com/tomtom215/finrec/internal/recommend/pipeline"
)

var day0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func price(v float64) *float64 { return &v }

// batchInput builds n users with purchase histories over a small catalog.
func batchInput(n int) pipeline.Input {
	var in pipeline.Input
	for i, c := range []string{"electronics", "travel", "groceries"} {
		for j := 0; j < 3; j++ {
			in.Catalog = append(in.Catalog, recommend.CatalogItem{
				ItemID:   fmt.Sprintf("%s-%d", c, j),
				Category: c,
				Price:    price(float64(700 + 900*i + 350*j)),
			})
		}
	}
	for u := 0; u < n; u++ {
		id := fmt.Sprintf("user-%02d", u)
		in.Users = append(in.Users, recommend.User{UserID: id})
		for e := 0; e < 4+u*2; e++ {
			item := in.Catalog[(u+e*2)%len(in.Catalog)]
			in.Events = append(in.Events, recommend.InteractionEvent{
				UserID:    id,
				ItemID:    item.ItemID,
				Action:    recommend.ActionPurchase,
				Timestamp: day0.Add(time.Duration(u*11+e*7) * time.Hour),
			})
		}
	}
	return in
}

// fakeRunStore serves a fixed input and records what the batch asks of it.
// It also persists runs so results come back marked Persisted.
type fakeRunStore struct {
	mu        sync.Mutex
	input     pipeline.Input
	importErr error
	loadErr   error
	saveErr   error

	imports  int
	exported []string
	pruned   []int
	saved    int

	// block, when set, holds LoadInput until closed.
	block chan struct{}
}

func (f *fakeRunStore) ImportParquet(context.Context, database.ParquetSources) (*database.ImportStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.imports++
	if f.importErr != nil {
		return nil, f.importErr
	}
	return &database.ImportStats{Events: int64(len(f.input.Events))}, nil
}

func (f *fakeRunStore) LoadInput(ctx context.Context) (pipeline.Input, error) {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return pipeline.Input{}, ctx.Err()
		}
	}
	return f.input, f.loadErr
}

func (f *fakeRunStore) ExportRun(_ context.Context, runID, dir string) (*database.ExportManifest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exported = append(f.exported, runID)
	return &database.ExportManifest{RunID: runID, Report: dir + "/report_" + runID + ".json"}, nil
}

func (f *fakeRunStore) PruneRuns(_ context.Context, keep int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pruned = append(f.pruned, keep)
	return 0, nil
}

func (f *fakeRunStore) SaveRun(context.Context, *pipeline.Result) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved++
	return f.saveErr
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Pricing.Mode = string(recommend.PricingCatalog)
	cfg.Strategy.Default = "balanced"
	cfg.Evaluation.KeepRuns = 10
	cfg.Model = config.ModelConfig{Enabled: true, MinSamples: 20, Lambda: 1, Keep: 2}
	cfg.Scoring.ScorerTimeout = time.Second
	return cfg
}

func newPipeline(t *testing.T, opts ...pipeline.Option) *pipeline.Pipeline {
	t.Helper()
	rc := recommend.DefaultConfig()
	rc.Workers = 2
	rc.Pricing.Mode = recommend.PricingCatalog
	p, err := pipeline.New(rc, catalog.Default(), logging.NewTestLogger(io.Discard), opts...)
	if err != nil {
		t.Fatalf("pipeline.New() error = %v", err)
	}
	return p
}
