// Finrec - Financial Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/finrec

package jobs

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/tomtom215/finrec/internal/logging"
	"github.com/tomtom215/finrec/internal/recommend"
	"github.com/tomtom215/finrec/internal/recommend/pipeline"
)

func TestBatch_Run(t *testing.T) {
	tests := []struct {
		name        string
		parquet     bool
		exportDir   string
		keepRuns    int
		saveErr     error
		wantImports int
		wantExports int
		wantPrunes  int
	}{
		{name: "tables only", keepRuns: 10, wantPrunes: 1},
		{name: "parquet import", parquet: true, wantImports: 1},
		{name: "export", exportDir: "/tmp/finrec", keepRuns: 5, wantExports: 1, wantPrunes: 1},
		{name: "unpersisted run skips retention", exportDir: "/tmp/finrec", keepRuns: 5, saveErr: errors.New("disk full")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeRunStore{input: batchInput(4), saveErr: tt.saveErr}
			cfg := testConfig()
			cfg.Evaluation.ExportDir = tt.exportDir
			cfg.Evaluation.KeepRuns = tt.keepRuns
			if tt.parquet {
				cfg.Database.EventsParquet = "/data/events.parquet"
			}

			b := NewBatch(store, newPipeline(t, pipeline.WithStore(store)), cfg, logging.NewTestLogger(io.Discard))
			res, err := b.Run(context.Background(), "")
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if len(res.Profiles) != 4 {
				t.Errorf("profiles = %d, want 4", len(res.Profiles))
			}
			if store.imports != tt.wantImports {
				t.Errorf("imports = %d, want %d", store.imports, tt.wantImports)
			}
			if len(store.exported) != tt.wantExports {
				t.Errorf("exports = %d, want %d", len(store.exported), tt.wantExports)
			}
			if len(store.pruned) != tt.wantPrunes {
				t.Errorf("prunes = %d, want %d", len(store.pruned), tt.wantPrunes)
			}
			if tt.wantPrunes > 0 && store.pruned[0] != tt.keepRuns {
				t.Errorf("prune keep = %d, want %d", store.pruned[0], tt.keepRuns)
			}
		})
	}
}

func TestBatch_Strategy(t *testing.T) {
	store := &fakeRunStore{input: batchInput(4)}
	cfg := testConfig()
	b := NewBatch(store, newPipeline(t), cfg, logging.NewTestLogger(io.Discard))

	res, err := b.Run(context.Background(), "revenue")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Strategy != recommend.StrategyRevenue {
		t.Errorf("strategy = %s, want revenue", res.Strategy)
	}

	cfg.Strategy.Default = "auto"
	b = NewBatch(store, newPipeline(t), cfg, logging.NewTestLogger(io.Discard))
	res, err = b.Run(context.Background(), "")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Strategy != res.Comparison.Best {
		t.Errorf("auto strategy = %s, want comparison winner %s", res.Strategy, res.Comparison.Best)
	}
}

func TestBatch_Errors(t *testing.T) {
	t.Run("import failure", func(t *testing.T) {
		store := &fakeRunStore{importErr: errors.New("no such file")}
		cfg := testConfig()
		cfg.Database.ItemsParquet = "/data/items.parquet"
		b := NewBatch(store, newPipeline(t), cfg, logging.NewTestLogger(io.Discard))
		if _, err := b.Run(context.Background(), ""); err == nil {
			t.Error("expected import error")
		}
	})

	t.Run("load failure", func(t *testing.T) {
		store := &fakeRunStore{loadErr: errors.New("table missing")}
		b := NewBatch(store, newPipeline(t), testConfig(), logging.NewTestLogger(io.Discard))
		if _, err := b.Run(context.Background(), ""); err == nil {
			t.Error("expected load error")
		}
	})
}

func TestBatch_TryRunBusy(t *testing.T) {
	store := &fakeRunStore{input: batchInput(2), block: make(chan struct{})}
	b := NewBatch(store, newPipeline(t), testConfig(), logging.NewTestLogger(io.Discard))

	done := make(chan error, 1)
	go func() {
		_, err := b.Run(context.Background(), "")
		done <- err
	}()

	// Wait until the first batch holds the semaphore.
	deadline := time.After(5 * time.Second)
	for len(b.sem) == 0 {
		select {
		case <-deadline:
			t.Fatal("first batch never started")
		case <-time.After(time.Millisecond):
		}
	}

	if _, err := b.TryRun(context.Background(), ""); !errors.Is(err, pipeline.ErrRunInProgress) {
		t.Errorf("TryRun() error = %v, want ErrRunInProgress", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := b.Run(ctx, ""); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Run() while busy error = %v, want deadline exceeded", err)
	}

	if _, err := b.Start(context.Background(), ""); !errors.Is(err, pipeline.ErrRunInProgress) {
		t.Errorf("Start() error = %v, want ErrRunInProgress", err)
	}

	close(store.block)
	if err := <-done; err != nil {
		t.Errorf("first batch error = %v", err)
	}
}

func TestBatch_Start(t *testing.T) {
	store := &fakeRunStore{input: batchInput(3)}
	b := NewBatch(store, newPipeline(t), testConfig(), logging.NewTestLogger(io.Discard))

	out, err := b.Start(context.Background(), "coverage")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	select {
	case o := <-out:
		if o.Err != nil {
			t.Fatalf("batch error = %v", o.Err)
		}
		if o.Result.Strategy != recommend.StrategyCoverage {
			t.Errorf("strategy = %s, want coverage", o.Result.Strategy)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("started batch never finished")
	}

	// The semaphore is released once the outcome is delivered.
	if _, err := b.TryRun(context.Background(), ""); err != nil {
		t.Errorf("TryRun() after Start error = %v", err)
	}
}
