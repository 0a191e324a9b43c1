// Finrec - Financial Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/finrec

package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/finrec/internal/config"
	"github.com/tomtom215/finrec/internal/database"
	"github.com/tomtom215/finrec/internal/logging"
	"github.com/tomtom215/finrec/internal/recommend/pipeline"
)

// RunStore is the slice of the database a batch run needs.
type RunStore interface {
	ImportParquet(ctx context.Context, src database.ParquetSources) (*database.ImportStats, error)
	LoadInput(ctx context.Context) (pipeline.Input, error)
	ExportRun(ctx context.Context, runID, dir string) (*database.ExportManifest, error)
	PruneRuns(ctx context.Context, keep int) (int64, error)
}

var _ RunStore = (*database.DB)(nil)

// Batch runs the pipeline over the current raw tables.
// It is safe for concurrent use; batches are serialized.
type Batch struct {
	store    RunStore
	pipeline *pipeline.Pipeline

	sources   database.ParquetSources
	exportDir string
	keepRuns  int
	strategy  string

	// sem covers import and load as well as the pipeline run itself.
	sem    chan struct{}
	logger zerolog.Logger
}

// NewBatch creates a batch runner.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewBatch(store RunStore, p *pipeline.Pipeline, cfg *config.Config, logger zerolog.Logger) *Batch {
	return &Batch{
		store:    store,
		pipeline: p,
		sources: database.ParquetSources{
			Events: cfg.Database.EventsParquet,
			Items:  cfg.Database.ItemsParquet,
			Users:  cfg.Database.UsersParquet,
		},
		exportDir: cfg.Evaluation.ExportDir,
		keepRuns:  cfg.Evaluation.KeepRuns,
		strategy:  cfg.DefaultRunStrategy(),
		sem:       make(chan struct{}, 1),
		logger:    logger.With().Str("component", "batch").Logger(),
	}
}

// Run executes one batch, waiting for any batch already in progress.
// An empty strategy uses the configured default.
func (b *Batch) Run(ctx context.Context, strategy string) (*pipeline.Result, error) {
	select {
	case b.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("wait for batch: %w", ctx.Err())
	}
	defer func() { <-b.sem }()
	return b.run(ctx, strategy)
}

// TryRun executes one batch if none is in progress.
func (b *Batch) TryRun(ctx context.Context, strategy string) (*pipeline.Result, error) {
	select {
	case b.sem <- struct{}{}:
	default:
		return nil, pipeline.ErrRunInProgress
	}
	defer func() { <-b.sem }()
	return b.run(ctx, strategy)
}

// Outcome is the result of a batch started with Start.
type Outcome struct {
	Result *pipeline.Result
	Err    error
}

// Start begins a batch in the background if none is in progress. The
// returned channel receives exactly one Outcome.
func (b *Batch) Start(ctx context.Context, strategy string) (<-chan Outcome, error) {
	select {
	case b.sem <- struct{}{}:
	default:
		return nil, pipeline.ErrRunInProgress
	}
	out := make(chan Outcome, 1)
	go func() {
		res, err := b.run(ctx, strategy)
		<-b.sem
		if err != nil {
			b.logger.Error().Err(err).Msg("Triggered batch failed")
		}
		out <- Outcome{Result: res, Err: err}
	}()
	return out, nil
}

func (b *Batch) run(ctx context.Context, strategy string) (*pipeline.Result, error) {
	start := time.Now()
	if logging.CorrelationIDFromContext(ctx) == "" {
		ctx = logging.ContextWithNewCorrelationID(ctx)
	}
	logger := b.logger.With().Str("correlation_id", logging.CorrelationIDFromContext(ctx)).Logger()

	if !b.sources.IsEmpty() {
		stats, err := b.store.ImportParquet(ctx, b.sources)
		if err != nil {
			return nil, fmt.Errorf("import raw data: %w", err)
		}
		logger.Info().
			Int64("events", stats.Events).
			Int64("items", stats.Items).
			Int64("users", stats.Users).
			Msg("Raw data imported")
	}

	in, err := b.store.LoadInput(ctx)
	if err != nil {
		return nil, fmt.Errorf("load input: %w", err)
	}
	in.Strategy = strategy
	if in.Strategy == "" {
		in.Strategy = b.strategy
	}

	res, err := b.pipeline.Run(ctx, in)
	if err != nil {
		return nil, err
	}

	if res.Persisted {
		b.retain(ctx, res, logger)
	}

	logger.Info().
		Str("run_id", res.RunID).
		Str("status", res.Status().String()).
		Str("strategy", string(res.Strategy)).
		Dur("duration", time.Since(start)).
		Msg("Batch completed")
	return res, nil
}

// retain exports the run and prunes old runs. Failures are logged; the run
// is already persisted.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func (b *Batch) retain(ctx context.Context, res *pipeline.Result, logger zerolog.Logger) {
	if b.exportDir != "" {
		m, err := b.store.ExportRun(ctx, res.RunID, b.exportDir)
		if err != nil {
			logger.Error().Err(err).Str("run_id", res.RunID).Msg("Failed to export run")
		} else {
			logger.Info().Str("report", m.Report).Msg("Run exported")
		}
	}
	if b.keepRuns > 0 {
		n, err := b.store.PruneRuns(ctx, b.keepRuns)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to prune runs")
		} else if n > 0 {
			logger.Debug().Int64("pruned", n).Msg("Old runs pruned")
		}
	}
}
