// Finrec - Financial Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/finrec

package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/finrec/internal/config"
	"github.com/tomtom215/finrec/internal/database"
	"github.com/tomtom215/finrec/internal/metrics"
	"github.com/tomtom215/finrec/internal/recommend"
	"github.com/tomtom215/finrec/internal/recommend/pipeline"
	"github.com/tomtom215/finrec/internal/recommend/scoring"
	"github.com/tomtom215/finrec/internal/recommend/storage"
)

// ErrNotEnoughSamples is returned when too few outcomes have been recorded
// to fit a scorer.
var ErrNotEnoughSamples = errors.New("not enough labeled outcomes to train")

// SampleSource provides labeled training samples.
type SampleSource interface {
	TrainingSamples(ctx context.Context, products []recommend.ProductDefinition) ([]scoring.Sample, error)
}

var _ SampleSource = (*database.DB)(nil)

// ModelStore persists scorer versions.
type ModelStore interface {
	SaveScorer(ctx context.Context, scorer *scoring.LinearScorer, trainingTime time.Duration) (*storage.ModelMetadata, error)
	LoadScorer(ctx context.Context, version int) (*scoring.LinearScorer, *storage.ModelMetadata, error)
	Prune(ctx context.Context, name string, keep int) (int, error)
}

var _ ModelStore = (*storage.Store)(nil)

// Trainer fits, stores and installs the learned scorer.
type Trainer struct {
	samples  SampleSource
	models   ModelStore
	pipeline *pipeline.Pipeline

	cfg           config.ModelConfig
	scorerTimeout time.Duration

	// mu serializes training so two fits never race to the same version.
	mu     sync.Mutex
	logger zerolog.Logger
}

// NewTrainer creates a trainer.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewTrainer(samples SampleSource, models ModelStore, p *pipeline.Pipeline, cfg *config.Config, logger zerolog.Logger) *Trainer {
	return &Trainer{
		samples:       samples,
		models:        models,
		pipeline:      p,
		cfg:           cfg.Model,
		scorerTimeout: cfg.Scoring.ScorerTimeout,
		logger:        logger.With().Str("component", "trainer").Logger(),
	}
}

// Train fits a scorer on all recorded outcomes and saves it as the next
// version. The scorer is installed into the pipeline when the model is
// enabled.
func (t *Trainer) Train(ctx context.Context) (*storage.ModelMetadata, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	start := time.Now()
	samples, err := t.samples.TrainingSamples(ctx, t.pipeline.Products())
	if err != nil {
		metrics.ModelTrainings.WithLabelValues("failure").Inc()
		return nil, fmt.Errorf("load training samples: %w", err)
	}
	if len(samples) < t.cfg.MinSamples {
		metrics.ModelTrainings.WithLabelValues("skipped").Inc()
		return nil, fmt.Errorf("%w: have %d, need %d", ErrNotEnoughSamples, len(samples), t.cfg.MinSamples)
	}

	scorer := scoring.NewLinearScorer(t.cfg.Lambda)
	if err := scorer.Fit(ctx, samples); err != nil {
		if errors.Is(err, scoring.ErrInsufficientSamples) {
			metrics.ModelTrainings.WithLabelValues("skipped").Inc()
			return nil, fmt.Errorf("%w: %w", ErrNotEnoughSamples, err)
		}
		metrics.ModelTrainings.WithLabelValues("failure").Inc()
		return nil, err
	}
	elapsed := time.Since(start)

	meta, err := t.models.SaveScorer(ctx, scorer, elapsed)
	if err != nil {
		metrics.ModelTrainings.WithLabelValues("failure").Inc()
		return nil, fmt.Errorf("save scorer: %w", err)
	}
	metrics.ModelTrainings.WithLabelValues("success").Inc()

	if t.cfg.Keep > 0 {
		if n, err := t.models.Prune(ctx, storage.ScorerModelName, t.cfg.Keep); err != nil {
			t.logger.Warn().Err(err).Msg("Failed to prune old model versions")
		} else if n > 0 {
			t.logger.Debug().Int("pruned", n).Msg("Old model versions pruned")
		}
	}

	t.logger.Info().
		Int("version", meta.Version).
		Int("samples", meta.SampleCount).
		Dur("duration", elapsed).
		Msg("Scorer trained")

	t.install(scorer, meta)
	return meta, nil
}

// LoadLatest installs the newest saved scorer. It returns an error wrapping
// storage.ErrModelNotFound when nothing has been trained yet.
func (t *Trainer) LoadLatest(ctx context.Context) (*storage.ModelMetadata, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	scorer, meta, err := t.models.LoadScorer(ctx, 0)
	if err != nil {
		return nil, err
	}
	t.logger.Info().
		Int("version", meta.Version).
		Time("trained_at", meta.TrainedAt).
		Msg("Scorer loaded")
	t.install(scorer, meta)
	return meta, nil
}

func (t *Trainer) install(scorer *scoring.LinearScorer, meta *storage.ModelMetadata) {
	if !t.cfg.Enabled {
		t.logger.Debug().Int("version", meta.Version).Msg("Learned scorer disabled, not installing")
		return
	}
	t.pipeline.SetScorer(scoring.NewBreakerScorer(scorer, t.scorerTimeout, t.logger))
}
