// Finrec - Financial Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/finrec

package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/finrec/internal/recommend/scoring"
)

// ScorerModelName is the store name of the learned scorer.
const ScorerModelName = "linear_scorer"

// SaveScorer persists a trained scorer as the next version and returns it.
func (s *Store) SaveScorer(ctx context.Context, scorer *scoring.LinearScorer, trainingTime time.Duration) (*ModelMetadata, error) {
	state := scorer.State()
	if state == nil {
		return nil, fmt.Errorf("save scorer: %w", scoring.ErrNotTrained)
	}
	version := s.NextVersion(ScorerModelName)
	meta := ModelMetadata{
		TrainedAt:          state.TrainedAt,
		SampleCount:        state.Samples,
		FeatureCount:       len(state.Weights),
		TrainingDurationMS: trainingTime.Milliseconds(),
	}
	if err := s.Save(ctx, ScorerModelName, version, state, meta); err != nil {
		return nil, err
	}
	meta.Name = ScorerModelName
	meta.Version = version
	return &meta, nil
}

// LoadScorer restores a scorer. Version 0 loads the latest.
func (s *Store) LoadScorer(ctx context.Context, version int) (*scoring.LinearScorer, *ModelMetadata, error) {
	var state scoring.LinearState
	meta, err := s.Load(ctx, ScorerModelName, version, &state)
	if err != nil {
		return nil, nil, err
	}
	scorer, err := scoring.NewLinearScorerFromState(&state)
	if err != nil {
		return nil, nil, fmt.Errorf("load scorer v%d: %w", meta.Version, err)
	}
	return scorer, meta, nil
}
