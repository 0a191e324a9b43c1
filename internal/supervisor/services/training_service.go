// Finrec - Financial Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/finrec

package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/finrec/internal/jobs"
	"github.com/tomtom215/finrec/internal/recommend/storage"
)

// ScorerTrainer fits and installs the learned scorer.
// Satisfied by *jobs.Trainer.
type ScorerTrainer interface {
	Train(ctx context.Context) (*storage.ModelMetadata, error)
}

// TrainingServiceConfig holds the retraining schedule.
type TrainingServiceConfig struct {
	// TrainOnStartup triggers training when the service starts.
	TrainOnStartup bool

	// TrainInterval is how often to retrain. Zero disables the schedule.
	TrainInterval time.Duration

	// Timeout bounds one training cycle. Zero means 30 minutes.
	Timeout time.Duration
}

// TrainingService retrains the learned scorer periodically.
type TrainingService struct {
	trainer ScorerTrainer
	config  TrainingServiceConfig
	logger  zerolog.Logger
}

// NewTrainingService creates the training scheduler.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewTrainingService(trainer ScorerTrainer, cfg TrainingServiceConfig, logger zerolog.Logger) *TrainingService {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Minute
	}
	return &TrainingService{
		trainer: trainer,
		config:  cfg,
		logger:  logger.With().Str("service", "training").Logger(),
	}
}

// Serve implements suture.Service.
func (s *TrainingService) Serve(ctx context.Context) error {
	s.logger.Info().
		Bool("train_on_startup", s.config.TrainOnStartup).
		Dur("train_interval", s.config.TrainInterval).
		Msg("Training service starting")

	if s.config.TrainOnStartup {
		s.train(ctx)
	}

	if s.config.TrainInterval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(s.config.TrainInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Training service shutting down")
			return ctx.Err()
		case <-ticker.C:
			s.train(ctx)
		}
	}
}

func (s *TrainingService) train(ctx context.Context) {
	trainCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	start := time.Now()
	meta, err := s.trainer.Train(trainCtx)
	switch {
	case err == nil:
		s.logger.Info().Int("version", meta.Version).Dur("duration", time.Since(start)).Msg("Training cycle complete")
	case errors.Is(err, jobs.ErrNotEnoughSamples):
		s.logger.Info().Err(err).Msg("Training skipped")
	case errors.Is(err, context.Canceled) && ctx.Err() != nil:
		// shutting down
	default:
		s.logger.Warn().Err(err).Msg("Training failed, will retry on schedule")
	}
}

// String implements fmt.Stringer for suture's event log.
func (s *TrainingService) String() string {
	return "scorer-training"
}
