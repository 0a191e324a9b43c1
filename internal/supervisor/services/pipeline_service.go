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

	"github.com/tomtom215/finrec/internal/recommend/pipeline"
)

// BatchRunner runs one pipeline batch.
// Satisfied by *jobs.Batch.
type BatchRunner interface {
	Run(ctx context.Context, strategy string) (*pipeline.Result, error)
}

// PipelineServiceConfig holds the batch schedule.
type PipelineServiceConfig struct {
	// RunOnStartup runs one batch as soon as the service starts.
	RunOnStartup bool

	// Interval between scheduled batches. Zero disables the schedule.
	Interval time.Duration

	// Timeout bounds one batch. Zero means one hour.
	Timeout time.Duration
}

// PipelineService runs pipeline batches on a schedule.
type PipelineService struct {
	runner BatchRunner
	config PipelineServiceConfig
	logger zerolog.Logger
}

// NewPipelineService creates the scheduler.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewPipelineService(runner BatchRunner, cfg PipelineServiceConfig, logger zerolog.Logger) *PipelineService {
	if cfg.Timeout <= 0 {
		cfg.Timeout = time.Hour
	}
	return &PipelineService{
		runner: runner,
		config: cfg,
		logger: logger.With().Str("service", "pipeline").Logger(),
	}
}

// Serve implements suture.Service. Batch failures are logged and retried on
// the next tick; only a canceled context ends the service.
func (s *PipelineService) Serve(ctx context.Context) error {
	s.logger.Info().
		Bool("run_on_startup", s.config.RunOnStartup).
		Dur("interval", s.config.Interval).
		Msg("Pipeline scheduler starting")

	if s.config.RunOnStartup {
		s.run(ctx, "startup")
	}

	if s.config.Interval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Pipeline scheduler shutting down")
			return ctx.Err()
		case <-ticker.C:
			s.run(ctx, "schedule")
		}
	}
}

func (s *PipelineService) run(ctx context.Context, trigger string) {
	runCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	res, err := s.runner.Run(runCtx, "")
	switch {
	case err == nil:
		s.logger.Debug().Str("trigger", trigger).Str("run_id", res.RunID).Msg("Scheduled batch finished")
	case errors.Is(err, context.Canceled) && ctx.Err() != nil:
		// shutting down
	default:
		s.logger.Warn().Err(err).Str("trigger", trigger).Msg("Pipeline batch failed")
	}
}

// String implements fmt.Stringer for suture's event log.
func (s *PipelineService) String() string {
	return "pipeline-scheduler"
}
