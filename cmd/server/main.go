// Finrec - Financial Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/finrec

package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/goccy/go-json"

	"github.com/tomtom215/finrec/internal/config"
	"github.com/tomtom215/finrec/internal/logging"
	"github.com/tomtom215/finrec/internal/validation"
)

func main() {
	os.Exit(run())
}

func run() int {
	once := flag.Bool("once", false, "run one pipeline batch, print its summary and exit")
	strategy := flag.String("strategy", "", "strategy for -once: auto, coverage, revenue, engagement or balanced")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logging.Error().Err(err).Msg("Failed to load configuration")
		return 1
	}
	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})
	logger := logging.Logger()

	if *strategy != "" {
		req := struct {
			Strategy string `json:"strategy" validate:"strategy"`
		}{*strategy}
		if err := validation.ValidateStruct(req); err != nil {
			logger.Error().Err(err).Msg("Invalid flag")
			return 2
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info().
		Str("db_path", cfg.Database.Path).
		Str("strategy", cfg.DefaultRunStrategy()).
		Bool("model_enabled", cfg.Model.Enabled).
		Bool("events_enabled", cfg.Events.Enabled).
		Bool("once", *once).
		Msg("Starting Finrec")

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize")
		return 1
	}
	defer a.Close()

	if *once {
		return a.runOnce(ctx, *strategy)
	}
	return a.serve(ctx)
}

// runOnce executes one batch and writes its summary to stdout.
func (a *app) runOnce(ctx context.Context, strategy string) int {
	if a.cfg.Pipeline.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.Pipeline.Timeout)
		defer cancel()
	}

	res, err := a.batch.Run(ctx, strategy)
	if err != nil {
		a.logger.Error().Err(err).Msg("Pipeline run failed")
		return 1
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res.Summarize()); err != nil {
		a.logger.Error().Err(err).Msg("Failed to write summary")
		return 1
	}
	return 0
}

// serve runs the supervisor tree until ctx is canceled.
func (a *app) serve(ctx context.Context) int {
	tree, err := a.buildTree()
	if err != nil {
		a.logger.Error().Err(err).Msg("Failed to build supervisor tree")
		return 1
	}

	a.logger.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	// ServeBackground sends exactly one value and never closes the channel.
	var serveErr error
	select {
	case <-ctx.Done():
		a.logger.Info().Msg("Shutdown signal received, waiting for services to stop")
		serveErr = <-errCh
	case serveErr = <-errCh:
	}
	exit := 0
	if serveErr != nil && !errors.Is(serveErr, context.Canceled) {
		a.logger.Error().Err(serveErr).Msg("Supervisor tree error")
		exit = 1
	}

	if unstopped, err := tree.UnstoppedServiceReport(); err == nil && len(unstopped) > 0 {
		for _, svc := range unstopped {
			a.logger.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
		}
	}

	a.logger.Info().Msg("Finrec stopped")
	return exit
}
