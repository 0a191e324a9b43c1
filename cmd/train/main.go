// Finrec - Financial Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/finrec

// Command train fits the learned scorer on the recorded outcomes once and
// saves it as the next model version.
//
//	finrec-train                 train with the configured settings
//	finrec-train -min-samples 20 override the sample threshold
//	finrec-train -list           print the latest saved version and exit
//
// Training does not require model.enabled; that setting only controls
// whether the server installs the scorer.
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
	"github.com/tomtom215/finrec/internal/database"
	"github.com/tomtom215/finrec/internal/jobs"
	"github.com/tomtom215/finrec/internal/logging"
	"github.com/tomtom215/finrec/internal/recommend/catalog"
	"github.com/tomtom215/finrec/internal/recommend/pipeline"
	"github.com/tomtom215/finrec/internal/recommend/storage"
)

func main() {
	os.Exit(run())
}

func run() int {
	minSamples := flag.Int("min-samples", 0, "override model.min_samples when positive")
	list := flag.Bool("list", false, "print saved scorer models and exit")
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
	logger := logging.WithComponent("train")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	models, err := storage.NewStore(cfg.Model.Path)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to open model store")
		return 1
	}

	if *list {
		metas, err := models.ListModels(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to list models")
			return 1
		}
		return printJSON(metas)
	}

	if *minSamples > 0 {
		cfg.Model.MinSamples = *minSamples
	}

	db, err := database.New(&cfg.Database)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize database")
		return 1
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error().Err(err).Msg("Error closing database")
		}
	}()

	products := catalog.Default()
	if cfg.Pipeline.CatalogPath != "" {
		if products, err = catalog.Load(cfg.Pipeline.CatalogPath); err != nil {
			logger.Error().Err(err).Msg("Failed to load product catalog")
			return 1
		}
	}

	p, err := pipeline.New(cfg.ToRecommendConfig(), products, logging.Logger())
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create pipeline")
		return 1
	}

	meta, err := jobs.NewTrainer(db, models, p, cfg, logging.Logger()).Train(ctx)
	switch {
	case errors.Is(err, jobs.ErrNotEnoughSamples):
		logger.Warn().Err(err).Msg("Training skipped")
		return 3
	case err != nil:
		logger.Error().Err(err).Msg("Training failed")
		return 1
	}
	return printJSON(meta)
}

func printJSON(v any) int {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		logging.Error().Err(err).Msg("Failed to write output")
		return 1
	}
	return 0
}
