// Finrec - Financial Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/finrec

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/finrec/internal/api"
	"github.com/tomtom215/finrec/internal/config"
	"github.com/tomtom215/finrec/internal/database"
	"github.com/tomtom215/finrec/internal/events"
	"github.com/tomtom215/finrec/internal/jobs"
	"github.com/tomtom215/finrec/internal/logging"
	"github.com/tomtom215/finrec/internal/recommend"
	"github.com/tomtom215/finrec/internal/recommend/catalog"
	"github.com/tomtom215/finrec/internal/recommend/pipeline"
	"github.com/tomtom215/finrec/internal/recommend/storage"
	"github.com/tomtom215/finrec/internal/supervisor"
	"github.com/tomtom215/finrec/internal/supervisor/services"
)

// app holds the long-lived components shared by every mode.
type app struct {
	cfg       *config.Config
	db        *database.DB
	products  []recommend.ProductDefinition
	publisher *events.Publisher
	pipeline  *pipeline.Pipeline
	batch     *jobs.Batch
	trainer   *jobs.Trainer
	logger    zerolog.Logger
}

// newApp wires the database, catalog, notifier, pipeline and scorer.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func newApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (_ *app, err error) {
	a := &app{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	a.db, err = database.New(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("initialize database: %w", err)
	}
	logger.Info().Str("path", a.db.Path()).Msg("Database initialized")

	if cfg.Pipeline.CatalogPath != "" {
		a.products, err = catalog.Load(cfg.Pipeline.CatalogPath)
		if err != nil {
			return nil, fmt.Errorf("load product catalog: %w", err)
		}
	} else {
		a.products = catalog.Default()
	}
	logger.Info().
		Int("products", len(a.products)).
		Int("types", len(catalog.Types(a.products))).
		Str("source", catalogSource(cfg.Pipeline.CatalogPath)).
		Msg("Product catalog loaded")

	opts := []pipeline.Option{pipeline.WithStore(a.db)}
	if cfg.Events.Enabled {
		a.publisher, err = events.New(ctx, &cfg.Events, logger)
		if err != nil {
			return nil, fmt.Errorf("initialize events: %w", err)
		}
		opts = append(opts, pipeline.WithNotifier(a.publisher))
		logger.Info().
			Str("backend", cfg.Events.Backend).
			Str("topic", cfg.Events.Topic).
			Msg("Run notifications enabled")
	}

	a.pipeline, err = pipeline.New(cfg.ToRecommendConfig(), a.products, logger, opts...)
	if err != nil {
		return nil, fmt.Errorf("create pipeline: %w", err)
	}
	a.batch = jobs.NewBatch(a.db, a.pipeline, cfg, logger)

	if cfg.Model.Enabled {
		models, err := storage.NewStore(cfg.Model.Path)
		if err != nil {
			return nil, fmt.Errorf("open model store: %w", err)
		}
		a.trainer = jobs.NewTrainer(a.db, models, a.pipeline, cfg, logger)
		if _, err := a.trainer.LoadLatest(ctx); err != nil {
			if !errors.Is(err, storage.ErrModelNotFound) {
				return nil, fmt.Errorf("load scorer: %w", err)
			}
			logger.Info().Msg("No trained scorer yet, using rule-based scores")
		}
	}

	return a, nil
}

func catalogSource(path string) string {
	if path == "" {
		return "builtin"
	}
	return path
}

// Close releases the publisher and the database.
func (a *app) Close() {
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Error().Err(err).Msg("Error closing event publisher")
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error().Err(err).Msg("Error closing database")
		}
	}
}

// buildTree assembles the supervisor tree for server mode.
func (a *app) buildTree() (*supervisor.SupervisorTree, error) {
	cfg := a.cfg
	tree, err := supervisor.NewSupervisorTree(
		logging.NewSlogLogger(),
		supervisor.TreeConfigFrom(cfg.Supervisor),
	)
	if err != nil {
		return nil, fmt.Errorf("create supervisor tree: %w", err)
	}

	// Jobs layer
	tree.AddJobService(services.NewPipelineService(a.batch, services.PipelineServiceConfig{
		RunOnStartup: cfg.Pipeline.RunOnStartup,
		Interval:     cfg.Pipeline.Interval,
		Timeout:      cfg.Pipeline.Timeout,
	}, a.logger))
	if a.trainer != nil {
		tree.AddJobService(services.NewTrainingService(a.trainer, services.TrainingServiceConfig{
			TrainOnStartup: cfg.Model.TrainOnStartup,
			TrainInterval:  cfg.Model.TrainInterval,
		}, a.logger))
	}

	// Messaging layer
	if a.publisher != nil && cfg.Events.Backend == events.BackendMemory {
		tree.AddMessagingService(services.NewEventLogService(a.publisher, a.logger))
	}

	// API layer
	if cfg.Server.Enabled {
		server := a.httpServer()
		tree.AddAPIService(services.NewHTTPServerService(server, server.Addr, cfg.Supervisor.ShutdownTimeout, a.logger))
	}

	return tree, nil
}

// httpServer builds the API server. The write timeout leaves room for a
// waited pipeline trigger.
func (a *app) httpServer() *http.Server {
	cfg := a.cfg
	handler := api.NewHandler(a.db, a.batch, a.products, api.HandlerConfig{
		TriggerInterval: cfg.Server.TriggerInterval,
		RunTimeout:      cfg.Pipeline.Timeout,
	}, a.logger)
	router := api.NewRouter(handler,
		api.NewChiMiddleware(api.ChiMiddlewareConfigFrom(&cfg.Server)),
		api.RouterConfig{RequestTimeout: cfg.Server.Timeout},
		a.logger)

	return &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout + cfg.Pipeline.Timeout,
		IdleTimeout:       120 * time.Second,
	}
}
