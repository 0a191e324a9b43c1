// Finrec - Financial Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/finrec

// Package logging provides the zerolog setup shared by every finrec component.
//
// Call Init once from main with the logging section of the configuration:
//
//	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
//
// Components do not use the global functions directly. They receive a
// zerolog.Logger at construction and derive a child with a component field:
//
//	logger: logger.With().Str("component", "scoring").Logger()
//
// Each pipeline run and each HTTP request carries identifiers in its
// context. Ctx attaches them to log lines:
//
//	ctx = logging.ContextWithRunID(ctx, runID)
//	logging.Ctx(ctx).Info().Msg("Run started")
//	// {"level":"info","run_id":"...","message":"Run started"}
//
// NewSlogLogger bridges zerolog to log/slog for sutureslog.
//
// Customer identifiers are masked with SanitizeUserID before they reach
// request logs, and broker URLs pass through SanitizeURL.
package logging
