// Finrec - Financial Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/finrec

// Package events publishes pipeline run notifications over Watermill.
//
// Two backends are supported:
//
//   - nats: NATS JetStream through watermill-nats. The stream is created or
//     updated at startup and messages carry Nats-Msg-Id for deduplication.
//   - memory: an in-process Watermill GoChannel, useful for development and
//     for local consumers via Publisher.Subscribe.
//
// Every publish goes through a gobreaker circuit breaker so an unreachable
// broker costs one fast failure per run instead of a full timeout. Publish
// outcomes are counted in finrec_events_published_total.
//
// Publisher implements pipeline.Notifier:
//
//	pub, err := events.New(ctx, &cfg.Events, logger)
//	p, err := pipeline.New(engineCfg, products, logger, pipeline.WithNotifier(pub))
package events
