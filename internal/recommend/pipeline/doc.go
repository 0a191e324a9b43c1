// Finrec - Financial Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/finrec

// Package pipeline runs one recommendation batch end to end.
//
// A run enriches events with catalog attributes, builds user profiles,
// scores every profile against the product catalog, compares the four
// strategies, applies the selected one and evaluates the result:
//
//	p, err := pipeline.New(cfg, catalog.Default(), logger,
//	    pipeline.WithScorer(scorer),
//	    pipeline.WithStore(db),
//	    pipeline.WithNotifier(publisher))
//
//	res, err := p.Run(ctx, pipeline.Input{Users: users, Events: events, Catalog: items})
//
// Run returns an error only when ctx is canceled or the configured stage
// timeout expires. Empty or low-quality input produces a Result whose stage
// statuses and diagnostics describe what was defaulted or skipped.
//
// Runs are serialized. TryRun refuses instead of waiting, which is what the
// HTTP trigger uses.
package pipeline
