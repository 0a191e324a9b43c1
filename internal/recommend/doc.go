// Finrec - Financial Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/finrec

// Package recommend defines the data model of the financial product
// recommendation core and the shared configuration and diagnostics used by
// its stages.
//
// # Architecture
//
// A batch run flows through five stages, each in its own subpackage:
//
//   - enrich: left-joins interaction events with catalog attributes and
//     resolves prices, correcting log-scaled or missing prices
//   - profile: aggregates enriched events into one UserProfile per user
//   - scoring: scores every profile against every product with a rule table,
//     optionally blended with a learned Scorer
//   - strategy: re-ranks and truncates the candidate set per business objective
//   - evaluation: computes quality metrics and picks the best strategy
//
// The pipeline subpackage ties the stages together. Profiling and scoring run
// per user on a bounded worker pool; optimization and evaluation wait for the
// complete candidate set.
//
// # Error Model
//
// Data problems never abort a run. Missing values resolve to neutral
// defaults, failing users are skipped, and empty stages return empty
// collections. Each of these paths is recorded on a Diagnostics collector and
// reflected in a per-stage Status so callers can tell real signal from
// defaulted or synthetic output.
//
// # Usage
//
//	cfg := recommend.DefaultConfig()
//	p := pipeline.New(cfg, catalog.Default(), logger)
//	result, err := p.Run(ctx, pipeline.Input{Events: events, Catalog: items})
package recommend
