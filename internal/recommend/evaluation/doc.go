// Finrec - Financial Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/finrec

/*
Package evaluation computes quality metrics for recommendation sets.

A MetricsReport has five groups (coverage, relevance, diversity, business and
distribution) and an overall score:

	overall = 0.25*coverage + 0.35*relevance + 0.20*diversity + 0.20*min(2*business, 1)

rated excellent above 0.7, good above 0.5, fair above 0.3 and poor otherwise.

CompareStrategies evaluates every strategy over the same candidate set and
selects the one maximizing

	0.4*avg business value + 0.3*coverage rate + 0.3*avg match score

which deliberately differs from the overall score. Strategies that produce no
recommendations are skipped.

Impact adds user segments, per product type impact and a revenue estimate.
Validate checks a recommendation set for range, duplicate and missing field
problems before it is persisted.

All functions are pure. An empty input yields the zero report rather than an
error.
*/
package evaluation
