// Finrec - Financial Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/finrec

/*
Package api serves the Finrec HTTP API on a chi router.

All JSON responses share one envelope:

	{"success": true, "data": ..., "meta": {"request_id": "...", "timestamp": "...", "duration_ms": 3}}
	{"success": false, "error": {"code": "NOT_FOUND", "message": "..."}, "meta": {...}}

# Endpoints

	GET  /api/v1/health                          database probe, table counts, latest run
	GET  /api/v1/health/live                     liveness
	GET  /api/v1/runs                            run summaries (status, strategy, since, until, limit)
	GET  /api/v1/runs/latest                     newest run with its report
	GET  /api/v1/runs/{runID}                    one run with its report
	GET  /api/v1/recommendations                 run_id, user_id, product_type, min_score, limit
	GET  /api/v1/strategies/compare              strategy comparison of a run (run_id)
	GET  /api/v1/users/{userID}/profile          profile of a user (run_id)
	GET  /api/v1/users/{userID}/recommendations  ranked recommendations of a user
	GET  /api/v1/products                        product catalog (type)
	POST /api/v1/pipeline/run                    start a batch (strategy); ?wait=true blocks
	POST /api/v1/outcomes                        record feedback (user_id, product_id, label)
	GET  /metrics                                Prometheus metrics

Every query defaults to the latest run when run_id is omitted.

# Pipeline Trigger

Only one batch runs at a time; a trigger during a run answers 409. Triggers
are additionally spaced by a token bucket (server.trigger_interval) and
answer 429 with Retry-After when too frequent. The run context is detached
from the request, so a client disconnect never aborts a batch.
*/
package api
