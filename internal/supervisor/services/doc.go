// Finrec - Financial Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/finrec

/*
Package services provides suture.Service wrappers for Finrec components.

Each wrapper turns a component's lifecycle into suture's context-aware
Serve method and implements fmt.Stringer so supervisor events name it.

# Available Services

PipelineService:
  - Runs a batch on startup and then every PIPELINE_INTERVAL
  - Batch failures are logged; the schedule continues

TrainingService:
  - Retrains the learned scorer on startup and every MODEL_TRAIN_INTERVAL
  - Too few labeled outcomes is logged at info level, not as a failure

EventLogService:
  - Consumes run-completed events from the in-process backend
  - Acks and drops messages that cannot be decoded
  - Returns suture.ErrDoNotRestart once the source is closed

HTTPServerService:
  - Wraps *http.Server; http.ErrServerClosed is not an error
  - Drains connections with Shutdown on cancellation

# Error Handling

Returning an error from Serve makes the supervisor restart the service
with backoff. Returning ctx.Err() after cancellation is a clean stop.
*/
package services
