// Finrec - Financial Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/finrec

// Package main is the entry point for the Finrec server.
//
// Finrec turns raw interaction events into per-customer financial product
// recommendations: enrichment, profiling, scoring, strategy selection and
// quality evaluation run as one batch over the data in DuckDB.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: defaults, config file, .env and environment (Koanf v2)
//  2. Database: DuckDB with the raw, run and outcome tables
//  3. Product catalog: built-in defaults or a JSON/YAML file
//  4. Events (optional): run-completed notifications over Watermill
//  5. Pipeline and batch runner
//  6. Learned scorer (optional): loads the newest saved model
//  7. Supervisor tree: scheduler, trainer, event log and HTTP API
//
// # Modes
//
//	finrec              run the supervisor tree until SIGINT/SIGTERM
//	finrec -once        run one batch, print its summary and exit
//	finrec -once -strategy revenue
//
// # Signal Handling
//
// SIGINT and SIGTERM cancel the root context. Supervised services stop,
// the HTTP server drains in-flight requests, and the event publisher and
// database are closed last.
package main
