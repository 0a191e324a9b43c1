// Finrec - Financial Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/finrec

package database

import (
	"errors"
	"io"

	"github.com/tomtom215/finrec/internal/logging"
)

var (
	// ErrNotFound is returned when a requested run, profile or row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNoRuns is returned when no pipeline run has been persisted yet.
	ErrNoRuns = errors.New("no pipeline runs recorded")

	// ErrInvalidOutcome is returned for outcome labels outside [0,1].
	ErrInvalidOutcome = errors.New("outcome label must be within [0,1]")
)

// closeWithLog closes a resource and logs any error
// Use this for cleanup operations where errors should be acknowledged but not fail the operation
func closeWithLog(closer io.Closer, resourceType string) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		logging.Warn().Str("type", resourceType).Err(err).Msg("Failed to close resource")
	}
}

// closeQuietly closes a resource and explicitly ignores any error
// Use this for cleanup operations in error paths where Close() errors are not actionable
func closeQuietly(closer io.Closer) {
	if closer != nil {
		_ = closer.Close() // Explicitly ignore error - cleanup is best-effort
	}
}

// rollbackQuietly rolls back a transaction that may already be committed.
func rollbackQuietly(tx interface{ Rollback() error }) {
	_ = tx.Rollback() // ErrTxDone after a successful commit is expected
}

// ErrMissingColumn is returned when a parquet input lacks a required column.
var ErrMissingColumn = errors.New("required column missing")
