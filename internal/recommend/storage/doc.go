// Finrec - Financial Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/finrec

// Package storage persists trained scoring models.
//
// Models are gob-encoded, gzip-compressed and checksummed with SHA-256. Each
// save produces a new immutable version on disk:
//
//	/data/models/
//	  linear_scorer_v1.gob.gz
//	  linear_scorer_v2.gob.gz   <- latest
//
// The file holds a ModelMetadata header followed by the compressed payload.
// Load recomputes the checksum of the decompressed payload and refuses a
// mismatching file with ErrChecksumMismatch.
//
// # Usage
//
//	store, err := storage.NewStore(cfg.Model.Dir)
//	if err != nil {
//	    return err
//	}
//
//	meta, err := store.SaveScorer(ctx, scorer, time.Since(start))
//
//	// 0 loads the latest version
//	scorer, meta, err := store.LoadScorer(ctx, 0)
//
// Old versions are removed with Prune, which keeps the newest N.
//
// # Thread Safety
//
// Save, Delete and Prune take the store's write lock. Load and ListModels
// share a read lock. Files are written to a temporary path and renamed into
// place so a concurrent reader never sees a partial model.
package storage
