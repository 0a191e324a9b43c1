// Finrec - Financial Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/finrec

// Package cache provides a generic, thread-safe LRU cache with TTL.
//
// The API uses it to keep decoded run reports: a persisted run never
// changes, so the TTL only bounds how long a pruned run stays visible.
//
//	reports := cache.NewLRU[string, *database.RunReport](256, 10*time.Minute)
//	report, err := reports.GetOrLoad(runID, rec.DecodeReport)
package cache
