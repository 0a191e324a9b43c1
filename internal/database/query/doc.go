// Finrec - Financial Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/finrec

// Package query provides SQL building helpers for the database package.
//
// WhereBuilder assembles parameterized WHERE clauses for run listings and
// recommendation lookups so filter handling is written once:
//
//	wb := query.NewWhereBuilder().
//		AddEqual("status", filter.Status).
//		AddTimeRange("started_at", filter.Since, filter.Until)
//	where, args := wb.BuildWithPrefix()
//	rows, err := conn.QueryContext(ctx, "SELECT ... FROM pipeline_runs "+where, args...)
//
// Values always travel as bind arguments. Column names are trusted
// constants supplied by the caller.
package query
