// Finrec - Financial Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/finrec

/*
Package database provides DuckDB storage for raw inputs, pipeline runs and
recommendation outcomes.

# Tables

Raw inputs are replaced wholesale on import:

  - events: user_id, item_id, action_type, event_time, subdomain
  - items: item_id, category, subcategory, price
  - users: user_id plus the optional demographic attributes

Run output is append-only and keyed by run ID:

  - pipeline_runs: one summary row per run with the JSON report
  - user_profiles: one row per profiled user with the full profile as JSON
  - recommendations: the selected set with per-user rank
  - outcomes: observed conversions used to train the learned scorer

# Usage

	db, err := database.New(&cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	_, err = db.ImportParquet(ctx, database.ParquetSources{
		Events: cfg.Database.EventsParquet,
		Items:  cfg.Database.ItemsParquet,
	})
	in, err := db.LoadInput(ctx)
	res, err := p.Run(ctx, in) // p was built with pipeline.WithStore(db)

DB satisfies pipeline.Store, so every completed run is persisted in a single
transaction. ExportRun writes a run to ZSTD parquet files for offline
analysis.

# Thread Safety

DB is safe for concurrent use. Queries without a deadline get a 30 second
timeout.
*/
package database
