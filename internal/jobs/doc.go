// Finrec - Financial Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/finrec

/*
Package jobs holds the two long-running units of work the service schedules:
batch pipeline runs and learned-scorer training.

# Batch

A batch run refreshes the raw tables from the configured parquet files,
loads them, runs the recommendation pipeline, and then applies the
retention and export settings:

	batch := jobs.NewBatch(db, p, cfg, logger)
	res, err := batch.Run(ctx, "auto")

Run waits for a batch already in progress. TryRun returns
pipeline.ErrRunInProgress instead, which the HTTP trigger maps to 409.

# Trainer

The trainer fits a ridge scorer on recorded outcomes joined to the latest
persisted profiles, saves it as the next model version, prunes old versions,
and installs it into the pipeline behind a circuit breaker:

	trainer := jobs.NewTrainer(db, store, p, cfg, logger)
	if _, err := trainer.LoadLatest(ctx); err != nil && !errors.Is(err, storage.ErrModelNotFound) {
		return err
	}

Training with fewer outcomes than model.min_samples returns
ErrNotEnoughSamples and leaves the current scorer in place.
*/
package jobs
