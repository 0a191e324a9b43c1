// Finrec - Financial Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/finrec

package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/finrec/internal/metrics"
)

// ExportManifest lists the files written by ExportRun.
type ExportManifest struct {
	RunID           string `json:"run_id"`
	Profiles        string `json:"profiles"`
	Recommendations string `json:"recommendations"`
	Report          string `json:"report"`
}

// ExportRun writes the profiles and recommendations of a run to ZSTD
// compressed parquet files and its report to JSON. An empty runID exports
// the latest run.
func (db *DB) ExportRun(ctx context.Context, runID, dir string) (*ExportManifest, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	rec, err := db.runForExport(ctx, runID)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create export directory %s: %w", dir, err)
	}

	m := &ExportManifest{
		RunID:           rec.RunID,
		Profiles:        filepath.Join(dir, fmt.Sprintf("profiles_%s.parquet", rec.RunID)),
		Recommendations: filepath.Join(dir, fmt.Sprintf("recommendations_%s.parquet", rec.RunID)),
		Report:          filepath.Join(dir, fmt.Sprintf("report_%s.json", rec.RunID)),
	}

	if err := db.copyToParquet(ctx, tableProfiles, fmt.Sprintf(`
		SELECT run_id, user_id, total_spent, spending_level, interaction_frequency,
			top_category, profile_completeness, total_interactions
		FROM user_profiles
		WHERE run_id = %s
		ORDER BY user_id`, sqlString(rec.RunID)), m.Profiles); err != nil {
		return nil, err
	}
	if err := db.copyToParquet(ctx, tableRecommendations, fmt.Sprintf(`
		SELECT run_id, user_id, user_rank, product_id, product_name, product_type,
			base_match_score, final_score, business_value, target_fit, confidence,
			ml_enhanced, explanation, strategy
		FROM recommendations
		WHERE run_id = %s
		ORDER BY user_id, user_rank`, sqlString(rec.RunID)), m.Recommendations); err != nil {
		return nil, err
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode report: %w", err)
	}
	if err := os.WriteFile(m.Report, data, 0o640); err != nil {
		return nil, fmt.Errorf("failed to write report: %w", err)
	}

	db.logger.Info().
		Str("run_id", rec.RunID).
		Str("dir", dir).
		Msg("Run exported")
	return m, nil
}

func (db *DB) runForExport(ctx context.Context, runID string) (*RunRecord, error) {
	id, err := db.resolveRunID(ctx, runID)
	if err != nil {
		return nil, err
	}
	return db.GetRun(ctx, id)
}

// copyToParquet runs COPY (selectSQL) TO path with ZSTD compression.
func (db *DB) copyToParquet(ctx context.Context, table, selectSQL, path string) (err error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("export", table, time.Since(start), err) }()

	stmt := fmt.Sprintf(`COPY (%s) TO %s (FORMAT PARQUET, COMPRESSION 'ZSTD')`, selectSQL, sqlString(path))
	if _, err = db.conn.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("failed to export %s to parquet: %w", table, err)
	}
	return nil
}
