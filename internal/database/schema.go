// Finrec - Financial Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/finrec

package database

import (
	"context"
	"fmt"
)

// Table names.
const (
	tableEvents          = "events"
	tableItems           = "items"
	tableUsers           = "users"
	tableRuns            = "pipeline_runs"
	tableProfiles        = "user_profiles"
	tableRecommendations = "recommendations"
	tableOutcomes        = "outcomes"
)

// schemaStatements create every table and index. Raw input tables carry no
// primary keys; imports replace them wholesale.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS events (
		user_id VARCHAR NOT NULL,
		item_id VARCHAR NOT NULL,
		action_type VARCHAR NOT NULL,
		event_time TIMESTAMP,
		subdomain VARCHAR
	)`,
	`CREATE TABLE IF NOT EXISTS items (
		item_id VARCHAR NOT NULL,
		category VARCHAR,
		subcategory VARCHAR,
		price DOUBLE
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		user_id VARCHAR NOT NULL,
		age_group VARCHAR,
		special_status VARCHAR,
		salary_account VARCHAR,
		resident_status VARCHAR,
		partner_employee VARCHAR,
		loyalty_program VARCHAR
	)`,
	`CREATE TABLE IF NOT EXISTS pipeline_runs (
		run_id VARCHAR PRIMARY KEY,
		started_at TIMESTAMP NOT NULL,
		duration_ms BIGINT NOT NULL,
		status VARCHAR NOT NULL,
		strategy VARCHAR NOT NULL,
		best_strategy VARCHAR,
		pricing_mode VARCHAR,
		profiles INTEGER NOT NULL,
		candidates INTEGER NOT NULL,
		recommendations INTEGER NOT NULL,
		overall_score DOUBLE NOT NULL,
		quality_rating VARCHAR,
		diagnostics INTEGER NOT NULL,
		report_json VARCHAR
	)`,
	`CREATE TABLE IF NOT EXISTS user_profiles (
		run_id VARCHAR NOT NULL,
		user_id VARCHAR NOT NULL,
		total_spent DOUBLE,
		spending_level VARCHAR,
		interaction_frequency VARCHAR,
		top_category VARCHAR,
		profile_completeness DOUBLE,
		total_interactions INTEGER,
		profile_json VARCHAR NOT NULL,
		PRIMARY KEY (run_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS recommendations (
		run_id VARCHAR NOT NULL,
		user_id VARCHAR NOT NULL,
		product_id VARCHAR NOT NULL,
		product_name VARCHAR,
		product_type VARCHAR,
		user_rank INTEGER NOT NULL,
		base_match_score DOUBLE,
		final_score DOUBLE,
		business_value DOUBLE,
		target_fit DOUBLE,
		confidence VARCHAR,
		ml_enhanced BOOLEAN,
		explanation VARCHAR,
		reasoning_json VARCHAR,
		strategy VARCHAR,
		PRIMARY KEY (run_id, user_id, product_id)
	)`,
	`CREATE TABLE IF NOT EXISTS outcomes (
		user_id VARCHAR NOT NULL,
		product_id VARCHAR NOT NULL,
		label DOUBLE NOT NULL,
		recorded_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_events_user ON events(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_runs_started ON pipeline_runs(started_at)`,
	`CREATE INDEX IF NOT EXISTS idx_recommendations_user ON recommendations(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_outcomes_user_product ON outcomes(user_id, product_id)`,
}

// createTables creates all tables and indexes if they do not exist.
func (db *DB) createTables(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// RecordCounts holds row counts of the main tables.
type RecordCounts struct {
	Events   int64 `json:"events"`
	Items    int64 `json:"items"`
	Users    int64 `json:"users"`
	Runs     int64 `json:"runs"`
	Outcomes int64 `json:"outcomes"`
}

// Counts returns the row counts of the main tables.
func (db *DB) Counts(ctx context.Context) (*RecordCounts, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	var c RecordCounts
	targets := []struct {
		table string
		dst   *int64
	}{
		{tableEvents, &c.Events},
		{tableItems, &c.Items},
		{tableUsers, &c.Users},
		{tableRuns, &c.Runs},
		{tableOutcomes, &c.Outcomes},
	}
	for _, tgt := range targets {
		// Table names are package constants.
		if err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+tgt.table).Scan(tgt.dst); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", tgt.table, err)
		}
	}
	return &c, nil
}
