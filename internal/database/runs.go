// Finrec - Financial Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/finrec

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/finrec/internal/database/query"
	"github.com/tomtom215/finrec/internal/metrics"
	"github.com/tomtom215/finrec/internal/recommend"
	"github.com/tomtom215/finrec/internal/recommend/enrich"
	"github.com/tomtom215/finrec/internal/recommend/evaluation"
	"github.com/tomtom215/finrec/internal/recommend/pipeline"
	"github.com/tomtom215/finrec/internal/recommend/profile"
	"github.com/tomtom215/finrec/internal/recommend/scoring"
)

// Listing limits.
const (
	defaultListLimit = 20
	maxListLimit     = 500
)

// RunReport is the persisted detail of a run beyond its summary columns.
type RunReport struct {
	PriceQuality  *enrich.QualityReport                `json:"price_quality,omitempty"`
	ProfileReport profile.Report                       `json:"profile_report"`
	ScoreReport   scoring.Report                       `json:"score_report"`
	Metrics       *recommend.MetricsReport             `json:"metrics"`
	Comparison    *recommend.StrategyComparison        `json:"comparison"`
	Impact        *evaluation.ImpactReport             `json:"impact"`
	Validation    *evaluation.ValidationReport         `json:"validation"`
	Diagnostics   []recommend.Diagnostic               `json:"diagnostics"`
	Stages        map[recommend.Stage]recommend.Status `json:"stages"`
}

func newRunReport(r *pipeline.Result) *RunReport {
	return &RunReport{
		PriceQuality:  r.PriceQuality,
		ProfileReport: r.ProfileReport,
		ScoreReport:   r.ScoreReport,
		Metrics:       r.Metrics,
		Comparison:    r.Comparison,
		Impact:        r.Impact,
		Validation:    r.Validation,
		Diagnostics:   r.Diagnostics,
		Stages:        r.Stages,
	}
}

// RunRecord is a persisted run: its summary plus the raw JSON report.
type RunRecord struct {
	pipeline.Summary
	PricingMode string          `json:"pricing_mode"`
	Report      json.RawMessage `json:"report,omitempty"`
}

// SaveRun persists a completed run with its profiles and recommendations in
// one transaction.
func (db *DB) SaveRun(ctx context.Context, res *pipeline.Result) (err error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	start := time.Now()
	defer func() { metrics.RecordDBQuery("insert", tableRuns, time.Since(start), err) }()

	report, err := json.Marshal(newRunReport(res))
	if err != nil {
		return fmt.Errorf("failed to encode run report: %w", err)
	}
	sum := res.Summarize()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollbackQuietly(tx)

	_, err = tx.ExecContext(ctx, `
		INSERT INTO pipeline_runs (
			run_id, started_at, duration_ms, status, strategy, best_strategy, pricing_mode,
			profiles, candidates, recommendations, overall_score, quality_rating, diagnostics, report_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sum.RunID, sum.StartedAt, sum.DurationMS, sum.Status, string(sum.Strategy),
		nullString(string(sum.BestStrategy)), nullString(string(res.Pricing)),
		sum.Profiles, sum.Candidates, sum.Recommendations, sum.OverallScore,
		nullString(sum.QualityRating), sum.Diagnostics, string(report))
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	if err = insertProfiles(ctx, tx, res); err != nil {
		return err
	}
	if err = insertRecommendations(ctx, tx, res); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}

	db.logger.Debug().
		Str("run_id", res.RunID).
		Int("profiles", len(res.Profiles)).
		Int("recommendations", len(res.Recommendations.Recommendations)).
		Dur("duration", time.Since(start)).
		Msg("Pipeline run persisted")
	return nil
}

func insertProfiles(ctx context.Context, tx *sql.Tx, res *pipeline.Result) error {
	if len(res.Profiles) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO user_profiles (
			run_id, user_id, total_spent, spending_level, interaction_frequency,
			top_category, profile_completeness, total_interactions, profile_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare profile insert: %w", err)
	}
	defer closeWithLog(stmt, "prepared statement")

	for i := range res.Profiles {
		p := &res.Profiles[i]
		data, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("failed to encode profile %s: %w", p.UserID, err)
		}
		top, _ := p.TopCategory()
		if _, err := stmt.ExecContext(ctx, res.RunID, p.UserID, p.TotalSpent,
			p.SpendingLevel.String(), p.InteractionFrequency.String(), nullString(top),
			p.ProfileCompleteness, p.TotalInteractions, string(data)); err != nil {
			return fmt.Errorf("failed to insert profile %s: %w", p.UserID, err)
		}
	}
	return nil
}

func insertRecommendations(ctx context.Context, tx *sql.Tx, res *pipeline.Result) error {
	recs := res.Recommendations.Recommendations
	if len(recs) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO recommendations (
			run_id, user_id, product_id, product_name, product_type, user_rank,
			base_match_score, final_score, business_value, target_fit, confidence,
			ml_enhanced, explanation, reasoning_json, strategy
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare recommendation insert: %w", err)
	}
	defer closeWithLog(stmt, "prepared statement")

	// Recommendations arrive grouped per user in rank order.
	rank, prevUser := 0, ""
	for i := range recs {
		c := &recs[i]
		if c.UserID != prevUser {
			rank, prevUser = 0, c.UserID
		}
		rank++
		reasons, err := json.Marshal(c.Reasoning)
		if err != nil {
			return fmt.Errorf("failed to encode reasoning: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, res.RunID, c.UserID, c.ProductID, c.ProductName, c.ProductType, rank,
			c.BaseMatchScore, c.FinalScore, c.BusinessValue, c.TargetFit, c.Confidence,
			c.MLEnhanced, c.Explanation, string(reasons), string(res.Strategy)); err != nil {
			return fmt.Errorf("failed to insert recommendation %s/%s: %w", c.UserID, c.ProductID, err)
		}
	}
	return nil
}

// RunFilter narrows ListRuns. Zero values match everything.
type RunFilter struct {
	Status   string
	Strategy string
	Since    *time.Time
	Until    *time.Time
	Limit    int
}

const runColumns = `run_id, started_at, duration_ms, status, strategy, best_strategy, pricing_mode,
	profiles, candidates, recommendations, overall_score, quality_rating, diagnostics`

// ListRuns returns run summaries, newest first.
func (db *DB) ListRuns(ctx context.Context, f RunFilter) (runs []RunRecord, err error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	start := time.Now()
	defer func() { metrics.RecordDBQuery("select", tableRuns, time.Since(start), err) }()

	where, args := query.NewWhereBuilder().
		AddEqual("status", f.Status).
		AddEqual("strategy", f.Strategy).
		AddTimeRange("started_at", f.Since, f.Until).
		BuildWithPrefix()
	args = append(args, query.Limit(f.Limit, defaultListLimit, maxListLimit))

	rows, err := db.conn.QueryContext(ctx,
		"SELECT "+runColumns+" FROM pipeline_runs "+where+" ORDER BY started_at DESC LIMIT ?", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer closeWithLog(rows, "rows")

	for rows.Next() {
		rec, err := scanRun(rows, false)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *rec)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return runs, nil
}

// GetRun returns one run including its report.
func (db *DB) GetRun(ctx context.Context, runID string) (rec *RunRecord, err error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	start := time.Now()
	defer func() { metrics.RecordDBQuery("select", tableRuns, time.Since(start), err) }()

	row := db.conn.QueryRowContext(ctx,
		"SELECT "+runColumns+", report_json FROM pipeline_runs WHERE run_id = ?", runID)
	rec, err = scanRun(row, true)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	return rec, err
}

// LatestRun returns the most recently started run including its report.
func (db *DB) LatestRun(ctx context.Context) (*RunRecord, error) {
	id, err := db.latestRunID(ctx)
	if err != nil {
		return nil, err
	}
	return db.GetRun(ctx, id)
}

func (db *DB) latestRunID(ctx context.Context) (string, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	var id string
	err := db.conn.QueryRowContext(ctx,
		"SELECT run_id FROM pipeline_runs ORDER BY started_at DESC LIMIT 1").Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNoRuns
	}
	if err != nil {
		return "", fmt.Errorf("failed to query latest run: %w", err)
	}
	return id, nil
}

// resolveRunID maps an empty run ID onto the latest run.
func (db *DB) resolveRunID(ctx context.Context, runID string) (string, error) {
	if runID != "" {
		return runID, nil
	}
	return db.latestRunID(ctx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanRun scans runColumns, optionally followed by report_json.
func scanRun(row rowScanner, withReport bool) (*RunRecord, error) {
	var (
		rec                    RunRecord
		strategy               string
		best, pricing, quality sql.NullString
		report                 sql.NullString
	)
	dest := []any{
		&rec.RunID, &rec.StartedAt, &rec.DurationMS, &rec.Status, &strategy, &best, &pricing,
		&rec.Profiles, &rec.Candidates, &rec.Recommendations, &rec.OverallScore, &quality, &rec.Diagnostics,
	}
	if withReport {
		dest = append(dest, &report)
	}
	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}
	rec.StartedAt = rec.StartedAt.UTC()
	rec.Strategy = recommend.Strategy(strategy)
	rec.BestStrategy = recommend.Strategy(best.String)
	rec.PricingMode = pricing.String
	rec.QualityRating = quality.String
	if report.Valid {
		rec.Report = json.RawMessage(report.String)
	}
	return &rec, nil
}

// DecodeReport parses the persisted report of a run.
func (r *RunRecord) DecodeReport() (*RunReport, error) {
	if len(r.Report) == 0 {
		return nil, fmt.Errorf("run %s: report %w", r.RunID, ErrNotFound)
	}
	var rep RunReport
	if err := json.Unmarshal(r.Report, &rep); err != nil {
		return nil, fmt.Errorf("failed to decode run report: %w", err)
	}
	return &rep, nil
}

// RecommendationFilter narrows Recommendations. An empty RunID selects the
// latest run.
type RecommendationFilter struct {
	RunID        string
	UserID       string
	ProductTypes []string
	MinScore     float64
	Limit        int
}

// StoredRecommendation is a persisted recommendation with its per-user rank.
type StoredRecommendation struct {
	recommend.ScoredCandidate
	RunID    string             `json:"run_id"`
	Rank     int                `json:"rank"`
	Strategy recommend.Strategy `json:"strategy"`
}

// Recommendations returns persisted recommendations grouped per user in rank order.
func (db *DB) Recommendations(ctx context.Context, f RecommendationFilter) (recs []StoredRecommendation, err error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	runID, err := db.resolveRunID(ctx, f.RunID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() { metrics.RecordDBQuery("select", tableRecommendations, time.Since(start), err) }()

	where, args := query.NewWhereBuilder().
		AddEqual("run_id", runID).
		AddEqual("user_id", f.UserID).
		AddIn("product_type", f.ProductTypes).
		AddMin("final_score", f.MinScore).
		BuildWithPrefix()
	args = append(args, query.Limit(f.Limit, maxListLimit, 10*maxListLimit))

	rows, err := db.conn.QueryContext(ctx, `
		SELECT run_id, user_id, product_id, product_name, product_type, user_rank,
			base_match_score, final_score, business_value, target_fit, confidence,
			ml_enhanced, explanation, reasoning_json, strategy
		FROM recommendations `+where+`
		ORDER BY user_id, user_rank
		LIMIT ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query recommendations: %w", err)
	}
	defer closeWithLog(rows, "rows")

	for rows.Next() {
		var (
			r                          StoredRecommendation
			name, typ, conf, expl      sql.NullString
			reasons, strategy          sql.NullString
			base, final, bv, targetFit sql.NullFloat64
			ml                         sql.NullBool
		)
		if err = rows.Scan(&r.RunID, &r.UserID, &r.ProductID, &name, &typ, &r.Rank,
			&base, &final, &bv, &targetFit, &conf, &ml, &expl, &reasons, &strategy); err != nil {
			return nil, fmt.Errorf("failed to scan recommendation: %w", err)
		}
		r.ProductName, r.ProductType = name.String, typ.String
		r.BaseMatchScore, r.FinalScore = base.Float64, final.Float64
		r.BusinessValue, r.TargetFit = bv.Float64, targetFit.Float64
		r.Confidence, r.Explanation = conf.String, expl.String
		r.MLEnhanced = ml.Bool
		r.Strategy = recommend.Strategy(strategy.String)
		if reasons.Valid {
			if err = json.Unmarshal([]byte(reasons.String), &r.Reasoning); err != nil {
				return nil, fmt.Errorf("failed to decode reasoning: %w", err)
			}
		}
		recs = append(recs, r)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recommendations: %w", err)
	}
	return recs, nil
}

// Profile returns the persisted profile of one user. An empty runID selects
// the latest run.
func (db *DB) Profile(ctx context.Context, runID, userID string) (p *recommend.UserProfile, err error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	runID, err = db.resolveRunID(ctx, runID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() { metrics.RecordDBQuery("select", tableProfiles, time.Since(start), err) }()

	var data string
	err = db.conn.QueryRowContext(ctx,
		"SELECT profile_json FROM user_profiles WHERE run_id = ? AND user_id = ?", runID, userID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("profile %s in run %s: %w", userID, runID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query profile: %w", err)
	}

	p = &recommend.UserProfile{}
	if err = json.Unmarshal([]byte(data), p); err != nil {
		return nil, fmt.Errorf("failed to decode profile: %w", err)
	}
	return p, nil
}

// PruneRuns deletes all but the newest keep runs with their profiles and
// recommendations. It returns the number of runs removed.
func (db *DB) PruneRuns(ctx context.Context, keep int) (n int64, err error) {
	if keep <= 0 {
		return 0, nil
	}
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	start := time.Now()
	defer func() { metrics.RecordDBQuery("delete", tableRuns, time.Since(start), err) }()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollbackQuietly(tx)

	const stale = `SELECT run_id FROM pipeline_runs ORDER BY started_at DESC OFFSET ?`
	for _, table := range []string{tableRecommendations, tableProfiles} {
		if _, err = tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE run_id IN ("+stale+")", keep); err != nil {
			return 0, fmt.Errorf("failed to prune %s: %w", table, err)
		}
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM pipeline_runs WHERE run_id IN ("+stale+")", keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}
	if n, err = res.RowsAffected(); err != nil {
		return 0, fmt.Errorf("failed to count pruned runs: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit prune: %w", err)
	}
	return n, nil
}
