// Finrec - Financial Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/finrec

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/finrec/internal/metrics"
	"github.com/tomtom215/finrec/internal/recommend"
	"github.com/tomtom215/finrec/internal/recommend/scoring"
)

// Outcome is an observed response to a recommendation. Label is 1 for a
// conversion and 0 for a rejection; fractional labels are accepted.
type Outcome struct {
	UserID     string    `json:"user_id" validate:"required,max=128"`
	ProductID  string    `json:"product_id" validate:"required,max=128"`
	Label      float64   `json:"label" validate:"gte=0,lte=1"`
	RecordedAt time.Time `json:"recorded_at"`
}

// RecordOutcome stores one outcome. A zero RecordedAt is set to now.
func (db *DB) RecordOutcome(ctx context.Context, o Outcome) (err error) {
	if o.Label < 0 || o.Label > 1 {
		return ErrInvalidOutcome
	}
	if o.RecordedAt.IsZero() {
		o.RecordedAt = time.Now()
	}
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	start := time.Now()
	defer func() { metrics.RecordDBQuery("insert", tableOutcomes, time.Since(start), err) }()

	_, err = db.conn.ExecContext(ctx,
		"INSERT INTO outcomes (user_id, product_id, label, recorded_at) VALUES (?, ?, ?, ?)",
		o.UserID, o.ProductID, o.Label, o.RecordedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert outcome: %w", err)
	}
	return nil
}

// TrainingSamples joins outcomes with each user's most recent persisted
// profile. Repeated outcomes for a pair are averaged into one label.
// Outcomes for products outside the catalog are skipped.
func (db *DB) TrainingSamples(ctx context.Context, products []recommend.ProductDefinition) (samples []scoring.Sample, err error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	start := time.Now()
	defer func() { metrics.RecordDBQuery("select", tableOutcomes, time.Since(start), err) }()

	byID := make(map[string]*recommend.ProductDefinition, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}

	rows, err := db.conn.QueryContext(ctx, `
		WITH latest AS (
			SELECT p.user_id, p.profile_json
			FROM user_profiles p
			JOIN pipeline_runs r ON r.run_id = p.run_id
			QUALIFY row_number() OVER (PARTITION BY p.user_id ORDER BY r.started_at DESC) = 1
		)
		SELECT o.user_id, o.product_id, AVG(o.label) AS label, l.profile_json
		FROM outcomes o
		JOIN latest l ON l.user_id = o.user_id
		GROUP BY o.user_id, o.product_id, l.profile_json
		ORDER BY o.user_id, o.product_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query training samples: %w", err)
	}
	defer closeWithLog(rows, "rows")

	profiles := make(map[string]*recommend.UserProfile)
	skipped := 0
	for rows.Next() {
		var (
			userID, productID, data string
			label                   float64
		)
		if err = rows.Scan(&userID, &productID, &label, &data); err != nil {
			return nil, fmt.Errorf("failed to scan training sample: %w", err)
		}
		prod, ok := byID[productID]
		if !ok {
			skipped++
			continue
		}
		p, ok := profiles[userID]
		if !ok {
			p = &recommend.UserProfile{}
			if err = json.Unmarshal([]byte(data), p); err != nil {
				return nil, fmt.Errorf("failed to decode profile %s: %w", userID, err)
			}
			profiles[userID] = p
		}
		samples = append(samples, scoring.Sample{Profile: *p, Product: *prod, Label: label})
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating training samples: %w", err)
	}

	if skipped > 0 {
		db.logger.Debug().Int("skipped", skipped).Msg("Outcomes for unknown products skipped")
	}
	return samples, nil
}
