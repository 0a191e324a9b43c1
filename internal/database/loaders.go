// Finrec - Financial Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/finrec

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tomtom215/finrec/internal/metrics"
	"github.com/tomtom215/finrec/internal/recommend"
	"github.com/tomtom215/finrec/internal/recommend/pipeline"
)

// LoadEvents returns every interaction event in insertion order.
func (db *DB) LoadEvents(ctx context.Context) (events []recommend.InteractionEvent, err error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	start := time.Now()
	defer func() { metrics.RecordDBQuery("select", tableEvents, time.Since(start), err) }()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT user_id, item_id, action_type, event_time, subdomain
		FROM events
		ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer closeWithLog(rows, "rows")

	for rows.Next() {
		var (
			e         recommend.InteractionEvent
			action    string
			ts        sql.NullTime
			subdomain sql.NullString
		)
		if err = rows.Scan(&e.UserID, &e.ItemID, &action, &ts, &subdomain); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.Action = recommend.ParseActionType(action)
		if ts.Valid {
			e.Timestamp = ts.Time.UTC()
		}
		e.Subdomain = subdomain.String
		events = append(events, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}
	return events, nil
}

// LoadCatalog returns every catalog item in insertion order.
func (db *DB) LoadCatalog(ctx context.Context) (items []recommend.CatalogItem, err error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	start := time.Now()
	defer func() { metrics.RecordDBQuery("select", tableItems, time.Since(start), err) }()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT item_id, category, subcategory, price
		FROM items
		ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer closeWithLog(rows, "rows")

	for rows.Next() {
		var (
			it               recommend.CatalogItem
			category, subcat sql.NullString
			price            sql.NullFloat64
		)
		if err = rows.Scan(&it.ItemID, &category, &subcat, &price); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		it.Category = category.String
		it.Subcategory = subcat.String
		if price.Valid {
			p := price.Float64
			it.Price = &p
		}
		items = append(items, it)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating items: %w", err)
	}
	return items, nil
}

// LoadUsers returns the roster in insertion order.
func (db *DB) LoadUsers(ctx context.Context) (users []recommend.User, err error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	start := time.Now()
	defer func() { metrics.RecordDBQuery("select", tableUsers, time.Since(start), err) }()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT user_id, age_group, special_status, salary_account,
			resident_status, partner_employee, loyalty_program
		FROM users
		ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer closeWithLog(rows, "rows")

	for rows.Next() {
		var (
			u     recommend.User
			attrs [6]sql.NullString
		)
		if err = rows.Scan(&u.UserID, &attrs[0], &attrs[1], &attrs[2], &attrs[3], &attrs[4], &attrs[5]); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		u.Demographics = recommend.Demographics{
			AgeGroup:        attrs[0].String,
			SpecialStatus:   attrs[1].String,
			SalaryAccount:   attrs[2].String,
			ResidentStatus:  attrs[3].String,
			PartnerEmployee: attrs[4].String,
			LoyaltyProgram:  attrs[5].String,
		}
		users = append(users, u)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return users, nil
}

// LoadInput reads the users, events and catalog tables as one pipeline batch.
func (db *DB) LoadInput(ctx context.Context) (pipeline.Input, error) {
	var in pipeline.Input
	var err error
	if in.Users, err = db.LoadUsers(ctx); err != nil {
		return in, err
	}
	if in.Events, err = db.LoadEvents(ctx); err != nil {
		return in, err
	}
	if in.Catalog, err = db.LoadCatalog(ctx); err != nil {
		return in, err
	}
	return in, nil
}
