// Finrec - Financial Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/finrec

package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/finrec/internal/metrics"
	"github.com/tomtom215/finrec/internal/recommend"
)

// ParquetSources names the raw input files. Empty paths are skipped.
type ParquetSources struct {
	Events string
	Items  string
	Users  string
}

// IsEmpty reports whether no source is configured.
func (s ParquetSources) IsEmpty() bool {
	return s.Events == "" && s.Items == "" && s.Users == ""
}

// ImportStats counts the rows loaded per table.
type ImportStats struct {
	Events int64 `json:"events"`
	Items  int64 `json:"items"`
	Users  int64 `json:"users"`
}

// ImportParquet replaces the raw input tables with the contents of the
// configured parquet files. Each table is replaced in its own transaction.
func (db *DB) ImportParquet(ctx context.Context, src ParquetSources) (*ImportStats, error) {
	stats := &ImportStats{}
	if src.Items != "" {
		n, err := db.importItems(ctx, src.Items)
		if err != nil {
			return stats, err
		}
		stats.Items = n
	}
	if src.Users != "" {
		n, err := db.importUsers(ctx, src.Users)
		if err != nil {
			return stats, err
		}
		stats.Users = n
	}
	if src.Events != "" {
		n, err := db.importEvents(ctx, src.Events)
		if err != nil {
			return stats, err
		}
		stats.Events = n
	}

	db.logger.Info().
		Int64("events", stats.Events).
		Int64("items", stats.Items).
		Int64("users", stats.Users).
		Msg("Parquet import complete")
	return stats, nil
}

func (db *DB) importEvents(ctx context.Context, path string) (int64, error) {
	cols, err := db.parquetColumns(ctx, path)
	if err != nil {
		return 0, err
	}
	if err := requireColumns(path, cols, "user_id", "item_id", "action_type"); err != nil {
		return 0, err
	}

	ts := "NULL"
	if cols["timestamp"] {
		ts = `TRY_CAST("timestamp" AS TIMESTAMP)`
	}
	sub := "NULL"
	if cols["subdomain"] {
		sub = "CAST(subdomain AS VARCHAR)"
	}
	insert := fmt.Sprintf(`
		INSERT INTO events (user_id, item_id, action_type, event_time, subdomain)
		SELECT CAST(user_id AS VARCHAR), CAST(item_id AS VARCHAR),
			COALESCE(LOWER(CAST(action_type AS VARCHAR)), 'other'), %s, %s
		FROM read_parquet(%s)
		WHERE user_id IS NOT NULL AND item_id IS NOT NULL`,
		ts, sub, sqlString(path))
	return db.replaceTable(ctx, tableEvents, insert)
}

func (db *DB) importItems(ctx context.Context, path string) (int64, error) {
	cols, err := db.parquetColumns(ctx, path)
	if err != nil {
		return 0, err
	}
	if err := requireColumns(path, cols, "item_id"); err != nil {
		return 0, err
	}

	insert := fmt.Sprintf(`
		INSERT INTO items (item_id, category, subcategory, price)
		SELECT CAST(item_id AS VARCHAR), %s, %s, %s
		FROM read_parquet(%s)
		WHERE item_id IS NOT NULL`,
		optionalColumn(cols, "category", "CAST(category AS VARCHAR)"),
		optionalColumn(cols, "subcategory", "CAST(subcategory AS VARCHAR)"),
		optionalColumn(cols, "price", "TRY_CAST(price AS DOUBLE)"),
		sqlString(path))
	return db.replaceTable(ctx, tableItems, insert)
}

// demographicColumns are the optional roster attributes, in table order.
var demographicColumns = []string{
	recommend.AttrAgeGroup,
	recommend.AttrSpecialStatus,
	recommend.AttrSalaryAccount,
	recommend.AttrResidentStatus,
	recommend.AttrPartnerEmployee,
	recommend.AttrLoyaltyProgram,
}

func (db *DB) importUsers(ctx context.Context, path string) (int64, error) {
	cols, err := db.parquetColumns(ctx, path)
	if err != nil {
		return 0, err
	}
	if err := requireColumns(path, cols, "user_id"); err != nil {
		return 0, err
	}

	exprs := make([]string, len(demographicColumns))
	for i, c := range demographicColumns {
		exprs[i] = optionalColumn(cols, c, fmt.Sprintf("CAST(%s AS VARCHAR)", c))
	}
	insert := fmt.Sprintf(`
		INSERT INTO users (user_id, %s)
		SELECT CAST(user_id AS VARCHAR), %s
		FROM read_parquet(%s)
		WHERE user_id IS NOT NULL`,
		strings.Join(demographicColumns, ", "), strings.Join(exprs, ", "), sqlString(path))
	return db.replaceTable(ctx, tableUsers, insert)
}

// replaceTable empties a table and runs insert in one transaction.
func (db *DB) replaceTable(ctx context.Context, table, insert string) (n int64, err error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("import", table, time.Since(start), err) }()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollbackQuietly(tx)

	// Table names are package constants.
	if _, err = tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
		return 0, fmt.Errorf("failed to clear %s: %w", table, err)
	}
	res, err := tx.ExecContext(ctx, insert)
	if err != nil {
		return 0, fmt.Errorf("failed to import %s: %w", table, err)
	}
	if n, err = res.RowsAffected(); err != nil {
		return 0, fmt.Errorf("failed to count imported %s: %w", table, err)
	}
	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit %s import: %w", table, err)
	}
	return n, nil
}

// parquetColumns returns the lower-cased column names of a parquet file.
func (db *DB) parquetColumns(ctx context.Context, path string) (map[string]bool, error) {
	rows, err := db.conn.QueryContext(ctx, "SELECT * FROM read_parquet("+sqlString(path)+") LIMIT 0")
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	defer closeWithLog(rows, "rows")

	names, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of %s: %w", path, err)
	}
	cols := make(map[string]bool, len(names))
	for _, n := range names {
		cols[strings.ToLower(n)] = true
	}
	return cols, nil
}

func requireColumns(path string, cols map[string]bool, names ...string) error {
	for _, n := range names {
		if !cols[n] {
			return fmt.Errorf("%s: %w: %s", path, ErrMissingColumn, n)
		}
	}
	return nil
}

func optionalColumn(cols map[string]bool, name, expr string) string {
	if cols[name] {
		return expr
	}
	return "NULL"
}

// sqlString quotes s as a SQL string literal. Table functions such as
// read_parquet take their path at bind time, so it cannot be a parameter.
func sqlString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// InsertEvents appends interaction events in a single transaction.
func (db *DB) InsertEvents(ctx context.Context, events []recommend.InteractionEvent) error {
	return db.insertBatch(ctx, tableEvents,
		`INSERT INTO events (user_id, item_id, action_type, event_time, subdomain) VALUES (?, ?, ?, ?, ?)`,
		len(events), func(stmt *sql.Stmt, i int) error {
			e := &events[i]
			_, err := stmt.ExecContext(ctx, e.UserID, e.ItemID, string(e.Action), nullTime(e.Timestamp), nullString(e.Subdomain))
			return err
		})
}

// InsertItems appends catalog items in a single transaction.
func (db *DB) InsertItems(ctx context.Context, items []recommend.CatalogItem) error {
	return db.insertBatch(ctx, tableItems,
		`INSERT INTO items (item_id, category, subcategory, price) VALUES (?, ?, ?, ?)`,
		len(items), func(stmt *sql.Stmt, i int) error {
			it := &items[i]
			var price any
			if it.Price != nil {
				price = *it.Price
			}
			_, err := stmt.ExecContext(ctx, it.ItemID, nullString(it.Category), nullString(it.Subcategory), price)
			return err
		})
}

// InsertUsers appends roster entries in a single transaction.
func (db *DB) InsertUsers(ctx context.Context, users []recommend.User) error {
	return db.insertBatch(ctx, tableUsers,
		`INSERT INTO users (user_id, age_group, special_status, salary_account, resident_status, partner_employee, loyalty_program)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		len(users), func(stmt *sql.Stmt, i int) error {
			u := &users[i]
			d := &u.Demographics
			_, err := stmt.ExecContext(ctx, u.UserID,
				nullString(d.AgeGroup), nullString(d.SpecialStatus), nullString(d.SalaryAccount),
				nullString(d.ResidentStatus), nullString(d.PartnerEmployee), nullString(d.LoyaltyProgram))
			return err
		})
}

// insertBatch runs one prepared statement n times inside a transaction.
func (db *DB) insertBatch(ctx context.Context, table, stmtSQL string, n int, exec func(*sql.Stmt, int) error) (err error) {
	if n == 0 {
		return nil
	}
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	start := time.Now()
	defer func() { metrics.RecordDBQuery("insert", table, time.Since(start), err) }()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollbackQuietly(tx)

	stmt, err := tx.PrepareContext(ctx, stmtSQL)
	if err != nil {
		return fmt.Errorf("failed to prepare %s insert: %w", table, err)
	}
	defer closeWithLog(stmt, "prepared statement")

	for i := 0; i < n; i++ {
		if err = exec(stmt, i); err != nil {
			return fmt.Errorf("failed to insert into %s (row %d): %w", table, i, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit %s insert: %w", table, err)
	}
	return nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}
