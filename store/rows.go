package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"vault/domain"
)

// ── Row operations ─────────────────────────────────────────
// Structured row access used by export/import/ingest. Table and column
// names come from adapter declarations, never from file input.

// SelectAll reads every row of table, restricted to the given columns.
// []byte values are normalized to string so datasets compare cleanly
// across drivers.
func (db *DB) SelectAll(ctx context.Context, table string, columns []string) ([]domain.Row, error) {
	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(columns, ", "), table)
	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", table, err)
	}
	defer rows.Close()

	var result []domain.Row
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		row := make(domain.Row, len(columns))
		for i, col := range columns {
			row[col] = normalizeValue(values[i])
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

// InsertRow inserts a single flat record. Columns are taken from the
// row's keys in sorted order.
func (db *DB) InsertRow(ctx context.Context, table string, row domain.Row) error {
	return insertRow(ctx, db, db.conn, table, row)
}

// DeleteAll removes every row of table.
func (db *DB) DeleteAll(ctx context.Context, table string) error {
	if _, err := db.conn.ExecContext(ctx, "DELETE FROM "+table); err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	return nil
}

// ReplaceRows swaps the full contents of table for rows inside one
// transaction, so a mid-replace failure never leaves the table half
// emptied.
func (db *DB) ReplaceRows(ctx context.Context, table string, rows []domain.Row) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace %s: %w", table, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
		return fmt.Errorf("clear %s: %w", table, err)
	}
	for i, row := range rows {
		if err := insertRow(ctx, db, tx, table, row); err != nil {
			return fmt.Errorf("insert row %d into %s: %w", i, table, err)
		}
	}
	return tx.Commit()
}

// Run executes one raw SQL statement (migrations).
func (db *DB) Run(ctx context.Context, stmt string) error {
	if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("run statement: %w", err)
	}
	return nil
}

// GetScalar runs a query expected to return a single value.
func (db *DB) GetScalar(ctx context.Context, query string, args ...any) (any, error) {
	var value any
	if err := db.conn.QueryRowContext(ctx, query, args...).Scan(&value); err != nil {
		return nil, err
	}
	return normalizeValue(value), nil
}

// execer covers *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertRow(ctx context.Context, db *DB, ex execer, table string, row domain.Row) error {
	cols := make([]string, 0, len(row))
	for col := range row {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	args := make([]any, len(cols))
	marks := make([]string, len(cols))
	for i, col := range cols {
		args[i] = row[col]
		marks[i] = db.placeholder(i + 1)
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(cols, ", "), strings.Join(marks, ", "))
	_, err := ex.ExecContext(ctx, query, args...)
	return err
}

func normalizeValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
