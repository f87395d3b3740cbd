package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ── Run logs ───────────────────────────────────────────────
// Historical record of vault operations, used by the service layer's
// schedulers and watchers for diagnostics.

// RunLog records one export/import/ingest run.
type RunLog struct {
	ID         string    `json:"id"`
	Operation  string    `json:"operation"` // "export" | "import" | "ingest"
	AdapterID  string    `json:"adapterId"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	Status     string    `json:"status"` // "success" | "error"
	Rows       int       `json:"rows"`
	Error      string    `json:"error,omitempty"`
}

const runLogTable = "vault_run_logs"

// EnsureRunLogs creates the run-log table if absent.
func (db *DB) EnsureRunLogs(ctx context.Context) error {
	key := "TEXT"
	ts := "DATETIME"
	switch db.driver {
	case DriverMySQL:
		key = "VARCHAR(191)"
	case DriverPostgres:
		ts = "TIMESTAMPTZ"
	}
	stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id %s PRIMARY KEY,
		operation %s NOT NULL,
		adapter_id %s NOT NULL,
		started_at %s NOT NULL,
		finished_at %s NOT NULL,
		status %s NOT NULL,
		row_count INTEGER NOT NULL,
		error TEXT NOT NULL
	)`, runLogTable, key, key, key, ts, ts, key)
	if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("create run log table: %w", err)
	}
	return nil
}

// CreateRunLog persists a run log, assigning it a fresh id.
func (db *DB) CreateRunLog(ctx context.Context, l *RunLog) error {
	l.ID = uuid.New().String()
	query := fmt.Sprintf(
		"INSERT INTO %s (id, operation, adapter_id, started_at, finished_at, status, row_count, error) VALUES (%s, %s, %s, %s, %s, %s, %s, %s)",
		runLogTable,
		db.placeholder(1), db.placeholder(2), db.placeholder(3), db.placeholder(4),
		db.placeholder(5), db.placeholder(6), db.placeholder(7), db.placeholder(8))
	_, err := db.conn.ExecContext(ctx, query,
		l.ID, l.Operation, l.AdapterID, l.StartedAt, l.FinishedAt, l.Status, l.Rows, l.Error)
	return err
}

// ListRunLogs returns the most recent run logs for an adapter.
func (db *DB) ListRunLogs(ctx context.Context, adapterID string, limit int) ([]RunLog, error) {
	query := fmt.Sprintf(
		"SELECT id, operation, adapter_id, started_at, finished_at, status, row_count, error FROM %s WHERE adapter_id = %s ORDER BY started_at DESC LIMIT %s",
		runLogTable, db.placeholder(1), db.placeholder(2))
	rows, err := db.conn.QueryContext(ctx, query, adapterID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []RunLog
	for rows.Next() {
		var l RunLog
		if err := rows.Scan(&l.ID, &l.Operation, &l.AdapterID, &l.StartedAt, &l.FinishedAt, &l.Status, &l.Rows, &l.Error); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
