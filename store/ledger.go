package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// ── Migration ledger ───────────────────────────────────────
// Two core-owned tables record, per adapter, the last-applied version
// tag and an append-only journal of applied tags. Host code never
// writes them directly. Both are created lazily on first use.

const (
	ledgerTable  = "vault_migrations"
	journalTable = "vault_migration_journal"
)

// EnsureLedger creates the ledger tables if absent.
func (db *DB) EnsureLedger(ctx context.Context) error {
	key := "TEXT"
	ts := "DATETIME"
	switch db.driver {
	case DriverMySQL:
		// MySQL cannot index unbounded TEXT primary keys.
		key = "VARCHAR(191)"
	case DriverPostgres:
		ts = "TIMESTAMPTZ"
	}

	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			adapter_id %s PRIMARY KEY,
			current_tag %s NOT NULL,
			updated_at %s NOT NULL
		)`, ledgerTable, key, key, ts),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			adapter_id %s NOT NULL,
			tag %s NOT NULL,
			applied_at %s NOT NULL,
			PRIMARY KEY (adapter_id, tag)
		)`, journalTable, key, key, ts),
	}
	for _, stmt := range stmts {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create ledger tables: %w", err)
		}
	}
	return nil
}

// CurrentTag returns the ledger tag for adapterID. ok is false when the
// adapter has never been migrated on this store.
func (db *DB) CurrentTag(ctx context.Context, adapterID string) (tag string, ok bool, err error) {
	query := fmt.Sprintf("SELECT current_tag FROM %s WHERE adapter_id = %s",
		ledgerTable, db.placeholder(1))
	err = db.conn.QueryRowContext(ctx, query, adapterID).Scan(&tag)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read ledger tag: %w", err)
	}
	return tag, true, nil
}

// RecordApplied journals tag for adapterID and advances the ledger row,
// in one transaction per tag. The journal insert is conflict-ignored,
// so re-applying an already-applied tag is a no-op and a failed run is
// safe to retry.
func (db *DB) RecordApplied(ctx context.Context, adapterID, tag string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin ledger update: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()

	var journalInsert string
	switch db.driver {
	case DriverMySQL:
		journalInsert = fmt.Sprintf(
			"INSERT IGNORE INTO %s (adapter_id, tag, applied_at) VALUES (?, ?, ?)", journalTable)
	case DriverPostgres:
		journalInsert = fmt.Sprintf(
			"INSERT INTO %s (adapter_id, tag, applied_at) VALUES ($1, $2, $3) ON CONFLICT (adapter_id, tag) DO NOTHING", journalTable)
	default:
		journalInsert = fmt.Sprintf(
			"INSERT OR IGNORE INTO %s (adapter_id, tag, applied_at) VALUES (?, ?, ?)", journalTable)
	}
	if _, err := tx.ExecContext(ctx, journalInsert, adapterID, tag, now); err != nil {
		return fmt.Errorf("journal tag %s: %w", tag, err)
	}

	var upsert string
	switch db.driver {
	case DriverMySQL:
		upsert = fmt.Sprintf(
			"INSERT INTO %s (adapter_id, current_tag, updated_at) VALUES (?, ?, ?) ON DUPLICATE KEY UPDATE current_tag = VALUES(current_tag), updated_at = VALUES(updated_at)", ledgerTable)
	case DriverPostgres:
		upsert = fmt.Sprintf(
			"INSERT INTO %s (adapter_id, current_tag, updated_at) VALUES ($1, $2, $3) ON CONFLICT (adapter_id) DO UPDATE SET current_tag = excluded.current_tag, updated_at = excluded.updated_at", ledgerTable)
	default:
		upsert = fmt.Sprintf(
			"INSERT INTO %s (adapter_id, current_tag, updated_at) VALUES (?, ?, ?) ON CONFLICT(adapter_id) DO UPDATE SET current_tag = excluded.current_tag, updated_at = excluded.updated_at", ledgerTable)
	}
	if _, err := tx.ExecContext(ctx, upsert, adapterID, tag, now); err != nil {
		return fmt.Errorf("advance ledger to %s: %w", tag, err)
	}

	return tx.Commit()
}

// JournalTags returns every applied tag for adapterID in applied order.
func (db *DB) JournalTags(ctx context.Context, adapterID string) ([]string, error) {
	query := fmt.Sprintf("SELECT tag FROM %s WHERE adapter_id = %s ORDER BY applied_at ASC, tag ASC",
		journalTable, db.placeholder(1))
	rows, err := db.conn.QueryContext(ctx, query, adapterID)
	if err != nil {
		return nil, fmt.Errorf("read journal: %w", err)
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}
