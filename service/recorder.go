package service

import (
	"context"
	"log"
	"time"

	"vault/store"
)

// Recorder persists a run log for every vault operation the service
// layer triggers. Recording failures are logged, never propagated: a
// missing diagnostic must not fail the operation it describes.
type Recorder struct {
	DB *store.DB
}

// Record writes one run log. Call with the operation's start time, the
// number of rows (or files) it touched, and its error, if any.
func (r *Recorder) Record(ctx context.Context, operation, adapterID string, started time.Time, rows int, opErr error) {
	if r == nil || r.DB == nil {
		return
	}
	if err := r.DB.EnsureRunLogs(ctx); err != nil {
		log.Printf("vault runlog: ensure table: %v", err)
		return
	}

	l := &store.RunLog{
		Operation:  operation,
		AdapterID:  adapterID,
		StartedAt:  started,
		FinishedAt: time.Now().UTC(),
		Status:     "success",
		Rows:       rows,
	}
	if opErr != nil {
		l.Status = "error"
		l.Error = opErr.Error()
	}
	if err := r.DB.CreateRunLog(ctx, l); err != nil {
		log.Printf("vault runlog: create: %v", err)
	}
}

// List returns the most recent run logs for an adapter.
func (r *Recorder) List(ctx context.Context, adapterID string, limit int) ([]store.RunLog, error) {
	if err := r.DB.EnsureRunLogs(ctx); err != nil {
		return nil, err
	}
	return r.DB.ListRunLogs(ctx, adapterID, limit)
}
