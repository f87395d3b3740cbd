package migrate

import (
	"context"
	"fmt"
	"log"

	"vault/domain"
	"vault/store"
)

// Runner executes migration plans against the store, tracked by the
// ledger. One Runner serves every adapter sharing the store connection.
type Runner struct {
	DB *store.DB
}

// EnsureMigrated brings the adapter's tables to the latest declared
// tag. It is idempotent: with no new versions it touches nothing. On a
// mid-plan failure already-applied tags are not rolled back; the ledger
// stays at the last completed tag and the call is safe to retry.
//
// Returns the tag the store is at after the call.
func (r *Runner) EnsureMigrated(ctx context.Context, a *domain.Adapter) (string, error) {
	if err := r.DB.EnsureLedger(ctx); err != nil {
		return "", err
	}

	currentTag, _, err := r.DB.CurrentTag(ctx, a.ID)
	if err != nil {
		return "", err
	}
	targetTag := a.LatestTag()

	plan, err := Plan(a.Versions, currentTag, targetTag)
	if err != nil {
		return "", fmt.Errorf("adapter %q: %w", a.ID, err)
	}
	if len(plan) == 0 {
		return currentTag, nil
	}

	log.Printf("vault migrate: adapter %s: applying %d version(s) (%s -> %s)",
		a.ID, len(plan), orBaseline(currentTag), targetTag)

	for _, tag := range plan {
		if err := r.applyTag(ctx, a, tag); err != nil {
			return currentTag, err
		}
		currentTag = tag
	}
	return currentTag, nil
}

// applyTag runs one version's statements in a single transaction, then
// records it in the journal and advances the ledger.
func (r *Runner) applyTag(ctx context.Context, a *domain.Adapter, tag string) error {
	idx, ok := a.TagIndex(tag)
	if !ok {
		return fmt.Errorf("adapter %q: tag %q: %w", a.ID, tag, domain.ErrUnknownTag)
	}

	var units []string
	for _, raw := range a.Versions[idx].Statements {
		units = append(units, SplitStatements(raw)...)
	}

	tx, err := r.DB.Conn().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("adapter %q: begin tag %s: %w", a.ID, tag, err)
	}
	defer tx.Rollback()

	for _, unit := range units {
		if _, err := tx.ExecContext(ctx, unit); err != nil {
			return fmt.Errorf("adapter %q: tag %s: %w", a.ID, tag, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("adapter %q: commit tag %s: %w", a.ID, tag, err)
	}

	if err := r.DB.RecordApplied(ctx, a.ID, tag); err != nil {
		return fmt.Errorf("adapter %q: record tag %s: %w", a.ID, tag, err)
	}
	return nil
}

func orBaseline(tag string) string {
	if tag == "" {
		return "(none)"
	}
	return tag
}
