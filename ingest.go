package vault

import (
	"context"
	"fmt"
	"log"
	"sort"

	"vault/domain"
)

// Ingest loads one raw external file through the adapter's own
// ingestors, bypassing the bundle/codec path. The first ingestor whose
// Matches predicate accepts the file parses it; the adapter's validator
// (required here) checks the payload before tables are replaced with
// the same delete-then-insert semantics as import.
func (v *Vault) Ingest(ctx context.Context, adapterID string, f domain.File) error {
	a, ok := v.adapters[adapterID]
	if !ok {
		return fmt.Errorf("ingest adapter %q: %w", adapterID, domain.ErrUnknownAdapter)
	}

	if _, err := v.runner.EnsureMigrated(ctx, a); err != nil {
		return err
	}

	ing := selectIngestor(a.Ingestors, f)
	if ing == nil {
		return fmt.Errorf("ingest adapter %q: file %q: %w", a.ID, f.Name, domain.ErrMissingIngestor)
	}

	payload, err := ing.Parse(f)
	if err != nil {
		return fmt.Errorf("ingest adapter %q: parse %q: %w", a.ID, f.Name, err)
	}

	if a.Validator == nil {
		return fmt.Errorf("ingest adapter %q: %w", a.ID, domain.ErrMissingValidator)
	}
	if issues := a.Validator.Validate(payload); len(issues) > 0 {
		return fmt.Errorf("ingest adapter %q: %w", a.ID, &domain.ValidationError{Issues: issues})
	}

	tables := make([]string, 0, len(payload))
	for t := range payload {
		tables = append(tables, t)
	}
	sort.Strings(tables)

	rowCount := 0
	for _, t := range tables {
		prefixed := a.PrefixedName(t)
		if _, declared := a.Tables[prefixed]; !declared {
			return fmt.Errorf("ingest adapter %q: table %q: %w", a.ID, prefixed, domain.ErrUnknownTable)
		}
		if err := v.db.ReplaceRows(ctx, prefixed, payload[t]); err != nil {
			return fmt.Errorf("ingest adapter %q: %w", a.ID, err)
		}
		rowCount += len(payload[t])
	}

	log.Printf("vault ingest: adapter %s: file %s: replaced %d table(s), %d row(s)",
		a.ID, f.Name, len(tables), rowCount)
	return nil
}

// selectIngestor returns the first ingestor matching f. A predicate
// that panics is treated as a non-match, not propagated.
func selectIngestor(ingestors []domain.Ingestor, f domain.File) domain.Ingestor {
	for _, ing := range ingestors {
		if safeMatches(ing, f) {
			return ing
		}
	}
	return nil
}

func safeMatches(ing domain.Ingestor, f domain.File) (matched bool) {
	defer func() {
		if recover() != nil {
			matched = false
		}
	}()
	return ing.Matches(f)
}
