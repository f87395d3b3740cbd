package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ── Error taxonomy ─────────────────────────────────────────
// Every failure surfaced by the vault wraps one of these sentinels so
// hosts can branch with errors.Is without parsing messages.

var (
	ErrUnknownAdapter       = errors.New("unknown adapter")
	ErrDuplicateAdapterID   = errors.New("duplicate adapter id")
	ErrUnknownTag           = errors.New("unknown version tag")
	ErrDowngradeUnsupported = errors.New("downgrade unsupported")
	ErrMissingTransform     = errors.New("missing transform")
	ErrNoPrimaryKey         = errors.New("table has no primary key")
	ErrUnknownTable         = errors.New("unknown table")
	ErrExtensionMismatch    = errors.New("file extension does not match codec")
	ErrMissingIngestor      = errors.New("no ingestor matched file")
	ErrMissingValidator     = errors.New("adapter has no validator")
)

// Issue is a single validation finding at a path like "items[2].name".
type Issue struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// ValidationError aggregates every validation issue found in one pass,
// so callers can report a complete diagnostic instead of the first hit.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "validation failed"
	}
	parts := make([]string, len(e.Issues))
	for i, iss := range e.Issues {
		parts[i] = fmt.Sprintf("%s: %s", iss.Path, iss.Message)
	}
	return fmt.Sprintf("validation failed (%d issue(s)): %s", len(e.Issues), strings.Join(parts, "; "))
}
