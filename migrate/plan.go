// Package migrate implements the forward-only schema-migration planner
// and executor, plus the per-version data transform chain that morphs
// historical row shapes into the current schema shape.
package migrate

import (
	"fmt"
	"strings"

	"vault/domain"
)

// Plan computes the ordered tag list needed to go from currentTag to
// targetTag given the declared version sequence. It is a pure function.
// currentTag == "" means nothing has been applied yet. The planner is
// forward-only: historical data transforms are only ever written going
// forward, so a target behind the current tag is an error.
func Plan(versions []domain.VersionDef, currentTag, targetTag string) ([]string, error) {
	index := make(map[string]int, len(versions))
	for i, v := range versions {
		index[v.Tag] = i
	}

	target, ok := index[targetTag]
	if !ok {
		return nil, fmt.Errorf("target tag %q: %w", targetTag, domain.ErrUnknownTag)
	}

	start := -1
	if currentTag != "" {
		cur, ok := index[currentTag]
		if !ok {
			return nil, fmt.Errorf("current tag %q: %w", currentTag, domain.ErrUnknownTag)
		}
		if cur > target {
			return nil, fmt.Errorf("current tag %q is ahead of target %q: %w",
				currentTag, targetTag, domain.ErrDowngradeUnsupported)
		}
		start = cur
	}

	plan := make([]string, 0, target-start)
	for i := start + 1; i <= target; i++ {
		plan = append(plan, versions[i].Tag)
	}
	return plan, nil
}

// SplitStatements breaks a statement string into individually executable
// units. Statements may arrive pre-split; a single string holding
// several logical statements is split on semicolons outside quotes, and
// trailing semicolons are dropped.
func SplitStatements(raw string) []string {
	var units []string
	var buf strings.Builder
	var quote rune

	for _, r := range raw {
		switch {
		case quote != 0:
			buf.WriteRune(r)
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			quote = r
			buf.WriteRune(r)
		case r == ';':
			if stmt := strings.TrimSpace(buf.String()); stmt != "" {
				units = append(units, stmt)
			}
			buf.Reset()
		default:
			buf.WriteRune(r)
		}
	}
	if stmt := strings.TrimSpace(buf.String()); stmt != "" {
		units = append(units, stmt)
	}
	return units
}
