package domain

import (
	"fmt"
	"strconv"
	"time"
)

// ── Schema-derived validator ───────────────────────────────
// Built automatically from an adapter's column definitions; used by
// import's post-transform check. Adapters may additionally supply their
// own Validator for ingest.

// SchemaValidator checks a dataset row-by-row against the adapter's
// declared columns: unknown tables and columns, missing required
// values, and value/column type mismatches.
type SchemaValidator struct {
	adapter *Adapter
}

// NewSchemaValidator derives a validator from the adapter's tables.
func NewSchemaValidator(a *Adapter) *SchemaValidator {
	return &SchemaValidator{adapter: a}
}

func (v *SchemaValidator) Validate(ds Dataset) []Issue {
	var issues []Issue

	for table, rows := range ds {
		prefixed := v.adapter.PrefixedName(table)
		cols, ok := v.adapter.Tables[prefixed]
		if !ok {
			issues = append(issues, Issue{
				Path:    table,
				Message: fmt.Sprintf("table %q is not declared by adapter %q", prefixed, v.adapter.ID),
			})
			continue
		}

		byName := make(map[string]ColumnDef, len(cols))
		for _, c := range cols {
			byName[c.Name] = c
		}

		for i, row := range rows {
			for name, value := range row {
				col, known := byName[name]
				if !known {
					issues = append(issues, Issue{
						Path:    fmt.Sprintf("%s[%d].%s", table, i, name),
						Message: "unknown column",
					})
					continue
				}
				if value == nil {
					continue
				}
				if msg := checkType(col.Type, value); msg != "" {
					issues = append(issues, Issue{
						Path:    fmt.Sprintf("%s[%d].%s", table, i, name),
						Message: msg,
					})
				}
			}
			for _, c := range cols {
				if !c.NotNull && !c.PrimaryKey {
					continue
				}
				if val, present := row[c.Name]; !present || val == nil {
					issues = append(issues, Issue{
						Path:    fmt.Sprintf("%s[%d].%s", table, i, c.Name),
						Message: "required value is missing",
					})
				}
			}
		}
	}

	return issues
}

// CoerceValue aligns a parsed value with the declared column type.
// Schemaless codecs infer scalar types from text on parse, so a text
// column holding "true" or "123" arrives as bool or float64; import
// coerces such values back before validating. A value that cannot be
// coerced is returned unchanged for the validator to flag.
func CoerceValue(t ColumnType, value any) any {
	if value == nil {
		return nil
	}
	switch t {
	case ColText:
		switch n := value.(type) {
		case string:
			return n
		case float64:
			if n == float64(int64(n)) {
				return strconv.FormatInt(int64(n), 10)
			}
			return strconv.FormatFloat(n, 'f', -1, 64)
		case int64:
			return strconv.FormatInt(n, 10)
		case int:
			return strconv.Itoa(n)
		case bool:
			return strconv.FormatBool(n)
		}
	case ColBoolean:
		switch n := value.(type) {
		case string:
			if b, err := strconv.ParseBool(n); err == nil {
				return b
			}
		case float64:
			return n != 0
		case int64:
			return n != 0
		}
	case ColInteger, ColReal:
		if s, ok := value.(string); ok {
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return f
			}
		}
	}
	return value
}

// checkType reports a mismatch message, or "" when value fits the
// column type. Numeric columns accept every Go numeric kind a codec or
// store round trip can produce.
func checkType(t ColumnType, value any) string {
	switch t {
	case ColText:
		if _, ok := value.(string); !ok {
			return fmt.Sprintf("expected text, got %T", value)
		}
	case ColInteger, ColReal, ColDatetime:
		switch value.(type) {
		case int, int32, int64, float32, float64:
		case time.Time:
			if t != ColDatetime {
				return fmt.Sprintf("expected number, got %T", value)
			}
		case string:
			if t != ColDatetime {
				return fmt.Sprintf("expected number, got %T", value)
			}
		default:
			return fmt.Sprintf("expected number, got %T", value)
		}
	case ColBoolean:
		switch value.(type) {
		case bool, int, int64, float64:
		default:
			return fmt.Sprintf("expected boolean, got %T", value)
		}
	case ColJSON:
		// Anything marshals; nothing to check.
	}
	return ""
}
