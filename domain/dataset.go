package domain

// ── Dataset ────────────────────────────────────────────────
// Common in-memory data shape.
// All codecs and ingestors emit Rows, the transform chain and the
// orchestrator consume them. Table keys never carry the adapter prefix.

// ColumnType defines the data type of an adapter table column.
type ColumnType string

const (
	ColText     ColumnType = "text"
	ColInteger  ColumnType = "integer"
	ColReal     ColumnType = "real"
	ColBoolean  ColumnType = "boolean"
	ColDatetime ColumnType = "datetime"
	ColJSON     ColumnType = "json"
)

// ColumnDef describes a single column of an adapter table.
type ColumnDef struct {
	Name       string     `json:"name"`
	Type       ColumnType `json:"type"`
	PrimaryKey bool       `json:"primaryKey"`
	NotNull    bool       `json:"notNull"`
}

// Row is a flat record: column name → value.
type Row map[string]any

// Dataset maps unprefixed table names to their rows. It is the unit
// flowing through the transform chain and the validator.
type Dataset map[string][]Row

// Clone returns a shallow-row copy of the dataset so transforms can
// restructure tables without aliasing the caller's maps.
func (d Dataset) Clone() Dataset {
	out := make(Dataset, len(d))
	for table, rows := range d {
		cp := make([]Row, len(rows))
		copy(cp, rows)
		out[table] = cp
	}
	return out
}
