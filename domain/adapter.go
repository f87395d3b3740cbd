package domain

import (
	"fmt"
	"sort"
	"strings"
)

// ── Adapter ────────────────────────────────────────────────
// An adapter owns a relational schema, a chain of forward-only
// migrations, and a data-shape validator. Adapters are built once at
// process start and are immutable afterwards; every invariant the
// runtime depends on is checked here so gaps fail at load time, not
// mid-import.

// VersionDef is one schema version: a 4-digit tag plus the raw SQL
// statements that migrate the previous version's schema to it. Tags are
// ordered by declaration position, never by parsing the tag text.
type VersionDef struct {
	Tag        string
	Statements []string
}

// StepContext describes one step of a transform chain run.
type StepContext struct {
	FromTag   string
	ToTag     string
	SourceTag string
	TargetTag string
	Index     int
	Total     int
	IsLast    bool
	Plan      []string
	Versions  []VersionDef
}

// TransformFn morphs a dataset shaped for one version into the shape of
// the next version. It must be pure: no I/O, no schema access.
type TransformFn func(ds Dataset, step StepContext) (Dataset, error)

// Adapter is a self-contained schema + migration + validation unit.
// Construct with NewAdapter; the zero value is not usable.
type Adapter struct {
	ID         string
	Tables     map[string][]ColumnDef
	Versions   []VersionDef
	Transforms map[string]TransformFn
	Validator  Validator
	Ingestors  []Ingestor

	tagIndex map[string]int
}

// NewAdapter validates the definition and returns an immutable adapter.
// Violations are hard failures: a transform-coverage gap or a bad table
// name must never survive to an import.
func NewAdapter(def Adapter) (*Adapter, error) {
	if def.ID == "" {
		return nil, fmt.Errorf("adapter id must be non-empty")
	}
	if len(def.Versions) == 0 {
		return nil, fmt.Errorf("adapter %q: at least one version is required", def.ID)
	}

	a := &Adapter{
		ID:         def.ID,
		Tables:     def.Tables,
		Versions:   def.Versions,
		Transforms: def.Transforms,
		Validator:  def.Validator,
		Ingestors:  def.Ingestors,
		tagIndex:   make(map[string]int, len(def.Versions)),
	}

	for i, v := range a.Versions {
		if !validTag(v.Tag) {
			return nil, fmt.Errorf("adapter %q: version tag %q is not a 4-digit numeric string", a.ID, v.Tag)
		}
		if _, dup := a.tagIndex[v.Tag]; dup {
			return nil, fmt.Errorf("adapter %q: duplicate version tag %q", a.ID, v.Tag)
		}
		a.tagIndex[v.Tag] = i
	}

	prefix := a.ID + "_"
	for table, cols := range a.Tables {
		if !strings.HasPrefix(table, prefix) {
			return nil, fmt.Errorf("adapter %q: table %q must be prefixed with %q", a.ID, table, prefix)
		}
		if len(cols) == 0 {
			return nil, fmt.Errorf("adapter %q: table %q declares no columns", a.ID, table)
		}
	}

	// Transform keys must equal exactly the declared tags minus the
	// baseline tag: neither superset nor subset.
	required := a.Versions[1:]
	if len(a.Transforms) != len(required) {
		return nil, coverageError(a)
	}
	for _, v := range required {
		fn, ok := a.Transforms[v.Tag]
		if !ok || fn == nil {
			return nil, coverageError(a)
		}
	}
	if _, ok := a.Transforms[a.Versions[0].Tag]; ok {
		return nil, coverageError(a)
	}

	return a, nil
}

func coverageError(a *Adapter) error {
	var declared, got []string
	for _, v := range a.Versions[1:] {
		declared = append(declared, v.Tag)
	}
	for tag := range a.Transforms {
		got = append(got, tag)
	}
	sort.Strings(got)
	return fmt.Errorf("adapter %q: transform keys %v must equal declared tags after baseline %v",
		a.ID, got, declared)
}

func validTag(tag string) bool {
	if len(tag) != 4 {
		return false
	}
	for _, r := range tag {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// BaselineTag returns the first declared version tag.
func (a *Adapter) BaselineTag() string { return a.Versions[0].Tag }

// LatestTag returns the last declared version tag. Declaration order is
// the source of truth; the tag text is never compared numerically.
func (a *Adapter) LatestTag() string { return a.Versions[len(a.Versions)-1].Tag }

// TagIndex returns the declaration position of tag.
func (a *Adapter) TagIndex(tag string) (int, bool) {
	i, ok := a.tagIndex[tag]
	return i, ok
}

// TableNames returns the declared (prefixed) table names, sorted.
func (a *Adapter) TableNames() []string {
	names := make([]string, 0, len(a.Tables))
	for t := range a.Tables {
		names = append(names, t)
	}
	sort.Strings(names)
	return names
}

// Unprefix strips the adapter-id prefix from a declared table name.
func (a *Adapter) Unprefix(table string) string {
	return strings.TrimPrefix(table, a.ID+"_")
}

// PrefixedName returns the store table name for an unprefixed dataset key.
func (a *Adapter) PrefixedName(unprefixed string) string {
	return a.ID + "_" + unprefixed
}

// ColumnNames returns the declared column names of table, sorted.
func (a *Adapter) ColumnNames(table string) []string {
	cols := a.Tables[table]
	names := make([]string, 0, len(cols))
	for _, c := range cols {
		names = append(names, c.Name)
	}
	sort.Strings(names)
	return names
}

// PrimaryKeyColumns returns the primary-key column names of table,
// sorted by column name. The bundle path convention depends on this
// ordering being deterministic.
func (a *Adapter) PrimaryKeyColumns(table string) []string {
	var pks []string
	for _, c := range a.Tables[table] {
		if c.PrimaryKey {
			pks = append(pks, c.Name)
		}
	}
	sort.Strings(pks)
	return pks
}
