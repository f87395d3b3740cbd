// Package vault is a schema-versioned data vault: independently defined
// adapters, each owning a relational schema, a chain of forward-only
// migrations, and a data-shape validator, share one embedded relational
// store and can be exported to or imported from a content-addressed
// file bundle.
package vault

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"vault/domain"
)

// Bundle is the flat path → file-contents mapping exchanged between
// export and import. Paths always use forward slashes.
type Bundle map[string]string

// MetaDir is the reserved first path segment for per-adapter metadata.
const MetaDir = "__meta__"

// MigrationMeta is the per-adapter metadata file written at
// __meta__/<adapterId>/migration.json, recording the tag the export was
// taken at.
type MigrationMeta struct {
	AdapterID         string    `json:"adapterId"`
	Tag               string    `json:"tag"`
	Source            string    `json:"source"` // "ledger" | "adapter"
	LedgerTag         string    `json:"ledgerTag,omitempty"`
	LatestDeclaredTag string    `json:"latestDeclaredTag"`
	Versions          []string  `json:"versions"`
	ExportedAt        time.Time `json:"exportedAt"`
}

func metaPath(adapterID string) string {
	return MetaDir + "/" + adapterID + "/migration.json"
}

// rowPath builds "<adapterId>/<tableName>/<pk1>__<pk2>.<ext>" with the
// primary-key values ordered by column name.
func rowPath(adapterID, table string, row domain.Row, pkCols []string, ext string) string {
	parts := make([]string, len(pkCols))
	for i, col := range pkCols {
		parts[i] = formatPathValue(row[col])
	}
	return fmt.Sprintf("%s/%s/%s.%s", adapterID, table, strings.Join(parts, "__"), ext)
}

// formatPathValue renders a primary-key value for a bundle path.
// Integral floats print without exponent or fraction so a value
// round-tripped through JSON lands on the same path.
func formatPathValue(v any) string {
	switch n := v.(type) {
	case string:
		return n
	case int64:
		return strconv.FormatInt(n, 10)
	case int:
		return strconv.Itoa(n)
	case float64:
		if n == float64(int64(n)) {
			return strconv.FormatInt(int64(n), 10)
		}
		return strconv.FormatFloat(n, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(n)
	default:
		return fmt.Sprint(v)
	}
}

// sortedPaths returns the bundle's paths in deterministic order.
func (b Bundle) sortedPaths() []string {
	paths := make([]string, 0, len(b))
	for p := range b {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

func marshalMeta(m MigrationMeta) (string, error) {
	out, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal migration meta: %w", err)
	}
	return string(out) + "\n", nil
}

func parseMeta(text string) (MigrationMeta, error) {
	var m MigrationMeta
	if err := json.Unmarshal([]byte(text), &m); err != nil {
		return m, fmt.Errorf("parse migration meta: %w", err)
	}
	return m, nil
}

// WriteDir materializes a bundle under dir, one file per path.
// Used by the service layer's scheduled exports.
func (b Bundle) WriteDir(dir string) error {
	for _, p := range b.sortedPaths() {
		full := filepath.Join(dir, filepath.FromSlash(p))
		if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
			return fmt.Errorf("create bundle directory: %w", err)
		}
		if err := os.WriteFile(full, []byte(b[p]), 0644); err != nil {
			return fmt.Errorf("write bundle file %s: %w", p, err)
		}
	}
	return nil
}

// ReadBundleDir loads every file under dir into a bundle, keyed by the
// slash-separated path relative to dir.
func ReadBundleDir(dir string) (Bundle, error) {
	bundle := Bundle{}
	err := filepath.WalkDir(dir, func(full string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, full)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(full)
		if err != nil {
			return fmt.Errorf("read bundle file %s: %w", rel, err)
		}
		bundle[filepath.ToSlash(rel)] = string(data)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read bundle dir: %w", err)
	}
	return bundle, nil
}
