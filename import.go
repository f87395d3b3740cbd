package vault

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"vault/domain"
	"vault/migrate"
)

// ImportOptions carries the bundle files and the codec that produced
// them. SourceTag optionally overrides the tag detected from the
// bundle's metadata files.
type ImportOptions struct {
	Files     Bundle
	Codec     domain.Codec
	SourceTag string
}

// Import loads a bundle into the store. Files are grouped by adapter
// id; groups for unregistered adapters are skipped silently (partial
// multi-adapter bundles are allowed), but unknown tables or unparseable
// paths inside a known adapter are hard failures. Each adapter's data
// is run through its transform chain and validated against the
// schema-derived validator before its tables are replaced.
func (v *Vault) Import(ctx context.Context, opts ImportOptions) error {
	if opts.Codec == nil {
		return fmt.Errorf("import: codec is required")
	}

	groups := make(map[string][]string)
	detected := make(map[string]string)

	for _, p := range opts.Files.sortedPaths() {
		segs := strings.Split(p, "/")
		if segs[0] == MetaDir {
			// __meta__/<adapterId>/migration.json
			if len(segs) != 3 {
				continue
			}
			// Foreign adapters' metadata is skipped like their row
			// files, even when corrupt.
			if _, ok := v.adapters[segs[1]]; !ok {
				continue
			}
			meta, err := parseMeta(opts.Files[p])
			if err != nil {
				return fmt.Errorf("import %s: %w", p, err)
			}
			detected[segs[1]] = meta.Tag
			continue
		}
		if _, ok := v.adapters[segs[0]]; !ok {
			continue
		}
		groups[segs[0]] = append(groups[segs[0]], p)
	}

	ids := make([]string, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		sourceTag := opts.SourceTag
		if sourceTag == "" {
			sourceTag = detected[id]
		}
		if err := v.importAdapter(ctx, v.adapters[id], opts.Codec, opts.Files, groups[id], sourceTag); err != nil {
			return err
		}
	}
	return nil
}

func (v *Vault) importAdapter(ctx context.Context, a *domain.Adapter, c domain.Codec, files Bundle, paths []string, sourceTag string) error {
	if _, err := v.runner.EnsureMigrated(ctx, a); err != nil {
		return err
	}

	ext := c.FileExtension()
	dataset := domain.Dataset{}

	for _, p := range paths {
		segs := strings.Split(p, "/")
		if len(segs) != 3 || segs[2] == "" {
			return fmt.Errorf("import adapter %q: unparseable bundle path %q", a.ID, p)
		}
		table := segs[1]
		cols, declared := a.Tables[table]
		if !declared {
			return fmt.Errorf("import adapter %q: path %q: table %q: %w",
				a.ID, p, table, domain.ErrUnknownTable)
		}
		if got := fileExt(segs[2]); got != ext {
			return fmt.Errorf("import adapter %q: path %q has extension %q, codec %q expects %q: %w",
				a.ID, p, got, c.ID(), ext, domain.ErrExtensionMismatch)
		}

		parsed, err := c.Parse(files[p])
		if err != nil {
			return fmt.Errorf("import adapter %q: path %q: %w", a.ID, p, err)
		}

		// Restrict to declared columns; bundles may carry stale keys
		// from older exports.
		row := make(domain.Row, len(cols))
		for _, col := range cols {
			if val, ok := parsed[col.Name]; ok {
				row[col.Name] = domain.CoerceValue(col.Type, val)
			}
		}
		key := a.Unprefix(table)
		dataset[key] = append(dataset[key], row)
	}

	validated, err := migrate.TransformAndValidate(
		a.Versions, a.Transforms, domain.NewSchemaValidator(a), dataset, sourceTag, "")
	if err != nil {
		return fmt.Errorf("import adapter %q: %w", a.ID, err)
	}

	// Replace, not merge: every table mentioned in the validated
	// dataset is fully rewritten.
	tables := make([]string, 0, len(validated))
	for t := range validated {
		tables = append(tables, t)
	}
	sort.Strings(tables)
	rowCount := 0
	for _, t := range tables {
		prefixed := a.PrefixedName(t)
		if _, declared := a.Tables[prefixed]; !declared {
			return fmt.Errorf("import adapter %q: table %q: %w", a.ID, prefixed, domain.ErrUnknownTable)
		}
		if err := v.db.ReplaceRows(ctx, prefixed, validated[t]); err != nil {
			return fmt.Errorf("import adapter %q: %w", a.ID, err)
		}
		rowCount += len(validated[t])
	}

	log.Printf("vault import: adapter %s: replaced %d table(s), %d row(s)", a.ID, len(tables), rowCount)
	return nil
}

func fileExt(name string) string {
	i := strings.LastIndex(name, ".")
	if i < 0 {
		return ""
	}
	return name[i+1:]
}
