package vault

import (
	"context"
	"fmt"
	"time"

	"vault/domain"
)

// ExportOptions selects which adapters to export and the codec used to
// serialize each row file. An empty AdapterIDs exports every registered
// adapter.
type ExportOptions struct {
	AdapterIDs []string
	Codec      domain.Codec
}

// Export serializes the selected adapters' tables into a bundle:
// one file per row at "<adapterId>/<tableName>/<pks>.<ext>", plus a
// migration-metadata file per adapter. Round-tripping the bundle
// through Import reproduces the table contents modulo codec
// normalization.
func (v *Vault) Export(ctx context.Context, opts ExportOptions) (Bundle, error) {
	if opts.Codec == nil {
		return nil, fmt.Errorf("export: codec is required")
	}

	ids := opts.AdapterIDs
	if len(ids) == 0 {
		ids = v.AdapterIDs()
	}

	bundle := Bundle{}
	for _, id := range ids {
		a, ok := v.adapters[id]
		if !ok {
			return nil, fmt.Errorf("export adapter %q: %w", id, domain.ErrUnknownAdapter)
		}
		if err := v.exportAdapter(ctx, a, opts.Codec, bundle); err != nil {
			return nil, err
		}
	}
	return bundle, nil
}

func (v *Vault) exportAdapter(ctx context.Context, a *domain.Adapter, c domain.Codec, bundle Bundle) error {
	if _, err := v.runner.EnsureMigrated(ctx, a); err != nil {
		return err
	}

	ext := c.FileExtension()
	for _, table := range a.TableNames() {
		pkCols := a.PrimaryKeyColumns(table)
		if len(pkCols) == 0 {
			return fmt.Errorf("adapter %q table %q: %w", a.ID, table, domain.ErrNoPrimaryKey)
		}

		rows, err := v.db.SelectAll(ctx, table, a.ColumnNames(table))
		if err != nil {
			return fmt.Errorf("export adapter %q: %w", a.ID, err)
		}
		for _, row := range rows {
			text, err := c.Stringify(row)
			if err != nil {
				return fmt.Errorf("export adapter %q table %q: %w", a.ID, table, err)
			}
			bundle[rowPath(a.ID, table, row, pkCols, ext)] = text
		}
	}

	meta, err := v.migrationMeta(ctx, a)
	if err != nil {
		return err
	}
	text, err := marshalMeta(meta)
	if err != nil {
		return err
	}
	bundle[metaPath(a.ID)] = text
	return nil
}

// migrationMeta records the tag the export was taken at: the ledger tag
// when one exists, otherwise the latest declared tag.
func (v *Vault) migrationMeta(ctx context.Context, a *domain.Adapter) (MigrationMeta, error) {
	ledgerTag, ok, err := v.db.CurrentTag(ctx, a.ID)
	if err != nil {
		return MigrationMeta{}, fmt.Errorf("export adapter %q: %w", a.ID, err)
	}

	meta := MigrationMeta{
		AdapterID:         a.ID,
		LatestDeclaredTag: a.LatestTag(),
		ExportedAt:        time.Now().UTC(),
	}
	for _, ver := range a.Versions {
		meta.Versions = append(meta.Versions, ver.Tag)
	}
	if ok {
		meta.Tag = ledgerTag
		meta.Source = "ledger"
		meta.LedgerTag = ledgerTag
	} else {
		meta.Tag = a.LatestTag()
		meta.Source = "adapter"
	}
	return meta, nil
}
