package vault_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"vault"
	"vault/codec"
	"vault/domain"
	"vault/store"
)

func TestExportImport_RoundTrip(t *testing.T) {
	ctx := context.Background()
	src, _ := newTestVault(t)

	if err := src.Ingest(ctx, "test", domain.File{Name: "seed.json", Data: validIngestData}); err != nil {
		t.Fatalf("seed ingest: %v", err)
	}

	bundle, err := src.Export(ctx, vault.ExportOptions{Codec: codec.JSON()})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if _, ok := bundle["test/test_items/1.json"]; !ok {
		t.Fatalf("expected row file test/test_items/1.json, got paths %v", bundleKeys(bundle))
	}
	metaText, ok := bundle["__meta__/test/migration.json"]
	if !ok {
		t.Fatal("expected migration metadata file in bundle")
	}
	if !strings.Contains(metaText, `"tag": "0000"`) || !strings.Contains(metaText, `"source": "ledger"`) {
		t.Errorf("unexpected metadata contents:\n%s", metaText)
	}

	dst, dstDB := newTestVault(t)
	if err := dst.Import(ctx, vault.ImportOptions{Files: bundle, Codec: codec.JSON()}); err != nil {
		t.Fatalf("import: %v", err)
	}

	rows, err := dstDB.SelectAll(ctx, "test_items", []string{"created_at", "id", "name"})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected exactly 2 rows after round trip, got %d", len(rows))
	}
	if rows[0]["id"] != int64(1) || rows[0]["name"] != "Alpha" || rows[0]["created_at"] != int64(1700000000000) {
		t.Errorf("first row did not survive round trip: %v", rows[0])
	}
	if rows[1]["id"] != int64(2) || rows[1]["name"] != "Beta" || rows[1]["created_at"] != int64(1700000000500) {
		t.Errorf("second row did not survive round trip: %v", rows[1])
	}
}

func TestExportImport_CSVRoundTripInferredText(t *testing.T) {
	// CSV carries no types, so its parser infers scalars: "true"
	// comes back as bool and "0042" as a number. Import must coerce
	// them to the declared column type instead of failing validation.
	ctx := context.Background()
	src, srcDB := newTestVault(t)

	if _, err := src.EnsureMigrated(ctx, "test"); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	seed := []domain.Row{
		{"id": int64(1), "name": "true"},
		{"id": int64(2), "name": "0042"},
	}
	for _, row := range seed {
		if err := srcDB.InsertRow(ctx, "test_items", row); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	bundle, err := src.Export(ctx, vault.ExportOptions{Codec: codec.CSV()})
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	dst, dstDB := newTestVault(t)
	if err := dst.Import(ctx, vault.ImportOptions{Files: bundle, Codec: codec.CSV()}); err != nil {
		t.Fatalf("import: %v", err)
	}

	rows, err := dstDB.SelectAll(ctx, "test_items", []string{"id", "name"})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0]["name"] != "true" {
		t.Errorf("expected boolean-looking text preserved, got %v", rows[0]["name"])
	}
	// Numeric-looking text survives as text, modulo the codec's
	// numeric normalization.
	if rows[1]["name"] != "42" {
		t.Errorf("expected numeric-looking text coerced back to text, got %v", rows[1]["name"])
	}
}

// A partial bundle may carry files, even corrupt metadata, for
// adapters this vault never registered; only registered adapters'
// groups are imported.
func TestImport_SkipsUnknownAdapters(t *testing.T) {
	ctx := context.Background()
	v, db := newTestVault(t)

	bundle := vault.Bundle{
		"test/test_items/7.json":     "{\n  \"id\": 7,\n  \"name\": \"Known\"\n}\n",
		"z/z_things/1.json":          "{\n  \"id\": 1\n}\n",
		"__meta__/z/migration.json":  "not json at all",
		"__meta__/z/too/deep/a.json": "",
	}
	if err := v.Import(ctx, vault.ImportOptions{Files: bundle, Codec: codec.JSON()}); err != nil {
		t.Fatalf("expected unknown adapter group to be skipped, got %v", err)
	}

	rows, err := db.SelectAll(ctx, "test_items", []string{"id", "name"})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(rows) != 1 || rows[0]["name"] != "Known" {
		t.Errorf("expected the known adapter's row imported, got %v", rows)
	}
}

func TestImport_ExtensionMismatchIsHardFailure(t *testing.T) {
	v, _ := newTestVault(t)
	bundle := vault.Bundle{
		"test/test_items/1.csv": "id,name\n1,Alpha\n",
	}
	err := v.Import(context.Background(), vault.ImportOptions{Files: bundle, Codec: codec.JSON()})
	if !errors.Is(err, domain.ErrExtensionMismatch) {
		t.Fatalf("expected ErrExtensionMismatch, got %v", err)
	}
}

func TestImport_UnknownTableIsHardFailure(t *testing.T) {
	v, _ := newTestVault(t)
	bundle := vault.Bundle{
		"test/test_ghosts/1.json": "{\n  \"id\": 1\n}\n",
	}
	err := v.Import(context.Background(), vault.ImportOptions{Files: bundle, Codec: codec.JSON()})
	if !errors.Is(err, domain.ErrUnknownTable) {
		t.Fatalf("expected ErrUnknownTable, got %v", err)
	}
}

func TestImport_UnparseablePathIsHardFailure(t *testing.T) {
	v, _ := newTestVault(t)
	bundle := vault.Bundle{
		"test/stray.json": "{\n  \"id\": 1\n}\n",
	}
	err := v.Import(context.Background(), vault.ImportOptions{Files: bundle, Codec: codec.JSON()})
	if err == nil || !strings.Contains(err.Error(), "unparseable bundle path") {
		t.Fatalf("expected unparseable path failure, got %v", err)
	}
}

func TestExport_UnknownAdapterID(t *testing.T) {
	v, _ := newTestVault(t)
	_, err := v.Export(context.Background(), vault.ExportOptions{
		AdapterIDs: []string{"nope"},
		Codec:      codec.JSON(),
	})
	if !errors.Is(err, domain.ErrUnknownAdapter) {
		t.Fatalf("expected ErrUnknownAdapter, got %v", err)
	}
}

func TestExport_NoPrimaryKey(t *testing.T) {
	db, err := store.Open(store.Config{Driver: store.DriverSQLite, Path: ":memory:"})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer db.Close()

	a, err := domain.NewAdapter(domain.Adapter{
		ID: "loose",
		Tables: map[string][]domain.ColumnDef{
			"loose_events": {
				{Name: "kind", Type: domain.ColText},
				{Name: "payload", Type: domain.ColJSON},
			},
		},
		Versions: []domain.VersionDef{
			{Tag: "0000", Statements: []string{"CREATE TABLE loose_events (kind TEXT, payload TEXT)"}},
		},
	})
	if err != nil {
		t.Fatalf("NewAdapter failed: %v", err)
	}
	v := vault.New(db)
	if err := v.Register(a); err != nil {
		t.Fatalf("register: %v", err)
	}

	_, err = v.Export(context.Background(), vault.ExportOptions{Codec: codec.JSON()})
	if !errors.Is(err, domain.ErrNoPrimaryKey) {
		t.Fatalf("expected ErrNoPrimaryKey, got %v", err)
	}
}

// An old-tag bundle must be folded through the transform chain before
// landing in migrated tables.
func TestImport_AppliesTransformChainFromDetectedTag(t *testing.T) {
	ctx := context.Background()
	db, err := store.Open(store.Config{Driver: store.DriverSQLite, Path: ":memory:"})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer db.Close()

	a, err := domain.NewAdapter(domain.Adapter{
		ID: "notes",
		Tables: map[string][]domain.ColumnDef{
			"notes_entries": {
				{Name: "id", Type: domain.ColInteger, PrimaryKey: true},
				{Name: "body", Type: domain.ColText, NotNull: true},
				{Name: "status", Type: domain.ColText, NotNull: true},
			},
		},
		Versions: []domain.VersionDef{
			{Tag: "0000", Statements: []string{
				"CREATE TABLE notes_entries (id INTEGER PRIMARY KEY, body TEXT)",
			}},
			{Tag: "0001", Statements: []string{
				"ALTER TABLE notes_entries ADD COLUMN status TEXT NOT NULL DEFAULT 'draft'",
			}},
		},
		Transforms: map[string]domain.TransformFn{
			"0001": func(ds domain.Dataset, step domain.StepContext) (domain.Dataset, error) {
				out := ds.Clone()
				for _, row := range out["entries"] {
					if row["status"] == nil {
						row["status"] = "draft"
					}
				}
				return out, nil
			},
		},
	})
	if err != nil {
		t.Fatalf("NewAdapter failed: %v", err)
	}
	v := vault.New(db)
	if err := v.Register(a); err != nil {
		t.Fatalf("register: %v", err)
	}

	// Bundle taken at tag 0000, before the status column existed.
	bundle := vault.Bundle{
		"notes/notes_entries/1.json": "{\n  \"body\": \"hello\",\n  \"id\": 1\n}\n",
		"__meta__/notes/migration.json": `{
  "adapterId": "notes",
  "tag": "0000",
  "source": "ledger",
  "versions": ["0000", "0001"]
}
`,
	}
	if err := v.Import(ctx, vault.ImportOptions{Files: bundle, Codec: codec.JSON()}); err != nil {
		t.Fatalf("import: %v", err)
	}

	rows, err := db.SelectAll(ctx, "notes_entries", []string{"body", "id", "status"})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0]["status"] != "draft" {
		t.Errorf("expected transform to backfill status, got %v", rows[0])
	}
}

func bundleKeys(b vault.Bundle) []string {
	keys := make([]string, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	return keys
}
