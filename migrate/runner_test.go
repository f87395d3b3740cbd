package migrate_test

import (
	"context"
	"reflect"
	"testing"

	"vault/domain"
	"vault/migrate"
	"vault/store"
)

func openTestDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(store.Config{Driver: store.DriverSQLite, Path: ":memory:"})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func itemsAdapter(t *testing.T, extra ...domain.VersionDef) *domain.Adapter {
	t.Helper()
	def := domain.Adapter{
		ID: "test",
		Tables: map[string][]domain.ColumnDef{
			"test_items": {
				{Name: "id", Type: domain.ColInteger, PrimaryKey: true},
				{Name: "name", Type: domain.ColText},
				{Name: "created_at", Type: domain.ColInteger},
			},
		},
		Versions: []domain.VersionDef{
			{Tag: "0000", Statements: []string{
				"CREATE TABLE test_items (id INTEGER PRIMARY KEY, name TEXT, created_at INTEGER)",
			}},
		},
	}
	def.Versions = append(def.Versions, extra...)
	if len(def.Versions) > 1 {
		def.Transforms = map[string]domain.TransformFn{}
		for _, v := range def.Versions[1:] {
			def.Transforms[v.Tag] = func(ds domain.Dataset, step domain.StepContext) (domain.Dataset, error) {
				return ds, nil
			}
		}
	}
	a, err := domain.NewAdapter(def)
	if err != nil {
		t.Fatalf("NewAdapter failed: %v", err)
	}
	return a
}

func TestEnsureMigrated_AppliesBaseline(t *testing.T) {
	db := openTestDB(t)
	r := &migrate.Runner{DB: db}
	ctx := context.Background()

	tag, err := r.EnsureMigrated(ctx, itemsAdapter(t))
	if err != nil {
		t.Fatalf("EnsureMigrated failed: %v", err)
	}
	if tag != "0000" {
		t.Errorf("expected resulting tag 0000, got %q", tag)
	}

	// The migrated table must exist and be writable.
	if err := db.InsertRow(ctx, "test_items", domain.Row{"id": int64(1), "name": "x"}); err != nil {
		t.Fatalf("insert into migrated table: %v", err)
	}
}

func TestEnsureMigrated_Idempotent(t *testing.T) {
	db := openTestDB(t)
	r := &migrate.Runner{DB: db}
	ctx := context.Background()
	a := itemsAdapter(t)

	if _, err := r.EnsureMigrated(ctx, a); err != nil {
		t.Fatalf("first EnsureMigrated failed: %v", err)
	}
	before, err := db.JournalTags(ctx, "test")
	if err != nil {
		t.Fatalf("journal: %v", err)
	}

	if _, err := r.EnsureMigrated(ctx, a); err != nil {
		t.Fatalf("second EnsureMigrated failed: %v", err)
	}
	after, err := db.JournalTags(ctx, "test")
	if err != nil {
		t.Fatalf("journal: %v", err)
	}

	if !reflect.DeepEqual(before, after) {
		t.Errorf("expected no new journal rows, got %v then %v", before, after)
	}
	tag, _, err := db.CurrentTag(ctx, "test")
	if err != nil {
		t.Fatalf("current tag: %v", err)
	}
	if tag != "0000" {
		t.Errorf("expected ledger unchanged at 0000, got %q", tag)
	}
}

func TestEnsureMigrated_MultiVersion(t *testing.T) {
	db := openTestDB(t)
	r := &migrate.Runner{DB: db}
	ctx := context.Background()

	a := itemsAdapter(t, domain.VersionDef{
		Tag: "0001",
		Statements: []string{
			"ALTER TABLE test_items ADD COLUMN archived INTEGER DEFAULT 0; CREATE INDEX idx_test_items_archived ON test_items(archived)",
		},
	})

	tag, err := r.EnsureMigrated(ctx, a)
	if err != nil {
		t.Fatalf("EnsureMigrated failed: %v", err)
	}
	if tag != "0001" {
		t.Errorf("expected tag 0001, got %q", tag)
	}

	journal, err := db.JournalTags(ctx, "test")
	if err != nil {
		t.Fatalf("journal: %v", err)
	}
	if !reflect.DeepEqual(journal, []string{"0000", "0001"}) {
		t.Errorf("expected journal [0000 0001], got %v", journal)
	}
}

func TestEnsureMigrated_FailureKeepsLastGoodTag(t *testing.T) {
	db := openTestDB(t)
	r := &migrate.Runner{DB: db}
	ctx := context.Background()

	a := itemsAdapter(t, domain.VersionDef{
		Tag:        "0001",
		Statements: []string{"THIS IS NOT SQL"},
	})

	if _, err := r.EnsureMigrated(ctx, a); err == nil {
		t.Fatal("expected migration to fail on bad statement")
	}

	tag, ok, err := db.CurrentTag(ctx, "test")
	if err != nil {
		t.Fatalf("current tag: %v", err)
	}
	if !ok || tag != "0000" {
		t.Errorf("expected ledger at last completed tag 0000, got ok=%v tag=%q", ok, tag)
	}

	// Retry after fixing the adapter resumes from 0000.
	fixed := itemsAdapter(t, domain.VersionDef{
		Tag:        "0001",
		Statements: []string{"ALTER TABLE test_items ADD COLUMN archived INTEGER DEFAULT 0"},
	})
	tagAfter, err := r.EnsureMigrated(ctx, fixed)
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if tagAfter != "0001" {
		t.Errorf("expected retry to reach 0001, got %q", tagAfter)
	}
}
