package vault

import (
	"context"
	"fmt"
	"sort"

	"vault/domain"
	"vault/migrate"
	"vault/store"
)

// Vault is the orchestrator: a set of registered, uniquely identified
// adapters sharing one store connection. Adapters are registered at
// startup from an explicit list; there is no reflective discovery.
type Vault struct {
	db       *store.DB
	runner   *migrate.Runner
	adapters map[string]*domain.Adapter
}

// New creates a vault on an open store.
func New(db *store.DB) *Vault {
	return &Vault{
		db:       db,
		runner:   &migrate.Runner{DB: db},
		adapters: make(map[string]*domain.Adapter),
	}
}

// Register adds an adapter. Ids must be unique across the vault.
func (v *Vault) Register(a *domain.Adapter) error {
	if _, exists := v.adapters[a.ID]; exists {
		return fmt.Errorf("adapter %q: %w", a.ID, domain.ErrDuplicateAdapterID)
	}
	v.adapters[a.ID] = a
	return nil
}

// Adapter returns a registered adapter by id.
func (v *Vault) Adapter(id string) (*domain.Adapter, bool) {
	a, ok := v.adapters[id]
	return a, ok
}

// AdapterIDs returns the registered adapter ids, sorted.
func (v *Vault) AdapterIDs() []string {
	ids := make([]string, 0, len(v.adapters))
	for id := range v.adapters {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// EnsureMigrated brings one adapter's tables to the latest declared tag
// and returns the resulting tag. Export, import, and ingest call this
// before touching rows; it is exposed for hosts using the query
// interface directly.
func (v *Vault) EnsureMigrated(ctx context.Context, adapterID string) (string, error) {
	a, ok := v.adapters[adapterID]
	if !ok {
		return "", fmt.Errorf("adapter %q: %w", adapterID, domain.ErrUnknownAdapter)
	}
	return v.runner.EnsureMigrated(ctx, a)
}

// QueryInterface is a read/write escape hatch for host code needing
// cross-adapter joins. It performs no migration check itself; callers
// are responsible for having triggered one.
type QueryInterface struct {
	Store *store.DB
	// Tables maps adapter id → unprefixed table name → store table name.
	Tables map[string]map[string]string
}

// GetQueryInterface exposes the shared store plus the table names each
// adapter owns.
func (v *Vault) GetQueryInterface() QueryInterface {
	tables := make(map[string]map[string]string, len(v.adapters))
	for id, a := range v.adapters {
		set := make(map[string]string, len(a.Tables))
		for _, t := range a.TableNames() {
			set[a.Unprefix(t)] = t
		}
		tables[id] = set
	}
	return QueryInterface{Store: v.db, Tables: tables}
}
