// Package codec provides pluggable serializers for one row's flat
// record to/from bundle file text. Export and import must be handed
// matching codecs for a given bundle.
package codec

import (
	"fmt"
	"sync"

	"vault/domain"
)

var (
	registryMu sync.RWMutex
	registry   = map[string]domain.Codec{}
)

// Register registers a codec by id. Called from init() in each codec
// implementation file; hosts may register their own.
func Register(c domain.Codec) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[c.ID()] = c
}

// Get returns a registered codec by id.
func Get(id string) (domain.Codec, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	c, ok := registry[id]
	if !ok {
		return nil, fmt.Errorf("unknown codec: %q", id)
	}
	return c, nil
}

// List returns the ids of all registered codecs.
func List() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	ids := make([]string, 0, len(registry))
	for id := range registry {
		ids = append(ids, id)
	}
	return ids
}
