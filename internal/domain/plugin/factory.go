package plugin

import (
	"sort"
	"sync"
)

// Factory constructs a plugin with no arguments.
type Factory func() (Plugin, error)

// FactoryTable maps stable identifiers to plugin constructors. Declarations
// and package manifests name an identifier; the table resolves it without
// any dynamic loading.
type FactoryTable struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewFactoryTable creates an empty table.
func NewFactoryTable() *FactoryTable {
	return &FactoryTable{factories: make(map[string]Factory)}
}

// DefaultFactories is populated by bundled plugin packages from init.
var DefaultFactories = NewFactoryTable()

// RegisterFactory adds a constructor to DefaultFactories.
func RegisterFactory(id string, f Factory) {
	DefaultFactories.Register(id, f)
}

// Register adds or replaces the constructor for id.
func (t *FactoryTable) Register(id string, f Factory) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.factories[id] = f
}

// Lookup returns the constructor for id. A registered nil constructor is
// reported as present.
func (t *FactoryTable) Lookup(id string) (Factory, bool) {
	if t == nil {
		return nil, false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()

	f, ok := t.factories[id]
	return f, ok
}

// IDs returns the registered identifiers in sorted order.
func (t *FactoryTable) IDs() []string {
	if t == nil {
		return nil
	}
	t.mu.RLock()
	defer t.mu.RUnlock()

	ids := make([]string, 0, len(t.factories))
	for id := range t.factories {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
