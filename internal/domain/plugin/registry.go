package plugin

import (
	"errors"
	"slices"
	"sync"
)

// Registry stores loaded plugins keyed by name, remembering registration
// order. Re-registering a name replaces the previous entry.
type Registry struct {
	mu      sync.RWMutex
	plugins map[string]*LoadedPlugin
	order   []string
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		plugins: make(map[string]*LoadedPlugin),
	}
}

// Register validates raw against the plugin's schema and stores the result.
// Plugins without a schema keep raw unchanged.
func (r *Registry) Register(p Plugin, raw map[string]any, source Source) (*LoadedPlugin, error) {
	return r.RegisterFrom(p, raw, source, "")
}

// RegisterFrom is Register with the directory the plugin was found in.
func (r *Registry) RegisterFrom(p Plugin, raw map[string]any, source Source, dir string) (*LoadedPlugin, error) {
	if p == nil {
		return nil, ErrNilPlugin
	}
	desc := p.Descriptor().Clone()
	if desc.Name == "" {
		return nil, ErrEmptyPluginName
	}

	var cfg Config
	if c, ok := p.(Configurable); ok && c.ConfigSchema() != nil {
		validated, err := c.ConfigSchema().Validate(raw)
		if err != nil {
			var cfgErr *ConfigError
			if errors.As(err, &cfgErr) {
				cfgErr.Plugin = desc.Name
			}
			return nil, err
		}
		cfg = validated
	} else {
		cfg = NewConfig(raw)
	}

	loaded := &LoadedPlugin{
		Plugin:     p,
		Descriptor: desc,
		Config:     cfg,
		Source:     source,
		Dir:        dir,
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.plugins[desc.Name]; exists {
		r.order = slices.DeleteFunc(r.order, func(name string) bool { return name == desc.Name })
	}
	r.plugins[desc.Name] = loaded
	r.order = append(r.order, desc.Name)
	return loaded, nil
}

// Get returns the named plugin or a *NotFoundError.
func (r *Registry) Get(name string) (*LoadedPlugin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lp, ok := r.plugins[name]
	if !ok {
		return nil, &NotFoundError{Name: name}
	}
	return lp, nil
}

// Has reports whether a plugin with the given name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.plugins[name]
	return ok
}

// All returns every registered plugin in registration order.
func (r *Registry) All() []*LoadedPlugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*LoadedPlugin, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.plugins[name])
	}
	return out
}

// Names returns the registered plugin names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Clone(r.order)
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.plugins)
}
