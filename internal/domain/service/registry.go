package service

import "sort"

// Registry holds the services available to compose generation, in
// registration order. Registering a name again replaces the earlier service.
type Registry struct {
	services map[string]Service
	order    []string
}

// NewRegistry creates an empty service registry.
func NewRegistry() *Registry {
	return &Registry{services: make(map[string]Service)}
}

// Register adds svc, replacing any service with the same name.
func (r *Registry) Register(svc Service) {
	name := svc.Name()
	if _, exists := r.services[name]; exists {
		r.remove(name)
	}
	r.services[name] = svc
	r.order = append(r.order, name)
}

func (r *Registry) remove(name string) {
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			return
		}
	}
}

// Get returns the service registered under name.
func (r *Registry) Get(name string) (Service, bool) {
	svc, ok := r.services[name]
	return svc, ok
}

// Database returns the named service when it is a DatabaseService.
func (r *Registry) Database(name string) (DatabaseService, bool) {
	svc, ok := r.services[name]
	if !ok {
		return nil, false
	}
	db, ok := svc.(DatabaseService)
	return db, ok
}

// All returns the services in registration order.
func (r *Registry) All() []Service {
	out := make([]Service, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.services[name])
	}
	return out
}

// Names returns the registered names sorted alphabetically.
func (r *Registry) Names() []string {
	names := append([]string(nil), r.order...)
	sort.Strings(names)
	return names
}

// Len returns the number of registered services.
func (r *Registry) Len() int {
	return len(r.order)
}
