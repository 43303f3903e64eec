package form

import (
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-formgen-orm/pkg/orm"
)

// ChildFormFactory builds the form for one related entity of a collection.
type ChildFormFactory func(entity orm.Entity) (ObjectCarrier, error)

// Registry maps child form names (e.g. "BookForm") to factories. Later
// registrations under the same name win.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]ChildFormFactory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]ChildFormFactory)}
}

// Register adds factory under name. Empty names and nil factories are
// ignored.
func (r *Registry) Register(name string, factory ChildFormFactory) {
	if r == nil || factory == nil {
		return
	}
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.factories == nil {
		r.factories = make(map[string]ChildFormFactory)
	}
	r.factories[trimmed] = factory
}

// Resolve returns the factory registered under name.
func (r *Registry) Resolve(name string) (ChildFormFactory, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	factory, ok := r.factories[strings.TrimSpace(name)]
	return factory, ok
}

// Names lists registered names alphabetically.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// EntityFormFactory returns a factory building EntityForms that share the
// given schemas. Each form gets its own copy of both schemas.
func EntityFormFactory(fields *FieldSchema, validators *ValidatorSchema, options ...Option) ChildFormFactory {
	return func(entity orm.Entity) (ObjectCarrier, error) {
		opts := append([]Option{WithFieldSchema(fields), WithValidatorSchema(validators)}, options...)
		return NewEntityForm(entity, opts...)
	}
}
