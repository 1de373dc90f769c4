// Package factory provides the registry of plugin constructors the runtime
// consults when materializing a discovered type. Plugin packages register a
// creator for their fully qualified type name, usually from an init
// function; the manager falls back to reflective zero-value construction
// for types with no registered creator.
package factory

import (
	"errors"
	"sync"

	"github.com/lynxplug/runtime/plugin"
)

// global factory instance
var globalRegistry = NewRegistry()

// GlobalRegistry returns the process-wide constructor registry.
func GlobalRegistry() *Registry {
	return globalRegistry
}

// Registry maps fully qualified plugin type names to their creators.
type Registry struct {
	mu       sync.RWMutex
	creators map[string]func() plugin.Plugin
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	return &Registry{creators: make(map[string]func() plugin.Plugin)}
}

// Register adds a creator under name. Registering the same name twice is a
// programming error and panics, so a plugin cannot be silently overwritten.
func (r *Registry) Register(name string, creator func() plugin.Plugin) {
	if name == "" || creator == nil {
		panic(errors.New("factory: registration requires a name and a creator"))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.creators[name]; exists {
		panic(errors.New("factory: plugin with the same name already exists, pluginName:" + name))
	}
	r.creators[name] = creator
}

// Unregister removes the creator registered under name, if any.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.creators, name)
}

// Has reports whether a creator is registered under name.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.creators[name]
	return exists
}

// Create instantiates a new plugin by name.
func (r *Registry) Create(name string) (plugin.Plugin, error) {
	r.mu.RLock()
	creator, exists := r.creators[name]
	r.mu.RUnlock()
	if !exists {
		return nil, errors.New("factory: no creator registered for " + name)
	}
	p := creator()
	if p == nil {
		return nil, errors.New("factory: creator for " + name + " returned nil")
	}
	return p, nil
}

// Names returns the registered type names in no particular order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.creators))
	for n := range r.creators {
		out = append(out, n)
	}
	return out
}

// Register adds a creator to the global registry.
func Register(name string, creator func() plugin.Plugin) {
	globalRegistry.Register(name, creator)
}
