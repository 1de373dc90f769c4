// Package classpath maintains the deduplicated set of search roots the
// runtime extends when external plugin paths are admitted. Type resolution
// itself is delegated to a parent resolver supplied by the host.
package classpath

import (
	"reflect"
	"sync"

	"github.com/lynxplug/runtime/metadata"
)

// Roots is a set-like collection of classpath roots with parent-first type
// resolution.
type Roots struct {
	mu     sync.Mutex
	parent metadata.Resolver
	seen   map[string]bool
	order  []string
}

// New builds an empty Roots delegating resolution to parent.
func New(parent metadata.Resolver) *Roots {
	return &Roots{parent: parent, seen: make(map[string]bool)}
}

// Add admits root into the set. Adding a root that is already present is a
// no-op; the return value reports whether the set grew.
func (r *Roots) Add(root string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.seen[root] {
		return false
	}
	r.seen[root] = true
	r.order = append(r.order, root)
	return true
}

// List returns the admitted roots in admission order.
func (r *Roots) List() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Resolve materializes name through the parent resolver.
func (r *Roots) Resolve(name string) (reflect.Type, error) {
	return r.parent.Resolve(name)
}
