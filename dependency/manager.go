package dependency

import (
	"reflect"
	"sync"

	"github.com/google/uuid"
	"github.com/lynxplug/runtime/pluginerr"
)

// Manager is a named registry of Dependency values, queryable by name, by
// assignable value class, or by assignable abstract type.
type Manager interface {
	// Add generates a fresh unique name for value and stores it.
	Add(value any) (Dependency, error)
	// AddNamed stores value under name, failing if name is already bound.
	AddNamed(name string, value any) error
	// AddDependency stores d under d.Name, failing on name collision.
	AddDependency(d Dependency) error

	Find(name string) (Dependency, bool)
	FindByType(t reflect.Type) []Dependency
	FindByValueClass(c reflect.Type) []Dependency

	Remove(name string) (Dependency, bool)
	RemoveByType(t reflect.Type) []Dependency
	RemoveByValueClass(c reflect.Type) []Dependency

	ToMap() map[string]Dependency
	ToSeq() []Dependency
}

// manager is the default concurrency-safe Manager implementation. A
// sync.RWMutex guards the backing map; entries preserve insertion order in
// ToSeq and the Find/Remove sweeps, so unnamed parameter resolution can rely
// on "last registered wins".
type manager struct {
	mu      sync.RWMutex
	byName  map[string]Dependency
	ordered []string // insertion order of names still present
}

// NewManager returns an empty, concurrency-safe Manager.
func NewManager() Manager {
	return &manager{byName: make(map[string]Dependency)}
}

func (m *manager) Add(value any) (Dependency, error) {
	d, err := NewFromValue(uuid.NewString(), value)
	if err != nil {
		return Dependency{}, err
	}
	if err := m.AddDependency(d); err != nil {
		return Dependency{}, err
	}
	return d, nil
}

func (m *manager) AddNamed(name string, value any) error {
	d, err := NewFromValue(name, value)
	if err != nil {
		return err
	}
	return m.AddDependency(d)
}

func (m *manager) AddDependency(d Dependency) error {
	if d.Name == "" || d.Value == nil || d.AbstractType == nil {
		return pluginerr.BadDependency("dependency has empty name, value, or abstractType")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byName[d.Name]; exists {
		return pluginerr.DuplicateDependency(d.Name)
	}
	m.byName[d.Name] = d
	m.ordered = append(m.ordered, d.Name)
	return nil
}

func (m *manager) Find(name string) (Dependency, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.byName[name]
	return d, ok
}

func (m *manager) FindByType(t reflect.Type) []Dependency {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Dependency
	for _, name := range m.ordered {
		d := m.byName[name]
		if d.assignableToType(t) {
			out = append(out, d)
		}
	}
	return out
}

func (m *manager) FindByValueClass(c reflect.Type) []Dependency {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Dependency
	for _, name := range m.ordered {
		d := m.byName[name]
		if d.assignableToValueClass(c) {
			out = append(out, d)
		}
	}
	return out
}

func (m *manager) Remove(name string) (Dependency, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.byName[name]
	if !ok {
		return Dependency{}, false
	}
	delete(m.byName, name)
	m.removeFromOrder(name)
	return d, true
}

func (m *manager) RemoveByType(t reflect.Type) []Dependency {
	return m.removeWhere(func(d Dependency) bool { return d.assignableToType(t) })
}

func (m *manager) RemoveByValueClass(c reflect.Type) []Dependency {
	return m.removeWhere(func(d Dependency) bool { return d.assignableToValueClass(c) })
}

func (m *manager) removeWhere(match func(Dependency) bool) []Dependency {
	m.mu.Lock()
	defer m.mu.Unlock()
	var removed []Dependency
	var kept []string
	for _, name := range m.ordered {
		d := m.byName[name]
		if match(d) {
			removed = append(removed, d)
			delete(m.byName, name)
			continue
		}
		kept = append(kept, name)
	}
	m.ordered = kept
	return removed
}

func (m *manager) removeFromOrder(name string) {
	for i, n := range m.ordered {
		if n == name {
			m.ordered = append(m.ordered[:i], m.ordered[i+1:]...)
			return
		}
	}
}

func (m *manager) ToMap() map[string]Dependency {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]Dependency, len(m.byName))
	for k, v := range m.byName {
		out[k] = v
	}
	return out
}

func (m *manager) ToSeq() []Dependency {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Dependency, 0, len(m.ordered))
	for _, name := range m.ordered {
		out = append(out, m.byName[name])
	}
	return out
}

// emptyManager is the designated sentinel that silently discards every
// addition. It stands in wherever a scoped manager is optional.
type emptyManager struct{}

// Empty is the shared Empty manager instance.
var Empty Manager = emptyManager{}

func (emptyManager) Add(value any) (Dependency, error) { return Dependency{}, nil }

func (emptyManager) AddNamed(name string, value any) error { return nil }

func (emptyManager) AddDependency(d Dependency) error { return nil }

func (emptyManager) Find(name string) (Dependency, bool) { return Dependency{}, false }

func (emptyManager) FindByType(t reflect.Type) []Dependency { return nil }

func (emptyManager) FindByValueClass(c reflect.Type) []Dependency { return nil }

func (emptyManager) Remove(name string) (Dependency, bool) { return Dependency{}, false }

func (emptyManager) RemoveByType(t reflect.Type) []Dependency { return nil }

func (emptyManager) RemoveByValueClass(c reflect.Type) []Dependency { return nil }

func (emptyManager) ToMap() map[string]Dependency { return map[string]Dependency{} }

func (emptyManager) ToSeq() []Dependency { return nil }
