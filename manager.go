// Package runtime orchestrates the plugin lifecycle: discovery through the
// metadata searcher, instantiation through the constructor registry or the
// host's type resolver, initialization and destruction of handler batches,
// and named-event dispatch. Handler parameters are resolved against a
// scoped view layered over the global dependency manager by the fixed-point
// invoker in invoker.go.
package runtime

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/go-kratos/kratos/v2/log"

	"github.com/lynxplug/runtime/classpath"
	"github.com/lynxplug/runtime/dependency"
	"github.com/lynxplug/runtime/factory"
	"github.com/lynxplug/runtime/internal/applog"
	"github.com/lynxplug/runtime/metadata"
	"github.com/lynxplug/runtime/plugin"
	"github.com/lynxplug/runtime/pluginerr"
	"github.com/lynxplug/runtime/search"
)

// Manager owns the active plugin set and the global dependency manager. It
// implements plugin.Registrar, so handler bodies publish dependencies for
// their peers through the back-reference attached at load time.
type Manager struct {
	searcher *search.Searcher
	roots    *classpath.Roots
	registry *factory.Registry
	global   dependency.Manager
	logger   *log.Helper

	internalOnce sync.Once
	internal     sync.Map // type name -> metadata.ClassInfo
	external     sync.Map // type name -> metadata.ClassInfo
	active       sync.Map // type name -> *plugin.Instance
}

// Option customizes a Manager at construction.
type Option func(*Manager)

// WithRegistry replaces the global constructor registry.
func WithRegistry(r *factory.Registry) Option {
	return func(m *Manager) { m.registry = r }
}

// WithLogger replaces the default stdout logger.
func WithLogger(l log.Logger) Option {
	return func(m *Manager) { m.logger = applog.NewWith(l) }
}

// WithDependencyManager replaces the global dependency manager.
func WithDependencyManager(d dependency.Manager) Option {
	return func(m *Manager) { m.global = d }
}

// NewManager builds a Manager over the given searcher and classpath roots.
func NewManager(searcher *search.Searcher, roots *classpath.Roots, opts ...Option) *Manager {
	m := &Manager{
		searcher: searcher,
		roots:    roots,
		registry: factory.GlobalRegistry(),
		global:   dependency.NewManager(),
		logger:   applog.New("plugin-runtime"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Dependencies returns the global dependency manager.
func (m *Manager) Dependencies() dependency.Manager { return m.global }

// Register publishes value into the global dependency manager under a
// generated unique name. It is the back-reference target of every loaded
// plugin.
func (m *Manager) Register(value any) (dependency.Dependency, error) {
	return m.global.Add(value)
}

// RegisterNamed publishes value into the global dependency manager under
// name.
func (m *Manager) RegisterNamed(name string, value any) error {
	return m.global.AddNamed(name, value)
}

// Active returns the active plugin registered under name, if any.
func (m *Manager) Active(name string) (*plugin.Instance, bool) {
	v, ok := m.active.Load(name)
	if !ok {
		return nil, false
	}
	return v.(*plugin.Instance), true
}

// ActivePlugins returns a snapshot of the active plugin set. Ordering is
// not a contract.
func (m *Manager) ActivePlugins() []*plugin.Instance {
	var out []*plugin.Instance
	m.active.Range(func(_, v any) bool {
		out = append(out, v.(*plugin.Instance))
		return true
	})
	return out
}

// LoadPlugin returns the active plugin registered under name, or constructs
// one. Construction prefers a registered creator and falls back to
// zero-value construction of typ. The constructed instance must satisfy the
// plugin capability; the manager attaches itself as the instance's
// back-reference before admitting it to the active set.
func (m *Manager) LoadPlugin(name string, typ reflect.Type) (*plugin.Instance, error) {
	if inst, ok := m.Active(name); ok {
		return inst, nil
	}
	raw, err := m.construct(name, typ)
	if err != nil {
		return nil, err
	}
	p, ok := raw.(plugin.Plugin)
	if !ok {
		return nil, pluginerr.UnknownPluginType(name)
	}
	if err := p.Attach(m); err != nil {
		return nil, pluginerr.LoadFailure(name, err)
	}
	inst := plugin.NewInstance(name, p)
	actual, raced := m.active.LoadOrStore(name, inst)
	if raced {
		return actual.(*plugin.Instance), nil
	}
	return inst, nil
}

// loadByName materializes name through the classpath resolver when no
// creator is registered for it.
func (m *Manager) loadByName(name string) (*plugin.Instance, error) {
	if m.registry.Has(name) {
		return m.LoadPlugin(name, nil)
	}
	typ, err := m.roots.Resolve(name)
	if err != nil {
		return nil, pluginerr.LoadFailure(name, err)
	}
	return m.LoadPlugin(name, typ)
}

// construct builds the raw instance for name: creator first, reflective
// zero-value construction second. Construction panics are captured as load
// failures.
func (m *Manager) construct(name string, typ reflect.Type) (raw any, err error) {
	defer func() {
		if r := recover(); r != nil {
			raw = nil
			err = pluginerr.LoadFailure(name, fmt.Errorf("constructing %s: %v", name, r))
		}
	}()
	if m.registry.Has(name) {
		p, cerr := m.registry.Create(name)
		if cerr != nil {
			return nil, pluginerr.LoadFailure(name, cerr)
		}
		return p, nil
	}
	if typ == nil {
		return nil, pluginerr.LoadFailure(name, fmt.Errorf("no creator and no type for %s", name))
	}
	if typ.Kind() == reflect.Pointer {
		return reflect.New(typ.Elem()).Interface(), nil
	}
	return reflect.New(typ).Interface(), nil
}

// Initialize discovers the internal type set on first call, loads every
// discovered type, and runs the init phase of every internal plugin it
// loaded or found already active, with an empty scope; a repeat call
// re-runs the init handlers of plugins already loaded. Load failures are
// logged and skipped; they do not abort the remaining loads.
func (m *Manager) Initialize(ctx context.Context) (map[string][]Result, error) {
	m.internalOnce.Do(func() {
		for ci := range m.searcher.Internal() {
			m.internal.Store(ci.Name, ci)
		}
	})
	var loaded []*plugin.Instance
	m.internal.Range(func(k, _ any) bool {
		name := k.(string)
		inst, err := m.loadByName(name)
		if err != nil {
			m.logger.Errorf("plugin %s: load failed: %v", name, err)
			return true
		}
		loaded = append(loaded, inst)
		return true
	})
	return m.InitializePlugins(ctx, loaded, dependency.Empty)
}

// LoadPlugins extends the classpath with paths, searches them for plugin
// types, and loads each discovered type. The returned sequence contains
// only the plugins this call brought into the active set; initialization is
// left to the caller.
func (m *Manager) LoadPlugins(ctx context.Context, paths ...string) ([]*plugin.Instance, error) {
	for _, p := range paths {
		m.roots.Add(p)
	}
	var loaded []*plugin.Instance
	for ci := range m.searcher.Search(paths...) {
		if err := ctx.Err(); err != nil {
			return loaded, err
		}
		m.external.Store(ci.Name, ci)
		if _, already := m.Active(ci.Name); already {
			continue
		}
		inst, err := m.loadByName(ci.Name)
		if err != nil {
			m.logger.Errorf("plugin %s: load failed: %v", ci.Name, err)
			continue
		}
		loaded = append(loaded, inst)
	}
	return loaded, nil
}

// ExternalTypes returns the metadata of every type admitted through
// LoadPlugins.
func (m *Manager) ExternalTypes() []metadata.ClassInfo {
	var out []metadata.ClassInfo
	m.external.Range(func(_, v any) bool {
		out = append(out, v.(metadata.ClassInfo))
		return true
	})
	return out
}
