package runtime

import (
	"fmt"
	"iter"
	"reflect"
	"testing"

	"github.com/lynxplug/runtime/classpath"
	"github.com/lynxplug/runtime/factory"
	"github.com/lynxplug/runtime/internal/applog"
	"github.com/lynxplug/runtime/metadata"
	"github.com/lynxplug/runtime/plugin"
	"github.com/lynxplug/runtime/search"
)

const testMarker = "test.Plugin"

// stubScanner serves a fixed internal set and a per-path external set.
type stubScanner struct {
	internal []metadata.ClassInfo
	byPath   map[string][]metadata.ClassInfo
}

func (s *stubScanner) Scan(paths ...string) iter.Seq[metadata.ClassInfo] {
	return func(yield func(metadata.ClassInfo) bool) {
		if len(paths) == 0 {
			for _, ci := range s.internal {
				if !yield(ci) {
					return
				}
			}
			return
		}
		for _, p := range paths {
			for _, ci := range s.byPath[p] {
				if !yield(ci) {
					return
				}
			}
		}
	}
}

// concreteClass is metadata for a concrete type directly implementing the
// test marker.
func concreteClass(name string) metadata.ClassInfo {
	return metadata.ClassInfo{Name: name, Concrete: true, Interfaces: []string{testMarker}}
}

// concreteClasses builds scanner output for concrete marker implementors.
func concreteClasses(names ...string) []metadata.ClassInfo {
	out := make([]metadata.ClassInfo, len(names))
	for i, n := range names {
		out[i] = concreteClass(n)
	}
	return out
}

type stubResolver map[string]reflect.Type

func (r stubResolver) Resolve(name string) (reflect.Type, error) {
	t, ok := r[name]
	if !ok {
		return nil, fmt.Errorf("unknown type %s", name)
	}
	return t, nil
}

type testEnv struct {
	manager  *Manager
	scanner  *stubScanner
	resolver stubResolver
	registry *factory.Registry
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		scanner:  &stubScanner{byPath: make(map[string][]metadata.ClassInfo)},
		resolver: make(stubResolver),
		registry: factory.NewRegistry(),
	}
	env.manager = NewManager(
		search.New(env.scanner, testMarker),
		classpath.New(env.resolver),
		WithRegistry(env.registry),
	)
	env.manager.logger = applog.Discard()
	return env
}

// load attaches p to the manager and wraps it for bundle construction,
// bypassing discovery.
func (e *testEnv) load(t *testing.T, p plugin.Plugin) *plugin.Instance {
	t.Helper()
	if err := p.Attach(e.manager); err != nil {
		t.Fatalf("attach: %v", err)
	}
	inst := plugin.NewInstance("", p)
	e.manager.active.Store(inst.Name(), inst)
	return inst
}
