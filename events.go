package runtime

import (
	"context"

	"github.com/lynxplug/runtime/dependency"
)

// FireEvent dispatches eventName to every active plugin with a handler
// bound to it, under scope. Results are returned flat, in the order the
// bundles were enumerated; enumeration order across plugins is not a
// contract.
func (m *Manager) FireEvent(ctx context.Context, eventName string, scope dependency.Manager) []Result {
	var bundles []Bundle
	for _, p := range m.ActivePlugins() {
		for _, d := range p.HandlersFor(eventName) {
			bundles = append(bundles, Bundle{PluginName: p.Name(), Plugin: p, Handler: d})
		}
	}
	return m.invokeFixedPoint(ctx, bundles, scope)
}

// FireEventWith builds a fresh scoped manager from deps and dispatches
// eventName under it.
func (m *Manager) FireEventWith(ctx context.Context, eventName string, deps ...dependency.Dependency) ([]Result, error) {
	scope := dependency.NewManager()
	for _, d := range deps {
		if err := scope.AddDependency(d); err != nil {
			return nil, err
		}
	}
	return m.FireEvent(ctx, eventName, scope), nil
}
