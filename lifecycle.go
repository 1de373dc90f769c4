package runtime

import (
	"context"

	"github.com/lynxplug/runtime/dependency"
	"github.com/lynxplug/runtime/handler"
	"github.com/lynxplug/runtime/plugin"
)

// InitializePlugins runs the init handlers of plugins under scope. Bundles
// are enumerated plugin by plugin in the given order, each plugin's
// handlers in declaration order, and driven to a fixed point so that init
// handlers may depend on values their peers publish mid-batch. The result
// map preserves per-handler ordering for every plugin.
func (m *Manager) InitializePlugins(ctx context.Context, plugins []*plugin.Instance, scope dependency.Manager) (map[string][]Result, error) {
	bundles := collect(plugins, (*plugin.Instance).InitHandlers)
	results := m.invokeFixedPoint(ctx, bundles, scope)
	grouped := groupByPlugin(results)
	for _, p := range plugins {
		if failed := firstFailure(grouped[p.Name()]); failed != nil {
			m.logger.Errorf("plugin %s: initialization failed: %v", p.Name(), failed)
			continue
		}
		m.logger.Infof("plugin %s: initialized", p.Name())
	}
	return grouped, context.Cause(ctx)
}

// DestroyPlugins runs the destroy handlers of plugins under scope. A plugin
// leaves the active set when every one of its destroy handlers succeeded,
// or unconditionally when destroyOnFailure is set.
func (m *Manager) DestroyPlugins(ctx context.Context, plugins []*plugin.Instance, scope dependency.Manager, destroyOnFailure bool) map[string][]Result {
	bundles := collect(plugins, (*plugin.Instance).DestroyHandlers)
	results := m.invokeFixedPoint(ctx, bundles, scope)
	grouped := groupByPlugin(results)
	for _, p := range plugins {
		if failed := firstFailure(grouped[p.Name()]); failed != nil {
			m.logger.Errorf("plugin %s: destroy failed: %v", p.Name(), failed)
			if !destroyOnFailure {
				continue
			}
		} else {
			m.logger.Infof("plugin %s: destroyed", p.Name())
		}
		m.active.Delete(p.Name())
	}
	return grouped
}

// collect flattens one kind of handler across plugins into invocation
// bundles, preserving plugin order and per-plugin declaration order.
func collect(plugins []*plugin.Instance, pick func(*plugin.Instance) []handler.Descriptor) []Bundle {
	var bundles []Bundle
	for _, p := range plugins {
		for _, d := range pick(p) {
			bundles = append(bundles, Bundle{PluginName: p.Name(), Plugin: p, Handler: d})
		}
	}
	return bundles
}

// groupByPlugin splits a flat result sequence by plugin name, keeping the
// original relative order inside each group.
func groupByPlugin(results []Result) map[string][]Result {
	grouped := make(map[string][]Result)
	for _, r := range results {
		grouped[r.PluginName] = append(grouped[r.PluginName], r)
	}
	return grouped
}

func firstFailure(results []Result) error {
	for _, r := range results {
		if !r.Ok() {
			return r.Err
		}
	}
	return nil
}
