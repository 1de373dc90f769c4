// Command plugindemo drives the plugin runtime end to end: it discovers the
// compiled-in infrastructure plugins, initializes them, fires the domain
// events, and tears everything down.
package main

import (
	"context"
	"iter"
	"os"
	"os/signal"
	"reflect"
	"syscall"

	"github.com/go-kratos/kratos/v2/log"

	"github.com/lynxplug/runtime"
	"github.com/lynxplug/runtime/classpath"
	"github.com/lynxplug/runtime/dependency"
	"github.com/lynxplug/runtime/factory"
	"github.com/lynxplug/runtime/metadata"
	"github.com/lynxplug/runtime/plugins/metricsplug"
	"github.com/lynxplug/runtime/search"

	_ "github.com/lynxplug/runtime/plugins/esplug"
	_ "github.com/lynxplug/runtime/plugins/grpcplug"
	_ "github.com/lynxplug/runtime/plugins/jwtplug"
	_ "github.com/lynxplug/runtime/plugins/kafkaplug"
	_ "github.com/lynxplug/runtime/plugins/mongoplug"
	_ "github.com/lynxplug/runtime/plugins/mysqlplug"
	_ "github.com/lynxplug/runtime/plugins/pgplug"
	_ "github.com/lynxplug/runtime/plugins/rabbitplug"
	_ "github.com/lynxplug/runtime/plugins/redisplug"
	_ "github.com/lynxplug/runtime/plugins/tracerplug"
)

// registryScanner reports every plugin type registered with the constructor
// registry as a concrete implementor of the plugin marker. Compiled-in
// plugins take the place of archive scanning in this harness.
type registryScanner struct {
	registry *factory.Registry
}

func (s *registryScanner) Scan(paths ...string) iter.Seq[metadata.ClassInfo] {
	return func(yield func(metadata.ClassInfo) bool) {
		if len(paths) > 0 {
			return
		}
		for _, name := range s.registry.Names() {
			ci := metadata.ClassInfo{
				Name:       name,
				Concrete:   true,
				Interfaces: []string{search.DefaultMarker},
			}
			if !yield(ci) {
				return
			}
		}
	}
}

// nullResolver is never consulted: every demo plugin has a registered
// creator.
type nullResolver struct{}

func (nullResolver) Resolve(name string) (reflect.Type, error) {
	return nil, os.ErrNotExist
}

func main() {
	helper := log.NewHelper(log.With(log.NewStdLogger(os.Stdout),
		"timestamp", log.DefaultTimestamp,
		"service.name", "plugindemo",
	))

	registry := factory.GlobalRegistry()
	manager := runtime.NewManager(
		search.New(&registryScanner{registry: registry}, search.DefaultMarker),
		classpath.New(nullResolver{}),
		runtime.WithRegistry(registry),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	results, err := manager.Initialize(ctx)
	if err != nil {
		helper.Errorf("initialize aborted: %v", err)
		return
	}
	for name, rs := range results {
		for _, r := range rs {
			if !r.Ok() {
				helper.Warnf("plugin %s: init handler failed: %v", name, r.Err)
			}
		}
	}

	for _, event := range []string{"cache.warm", "store.migrate", "index.refresh", "broker.flush", "trace.flush"} {
		d, derr := dependency.NewFromValue(metricsplug.EventNameDep, event)
		if derr != nil {
			helper.Errorf("event %s: %v", event, derr)
			continue
		}
		rs, ferr := manager.FireEventWith(ctx, event, d)
		if ferr != nil {
			helper.Errorf("event %s: %v", event, ferr)
			continue
		}
		for _, r := range rs {
			if !r.Ok() {
				helper.Warnf("event %s: plugin %s failed: %v", event, r.PluginName, r.Err)
			}
		}
	}

	manager.DestroyPlugins(ctx, manager.ActivePlugins(), dependency.Empty, true)
	helper.Info("demo complete")
}
