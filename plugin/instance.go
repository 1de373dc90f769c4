package plugin

import (
	"sync"

	"github.com/lynxplug/runtime/handler"
)

// Instance wraps one constructed plugin and memoizes the views the runtime
// needs: the four handler sequences, split by marker kind, and the
// event-name dispatch map. Derivation happens once per instance; handler
// declaration order is preserved within each sequence.
type Instance struct {
	plugin Plugin
	name   string

	once            sync.Once
	initHandlers    []handler.Descriptor
	destroyHandlers []handler.Descriptor
	eventHandlers   []handler.Descriptor
	eventsHandlers  []handler.Descriptor
	eventMethodMap  map[string][]handler.Descriptor
	perEvent        bool
}

// NewInstance wraps p under name, the key the runtime tracks it by. An
// empty name falls back to the fully qualified type name. The handler sets
// are derived lazily on first access.
func NewInstance(name string, p Plugin) *Instance {
	if name == "" {
		name = TypeName(p)
	}
	return &Instance{plugin: p, name: name}
}

// Name returns the name the instance is tracked under, normally the fully
// qualified type name.
func (in *Instance) Name() string { return in.name }

// Unwrap returns the wrapped plugin.
func (in *Instance) Unwrap() Plugin { return in.plugin }

// PerEventHint reports whether the plugin type asked for a fresh instance
// per event. The runtime records the hint without enforcing it.
func (in *Instance) PerEventHint() bool {
	in.derive()
	return in.perEvent
}

// InitHandlers returns the initialization handlers in declaration order.
func (in *Instance) InitHandlers() []handler.Descriptor {
	in.derive()
	return in.initHandlers
}

// DestroyHandlers returns the destruction handlers in declaration order.
func (in *Instance) DestroyHandlers() []handler.Descriptor {
	in.derive()
	return in.destroyHandlers
}

// EventHandlers returns the single-event handlers in declaration order.
func (in *Instance) EventHandlers() []handler.Descriptor {
	in.derive()
	return in.eventHandlers
}

// EventsHandlers returns the multi-event handlers in declaration order.
func (in *Instance) EventsHandlers() []handler.Descriptor {
	in.derive()
	return in.eventsHandlers
}

// HandlersFor returns the handlers bound to event, in declaration order. A
// method marked under the same event name through both the single-event and
// the multi-event marker contributes one entry.
func (in *Instance) HandlersFor(event string) []handler.Descriptor {
	in.derive()
	return in.eventMethodMap[event]
}

// EventNames returns every event name the plugin has at least one handler
// for.
func (in *Instance) EventNames() []string {
	in.derive()
	names := make([]string, 0, len(in.eventMethodMap))
	for n := range in.eventMethodMap {
		names = append(names, n)
	}
	return names
}

func (in *Instance) derive() {
	in.once.Do(func() {
		in.perEvent = handler.PerEventHint(in.plugin)
		in.eventMethodMap = make(map[string][]handler.Descriptor)
		seen := make(map[string]map[uintptr]bool)
		for _, d := range in.plugin.Handlers() {
			switch d.Kind() {
			case handler.KindInit:
				in.initHandlers = append(in.initHandlers, d)
			case handler.KindDestroy:
				in.destroyHandlers = append(in.destroyHandlers, d)
			case handler.KindEvent, handler.KindEvents:
				if d.Kind() == handler.KindEvent {
					in.eventHandlers = append(in.eventHandlers, d)
				} else {
					in.eventsHandlers = append(in.eventsHandlers, d)
				}
				for _, name := range d.EventNames() {
					fns := seen[name]
					if fns == nil {
						fns = make(map[uintptr]bool)
						seen[name] = fns
					}
					if fns[d.FuncID()] {
						continue
					}
					fns[d.FuncID()] = true
					in.eventMethodMap[name] = append(in.eventMethodMap[name], d)
				}
			}
		}
	})
}
