// Package plugin defines the plugin model: the interface a discovered type
// must satisfy, the embeddable Base that carries the manager back-reference,
// and the Instance wrapper that memoizes a plugin's handler sets and its
// event-name dispatch map.
package plugin

import (
	"reflect"

	"github.com/lynxplug/runtime/dependency"
	"github.com/lynxplug/runtime/handler"
)

// Registrar is the surface a plugin uses to publish dependencies into the
// global dependency manager. The plugin manager implements it and hands
// itself to every plugin it loads.
type Registrar interface {
	// Register stores value under a generated unique name.
	Register(value any) (dependency.Dependency, error)
	// RegisterNamed stores value under name, failing on a name collision.
	RegisterNamed(name string, value any) error
}

// Plugin is the capability a constructed instance must expose to be managed.
// Name may return the empty string, in which case the runtime derives the
// fully qualified type name reflectively. Attach is satisfied by embedding
// Base.
type Plugin interface {
	Name() string
	Handlers() []handler.Descriptor
	Attach(Registrar) error
	Registrar() (Registrar, bool)
}

// TypeName returns the fully qualified name of p's concrete type, preferring
// the plugin's own Name when it provides one.
func TypeName(p Plugin) string {
	if n := p.Name(); n != "" {
		return n
	}
	t := reflect.TypeOf(p)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.PkgPath() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}
