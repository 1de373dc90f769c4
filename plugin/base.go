package plugin

import (
	"errors"
	"sync/atomic"

	"github.com/lynxplug/runtime/dependency"
	"github.com/lynxplug/runtime/pluginerr"
)

// ErrAlreadyAttached reports a second assignment of the manager
// back-reference. The back-reference is a one-shot cell.
var ErrAlreadyAttached = errors.New("plugin: manager back-reference already attached")

// Base carries the once-assignable back-reference to the owning plugin
// manager and the register helpers handler bodies call to publish
// dependencies for their peers. Concrete plugins embed it and supply their
// own Name and Handlers.
type Base struct {
	registrar atomic.Pointer[registrarCell]
}

type registrarCell struct{ r Registrar }

// Name returns the empty string; the runtime substitutes the fully
// qualified type name of the embedding plugin.
func (b *Base) Name() string { return "" }

// Attach assigns the manager back-reference. The first assignment succeeds;
// every subsequent assignment fails, including re-assignment of the same
// manager.
func (b *Base) Attach(r Registrar) error {
	if r == nil {
		return errors.New("plugin: nil registrar")
	}
	if !b.registrar.CompareAndSwap(nil, &registrarCell{r: r}) {
		return ErrAlreadyAttached
	}
	return nil
}

// Registrar returns the attached manager back-reference, if set.
func (b *Base) Registrar() (Registrar, bool) {
	c := b.registrar.Load()
	if c == nil {
		return nil, false
	}
	return c.r, true
}

// Register publishes value into the global dependency manager under a
// generated name. It fails with pluginerr.ErrPluginNotAttached when called
// before the plugin was loaded by a manager.
func (b *Base) Register(value any) (dependency.Dependency, error) {
	r, ok := b.Registrar()
	if !ok {
		return dependency.Dependency{}, pluginerr.PluginNotAttached("register before attach")
	}
	return r.Register(value)
}

// RegisterNamed publishes value into the global dependency manager under
// name.
func (b *Base) RegisterNamed(name string, value any) error {
	r, ok := b.Registrar()
	if !ok {
		return pluginerr.PluginNotAttached("register before attach")
	}
	return r.RegisterNamed(name, value)
}
