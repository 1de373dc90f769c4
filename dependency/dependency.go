// Package dependency implements the typed, named registry that the plugin
// runtime's fixed-point invoker consults when resolving handler parameters.
// Values are queryable by name, by assignable value class, or by assignable
// abstract type.
package dependency

import (
	"reflect"

	"github.com/lynxplug/runtime/pluginerr"
)

// Dependency is an immutable record binding a name to a value. AbstractType
// is the declared type of the binding (used for subtype queries); ValueClass
// is always the concrete runtime type of Value and may differ from
// AbstractType (e.g. AbstractType is an interface, ValueClass the concrete
// implementation).
type Dependency struct {
	Name         string
	AbstractType reflect.Type
	Value        any
	ValueClass   reflect.Type
}

// New constructs a Dependency, deriving ValueClass from value. It fails with
// pluginerr.ErrBadDependency if name is empty, abstractType is nil, or value
// is nil.
func New(name string, abstractType reflect.Type, value any) (Dependency, error) {
	if name == "" {
		return Dependency{}, pluginerr.BadDependency("name must not be empty")
	}
	if abstractType == nil {
		return Dependency{}, pluginerr.BadDependency("abstractType must not be nil")
	}
	if value == nil {
		return Dependency{}, pluginerr.BadDependency("value must not be nil")
	}
	return Dependency{
		Name:         name,
		AbstractType: abstractType,
		Value:        value,
		ValueClass:   reflect.TypeOf(value),
	}, nil
}

// NewFromValue constructs a Dependency whose AbstractType is value's own
// runtime type, for callers that have no separate declared type in mind.
func NewFromValue(name string, value any) (Dependency, error) {
	if value == nil {
		return Dependency{}, pluginerr.BadDependency("value must not be nil")
	}
	return New(name, reflect.TypeOf(value), value)
}

// assignableToType reports whether d's AbstractType is a subtype of (i.e.
// assignable to) t.
func (d Dependency) assignableToType(t reflect.Type) bool {
	return d.AbstractType != nil && t != nil && d.AbstractType.AssignableTo(t)
}

// assignableToValueClass reports whether d's ValueClass is assignable to c.
func (d Dependency) assignableToValueClass(c reflect.Type) bool {
	return d.ValueClass != nil && c != nil && d.ValueClass.AssignableTo(c)
}
