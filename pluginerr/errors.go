// Package pluginerr defines the structured error kinds surfaced by the
// plugin runtime. Every failure the runtime reports is one of these kinds,
// except cancellation, which surfaces as the context's own error.
package pluginerr

import (
	"errors"
	"fmt"
	"reflect"
)

// Kind identifies the class of a runtime failure.
type Kind string

const (
	KindUnknownPluginType  Kind = "UNKNOWN_PLUGIN_TYPE"
	KindDepNameNotFound    Kind = "DEP_NAME_NOT_FOUND"
	KindDepClassNotFound   Kind = "DEP_CLASS_NOT_FOUND"
	KindDepUnexpectedClass Kind = "DEP_UNEXPECTED_CLASS"
	KindDuplicateDep       Kind = "DUPLICATE_DEPENDENCY"
	KindBadDependency      Kind = "BAD_DEPENDENCY"
	KindPluginNotAttached  Kind = "PLUGIN_NOT_ATTACHED"
	KindLoadFailure        Kind = "LOAD_FAILURE"
)

// Error is the structured error type returned by the dependency registry,
// the plugin register helpers, and the manager.
// Callers identify the failure kind with errors.Is against the sentinel
// values below, or by inspecting Kind directly.
type Error struct {
	Kind Kind
	// Subject is the dependency name, plugin type name, or class name the
	// error concerns, when applicable.
	Subject string
	// Expected/Actual are populated for KindDepUnexpectedClass.
	Expected reflect.Type
	Actual   reflect.Type
	Err      error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindDepUnexpectedClass:
		return fmt.Sprintf("%s: dependency %q expected %s, got %s", e.Kind, e.Subject, e.Expected, e.Actual)
	case KindLoadFailure:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Subject, e.Err)
	default:
		if e.Subject == "" {
			return string(e.Kind)
		}
		return fmt.Sprintf("%s: %s", e.Kind, e.Subject)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is supports errors.Is(err, pluginerr.ErrDepNameNotFound) style checks by
// comparing kinds, not identity.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind
}

// Sentinel errors usable with errors.Is. Only Kind is compared; Subject and
// friends carry the specific failure detail.
var (
	ErrUnknownPluginType   = &Error{Kind: KindUnknownPluginType}
	ErrDepNameNotFound     = &Error{Kind: KindDepNameNotFound}
	ErrDepClassNotFound    = &Error{Kind: KindDepClassNotFound}
	ErrDepUnexpectedClass  = &Error{Kind: KindDepUnexpectedClass}
	ErrDuplicateDependency = &Error{Kind: KindDuplicateDep}
	ErrBadDependency       = &Error{Kind: KindBadDependency}
	ErrPluginNotAttached   = &Error{Kind: KindPluginNotAttached}
	ErrLoadFailure         = &Error{Kind: KindLoadFailure}
)

// UnknownPluginType reports that typeName does not satisfy the plugin
// capability.
func UnknownPluginType(typeName string) *Error {
	return &Error{Kind: KindUnknownPluginType, Subject: typeName}
}

// DepNameNotFound reports that no dependency is bound under name in either
// the scope or the global manager.
func DepNameNotFound(name string) *Error {
	return &Error{Kind: KindDepNameNotFound, Subject: name}
}

// DepClassNotFound reports that no dependency's value class is assignable
// to class.
func DepClassNotFound(class reflect.Type) *Error {
	return &Error{Kind: KindDepClassNotFound, Subject: class.String(), Expected: class}
}

// DepUnexpectedClass reports that the named dependency's value class is not
// assignable to the declared parameter type.
func DepUnexpectedClass(name string, expected, actual reflect.Type) *Error {
	return &Error{Kind: KindDepUnexpectedClass, Subject: name, Expected: expected, Actual: actual}
}

// DuplicateDependency reports that name is already bound in the manager.
func DuplicateDependency(name string) *Error {
	return &Error{Kind: KindDuplicateDep, Subject: name}
}

// BadDependency reports a null/empty field at Dependency construction.
func BadDependency(reason string) *Error {
	return &Error{Kind: KindBadDependency, Subject: reason}
}

// PluginNotAttached reports that register was called before the plugin's
// manager back-reference was set.
func PluginNotAttached(pluginName string) *Error {
	return &Error{Kind: KindPluginNotAttached, Subject: pluginName}
}

// LoadFailure wraps any error raised from zero-argument construction or a
// reflective handler invocation.
func LoadFailure(subject string, cause error) *Error {
	return &Error{Kind: KindLoadFailure, Subject: subject, Err: cause}
}
