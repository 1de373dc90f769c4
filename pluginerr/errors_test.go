package pluginerr

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
)

func TestKindsMatchViaErrorsIs(t *testing.T) {
	cases := []struct {
		err      error
		sentinel error
	}{
		{UnknownPluginType("a.B"), ErrUnknownPluginType},
		{DepNameNotFound("x"), ErrDepNameNotFound},
		{DepClassNotFound(reflect.TypeOf(0)), ErrDepClassNotFound},
		{DepUnexpectedClass("x", reflect.TypeOf(true), reflect.TypeOf(0)), ErrDepUnexpectedClass},
		{DuplicateDependency("x"), ErrDuplicateDependency},
		{BadDependency("empty name"), ErrBadDependency},
		{PluginNotAttached("a.B"), ErrPluginNotAttached},
		{LoadFailure("a.B", errors.New("boom")), ErrLoadFailure},
	}
	for _, tc := range cases {
		if !errors.Is(tc.err, tc.sentinel) {
			t.Errorf("errors.Is(%v, %v) = false", tc.err, tc.sentinel)
		}
	}
	if errors.Is(DepNameNotFound("x"), ErrDepClassNotFound) {
		t.Error("kinds must not cross-match")
	}
}

func TestWrappedErrorsStillMatch(t *testing.T) {
	err := fmt.Errorf("loading plugin: %w", DuplicateDependency("db"))
	if !errors.Is(err, ErrDuplicateDependency) {
		t.Error("wrapping lost the kind")
	}
	var perr *Error
	if !errors.As(err, &perr) || perr.Subject != "db" {
		t.Errorf("errors.As = %+v, want subject db", perr)
	}
}

func TestLoadFailureUnwrapsCause(t *testing.T) {
	cause := errors.New("constructor exploded")
	err := LoadFailure("a.B", cause)
	if !errors.Is(err, cause) {
		t.Error("LoadFailure must unwrap to its cause")
	}
}

func TestUnexpectedClassMessageNamesTypes(t *testing.T) {
	err := DepUnexpectedClass("x", reflect.TypeOf(true), reflect.TypeOf(0))
	msg := err.Error()
	for _, want := range []string{"x", "bool", "int"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q missing %q", msg, want)
		}
	}
}
