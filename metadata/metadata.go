// Package metadata declares the contracts the plugin runtime consumes from
// its host environment: the class-metadata scanner that enumerates declared
// types on a set of archive or directory paths, and the resolver that
// materializes a type name to a runtime type. The runtime does not define
// how either is implemented.
package metadata

import (
	"iter"
	"reflect"
)

// ParamInfo describes one declared parameter of a scanned method.
type ParamInfo struct {
	TypeName string
	// DepName is the dependency name the parameter was annotated with, or
	// empty for by-class resolution.
	DepName string
}

// MethodInfo describes one declared method of a scanned type, including the
// markers found on it.
type MethodInfo struct {
	Name    string
	Params  []ParamInfo
	Markers []string
}

// ClassInfo describes one declared type reported by a Scanner.
type ClassInfo struct {
	// Name is the fully qualified type name.
	Name string
	// Concrete is false for interfaces and abstract types.
	Concrete bool
	// SuperClassName names the direct supertype, or is empty when unknown.
	SuperClassName string
	// Interfaces lists the directly declared interfaces.
	Interfaces []string
	// Methods lists the declared methods with their markers.
	Methods []MethodInfo
	// Location is the archive or directory the type was found in.
	Location string
}

// Scanner enumerates declared types. Scan with no paths reports the host's
// internal type set; with paths it reports types found under those roots
// only. The sequence is lazy and its ordering is not a contract.
type Scanner interface {
	Scan(paths ...string) iter.Seq[ClassInfo]
}

// Resolver materializes a fully qualified type name to a runtime type.
type Resolver interface {
	Resolve(name string) (reflect.Type, error)
}

// Index drains a scan into a name-keyed map, the form the searcher walks.
func Index(seq iter.Seq[ClassInfo]) map[string]ClassInfo {
	out := make(map[string]ClassInfo)
	for ci := range seq {
		out[ci.Name] = ci
	}
	return out
}
