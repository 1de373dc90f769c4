// Package search walks a class-metadata graph and yields the concrete types
// that transitively implement the plugin marker, through any mix of
// superclass and interface edges.
package search

import (
	"iter"

	"github.com/lynxplug/runtime/metadata"
)

// DefaultMarker is the fully qualified name of the plugin marker interface
// candidates are matched against when no other marker is configured.
const DefaultMarker = "github.com/lynxplug/runtime/plugin.Plugin"

// Searcher finds plugin candidates in the metadata reported by a scanner.
type Searcher struct {
	scanner metadata.Scanner
	marker  string
}

// New builds a Searcher over scanner. marker is the fully qualified name of
// the plugin marker type; empty selects DefaultMarker.
func New(scanner metadata.Scanner, marker string) *Searcher {
	if marker == "" {
		marker = DefaultMarker
	}
	return &Searcher{scanner: scanner, marker: marker}
}

// Internal yields the concrete plugin types in the host's internal type
// set.
func (s *Searcher) Internal() iter.Seq[metadata.ClassInfo] {
	return s.Search()
}

// Search yields the concrete plugin types found under paths. The sequence
// is lazy and callers must not assume a stable ordering across invocations.
func (s *Searcher) Search(paths ...string) iter.Seq[metadata.ClassInfo] {
	return func(yield func(metadata.ClassInfo) bool) {
		graph := metadata.Index(s.scanner.Scan(paths...))
		for _, ci := range graph {
			if !ci.Concrete {
				continue
			}
			if Implements(graph, ci, s.marker) {
				if !yield(ci) {
					return
				}
			}
		}
	}
}

// Implements reports whether candidate reaches marker through any sequence
// of superclass or interface edges in graph. The walk is a breadth-first
// closure: a frontier entry matches when its own name, its supertype, or
// one of its interfaces equals the marker; otherwise it is replaced by its
// supertype and interfaces. An empty frontier means no path exists.
func Implements(graph map[string]metadata.ClassInfo, candidate metadata.ClassInfo, marker string) bool {
	frontier := []string{candidate.Name}
	visited := map[string]bool{candidate.Name: true}
	for len(frontier) > 0 {
		var next []string
		for _, name := range frontier {
			if name == marker {
				return true
			}
			ci, known := graph[name]
			if !known {
				continue
			}
			if ci.SuperClassName == marker {
				return true
			}
			for _, iface := range ci.Interfaces {
				if iface == marker {
					return true
				}
			}
			if ci.SuperClassName != "" && !visited[ci.SuperClassName] {
				visited[ci.SuperClassName] = true
				next = append(next, ci.SuperClassName)
			}
			for _, iface := range ci.Interfaces {
				if !visited[iface] {
					visited[iface] = true
					next = append(next, iface)
				}
			}
		}
		frontier = next
	}
	return false
}
