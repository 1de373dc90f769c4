package handler

import (
	"reflect"
	"testing"
)

type conn struct{}

func TestInitDerivesParams(t *testing.T) {
	fn := func(c *conn, n int) {}
	d := Init(fn, "db.conn")
	if d.Kind() != KindInit {
		t.Fatalf("Kind = %v, want Init", d.Kind())
	}
	params := d.Params()
	if len(params) != 2 {
		t.Fatalf("len(Params) = %d, want 2", len(params))
	}
	if params[0].Class != reflect.TypeOf(&conn{}) || params[0].DepName != "db.conn" {
		t.Fatalf("param 0 = %+v, want named *conn", params[0])
	}
	if !params[0].Named() {
		t.Fatal("param 0 must resolve by name")
	}
	if params[1].Class != reflect.TypeOf(0) || params[1].Named() {
		t.Fatalf("param 1 = %+v, want unnamed int", params[1])
	}
}

func TestEventCarriesName(t *testing.T) {
	d := Event("cache.warm", func() {})
	if d.Kind() != KindEvent {
		t.Fatalf("Kind = %v, want Event", d.Kind())
	}
	if got := d.EventNames(); len(got) != 1 || got[0] != "cache.warm" {
		t.Fatalf("EventNames = %v, want [cache.warm]", got)
	}
}

func TestEventsCopiesNames(t *testing.T) {
	names := []string{"e2", "e3"}
	d := Events(names, func() {})
	names[0] = "mutated"
	if got := d.EventNames(); got[0] != "e2" {
		t.Fatalf("EventNames = %v, caller mutation leaked in", got)
	}
}

func TestSameMethodSharesFuncID(t *testing.T) {
	fn := func() {}
	a := Event("e1", fn)
	b := Events([]string{"e1", "e2"}, fn)
	if a.FuncID() != b.FuncID() {
		t.Fatal("descriptors over the same function must share a FuncID")
	}
	if a.FuncID() == Event("e1", func() {}).FuncID() {
		t.Fatal("descriptors over distinct functions must not share a FuncID")
	}
}

func TestBuilderPanics(t *testing.T) {
	cases := []struct {
		name string
		fn   func()
	}{
		{"non-function", func() { Init(42) }},
		{"nil function", func() { Destroy(nil) }},
		{"empty event name", func() { Event("", func() {}) }},
		{"no event names", func() { Events(nil, func() {}) }},
		{"blank in event names", func() { Events([]string{"a", ""}, func() {}) }},
		{"too many dep names", func() { Init(func(int) {}, "a", "b") }},
		{"variadic handler", func() { Init(func(xs ...int) {}) }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Fatal("expected panic")
				}
			}()
			tc.fn()
		})
	}
}

type transientPlugin struct {
	NewInstancePerEvent
}

func TestPerEventHint(t *testing.T) {
	if !PerEventHint(transientPlugin{}) {
		t.Fatal("embedded marker not detected")
	}
	if PerEventHint(conn{}) {
		t.Fatal("marker reported on unmarked type")
	}
}
