package dependency

import (
	"errors"
	"reflect"
	"testing"

	"github.com/lynxplug/runtime/pluginerr"
)

type widget struct{ id int }

type gadget struct{ id int }

func TestAddGeneratesUniqueNames(t *testing.T) {
	m := NewManager()
	d1, err := m.Add(&widget{id: 1})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	d2, err := m.Add(&widget{id: 2})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if d1.Name == "" || d2.Name == "" {
		t.Fatalf("generated names must be non-empty, got %q and %q", d1.Name, d2.Name)
	}
	if d1.Name == d2.Name {
		t.Fatalf("generated names must be unique, both were %q", d1.Name)
	}
}

func TestAddNamedRejectsDuplicates(t *testing.T) {
	m := NewManager()
	if err := m.AddNamed("db", &widget{}); err != nil {
		t.Fatalf("first AddNamed: %v", err)
	}
	err := m.AddNamed("db", &widget{})
	if !errors.Is(err, pluginerr.ErrDuplicateDependency) {
		t.Fatalf("second AddNamed = %v, want ErrDuplicateDependency", err)
	}
}

func TestAddRejectsNilValue(t *testing.T) {
	m := NewManager()
	if err := m.AddNamed("x", nil); !errors.Is(err, pluginerr.ErrBadDependency) {
		t.Fatalf("AddNamed(nil) = %v, want ErrBadDependency", err)
	}
	if _, err := NewManager().Add(nil); !errors.Is(err, pluginerr.ErrBadDependency) {
		t.Fatalf("Add(nil) = %v, want ErrBadDependency", err)
	}
}

func TestNewValidatesFields(t *testing.T) {
	wt := reflect.TypeOf(&widget{})
	cases := []struct {
		name         string
		depName      string
		abstractType reflect.Type
		value        any
	}{
		{"empty name", "", wt, &widget{}},
		{"nil abstract type", "w", nil, &widget{}},
		{"nil value", "w", wt, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.depName, tc.abstractType, tc.value)
			if !errors.Is(err, pluginerr.ErrBadDependency) {
				t.Fatalf("New = %v, want ErrBadDependency", err)
			}
		})
	}
}

func TestValueClassIsRuntimeClass(t *testing.T) {
	var v any = &widget{id: 7}
	ifaceType := reflect.TypeOf((*any)(nil)).Elem()
	d, err := New("w", ifaceType, v)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if d.AbstractType != ifaceType {
		t.Fatalf("AbstractType = %v, want %v", d.AbstractType, ifaceType)
	}
	if d.ValueClass != reflect.TypeOf(&widget{}) {
		t.Fatalf("ValueClass = %v, want *dependency.widget", d.ValueClass)
	}
}

func TestFindByValueClassPreservesInsertionOrder(t *testing.T) {
	m := NewManager()
	for i := 0; i < 5; i++ {
		w := &widget{id: i}
		if err := m.AddNamed(string(rune('a'+i)), w); err != nil {
			t.Fatalf("AddNamed: %v", err)
		}
	}
	got := m.FindByValueClass(reflect.TypeOf(&widget{}))
	if len(got) != 5 {
		t.Fatalf("FindByValueClass returned %d entries, want 5", len(got))
	}
	for i, d := range got {
		if d.Value.(*widget).id != i {
			t.Fatalf("entry %d has id %d, want %d (insertion order)", i, d.Value.(*widget).id, i)
		}
	}
	last := got[len(got)-1]
	if last.Value.(*widget).id != 4 {
		t.Fatalf("last entry has id %d, want 4", last.Value.(*widget).id)
	}
}

func TestFindByValueClassFiltersByAssignability(t *testing.T) {
	m := NewManager()
	if err := m.AddNamed("w", &widget{}); err != nil {
		t.Fatalf("AddNamed: %v", err)
	}
	if err := m.AddNamed("g", &gadget{}); err != nil {
		t.Fatalf("AddNamed: %v", err)
	}
	got := m.FindByValueClass(reflect.TypeOf(&gadget{}))
	if len(got) != 1 || got[0].Name != "g" {
		t.Fatalf("FindByValueClass(*gadget) = %v, want the single gadget entry", got)
	}
}

func TestFindByTypeUsesAbstractType(t *testing.T) {
	m := NewManager()
	ifaceType := reflect.TypeOf((*any)(nil)).Elem()
	d, err := New("w", ifaceType, &widget{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := m.AddDependency(d); err != nil {
		t.Fatalf("AddDependency: %v", err)
	}
	if got := m.FindByType(ifaceType); len(got) != 1 {
		t.Fatalf("FindByType(any) returned %d entries, want 1", len(got))
	}
	if got := m.FindByType(reflect.TypeOf(&gadget{})); len(got) != 0 {
		t.Fatalf("FindByType(*gadget) returned %d entries, want 0", len(got))
	}
}

func TestRemoveVariants(t *testing.T) {
	m := NewManager()
	if err := m.AddNamed("w1", &widget{id: 1}); err != nil {
		t.Fatalf("AddNamed: %v", err)
	}
	if err := m.AddNamed("w2", &widget{id: 2}); err != nil {
		t.Fatalf("AddNamed: %v", err)
	}
	if err := m.AddNamed("g", &gadget{}); err != nil {
		t.Fatalf("AddNamed: %v", err)
	}

	d, ok := m.Remove("w1")
	if !ok || d.Name != "w1" {
		t.Fatalf("Remove(w1) = %v, %v", d, ok)
	}
	if _, ok := m.Find("w1"); ok {
		t.Fatal("w1 still present after Remove")
	}

	removed := m.RemoveByValueClass(reflect.TypeOf(&widget{}))
	if len(removed) != 1 || removed[0].Name != "w2" {
		t.Fatalf("RemoveByValueClass = %v, want [w2]", removed)
	}
	if len(m.ToSeq()) != 1 {
		t.Fatalf("manager has %d entries after removals, want 1", len(m.ToSeq()))
	}
}

func TestSnapshotsAreCopies(t *testing.T) {
	m := NewManager()
	if err := m.AddNamed("w", &widget{}); err != nil {
		t.Fatalf("AddNamed: %v", err)
	}
	mp := m.ToMap()
	delete(mp, "w")
	if _, ok := m.Find("w"); !ok {
		t.Fatal("mutating the ToMap snapshot must not affect the manager")
	}
}

func TestEmptySilentlyDiscardsAdditions(t *testing.T) {
	if _, err := Empty.Add(&widget{}); err != nil {
		t.Fatalf("Empty.Add: %v", err)
	}
	if err := Empty.AddNamed("w", &widget{}); err != nil {
		t.Fatalf("Empty.AddNamed: %v", err)
	}
	if _, ok := Empty.Find("w"); ok {
		t.Fatal("Empty retained an addition")
	}
	if got := Empty.ToSeq(); len(got) != 0 {
		t.Fatalf("Empty.ToSeq() has %d entries, want 0", len(got))
	}
}
