package classpath

import (
	"fmt"
	"reflect"
	"testing"
)

type mapResolver map[string]reflect.Type

func (r mapResolver) Resolve(name string) (reflect.Type, error) {
	t, ok := r[name]
	if !ok {
		return nil, fmt.Errorf("unknown type %s", name)
	}
	return t, nil
}

func TestAddIsIdempotent(t *testing.T) {
	r := New(mapResolver{})
	if !r.Add("/a") {
		t.Fatal("first Add(/a) must grow the set")
	}
	if r.Add("/a") {
		t.Fatal("second Add(/a) must be discarded")
	}
	if !r.Add("/b") {
		t.Fatal("Add(/b) must grow the set")
	}
	got := r.List()
	want := []string{"/a", "/b"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("List() = %v, want %v", got, want)
	}
}

func TestResolveDelegatesToParent(t *testing.T) {
	intType := reflect.TypeOf(0)
	r := New(mapResolver{"builtin.Int": intType})
	got, err := r.Resolve("builtin.Int")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != intType {
		t.Fatalf("Resolve = %v, want %v", got, intType)
	}
	if _, err := r.Resolve("missing.Type"); err == nil {
		t.Fatal("Resolve of an unknown type must fail")
	}
}
