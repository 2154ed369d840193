package lockset

import (
	"errors"
	"reflect"
	"testing"

	reserrors "github.com/testforge/reslock/v1/errors"
)

func TestAddRemoveGroup(t *testing.T) {
	s := New()
	if !s.IsEmpty() {
		t.Fatal("new set not empty")
	}
	s.AddAll([]string{"a", "b", "c"})
	if s.IsEmpty() || s.Len() != 3 {
		t.Fatalf("expected 3 held, got %d", s.Len())
	}
	if !s.Holds("b") {
		t.Fatal("expected b held")
	}
	if name, ok := s.HoldsAny([]string{"x", "c"}); !ok || name != "c" {
		t.Fatalf("HoldsAny = %q, %v", name, ok)
	}
	if _, ok := s.HoldsAny([]string{"x", "y"}); ok {
		t.Fatal("HoldsAny reported unheld resource")
	}
	if err := s.RemoveAll([]string{"a", "b", "c"}); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if !s.IsEmpty() {
		t.Fatal("set not empty after removal")
	}
}

func TestRemoveAllUnheldIsInvariantViolation(t *testing.T) {
	s := New()
	s.AddAll([]string{"a"})
	err := s.RemoveAll([]string{"a", "b"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, reserrors.ErrInvariant) {
		t.Fatalf("expected invariant error, got %v", err)
	}
	// The failed group removal must leave the set untouched.
	if !s.Holds("a") {
		t.Fatal("partial removal happened")
	}
}

func TestSnapshotSorted(t *testing.T) {
	s := New()
	s.AddAll([]string{"zeta", "alpha", "mid"})
	got := s.Snapshot()
	want := []string{"alpha", "mid", "zeta"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("snapshot = %v, want %v", got, want)
	}
}
