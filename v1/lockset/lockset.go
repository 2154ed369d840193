// Package lockset tracks the resource names this process currently holds.
// The set is the only mutable shared state in the locking core and is owned
// exclusively by the coordinator; it must be empty by shutdown.
package lockset

import (
	"fmt"
	"sort"
	"sync"

	reserrors "github.com/testforge/reslock/v1/errors"
)

// Set is a mutex-guarded set of held resource names. Group operations are
// all-or-nothing: AddAll inserts every name or none, RemoveAll refuses the
// whole group if any name is not currently held.
type Set struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// New returns an empty Set.
func New() *Set {
	return &Set{held: make(map[string]struct{})}
}

// Holds reports whether name is currently held.
func (s *Set) Holds(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.held[name]
	return ok
}

// HoldsAny returns the first of names that is currently held, if any.
func (s *Set) HoldsAny(names []string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range names {
		if _, ok := s.held[n]; ok {
			return n, true
		}
	}
	return "", false
}

// AddAll inserts names as a single group.
func (s *Set) AddAll(names []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range names {
		s.held[n] = struct{}{}
	}
}

// RemoveAll removes names as a single group. If any name is not held the
// set is left untouched and an invariant error is returned: this is the
// mechanism that detects a double release or a release without a prior
// acquisition.
func (s *Set) RemoveAll(names []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range names {
		if _, ok := s.held[n]; !ok {
			return fmt.Errorf("%w: resource %q released but not held", reserrors.ErrInvariant, n)
		}
	}
	for _, n := range names {
		delete(s.held, n)
	}
	return nil
}

// IsEmpty reports whether no resources are held.
func (s *Set) IsEmpty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.held) == 0
}

// Len returns the number of held resources.
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.held)
}

// Snapshot returns the held resource names in sorted order.
func (s *Set) Snapshot() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.held))
	for n := range s.held {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
