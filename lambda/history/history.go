// Copyright The devlambda Authors.
// SPDX-License-Identifier: Apache-2.0

// Package history keeps the most recent invocations of every function.
package history

import "github.com/devlambda/devlambda/lambda/interop"

const DefaultCapacity = 10

// Store holds one newest-first ring per function. Entries are the live
// *interop.Invocation handles the scheduler keeps mutating, so a projection
// may show an invocation still in progress. Not safe for concurrent use.
type Store struct {
	capacity int
	entries  map[string][]*interop.Invocation
}

func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{
		capacity: capacity,
		entries:  make(map[string][]*interop.Invocation),
	}
}

// Record inserts inv at the front of name's history, evicting the oldest
// entry beyond capacity.
func (s *Store) Record(name string, inv *interop.Invocation) {
	entries := s.entries[name]
	if len(entries) < s.capacity {
		entries = append(entries, nil)
	}
	copy(entries[1:], entries)
	entries[0] = inv
	s.entries[name] = entries
}

// Len returns the number of entries held for name.
func (s *Store) Len(name string) int {
	return len(s.entries[name])
}

// Projection returns the visible fields of name's entries, newest first.
func (s *Store) Projection(name string) []interop.InvocationView {
	entries := s.entries[name]
	views := make([]interop.InvocationView, len(entries))
	for i, inv := range entries {
		views[i] = inv.View()
	}
	return views
}
