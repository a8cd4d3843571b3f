// Package selection tracks which tasks of the visible page are selected.
//
// Set is an immutable value: every operation returns a new Set. Selection is
// scoped to one page. Selecting all visible items replaces the selection
// rather than adding to it, and Reconcile drops everything that is no longer
// visible after a refresh.
package selection

import (
	"slices"
)

// Set is a set of selected task IDs.
type Set struct {
	ids map[int64]struct{}
}

// New returns a set holding ids.
func New(ids ...int64) Set {
	s := Set{ids: make(map[int64]struct{}, len(ids))}
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
	return s
}

// Len returns the number of selected IDs.
func (s Set) Len() int {
	return len(s.ids)
}

// Has reports whether id is selected.
func (s Set) Has(id int64) bool {
	_, ok := s.ids[id]
	return ok
}

// IDs returns the selected IDs in ascending order.
func (s Set) IDs() []int64 {
	ids := make([]int64, 0, len(s.ids))
	for id := range s.ids {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Clear returns the empty set.
func (s Set) Clear() Set {
	return New()
}

// ToggleOne selects id if it is not selected and deselects it otherwise.
func (s Set) ToggleOne(id int64) Set {
	next := s.clone()
	if _, ok := next.ids[id]; ok {
		delete(next.ids, id)
	} else {
		next.ids[id] = struct{}{}
	}
	return next
}

// ToggleAllVisible clears the selection when every visible ID is already
// selected, and otherwise selects exactly the visible IDs. IDs selected
// outside the visible page are dropped in both cases.
func (s Set) ToggleAllVisible(visible []int64) Set {
	if s.AllVisibleSelected(visible) {
		return New()
	}
	return New(visible...)
}

// Reconcile keeps only the selected IDs that are visible.
func (s Set) Reconcile(visible []int64) Set {
	next := New()
	for _, id := range visible {
		if s.Has(id) {
			next.ids[id] = struct{}{}
		}
	}
	return next
}

// AllVisibleSelected reports whether there are visible IDs and all of them
// are selected.
func (s Set) AllVisibleSelected(visible []int64) bool {
	if len(visible) == 0 {
		return false
	}
	for _, id := range visible {
		if !s.Has(id) {
			return false
		}
	}
	return true
}

// SomeVisibleSelected reports whether at least one, but not every, visible
// ID is selected. It drives the indeterminate state of a select-all control.
func (s Set) SomeVisibleSelected(visible []int64) bool {
	if s.AllVisibleSelected(visible) {
		return false
	}
	return slices.ContainsFunc(visible, s.Has)
}

func (s Set) clone() Set {
	next := Set{ids: make(map[int64]struct{}, len(s.ids)+1)}
	for id := range s.ids {
		next.ids[id] = struct{}{}
	}
	return next
}
