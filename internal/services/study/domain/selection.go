package domain

import (
	"sort"
	"strings"
)

// SelectedSet is the set of deck ids included in today's session.
type SelectedSet map[string]struct{}

// NewSelectedSet builds a set from ids, ignoring blanks and duplicates.
func NewSelectedSet(ids ...string) SelectedSet {
	set := make(SelectedSet, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		set[id] = struct{}{}
	}
	return set
}

// Has reports membership.
func (s SelectedSet) Has(deckID string) bool {
	_, ok := s[deckID]
	return ok
}

// Len returns the number of selected decks.
func (s SelectedSet) Len() int {
	return len(s)
}

// IDs returns the members sorted for stable output.
func (s SelectedSet) IDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Clone returns an independent copy.
func (s SelectedSet) Clone() SelectedSet {
	clone := make(SelectedSet, len(s))
	for id := range s {
		clone[id] = struct{}{}
	}
	return clone
}

// SelectionStore holds today's selection and reports every membership change
// to its owner with the full new set.
//
// Add and Remove are idempotent: a no-op still succeeds but does not notify.
type SelectionStore struct {
	set      SelectedSet
	onChange func(SelectedSet)
}

// NewSelectionStore builds a store seeded with initial.
func NewSelectionStore(initial SelectedSet, onChange func(SelectedSet)) *SelectionStore {
	set := initial.Clone()
	if set == nil {
		set = SelectedSet{}
	}
	return &SelectionStore{set: set, onChange: onChange}
}

// Add includes deckID in the selection.
func (s *SelectionStore) Add(deckID string) {
	if s.set.Has(deckID) {
		return
	}
	s.set[deckID] = struct{}{}
	s.changed()
}

// Remove excludes deckID from the selection.
func (s *SelectionStore) Remove(deckID string) {
	if !s.set.Has(deckID) {
		return
	}
	delete(s.set, deckID)
	s.changed()
}

// Has reports whether deckID is selected.
func (s *SelectionStore) Has(deckID string) bool {
	return s.set.Has(deckID)
}

// Snapshot returns a copy of the current selection.
func (s *SelectionStore) Snapshot() SelectedSet {
	return s.set.Clone()
}

// Len returns the number of selected decks.
func (s *SelectionStore) Len() int {
	return s.set.Len()
}

func (s *SelectionStore) changed() {
	if s.onChange != nil {
		s.onChange(s.set.Clone())
	}
}
