package storage

import (
	"fmt"

	"github.com/hyperjump/compendium/internal/models"
)

// Store is the id-keyed entry store. It is built once and never mutated;
// every accessor hands out copies.
type Store struct {
	entries []models.Entry
	byID    map[string]int
}

// NewStore copies entries into a new store, keeping declaration order.
// Duplicate ids are rejected.
func NewStore(entries []models.Entry) (*Store, error) {
	s := &Store{
		entries: make([]models.Entry, len(entries)),
		byID:    make(map[string]int, len(entries)),
	}
	for i, e := range entries {
		if e.ID == "" {
			return nil, fmt.Errorf("entry at position %d has no id", i)
		}
		if first, ok := s.byID[e.ID]; ok {
			return nil, fmt.Errorf("duplicate entry id %q at positions %d and %d", e.ID, first, i)
		}
		s.byID[e.ID] = i
		s.entries[i] = e.Clone()
	}
	return s, nil
}

// Get returns the entry with id.
func (s *Store) Get(id string) (models.Entry, bool) {
	pos, ok := s.byID[id]
	if !ok {
		return models.Entry{}, false
	}
	return s.entries[pos].Clone(), true
}

// Position returns the declaration position of id.
func (s *Store) Position(id string) (int, bool) {
	pos, ok := s.byID[id]
	return pos, ok
}

// At returns the entry at declaration position pos.
func (s *Store) At(pos int) (models.Entry, bool) {
	if pos < 0 || pos >= len(s.entries) {
		return models.Entry{}, false
	}
	return s.entries[pos].Clone(), true
}

// Len returns the number of entries.
func (s *Store) Len() int {
	return len(s.entries)
}

// IDs returns every id in declaration order.
func (s *Store) IDs() []string {
	ids := make([]string, len(s.entries))
	for i, e := range s.entries {
		ids[i] = e.ID
	}
	return ids
}

// All returns every entry in declaration order.
func (s *Store) All() []models.Entry {
	out := make([]models.Entry, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.Clone()
	}
	return out
}
