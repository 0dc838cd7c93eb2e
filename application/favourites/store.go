// Package favourites is the in-memory favourite-events store. Membership
// dies with the process; there is no persistence and no error state.
package favourites

import (
	"sort"
	"sync"
)

// Store is a set of favourited event ids, safe for concurrent use.
type Store struct {
	mu  sync.RWMutex
	ids map[string]struct{}
}

// NewStore creates an empty favourites store.
func NewStore() *Store {
	return &Store{ids: make(map[string]struct{})}
}

// Add marks an event as favourited. Adding an already-present id has no
// further effect.
func (s *Store) Add(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids[id] = struct{}{}
}

// Remove unmarks an event. Removing an absent id has no effect.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.ids, id)
}

// IsFavourite reports whether an event is favourited.
func (s *Store) IsFavourite(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.ids[id]
	return ok
}

// List returns all favourited ids in sorted order.
func (s *Store) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Len reports the number of favourited events.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}
