package entitlement

import (
	"sort"
	"sync"
)

// Set holds the ids of assets the account may download. It lives for one
// process run and is never persisted. Only Gate replaces its contents
// after the initial seed.
type Set struct {
	mu  sync.RWMutex
	ids map[string]struct{}
}

// NewSet seeds a set from the ids returned by the user query
func NewSet(ids []string) *Set {
	s := &Set{}
	s.replace(ids)
	return s
}

// Contains reports whether the account is entitled to assetID
func (s *Set) Contains(assetID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.ids[assetID]
	return ok
}

// Len returns the number of entitled assets
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}

// IDs returns the entitled ids in sorted order
func (s *Set) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// replace swaps the contents for exactly ids; nothing is merged
func (s *Set) replace(ids []string) {
	next := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id != "" {
			next[id] = struct{}{}
		}
	}
	s.mu.Lock()
	s.ids = next
	s.mu.Unlock()
}
