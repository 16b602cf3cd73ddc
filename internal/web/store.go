package web

import (
	"sync"
	"time"

	"spacepanel/internal/model"
)

// Store holds the latest fetched content for the API. The scheduler writes
// it; HTTP handlers read it.
type Store struct {
	mu      sync.RWMutex
	content model.Content
	updated time.Time
	ok      bool
}

// Set replaces the stored content.
func (s *Store) Set(c model.Content) {
	at := c.FetchedAt
	if at.IsZero() {
		at = time.Now()
	}
	s.mu.Lock()
	s.content = c
	s.updated = at
	s.ok = true
	s.mu.Unlock()
}

// Latest returns the stored content and when it was fetched. ok is false
// until the first Set.
func (s *Store) Latest() (c model.Content, updated time.Time, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.content, s.updated, s.ok
}
