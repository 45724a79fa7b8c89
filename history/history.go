// Package history tracks navigation entries the way a browser's session
// history does: a single stack of entries with a movable cursor.
package history

import (
	"sync"

	"github.com/google/uuid"
)

// Entry is one position in the history stack.
type Entry struct {
	Key       string `json:"key"`
	URL       string `json:"url"`
	Committed bool   `json:"committed"`
}

// PopHandler receives the location reached by a back/forward move.
type PopHandler func(location string)

// Stack is safe for concurrent use. Pop handlers run on the goroutine that
// called Back, Forward or Go, after the stack lock is released.
type Stack struct {
	mu       sync.Mutex
	entries  []Entry
	index    int
	handlers []PopHandler
}

// New creates a stack holding the natively loaded first page.
func New(initialURL string) *Stack {
	return &Stack{
		entries: []Entry{{Key: uuid.NewString(), URL: initialURL, Committed: true}},
	}
}

// Push discards any forward entries and appends a new uncommitted entry.
func (s *Stack) Push(url string) Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := Entry{Key: uuid.NewString(), URL: url}
	s.entries = append(s.entries[:s.index+1], e)
	s.index = len(s.entries) - 1
	return e
}

// Replace overwrites the current entry in place with a new uncommitted one.
func (s *Stack) Replace(url string) Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := Entry{Key: uuid.NewString(), URL: url}
	s.entries[s.index] = e
	return e
}

// MarkCommitted flags the entry with the given key as rendered.
func (s *Stack) MarkCommitted(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.entries {
		if s.entries[i].Key == key {
			s.entries[i].Committed = true
			return true
		}
	}
	return false
}

// Current returns the entry under the cursor.
func (s *Stack) Current() Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entries[s.index]
}

// Entries returns a copy of the stack, oldest first.
func (s *Stack) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Entry(nil), s.entries...)
}

// Len returns the number of entries.
func (s *Stack) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Index returns the cursor position.
func (s *Stack) Index() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index
}

// OnPopRequested registers a handler for back/forward moves.
func (s *Stack) OnPopRequested(h PopHandler) {
	s.mu.Lock()
	s.handlers = append(s.handlers, h)
	s.mu.Unlock()
}

// Back moves one entry back.
func (s *Stack) Back() bool { return s.Go(-1) }

// Forward moves one entry forward.
func (s *Stack) Forward() bool { return s.Go(1) }

// Go moves the cursor by delta entries and notifies pop handlers with the
// location now under the cursor. Moves outside the stack do nothing.
func (s *Stack) Go(delta int) bool {
	s.mu.Lock()
	target := s.index + delta
	if delta == 0 || target < 0 || target >= len(s.entries) {
		s.mu.Unlock()
		return false
	}
	s.index = target
	location := s.entries[target].URL
	handlers := append([]PopHandler(nil), s.handlers...)
	s.mu.Unlock()

	for _, h := range handlers {
		h(location)
	}
	return true
}
