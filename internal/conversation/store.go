package conversation

import (
	"sync"
	"time"
)

// Store holds at most one Session per submitter and serializes all access per
// submitter: Update calls for the same key run one at a time, calls for
// different keys never block each other. The store owns the session
// lifecycle: a slot is created on first use and removed when an update leaves
// it empty or the reaper drops it.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	sess *Session
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{entries: make(map[string]*entry)}
}

// Update runs fn with exclusive access to the submitter's session slot. fn
// receives the current session (nil when none exists) and returns the session
// to keep; returning nil deletes the slot. fn may block on external calls —
// only messages from the same submitter wait behind it.
func (s *Store) Update(submitterID string, fn func(*Session) *Session) {
	for {
		s.mu.Lock()
		e, ok := s.entries[submitterID]
		if !ok {
			e = &entry{}
			s.entries[submitterID] = e
		}
		s.mu.Unlock()

		e.mu.Lock()
		s.mu.Lock()
		if s.entries[submitterID] != e {
			// The slot was removed while we waited for it; retry against
			// whatever is current.
			s.mu.Unlock()
			e.mu.Unlock()
			continue
		}
		s.mu.Unlock()

		next := fn(e.sess)
		e.sess = next
		if next == nil {
			s.mu.Lock()
			delete(s.entries, submitterID)
			s.mu.Unlock()
		}
		e.mu.Unlock()
		return
	}
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, e := range s.entries {
		if e.sess != nil {
			n++
		}
	}
	return n
}

// Reap removes sessions idle longer than maxIdle, using the same per-entry
// locks as Update so a reap never races an in-flight transition. Returns the
// number of sessions dropped.
func (s *Store) Reap(maxIdle time.Duration, now time.Time) int {
	s.mu.Lock()
	snapshot := make(map[string]*entry, len(s.entries))
	for id, e := range s.entries {
		snapshot[id] = e
	}
	s.mu.Unlock()

	reaped := 0
	for id, e := range snapshot {
		e.mu.Lock()
		if e.sess != nil && now.Sub(e.sess.LastActivityAt) > maxIdle {
			e.sess = nil
			s.mu.Lock()
			if s.entries[id] == e {
				delete(s.entries, id)
			}
			s.mu.Unlock()
			reaped++
		}
		e.mu.Unlock()
	}
	return reaped
}
