package ui

import (
	"sync"
	"time"

	"github.com/KaramelBytes/datadash/internal/dataset"
	"github.com/KaramelBytes/datadash/internal/insights"
)

// State is everything one browser session keeps between requests.
type State struct {
	// Table is the uploaded dataset; nil until an upload succeeds.
	Table *dataset.Table
	// Filtered is the row subset produced by the last dashboard render.
	Filtered *dataset.Table
	// LoadError is the message of the last failed upload.
	LoadError string
	Insights  insights.Panel
}

type sessionEntry struct {
	mu      sync.Mutex
	state   State
	touched time.Time
}

// SessionStore keeps per-session State in memory. Each session has its own
// lock so interactions of one session run one at a time while different
// sessions proceed independently.
type SessionStore struct {
	mu      sync.Mutex
	entries map[string]*sessionEntry
	maxIdle time.Duration
	now     func() time.Time
}

// NewSessionStore returns a store that forgets sessions idle for longer than
// maxIdle. Zero keeps sessions forever.
func NewSessionStore(maxIdle time.Duration) *SessionStore {
	return &SessionStore{entries: map[string]*sessionEntry{}, maxIdle: maxIdle, now: time.Now}
}

func (s *SessionStore) entry(id string) *sessionEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if s.maxIdle > 0 {
		for k, e := range s.entries {
			if k != id && now.Sub(e.touched) > s.maxIdle && e.mu.TryLock() {
				delete(s.entries, k)
				e.mu.Unlock()
			}
		}
	}
	e, ok := s.entries[id]
	if !ok {
		e = &sessionEntry{}
		s.entries[id] = e
	}
	e.touched = now
	return e
}

// Update runs fn with the session's current state under the session lock and
// stores the state it returns.
func (s *SessionStore) Update(id string, fn func(State) State) State {
	e := s.entry(id)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = fn(e.state)
	return e.state
}

// Len returns the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
