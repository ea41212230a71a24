package session

import (
	"sync"
	"time"
)

// State is the per-session cursor the engine keeps between queries. It
// lives for the session's natural lifetime; expiring idle sessions is a
// responsibility of whoever owns the store, documented rather than
// implemented here.
type State struct {
	SessionID     string
	UserName      string
	LastQuery     string
	LastResultIDs []int64
	CurrentPage   int
	TotalPages    int
	UpdatedAt     time.Time
}

type Store struct {
	mu       sync.RWMutex
	sessions map[string]*State
}

func NewStore() *Store {
	return &Store{sessions: make(map[string]*State)}
}

func (s *Store) Get(sessionID string) (State, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.sessions[sessionID]
	if !ok {
		return State{}, false
	}
	return *st, true
}

// Update applies fn to the session's state under the store lock, creating
// the state on first contact. Two simultaneous updates to the same
// session are serialized so neither observes a stale cursor.
func (s *Store) Update(sessionID, userName string, fn func(*State)) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.sessions[sessionID]
	if !ok {
		st = &State{SessionID: sessionID, UserName: userName, CurrentPage: 1, TotalPages: 1}
		s.sessions[sessionID] = st
	}
	fn(st)
	st.UpdatedAt = time.Now()
	return *st
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
