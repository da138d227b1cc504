package session

import (
	"sync"
	"time"
)

// Store is an in-memory session table. It is safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
}

// NewStore returns an empty store. ttl applies to tokens without exp.
func NewStore(ttl time.Duration) *Store {
	return &Store{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Create registers a session for token.
func (st *Store) Create(token string) *Session {
	s := New(token, st.ttl, st.now())

	st.mu.Lock()
	st.sessions[s.ID] = s
	st.mu.Unlock()
	return s
}

// Get returns a live session. Expired sessions are removed.
func (st *Store) Get(id string) (*Session, bool) {
	if id == "" {
		return nil, false
	}

	st.mu.RLock()
	s, ok := st.sessions[id]
	st.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if s.Expired(st.now()) {
		st.Delete(id)
		return nil, false
	}
	return s, true
}

// Delete removes a session and cancels its in-flight fetch, if any.
func (st *Store) Delete(id string) {
	st.mu.Lock()
	s, ok := st.sessions[id]
	delete(st.sessions, id)
	st.mu.Unlock()

	if ok {
		s.cancelFetch()
	}
}

// Sweep drops every expired session, cancelling any fetch still running for
// it, and returns how many were removed.
func (st *Store) Sweep() int {
	now := st.now()

	var expired []*Session
	st.mu.Lock()
	for id, s := range st.sessions {
		if s.Expired(now) {
			delete(st.sessions, id)
			expired = append(expired, s)
		}
	}
	st.mu.Unlock()

	for _, s := range expired {
		s.cancelFetch()
	}
	return len(expired)
}

// Len is the number of stored sessions, expired or not.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}
