package agent

import (
	"errors"
	"sync"
)

// ErrSessionBusy is returned when a session id already owns a live Session.
var ErrSessionBusy = errors.New("agent: session already has a live call")

// Registry holds at most one Session per session id. Handles are set on
// start and cleared on teardown.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Acquire stores the Session built by create under id. If id is taken it
// returns the existing Session together with ErrSessionBusy.
func (r *Registry) Acquire(id string, create func() *Session) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		return s, ErrSessionBusy
	}
	s := create()
	r.sessions[id] = s
	return s, nil
}

// Release drops the handle for id if it still points at s.
func (r *Registry) Release(id string, s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.sessions[id]; ok && cur == s {
		delete(r.sessions, id)
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
