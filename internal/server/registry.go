package server

import (
	"sync"

	"github.com/voyagent/voyagent/internal/session"
)

// Registry tracks live dialogue sessions by ID. Sessions are in-process
// state: they live exactly as long as this server does, and the record
// store keeps the durable transcript mirror.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*session.Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*session.Session)}
}

func (r *Registry) Add(s *session.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID()] = s
}

func (r *Registry) Get(id string) (*session.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Remove detaches the session from the registry and returns it so the
// caller can close it. Removing an unknown ID is a no-op.
func (r *Registry) Remove(id string) (*session.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	return s, ok
}

// CloseAll closes every tracked session. Used at shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range r.sessions {
		s.Close()
		delete(r.sessions, id)
	}
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
