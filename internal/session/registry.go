package session

import (
	"sync"

	"github.com/pscheid92/pushcast/internal/metrics"
)

// Registry is the lock-protected set of live sessions. Membership changes and
// broadcast iteration are serialized by a single mutex; no lock is held across
// connection I/O because Session.Send only enqueues.
type Registry struct {
	mu       sync.Mutex
	sessions map[*Session]struct{}
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[*Session]struct{})}
}

// Add inserts s. Adding the same session twice is a no-op.
func (r *Registry) Add(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[s] = struct{}{}
	metrics.SessionsCurrent.Set(float64(len(r.sessions)))
}

// Remove deletes s and reports whether it was present. Removing an absent
// session is not an error, so concurrent teardown paths stay safe.
func (r *Registry) Remove(s *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[s]; !ok {
		return false
	}
	delete(r.sessions, s)
	metrics.SessionsCurrent.Set(float64(len(r.sessions)))
	return true
}

// Broadcast schedules payload on every registered session and returns the
// number of sends scheduled. It returns once all sends are queued, not written.
// A session that refuses the send does not affect the others.
func (r *Registry) Broadcast(payload []byte) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	scheduled := 0
	for s := range r.sessions {
		if s.Send(payload) {
			scheduled++
		}
	}
	return scheduled
}

// Len returns the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Contains reports whether s is currently registered.
func (r *Registry) Contains(s *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[s]
	return ok
}

// CloseAll tears down every registered session and returns how many were closed.
// Sessions are closed outside the lock because teardown removes them from r.
func (r *Registry) CloseAll() int {
	r.mu.Lock()
	snapshot := make([]*Session, 0, len(r.sessions))
	for s := range r.sessions {
		snapshot = append(snapshot, s)
	}
	r.mu.Unlock()

	for _, s := range snapshot {
		s.Close()
	}
	return len(snapshot)
}
