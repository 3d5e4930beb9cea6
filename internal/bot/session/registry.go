package session

import (
	"sync"
	"time"
)

type entry struct {
	state   State
	touched time.Time
}

// Registry maps user ids to their session. It is safe for concurrent use;
// callers serialize per user.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]entry), now: time.Now}
}

// Load returns the user's session, or a fresh one.
func (r *Registry) Load(userID string) State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.entries[userID].state
}

// Store commits the user's session. Storing a zero state evicts the entry.
func (r *Registry) Store(userID string, s State) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s.IsZero() {
		delete(r.entries, userID)
		return
	}
	r.entries[userID] = entry{state: s, touched: r.now()}
}

func (r *Registry) Delete(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, userID)
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// EvictIdle drops sessions not stored for longer than maxIdle and returns how
// many were removed.
func (r *Registry) EvictIdle(maxIdle time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-maxIdle)
	n := 0
	for id, e := range r.entries {
		if e.touched.Before(cutoff) {
			delete(r.entries, id)
			n++
		}
	}
	return n
}
