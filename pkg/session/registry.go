package session

import (
	"context"
	"sync"

	"github.com/entrhq/harness/pkg/scenario"
)

// Registry holds at most one session per scenario. Scenarios never see each
// other's slots; the mutex only guards map membership.
type Registry struct {
	mu    sync.Mutex
	slots map[string]*Session
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{slots: make(map[string]*Session)}
}

// Set stores s as the calling scenario's session, replacing any previous one.
func (r *Registry) Set(ctx context.Context, s *Session) error {
	key, err := scenario.KeyFromContext(ctx)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.slots[key] = s
	return nil
}

// Get returns the calling scenario's session. A missing or closed session
// yields ErrNotInitialized.
func (r *Registry) Get(ctx context.Context) (*Session, error) {
	key, err := scenario.KeyFromContext(ctx)
	if err != nil {
		return nil, ErrNotInitialized
	}
	r.mu.Lock()
	s, ok := r.slots[key]
	r.mu.Unlock()
	if !ok || s == nil || s.State() == StateClosed {
		return nil, ErrNotInitialized
	}
	return s, nil
}

// IsInitialized reports whether the calling scenario holds a usable session.
func (r *Registry) IsInitialized(ctx context.Context) bool {
	_, err := r.Get(ctx)
	return err == nil
}

// Remove clears the calling scenario's slot and returns what was there.
func (r *Registry) Remove(ctx context.Context) *Session {
	key, err := scenario.KeyFromContext(ctx)
	if err != nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.slots[key]
	delete(r.slots, key)
	return s
}

// Len returns the number of occupied slots.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.slots)
}
