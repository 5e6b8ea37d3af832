package progress

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"
	"time"
)

// Registry hands out one Engine per user, created on first use. Engines stay
// registered until EvictIdle drops them.
type Registry struct {
	store DocumentStore
	opts  []Option
	clock Clock

	mu       sync.Mutex
	engines  map[string]*Engine
	lastSeen map[string]time.Time
}

// NewRegistry creates a registry whose engines share store and opts.
func NewRegistry(store DocumentStore, opts ...Option) (*Registry, error) {
	if store == nil {
		return nil, errors.New("document store is required")
	}
	// Engines and the registry read the same clock.
	probe := &Engine{clock: systemClock{}}
	for _, opt := range opts {
		opt(probe)
	}
	return &Registry{
		store:    store,
		opts:     opts,
		clock:    probe.clock,
		engines:  make(map[string]*Engine),
		lastSeen: make(map[string]time.Time),
	}, nil
}

// Engine returns the engine bound to userID. An empty userID yields an engine
// whose loads fail with ErrAuthRequired.
func (r *Registry) Engine(userID string) *Engine {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.engines[userID]; ok {
		r.lastSeen[userID] = r.clock.Now()
		return e
	}

	auth := AuthProviderFunc(func(context.Context) (string, bool) {
		return userID, userID != ""
	})
	// NewEngine only fails on nil collaborators, both checked above.
	e, _ := NewEngine(auth, r.store, r.opts...)
	if userID != "" {
		r.engines[userID] = e
		r.lastSeen[userID] = r.clock.Now()
	}
	return e
}

// EvictIdle drops engines whose user has not asked for them within idle and
// that have no attempt in flight. It returns how many were dropped. A
// non-positive idle keeps every engine.
func (r *Registry) EvictIdle(idle time.Duration) int {
	if idle <= 0 {
		return 0
	}
	cutoff := r.clock.Now().Add(-idle)

	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := 0
	for id, seen := range r.lastSeen {
		if seen.After(cutoff) || r.engines[id].State().IsLoading() {
			continue
		}
		delete(r.engines, id)
		delete(r.lastSeen, id)
		evicted++
	}
	return evicted
}

// Each calls fn for every registered engine in user id order.
func (r *Registry) Each(fn func(userID string, e *Engine)) {
	r.mu.Lock()
	snapshot := maps.Clone(r.engines)
	r.mu.Unlock()

	for _, id := range slices.Sorted(maps.Keys(snapshot)) {
		fn(id, snapshot[id])
	}
}

// Len reports how many engines have been created.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.engines)
}
