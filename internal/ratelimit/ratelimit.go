package ratelimit

import (
	"sync"
	"time"
)

// Clock abstracts time for tests
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Store keeps request timestamps per key
type Store interface {
	// Hits returns the recorded timestamps for the key
	Hits(key string) []time.Time
	// Put replaces the recorded timestamps for the key
	Put(key string, hits []time.Time)
}

// MemoryStore in-process Store implementation
type MemoryStore struct {
	mu   sync.Mutex
	hits map[string][]time.Time
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{hits: make(map[string][]time.Time)}
}

// Hits implements Store
func (s *MemoryStore) Hits(key string) []time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[key]
}

// Put implements Store
func (s *MemoryStore) Put(key string, hits []time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(hits) == 0 {
		delete(s.hits, key)
		return
	}
	s.hits[key] = hits
}

// Limiter sliding-window rate limiter. A request is allowed while fewer than
// max requests were admitted for the key within the trailing window.
type Limiter struct {
	mu     sync.Mutex
	store  Store
	clock  Clock
	window time.Duration
	max    int
}

// NewLimiter creates a limiter over the given store
func NewLimiter(store Store, window time.Duration, max int) *Limiter {
	return &Limiter{
		store:  store,
		clock:  systemClock{},
		window: window,
		max:    max,
	}
}

// WithClock overrides the clock, for tests
func (l *Limiter) WithClock(clock Clock) *Limiter {
	l.clock = clock
	return l
}

// Allow reports whether a request for the key may proceed now, recording it
// if so. Expired hits are pruned on every call.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	cutoff := now.Add(-l.window)

	hits := l.store.Hits(key)
	fresh := hits[:0]
	for _, hit := range hits {
		if hit.After(cutoff) {
			fresh = append(fresh, hit)
		}
	}

	if len(fresh) >= l.max {
		l.store.Put(key, fresh)
		return false
	}

	fresh = append(fresh, now)
	l.store.Put(key, fresh)
	return true
}
