package counter

import (
	"context"
	"sync"
	"time"
)

// InMemoryStore implements CounterStore with a mutex-guarded map. Intended
// for tests and single-process deployments; production uses RedisStore.
type InMemoryStore struct {
	mu       sync.Mutex
	counters map[string]*entry
	now      func() time.Time
}

type entry struct {
	value     int64
	expiresAt time.Time
}

// NewInMemory creates an empty in-memory counter store.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		counters: make(map[string]*entry),
		now:      time.Now,
	}
}

// Increment adds one to the counter under the lock, starting the TTL clock
// on first write. Expired entries restart from zero.
func (s *InMemoryStore) Increment(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	e := s.counters[key]
	if e == nil || now.After(e.expiresAt) {
		e = &entry{expiresAt: now.Add(ttl)}
		s.counters[key] = e
	}
	e.value++
	return e.value, nil
}

// Get returns the current value; absent or expired keys read as zero.
func (s *InMemoryStore) Get(ctx context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.counters[key]
	if e == nil || s.now().After(e.expiresAt) {
		return 0, nil
	}
	return e.value, nil
}

// SetClock overrides the time source. Test hook for expiry behavior.
func (s *InMemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}
