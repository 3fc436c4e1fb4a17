package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process Store with a fixed TTL.
// Expired entries are evicted on the next access to their key, and all of
// them at most once per TTL when a new value is set.
type MemoryStore[V any] struct {
	mu        sync.Mutex
	ttl       time.Duration
	now       func() time.Time
	entries   map[string]Entry[V]
	lastSweep time.Time
}

// NewMemoryStore creates a memory store whose entries expire after ttl
func NewMemoryStore[V any](ttl time.Duration) *MemoryStore[V] {
	return &MemoryStore[V]{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]Entry[V]),
	}
}

// WithClock replaces the time source; intended for tests
func (m *MemoryStore[V]) WithClock(now func() time.Time) *MemoryStore[V] {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
	return m
}

// Get returns the value stored under key if it has not expired
func (m *MemoryStore[V]) Get(ctx context.Context, key string) (V, bool, error) {
	var zero V
	if err := ctx.Err(); err != nil {
		return zero, false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key]
	if !ok {
		return zero, false, nil
	}
	if !entry.Fresh(m.now(), m.ttl) {
		delete(m.entries, key)
		return zero, false, nil
	}
	return entry.Value, true, nil
}

// Set stores value under key with the current time
func (m *MemoryStore[V]) Set(ctx context.Context, key string, value V) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if now.Sub(m.lastSweep) >= m.ttl {
		m.sweep(now)
	}
	m.entries[key] = Entry[V]{
		Key:        key,
		Value:      value,
		InsertedAt: now,
	}
	return nil
}

// sweep drops every expired entry. Must be called with lock held.
func (m *MemoryStore[V]) sweep(now time.Time) {
	for key, entry := range m.entries {
		if !entry.Fresh(now, m.ttl) {
			delete(m.entries, key)
		}
	}
	m.lastSweep = now
}

// Len returns the number of stored entries, expired ones included
func (m *MemoryStore[V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// TTL returns the configured expiry
func (m *MemoryStore[V]) TTL() time.Duration {
	return m.ttl
}

var _ Store[[]byte] = (*MemoryStore[[]byte])(nil)
