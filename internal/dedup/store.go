package dedup

import (
	"context"
	"sync"
	"time"
)

// Store records event keys for a bounded window and answers whether a key
// was present when asked to remove it.
type Store interface {
	// Insert records key with the given TTL, overwriting any previous entry.
	Insert(ctx context.Context, key string, ttl time.Duration) error

	// Remove deletes key and reports whether it was present and unexpired
	// at the moment of removal.
	Remove(ctx context.Context, key string) (bool, error)
}

// memoryStore is the process-local fallback: a map from key to expiry
// instant. Entries are reaped lazily on Remove; no background sweep.
type memoryStore struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (s *memoryStore) Insert(_ context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = s.now().Add(ttl)
	return nil
}

func (s *memoryStore) Remove(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	expiry, ok := s.entries[key]
	if !ok {
		return false, nil
	}
	delete(s.entries, key)
	if !s.now().Before(expiry) {
		// Present but expired counts as absent.
		return false, nil
	}
	return true, nil
}

func (s *memoryStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
