package repository

import (
	"context"
	"sync"
	"time"

	"github.com/spec-kit/ride-auth-service/internal/domain"
)

// MemoryRevocationStore is a process-local RevocationStore.
type MemoryRevocationStore struct {
	mu      sync.RWMutex
	entries map[string]time.Time
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryRevocationStore builds an empty store.
func NewMemoryRevocationStore() *MemoryRevocationStore {
	return &MemoryRevocationStore{
		entries: make(map[string]time.Time),
		ttl:     domain.TokenTTL,
		now:     time.Now,
	}
}

func (s *MemoryRevocationStore) Add(_ context.Context, token string) error {
	key := Fingerprint(token)
	s.mu.Lock()
	defer s.mu.Unlock()
	if createdAt, ok := s.entries[key]; ok && live(createdAt, s.now(), s.ttl) {
		return nil
	}
	s.entries[key] = s.now()
	return nil
}

func (s *MemoryRevocationStore) Contains(_ context.Context, token string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	createdAt, ok := s.entries[Fingerprint(token)]
	return ok && live(createdAt, s.now(), s.ttl), nil
}

// Sweep drops expired entries.
func (s *MemoryRevocationStore) Sweep(_ context.Context) (int64, error) {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed int64
	for key, createdAt := range s.entries {
		if !live(createdAt, now, s.ttl) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed, nil
}

// Len reports how many entries are physically held.
func (s *MemoryRevocationStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
