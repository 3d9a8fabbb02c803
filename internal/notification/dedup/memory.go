package dedup

import (
	"context"
	"sync"
	"time"
)

// purgeEvery is how many reservations pass between sweeps of expired entries.
const purgeEvery = 256

type memoryEntry struct {
	value     []byte // nil while pending
	expiresAt time.Time
}

// MemoryStore is a process-local Store for single-replica deployments and
// tests.
type MemoryStore struct {
	mu           sync.Mutex
	entries      map[string]memoryEntry
	reservations int
	now          func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry), now: time.Now}
}

// WithClock replaces the time source.
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	s.now = now
	return s
}

func (s *MemoryStore) Reserve(_ context.Context, key string, ttl time.Duration) (bool, []byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if entry, ok := s.entries[key]; ok && now.Before(entry.expiresAt) {
		return false, entry.value, nil
	}
	s.reservations++
	if s.reservations%purgeEvery == 0 {
		s.purgeLocked(now)
	}
	s.entries[key] = memoryEntry{expiresAt: now.Add(ttl)}
	return true, nil, nil
}

func (s *MemoryStore) Complete(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]byte, len(value))
	copy(stored, value)
	s.entries[key] = memoryEntry{value: stored, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemoryStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// Len reports live entries.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeLocked(s.now())
	return len(s.entries)
}

func (s *MemoryStore) purgeLocked(now time.Time) {
	for k, entry := range s.entries {
		if !now.Before(entry.expiresAt) {
			delete(s.entries, k)
		}
	}
}
