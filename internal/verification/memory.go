package verification

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a concurrency-safe in-process Store. Expired entries are
// evicted lazily when read; there is no background sweep.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]Entry
	now     func() time.Time
}

// NewMemoryStore builds an empty in-memory store using the wall clock.
func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreWithClock(time.Now)
}

// NewMemoryStoreWithClock builds an in-memory store reading time from now.
func NewMemoryStoreWithClock(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{entries: make(map[string]Entry), now: now}
}

// Set stores code under key, replacing any previous entry.
func (s *MemoryStore) Set(_ context.Context, key, code string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = Entry{Code: code, ExpiresAt: expiresAt}
	return nil
}

// Get returns the live entry for key. An expired entry is removed and
// reported as missing.
func (s *MemoryStore) Get(_ context.Context, key string) (Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[key]
	if !ok {
		return Entry{}, false, nil
	}
	if entry.Expired(s.now()) {
		delete(s.entries, key)
		return Entry{}, false, nil
	}
	return entry, true, nil
}

// Consume redeems code for key under the store lock. A mismatch leaves the
// entry in place; an expired entry is evicted.
func (s *MemoryStore) Consume(_ context.Context, key, code string) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[key]
	if !ok {
		return OutcomeMissing, nil
	}
	if entry.Expired(s.now()) {
		delete(s.entries, key)
		return OutcomeMissing, nil
	}
	if entry.Code != code {
		return OutcomeMismatch, nil
	}
	delete(s.entries, key)
	return OutcomeRedeemed, nil
}

// Remove deletes the entry for key. Removing a missing key is a no-op.
func (s *MemoryStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// Len reports the number of entries currently held, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
