// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package otp

import (
	"context"
	"sync"
	"time"
)

// Entry is the cached state for one email. A pending entry carries a code
// and its expiry; a verified entry is terminal until consumed.
type Entry struct {
	Code       string    `json:"code,omitempty"`
	ExpiresAt  time.Time `json:"expiresAt"`
	Verified   bool      `json:"verified"`
	VerifiedAt time.Time `json:"verifiedAt"`
}

// Store keeps OTP entries keyed by normalized email.
type Store interface {
	Get(ctx context.Context, email string) (Entry, bool, error)
	// Set replaces the entry. ttl is a hint for stores with native expiry.
	Set(ctx context.Context, email string, entry Entry, ttl time.Duration) error
	Delete(ctx context.Context, email string) error
	// Sweep evicts pending entries expired at now and verified entries
	// older than keepVerified. It returns the number of evicted entries.
	Sweep(ctx context.Context, now time.Time, keepVerified time.Duration) (int, error)
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

func (s *MemoryStore) Get(_ context.Context, email string) (Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[email]
	return entry, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, email string, entry Entry, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[email] = entry
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, email)
	return nil
}

func (s *MemoryStore) Sweep(_ context.Context, now time.Time, keepVerified time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for email, entry := range s.entries {
		if isStale(entry, now, keepVerified) {
			delete(s.entries, email)
			evicted++
		}
	}
	return evicted, nil
}

// Len returns the number of cached entries.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func isStale(entry Entry, now time.Time, keepVerified time.Duration) bool {
	if entry.Verified {
		return now.After(entry.VerifiedAt.Add(keepVerified))
	}
	return now.After(entry.ExpiresAt)
}
