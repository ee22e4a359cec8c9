// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Aegis Contributors

package store

import (
	"context"
	"sync"

	aegiserr "github.com/aegis-fin/aegis/pkg/errors"
	"github.com/aegis-fin/aegis/pkg/health"
)

// MemoryAttemptStore is an in-memory AttemptStore for tests and
// ephemeral development runs.
type MemoryAttemptStore struct {
	mu       sync.RWMutex
	attempts []*ConnectionAttempt
}

var _ AttemptStore = (*MemoryAttemptStore)(nil)

// NewMemoryAttemptStore creates an empty in-memory attempt log.
func NewMemoryAttemptStore() *MemoryAttemptStore {
	return &MemoryAttemptStore{}
}

func (s *MemoryAttemptStore) Append(_ context.Context, attempt *ConnectionAttempt) error {
	if attempt == nil {
		return aegiserr.New(aegiserr.CodeStoreInvalidInput, "attempt must not be nil")
	}
	if attempt.ID == "" {
		return aegiserr.New(aegiserr.CodeStoreInvalidInput, "attempt ID must not be empty")
	}

	// Copy so later caller mutation can't corrupt the log.
	cp := *attempt

	s.mu.Lock()
	s.attempts = append(s.attempts, &cp)
	s.mu.Unlock()
	return nil
}

func (s *MemoryAttemptStore) ListByAccount(_ context.Context, accountID string, limit int) ([]*ConnectionAttempt, error) {
	if limit <= 0 {
		limit = 100
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	// Newest first.
	var out []*ConnectionAttempt
	for i := len(s.attempts) - 1; i >= 0 && len(out) < limit; i-- {
		if s.attempts[i].AccountID == accountID {
			cp := *s.attempts[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}

// Len returns the total number of records across all accounts.
func (s *MemoryAttemptStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.attempts)
}

func (s *MemoryAttemptStore) Close() error { return nil }

// MemoryHealthStore is an in-memory HealthStore.
type MemoryHealthStore struct {
	mu   sync.RWMutex
	rows map[string]health.ProviderHealth
}

var _ HealthStore = (*MemoryHealthStore)(nil)

// NewMemoryHealthStore creates an empty in-memory health store.
func NewMemoryHealthStore() *MemoryHealthStore {
	return &MemoryHealthStore{rows: make(map[string]health.ProviderHealth)}
}

func (s *MemoryHealthStore) Upsert(_ context.Context, h health.ProviderHealth) error {
	if h.Provider == "" || h.Region == "" {
		return aegiserr.New(aegiserr.CodeStoreInvalidInput,
			"health row requires provider and region")
	}

	s.mu.Lock()
	s.rows[h.Provider+"@"+h.Region] = h
	s.mu.Unlock()
	return nil
}

func (s *MemoryHealthStore) List(_ context.Context, region string) ([]health.ProviderHealth, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]health.ProviderHealth, 0, len(s.rows))
	for _, h := range s.rows {
		if region == "" || h.Region == region {
			out = append(out, h)
		}
	}
	return out, nil
}

func (s *MemoryHealthStore) Close() error { return nil }
