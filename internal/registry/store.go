package registry

import (
	"context"
	"sync"

	id "rightsledger/pkg/domain"
	"rightsledger/pkg/platform/sentinel"
)

// Store indexes created instruments: a global append-only sequence, a
// per-owner sequence, and a membership set for O(1) validity checks.
type Store interface {
	Append(ctx context.Context, instrumentID id.InstrumentID, owner id.AccountID) error
	GetAt(ctx context.Context, index int) (id.InstrumentID, error)
	Count(ctx context.Context) (int, error)
	ListByOwner(ctx context.Context, owner id.AccountID) ([]id.InstrumentID, error)
	IsValid(ctx context.Context, instrumentID id.InstrumentID) (bool, error)
}

// InMemoryStore is the canonical registry index.
type InMemoryStore struct {
	mu      sync.RWMutex
	all     []id.InstrumentID
	byOwner map[id.AccountID][]id.InstrumentID
	valid   map[id.InstrumentID]bool
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byOwner: make(map[id.AccountID][]id.InstrumentID),
		valid:   make(map[id.InstrumentID]bool),
	}
}

func (s *InMemoryStore) Append(_ context.Context, instrumentID id.InstrumentID, owner id.AccountID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.valid[instrumentID] {
		return sentinel.ErrConflict
	}
	s.all = append(s.all, instrumentID)
	s.byOwner[owner] = append(s.byOwner[owner], instrumentID)
	s.valid[instrumentID] = true
	return nil
}

func (s *InMemoryStore) GetAt(_ context.Context, index int) (id.InstrumentID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if index < 0 || index >= len(s.all) {
		return id.InstrumentID{}, sentinel.ErrNotFound
	}
	return s.all[index], nil
}

func (s *InMemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.all), nil
}

func (s *InMemoryStore) ListByOwner(_ context.Context, owner id.AccountID) ([]id.InstrumentID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]id.InstrumentID{}, s.byOwner[owner]...), nil
}

func (s *InMemoryStore) IsValid(_ context.Context, instrumentID id.InstrumentID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.valid[instrumentID], nil
}
