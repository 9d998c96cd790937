// Package store holds instrument aggregates and provides the atomic
// execution boundary every state-changing operation runs inside.
package store

import (
	"context"
	"sync"

	"rightsledger/internal/instrument/models"
	id "rightsledger/pkg/domain"
	"rightsledger/pkg/platform/sentinel"
)

// InMemory is the canonical instrument store. Execute gives callers the two
// guarantees the accounting core assumes from its host environment:
//
//   - operations on one instrument are serialized into a total order by a
//     per-instrument critical section that is held across any external
//     asset-ledger calls the callback makes (this is the reentrancy lock);
//   - the callback mutates a deep copy that is committed only when it
//     returns nil, so a failed external transfer discards every effect
//     (all-or-nothing atomicity).
type InMemory struct {
	mu      sync.RWMutex
	entries map[id.InstrumentID]*entry
}

type entry struct {
	mu      sync.Mutex
	current *models.Instrument
}

func NewInMemory() *InMemory {
	return &InMemory{entries: make(map[id.InstrumentID]*entry)}
}

// Create registers a new aggregate.
func (s *InMemory) Create(_ context.Context, in *models.Instrument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entries[in.ID]; exists {
		return sentinel.ErrConflict
	}
	s.entries[in.ID] = &entry{current: in.Clone()}
	return nil
}

// Get returns a snapshot copy of the aggregate.
func (s *InMemory) Get(_ context.Context, instrumentID id.InstrumentID) (*models.Instrument, error) {
	e, err := s.entry(instrumentID)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current.Clone(), nil
}

// Execute runs fn on a working copy of the aggregate inside its critical
// section and commits the copy only when fn returns nil. The returned
// snapshot reflects the committed state.
func (s *InMemory) Execute(ctx context.Context, instrumentID id.InstrumentID, fn func(*models.Instrument) error) (*models.Instrument, error) {
	e, err := s.entry(instrumentID)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	working := e.current.Clone()
	if err := fn(working); err != nil {
		return nil, err
	}
	e.current = working
	return working.Clone(), nil
}

func (s *InMemory) entry(instrumentID id.InstrumentID) (*entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[instrumentID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return e, nil
}
