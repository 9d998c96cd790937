package memory

import (
	"context"
	"sync"

	"rightsledger/internal/audit"
	id "rightsledger/pkg/domain"
)

// Store keeps audit events in memory, indexed by instrument. Used in dev
// wiring and tests; durable sinks live next to this package.
type Store struct {
	mu     sync.RWMutex
	events []audit.Event
}

func New() *Store {
	return &Store{}
}

func (s *Store) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *Store) ListByInstrument(_ context.Context, instrumentID id.InstrumentID) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []audit.Event
	for _, e := range s.events {
		if e.InstrumentID == instrumentID {
			out = append(out, e)
		}
	}
	return out, nil
}

// All returns every recorded event in emission order.
func (s *Store) All() []audit.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Event{}, s.events...)
}
