package redisstore

import (
	"context"
	"encoding/json"
	"fmt"

	"rightsledger/internal/audit"
	platformredis "rightsledger/internal/platform/redis"
)

// Store implements audit.Sink on a Redis list per instrument. Events are
// pushed newest-last so consumers can LRANGE in emission order.
type Store struct {
	client *platformredis.Client
	prefix string
}

func New(client *platformredis.Client) *Store {
	return &Store{client: client, prefix: "audit:instrument:"}
}

func (s *Store) key(instrumentID string) string {
	return s.prefix + instrumentID
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	raw, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	if err := s.client.RPush(ctx, s.key(event.InstrumentID.String()), raw).Err(); err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

// ListByInstrument reads back the events for one instrument, oldest first.
func (s *Store) ListByInstrument(ctx context.Context, instrumentID string) ([]audit.Event, error) {
	raws, err := s.client.LRange(ctx, s.key(instrumentID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	events := make([]audit.Event, 0, len(raws))
	for _, raw := range raws {
		var e audit.Event
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, fmt.Errorf("decode audit event: %w", err)
		}
		events = append(events, e)
	}
	return events, nil
}
