package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"rightsledger/internal/audit"
)

// Store implements audit.Sink on PostgreSQL. Events are immutable rows; the
// table is append-only and indexed by instrument for offline consumers.
type Store struct {
	db *sql.DB
}

// Open connects with the lib/pq driver and ensures the events table exists.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	store := &Store{db: db}
	if err := store.ensureSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// New wraps an existing connection, for tests that manage their own schema.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) ensureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS audit_events (
			id            UUID PRIMARY KEY,
			occurred_at   TIMESTAMPTZ NOT NULL,
			action        TEXT NOT NULL,
			instrument_id UUID NOT NULL,
			payload       JSONB NOT NULL
		);
		CREATE INDEX IF NOT EXISTS audit_events_instrument_idx
			ON audit_events (instrument_id, occurred_at);
	`)
	if err != nil {
		return fmt.Errorf("ensure audit schema: %w", err)
	}
	return nil
}

// payload is the JSON structure stored for each event. Field names match
// audit.Event for proper deserialization by consumers.
type payload struct {
	ID                string `json:"ID"`
	Timestamp         string `json:"Timestamp"`
	Action            string `json:"Action"`
	InstrumentID      string `json:"InstrumentID"`
	Account           string `json:"Account,omitempty"`
	Amount            uint64 `json:"Amount"`
	Units             uint64 `json:"Units"`
	DistributionIndex int    `json:"DistributionIndex"`
	Description       string `json:"Description,omitempty"`
	RequestID         string `json:"RequestID,omitempty"`
}

// Append writes an audit event row.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	eventID := uuid.New()

	body := payload{
		ID:                eventID.String(),
		Timestamp:         event.Timestamp.Format(time.RFC3339Nano),
		Action:            string(event.Action),
		InstrumentID:      event.InstrumentID.String(),
		Amount:            event.Amount,
		Units:             event.Units,
		DistributionIndex: event.DistributionIndex,
		Description:       event.Description,
		RequestID:         event.RequestID,
	}
	if !event.Account.IsNil() {
		body.Account = event.Account.String()
	}

	payloadBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_events (id, occurred_at, action, instrument_id, payload)
		VALUES ($1, $2, $3, $4, $5)
	`, eventID, event.Timestamp, string(event.Action), uuid.UUID(event.InstrumentID), payloadBytes)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// CountByInstrument reports stored events for one instrument; used by
// integration tests and retention jobs.
func (s *Store) CountByInstrument(ctx context.Context, instrumentID uuid.UUID) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM audit_events WHERE instrument_id = $1`, instrumentID,
	).Scan(&n)
	return n, err
}

func (s *Store) Close() error { return s.db.Close() }
