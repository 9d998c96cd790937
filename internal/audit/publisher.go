package audit

import (
	"context"
	"time"
)

// Sink is an append-only destination for audit events. Implementations:
// in-memory store, postgres store, redis stream, kafka producer.
type Sink interface {
	Append(ctx context.Context, event Event) error
}

// Publisher captures structured audit events. It is append-only and writes
// through a Sink so tests and deployments can swap destinations.
type Publisher struct {
	sink Sink
}

func NewPublisher(sink Sink) *Publisher {
	return &Publisher{sink: sink}
}

func (p *Publisher) Emit(ctx context.Context, base Event) error {
	if base.Timestamp.IsZero() {
		base.Timestamp = time.Now()
	}
	return p.sink.Append(ctx, base)
}
