package audit

import (
	"context"
)

// Worker consumes audit events from a channel and persists them. It keeps
// background processing off the request path without wiring a queue into
// domain code.
type Worker struct {
	sink  Sink
	inbox <-chan Event
}

func NewWorker(sink Sink, inbox <-chan Event) *Worker {
	return &Worker{sink: sink, inbox: inbox}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.sink.Append(ctx, event); err != nil {
				return err
			}
		}
	}
}

// ChannelSink adapts an inbox channel to the Sink interface so the Publisher
// can hand events to the Worker asynchronously.
type ChannelSink chan<- Event

func (c ChannelSink) Append(ctx context.Context, event Event) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case c <- event:
		return nil
	}
}
