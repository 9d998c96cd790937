package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"

	"rightsledger/internal/audit"
)

// Publisher implements audit.Sink on a Kafka topic. External indexers and
// front-ends consume the topic; this service only ever produces.
type Publisher struct {
	client *kgo.Client
	topic  string
}

// New connects to the brokers and ensures the audit topic exists. Records are
// produced synchronously: the enclosing operation has already committed, so
// delivery is not allowed to fail silently.
func New(ctx context.Context, brokers []string, topic string) (*Publisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	admin := kadm.NewClient(client)
	topics, err := admin.ListTopics(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("list kafka topics: %w", err)
	}
	if !topics.Has(topic) {
		if _, err := admin.CreateTopic(ctx, -1, -1, nil, topic); err != nil {
			client.Close()
			return nil, fmt.Errorf("create audit topic: %w", err)
		}
	}

	return &Publisher{client: client, topic: topic}, nil
}

func (p *Publisher) Append(ctx context.Context, event audit.Event) error {
	raw, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	record := &kgo.Record{
		Topic: p.topic,
		// Key by instrument so one instrument's events stay ordered within
		// a partition.
		Key:   []byte(event.InstrumentID.String()),
		Value: raw,
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit event: %w", err)
	}
	return nil
}

func (p *Publisher) Close() {
	p.client.Close()
}
