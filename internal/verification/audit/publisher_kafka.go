package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"certifai/internal/platform/kafka/producer"
)

// KafkaPublisher fans audit entries out to a Kafka topic for downstream
// compliance consumers. Delivery is asynchronous; the producer logs failed
// deliveries itself.
type KafkaPublisher struct {
	producer *producer.Producer
	topic    string
}

// NewKafkaPublisher constructs a Kafka audit publisher. EnsureTopic should be
// called once at startup before publishing.
func NewKafkaPublisher(p *producer.Producer, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		producer: p,
		topic:    topic,
	}
}

// EnsureTopic creates the audit topic if missing.
func (p *KafkaPublisher) EnsureTopic(ctx context.Context) error {
	return p.producer.EnsureTopic(ctx, p.topic, 3)
}

// Publish enqueues one entry keyed by certificate ID so a certificate's runs
// land in one partition, preserving order for consumers.
func (p *KafkaPublisher) Publish(_ context.Context, entry Entry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode audit event: %w", err)
	}
	return p.producer.ProduceAsync(&producer.Message{
		Topic: p.topic,
		Key:   []byte(entry.CertificateID),
		Value: payload,
		Headers: map[string]string{
			"correlation_id": entry.CorrelationID,
			"step":           entry.Step,
		},
	})
}
