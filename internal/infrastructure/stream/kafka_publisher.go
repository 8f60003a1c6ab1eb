package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"payments-webhook-layer/internal/domain"
	"payments-webhook-layer/internal/ports"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// DefaultTopic is the stream downstream systems consume integration events
// from.
const DefaultTopic = "integration-events"

// KafkaPublisher produces recorded integration events to Kafka.
type KafkaPublisher struct {
	writer *kafka.Writer
	logger zerolog.Logger
}

// ParseBrokers splits a comma-separated broker string.
func ParseBrokers(brokers string) []string {
	parts := strings.Split(brokers, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// NewKafkaPublisher creates a Kafka integration-event publisher.
func NewKafkaPublisher(brokers []string, topic string, logger zerolog.Logger) ports.EventPublisher {
	if topic == "" {
		topic = DefaultTopic
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Async:        false,
		// Allow Kafka to auto-create the topic in dev environments when it
		// doesn't exist yet.
		AllowAutoTopicCreation: true,
	}
	return &KafkaPublisher{writer: writer, logger: logger}
}

// Publish produces one event, keyed by connection id so per-connection
// ordering is preserved.
func (p *KafkaPublisher) Publish(ctx context.Context, event *domain.IntegrationEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal integration event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.ConnectionID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "provider", Value: []byte(event.ProviderCode)},
			{Key: "event_type", Value: []byte(event.EventType)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish integration event: %w", err)
	}

	p.logger.Debug().
		Str("eventId", event.ID).
		Str("provider", event.ProviderCode).
		Str("eventType", event.EventType).
		Msg("Published integration event to Kafka")
	return nil
}

// Close closes the underlying writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
