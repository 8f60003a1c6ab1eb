package application

import (
	"context"
	"fmt"
	"time"

	"payments-webhook-layer/internal/domain"
	"payments-webhook-layer/internal/infrastructure/metrics"
	"payments-webhook-layer/internal/infrastructure/pubsub"
	"payments-webhook-layer/internal/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// EventRecorder persists integration events and fans them out to live
// subscribers and the optional event stream. Fan-out failures never fail a
// recording; the durable insert is the only hard requirement.
type EventRecorder struct {
	events    ports.EventRepository
	publisher ports.EventPublisher
	pubsub    *pubsub.EventPubSub
	logger    zerolog.Logger
}

// NewEventRecorder creates a recorder. publisher and ps may be nil.
func NewEventRecorder(
	events ports.EventRepository,
	publisher ports.EventPublisher,
	ps *pubsub.EventPubSub,
	logger zerolog.Logger,
) *EventRecorder {
	return &EventRecorder{
		events:    events,
		publisher: publisher,
		pubsub:    ps,
		logger:    logger,
	}
}

// Record writes one integration event for a verified notification.
func (r *EventRecorder) Record(
	ctx context.Context,
	conn *domain.Connection,
	eventType string,
	providerEventID string,
	payload map[string]any,
	status domain.EventStatus,
) (*domain.IntegrationEvent, error) {
	event := &domain.IntegrationEvent{
		ID:              uuid.NewString(),
		ConnectionID:    conn.ID,
		ProviderCode:    conn.ProviderCode,
		EventType:       eventType,
		ProviderEventID: providerEventID,
		Payload:         payload,
		Status:          status,
		CreatedAt:       time.Now(),
	}

	if err := r.events.Insert(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to record event: %w", err)
	}

	metrics.EventsRecorded.WithLabelValues(conn.ProviderCode, string(status)).Inc()

	if r.pubsub != nil {
		r.pubsub.Publish(event)
	}
	if r.publisher != nil {
		if err := r.publisher.Publish(ctx, event); err != nil {
			r.logger.Error().Err(err).
				Str("eventId", event.ID).
				Str("provider", event.ProviderCode).
				Msg("Failed to publish event to stream")
		}
	}

	r.logger.Info().
		Str("eventId", event.ID).
		Str("connectionId", event.ConnectionID).
		Str("provider", event.ProviderCode).
		Str("eventType", event.EventType).
		Str("status", string(status)).
		Msg("Recorded integration event")

	return event, nil
}

// Events lists recorded events for the query API.
func (r *EventRecorder) Events(ctx context.Context, filter ports.EventFilter) ([]*domain.IntegrationEvent, error) {
	return r.events.List(ctx, filter)
}
