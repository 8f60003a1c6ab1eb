package ports

import (
	"context"

	"payments-webhook-layer/internal/domain"
)

// EventPublisher emits recorded integration events to downstream consumers.
// Publishing is best-effort from the recorder's point of view; a publish
// failure never rolls back the insert.
type EventPublisher interface {
	Publish(ctx context.Context, event *domain.IntegrationEvent) error
	Close() error
}
