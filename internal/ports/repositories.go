package ports

import (
	"context"

	"payments-webhook-layer/internal/domain"
)

// ConnectionRepository defines the interface for connection persistence.
// Connections have a soft lifecycle: disconnecting updates the status, nothing
// is ever physically deleted.
type ConnectionRepository interface {
	Create(ctx context.Context, conn *domain.Connection) error

	// GetByID returns (nil, nil) when the connection does not exist.
	GetByID(ctx context.Context, id string) (*domain.Connection, error)

	// ListByProvider returns every connection for a provider, any status.
	ListByProvider(ctx context.Context, providerCode string) ([]*domain.Connection, error)

	// ActiveByProvider returns only connections with status active. An empty
	// result is a valid outcome, distinct from a repository error.
	ActiveByProvider(ctx context.Context, providerCode string) ([]*domain.Connection, error)

	UpdateStatus(ctx context.Context, id string, status domain.ConnectionStatus) error
}

// ConnectionResolver yields the active candidate connections for a provider.
// The dispatcher depends on this rather than the full repository so resolution
// can be cached or faked independently of persistence.
type ConnectionResolver interface {
	ActiveConnections(ctx context.Context, providerCode string) ([]*domain.Connection, error)
}

// EventFilter narrows integration event queries.
type EventFilter struct {
	ConnectionID string
	ProviderCode string
	Status       domain.EventStatus
	Limit        int64
}

// EventRepository defines the interface for integration event persistence.
// Inserts only; this subsystem never updates an event in place.
type EventRepository interface {
	Insert(ctx context.Context, event *domain.IntegrationEvent) error
	List(ctx context.Context, filter EventFilter) ([]*domain.IntegrationEvent, error)
}
