package entity

import (
	"time"

	"payments-webhook-layer/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MongoEventDoc represents an integration event in MongoDB.
type MongoEventDoc struct {
	ID              primitive.ObjectID `bson:"_id,omitempty"`
	EventID         string             `bson:"eventId"`
	ConnectionID    string             `bson:"connectionId"`
	ProviderCode    string             `bson:"providerCode"`
	EventType       string             `bson:"eventType"`
	ProviderEventID string             `bson:"providerEventId,omitempty"`
	Payload         map[string]any     `bson:"payload"`
	Status          string             `bson:"status"`
	CreatedAt       time.Time          `bson:"createdAt"`
}

// ToDomain converts the MongoDB document to a domain entity.
func (d *MongoEventDoc) ToDomain() *domain.IntegrationEvent {
	return &domain.IntegrationEvent{
		ID:              d.EventID,
		ConnectionID:    d.ConnectionID,
		ProviderCode:    d.ProviderCode,
		EventType:       d.EventType,
		ProviderEventID: d.ProviderEventID,
		Payload:         d.Payload,
		Status:          domain.EventStatus(d.Status),
		CreatedAt:       d.CreatedAt,
	}
}

// MongoEventDocFromDomain converts a domain entity to a MongoDB document.
func MongoEventDocFromDomain(event *domain.IntegrationEvent) *MongoEventDoc {
	return &MongoEventDoc{
		EventID:         event.ID,
		ConnectionID:    event.ConnectionID,
		ProviderCode:    event.ProviderCode,
		EventType:       event.EventType,
		ProviderEventID: event.ProviderEventID,
		Payload:         event.Payload,
		Status:          string(event.Status),
		CreatedAt:       event.CreatedAt,
	}
}

// MongoCredentialDoc represents a connection's encrypted credential bundle.
// Values are ciphertext; decryption happens in the credential store, never
// here.
type MongoCredentialDoc struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	ConnectionID string             `bson:"connectionId"`
	Secrets      map[string]string  `bson:"secrets"`
	CreatedAt    time.Time          `bson:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt"`
}
