package entity

import (
	"time"

	"payments-webhook-layer/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MongoConnectionDoc represents a connection in MongoDB.
type MongoConnectionDoc struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	ConnectionID string             `bson:"connectionId"`
	TenantID     string             `bson:"tenantId"`
	ProviderCode string             `bson:"providerCode"`
	Status       string             `bson:"status"`
	Environment  string             `bson:"environment"`
	Metadata     map[string]string  `bson:"metadata,omitempty"`
	CreatedAt    time.Time          `bson:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt"`
}

// ToDomain converts the MongoDB document to a domain entity.
func (d *MongoConnectionDoc) ToDomain() *domain.Connection {
	return &domain.Connection{
		ID:           d.ConnectionID,
		TenantID:     d.TenantID,
		ProviderCode: d.ProviderCode,
		Status:       domain.ConnectionStatus(d.Status),
		Environment:  domain.Environment(d.Environment),
		Metadata:     d.Metadata,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

// MongoConnectionDocFromDomain converts a domain entity to a MongoDB document.
func MongoConnectionDocFromDomain(conn *domain.Connection) *MongoConnectionDoc {
	return &MongoConnectionDoc{
		ConnectionID: conn.ID,
		TenantID:     conn.TenantID,
		ProviderCode: conn.ProviderCode,
		Status:       string(conn.Status),
		Environment:  string(conn.Environment),
		Metadata:     conn.Metadata,
		CreatedAt:    conn.CreatedAt,
		UpdatedAt:    conn.UpdatedAt,
	}
}
