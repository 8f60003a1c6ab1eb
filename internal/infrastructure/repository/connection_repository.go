package repository

import (
	"context"
	"fmt"
	"time"

	"payments-webhook-layer/internal/domain"
	"payments-webhook-layer/internal/infrastructure/repository/entity"
	"payments-webhook-layer/internal/ports"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoConnectionRepository implements ConnectionRepository using MongoDB.
type MongoConnectionRepository struct {
	collection *mongo.Collection
}

// NewMongoConnectionRepository creates a new MongoDB connection repository.
func NewMongoConnectionRepository(db *mongo.Database) ports.ConnectionRepository {
	return &MongoConnectionRepository{
		collection: db.Collection("connections"),
	}
}

// Create creates a new connection.
func (r *MongoConnectionRepository) Create(ctx context.Context, conn *domain.Connection) error {
	doc := entity.MongoConnectionDocFromDomain(conn)
	doc.UpdatedAt = time.Now()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}

	indexModels := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "connectionId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "providerCode", Value: 1}, {Key: "status", Value: 1}},
		},
	}
	_, _ = r.collection.Indexes().CreateMany(ctx, indexModels)

	_, err := r.collection.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("failed to create connection: %w", err)
	}

	return nil
}

// GetByID retrieves a connection by its id.
func (r *MongoConnectionRepository) GetByID(ctx context.Context, id string) (*domain.Connection, error) {
	var doc entity.MongoConnectionDoc
	filter := bson.M{"connectionId": id}

	err := r.collection.FindOne(ctx, filter).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get connection: %w", err)
	}

	return doc.ToDomain(), nil
}

// ListByProvider retrieves every connection for a provider, any status.
func (r *MongoConnectionRepository) ListByProvider(ctx context.Context, providerCode string) ([]*domain.Connection, error) {
	return r.find(ctx, bson.M{"providerCode": providerCode})
}

// ActiveByProvider retrieves only connections with status active.
func (r *MongoConnectionRepository) ActiveByProvider(ctx context.Context, providerCode string) ([]*domain.Connection, error) {
	return r.find(ctx, bson.M{
		"providerCode": providerCode,
		"status":       string(domain.ConnectionStatusActive),
	})
}

func (r *MongoConnectionRepository) find(ctx context.Context, filter bson.M) ([]*domain.Connection, error) {
	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list connections: %w", err)
	}
	defer cursor.Close(ctx)

	var conns []*domain.Connection
	for cursor.Next(ctx) {
		var doc entity.MongoConnectionDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode connection: %w", err)
		}
		conns = append(conns, doc.ToDomain())
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}

	return conns, nil
}

// UpdateStatus transitions a connection's lifecycle status.
func (r *MongoConnectionRepository) UpdateStatus(ctx context.Context, id string, status domain.ConnectionStatus) error {
	filter := bson.M{"connectionId": id}
	update := bson.M{"$set": bson.M{
		"status":    string(status),
		"updatedAt": time.Now(),
	}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update connection status: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("connection not found")
	}

	return nil
}
