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

// MongoEventRepository implements EventRepository using MongoDB. The
// integration_events collection is append-only from this subsystem's point of
// view.
type MongoEventRepository struct {
	collection *mongo.Collection
}

// NewMongoEventRepository creates a new MongoDB integration event repository.
func NewMongoEventRepository(db *mongo.Database) ports.EventRepository {
	return &MongoEventRepository{
		collection: db.Collection("integration_events"),
	}
}

// Insert persists an integration event. Pure insert, no upsert: duplicate
// provider events produce duplicate rows, reconciled downstream by
// providerEventId.
func (r *MongoEventRepository) Insert(ctx context.Context, event *domain.IntegrationEvent) error {
	doc := entity.MongoEventDocFromDomain(event)
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}

	indexModel := mongo.IndexModel{
		Keys: bson.D{{Key: "connectionId", Value: 1}, {Key: "createdAt", Value: -1}},
	}
	_, _ = r.collection.Indexes().CreateOne(ctx, indexModel)

	_, err := r.collection.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("failed to insert integration event: %w", err)
	}

	return nil
}

// List retrieves integration events matching the filter, newest first.
func (r *MongoEventRepository) List(ctx context.Context, filter ports.EventFilter) ([]*domain.IntegrationEvent, error) {
	query := bson.M{}
	if filter.ConnectionID != "" {
		query["connectionId"] = filter.ConnectionID
	}
	if filter.ProviderCode != "" {
		query["providerCode"] = filter.ProviderCode
	}
	if filter.Status != "" {
		query["status"] = string(filter.Status)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(limit)

	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list integration events: %w", err)
	}
	defer cursor.Close(ctx)

	var events []*domain.IntegrationEvent
	for cursor.Next(ctx) {
		var doc entity.MongoEventDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode integration event: %w", err)
		}
		events = append(events, doc.ToDomain())
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}

	return events, nil
}
