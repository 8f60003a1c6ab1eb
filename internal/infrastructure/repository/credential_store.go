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

// MongoCredentialStore implements CredentialStore over MongoDB. Secret values
// are stored encrypted and decrypted on every Bundle call; nothing holds a
// decrypted secret across requests.
type MongoCredentialStore struct {
	collection    *mongo.Collection
	encryptionSvc ports.EncryptionService
}

// NewMongoCredentialStore creates a new MongoDB credential store.
func NewMongoCredentialStore(db *mongo.Database, encryptionSvc ports.EncryptionService) ports.CredentialStore {
	return &MongoCredentialStore{
		collection:    db.Collection("credentials"),
		encryptionSvc: encryptionSvc,
	}
}

// Bundle retrieves and decrypts the credential bundle for a connection.
// Returns (nil, nil) when the connection has no stored credentials.
func (s *MongoCredentialStore) Bundle(ctx context.Context, connectionID string) (*domain.CredentialBundle, error) {
	var doc entity.MongoCredentialDoc
	filter := bson.M{"connectionId": connectionID}

	err := s.collection.FindOne(ctx, filter).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get credentials: %w", err)
	}

	secrets := make(map[string]string, len(doc.Secrets))
	for purpose, ciphertext := range doc.Secrets {
		plaintext, err := s.encryptionSvc.Decrypt(ciphertext)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt %s secret: %w", purpose, err)
		}
		secrets[purpose] = plaintext
	}

	return domain.NewCredentialBundle(connectionID, secrets), nil
}

// Save encrypts and upserts the credential bundle for a connection.
func (s *MongoCredentialStore) Save(ctx context.Context, connectionID string, secrets map[string]string) error {
	encrypted := make(map[string]string, len(secrets))
	for purpose, plaintext := range secrets {
		ciphertext, err := s.encryptionSvc.Encrypt(plaintext)
		if err != nil {
			return fmt.Errorf("failed to encrypt %s secret: %w", purpose, err)
		}
		encrypted[purpose] = ciphertext
	}

	doc := entity.MongoCredentialDoc{
		ConnectionID: connectionID,
		Secrets:      encrypted,
		UpdatedAt:    time.Now(),
	}

	opts := options.Update().SetUpsert(true)
	filter := bson.M{"connectionId": connectionID}
	update := bson.M{
		"$set":         bson.M{"secrets": doc.Secrets, "updatedAt": doc.UpdatedAt},
		"$setOnInsert": bson.M{"connectionId": connectionID, "createdAt": time.Now()},
	}

	if _, err := s.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}

	return nil
}
