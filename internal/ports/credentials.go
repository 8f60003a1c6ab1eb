package ports

import (
	"context"

	"payments-webhook-layer/internal/domain"
)

// CredentialStore retrieves the decrypted secret bundle owned by a connection.
// Bundle returns (nil, nil) when the connection has no stored credentials;
// callers treat that as an ineligible candidate, not an error. Implementations
// must not cache decrypted secrets beyond a single call.
type CredentialStore interface {
	Bundle(ctx context.Context, connectionID string) (*domain.CredentialBundle, error)
	Save(ctx context.Context, connectionID string, secrets map[string]string) error
}

// EncryptionService encrypts and decrypts credential values at rest.
type EncryptionService interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}
