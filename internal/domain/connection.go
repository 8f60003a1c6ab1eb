package domain

import "time"

// ConnectionStatus is the lifecycle state of a tenant's provider activation.
type ConnectionStatus string

const (
	ConnectionStatusActive   ConnectionStatus = "active"
	ConnectionStatusInactive ConnectionStatus = "inactive"
	ConnectionStatusPending  ConnectionStatus = "pending"
)

// Environment distinguishes sandbox and production activations.
type Environment string

const (
	EnvironmentSandbox    Environment = "sandbox"
	EnvironmentProduction Environment = "production"
)

// DefaultEnvironment is assumed when a caller does not specify one.
const DefaultEnvironment = EnvironmentProduction

// Connection is a tenant-scoped, provider-scoped activation record. Connections
// are never physically deleted; disconnecting flips the status to inactive so
// recorded events keep a valid owner.
type Connection struct {
	ID           string            `json:"id"`
	TenantID     string            `json:"tenant_id"`
	ProviderCode string            `json:"provider_code"`
	Status       ConnectionStatus  `json:"status"`
	Environment  Environment       `json:"environment"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// IsActive reports whether the connection may be offered for verification.
func (c *Connection) IsActive() bool {
	return c.Status == ConnectionStatusActive
}

// Meta returns a provider-specific metadata value ("" when absent).
func (c *Connection) Meta(key string) string {
	if c.Metadata == nil {
		return ""
	}
	return c.Metadata[key]
}

// MerchantID is the provider-assigned merchant identifier, used by providers
// with a cheap identity pre-check (PayU).
func (c *Connection) MerchantID() string {
	return c.Meta("merchantId")
}
