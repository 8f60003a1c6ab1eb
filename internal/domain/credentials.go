package domain

// Credential purposes. Each provider names the secrets it needs by purpose;
// a bundle missing a required purpose makes its connection ineligible for
// verification rather than failing it.
const (
	PurposeAPIKey        = "apiKey"
	PurposeWebhookSecret = "webhookSecret"
	PurposeMerchantID    = "merchantId"
	PurposeClientID      = "clientId"
	PurposeClientSecret  = "clientSecret"
	PurposeWebhookID     = "webhookId"
	PurposeAccessToken   = "accessToken"
	PurposeAppSecret     = "appSecret"
	PurposeVerifyToken   = "verifyToken"
)

// CredentialBundle is the purpose-keyed set of decrypted secrets owned by one
// connection. Bundles live for a single request; nothing retains them.
type CredentialBundle struct {
	ConnectionID string
	secrets      map[string]string
}

// NewCredentialBundle wraps decrypted secrets for a connection.
func NewCredentialBundle(connectionID string, secrets map[string]string) *CredentialBundle {
	return &CredentialBundle{ConnectionID: connectionID, secrets: secrets}
}

// Secret returns the secret stored under a purpose.
func (b *CredentialBundle) Secret(purpose string) (string, bool) {
	v, ok := b.secrets[purpose]
	return v, ok && v != ""
}

// Has reports whether every listed purpose holds a non-empty secret.
func (b *CredentialBundle) Has(purposes ...string) bool {
	for _, p := range purposes {
		if v, ok := b.secrets[p]; !ok || v == "" {
			return false
		}
	}
	return true
}
