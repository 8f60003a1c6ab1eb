package providers

import (
	"context"
	"crypto/hmac"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"

	"payments-webhook-layer/internal/domain"
	"payments-webhook-layer/internal/ports"

	"github.com/rs/zerolog"
)

// PayUVerifier verifies PayU confirmation posts. The signature is an MD5 chain
// over "<apiKey>~<merchant_id>~<reference_sale>~<value>~<currency>~<state_pol>"
// compared against the payload's sign field. A merchant-id equality pre-check
// runs before any hashing so non-owning tenants are rejected cheaply.
type PayUVerifier struct {
	// hash is injectable so tests can assert the chain is never computed on a
	// cheap reject.
	hash   func(string) string
	logger zerolog.Logger
}

// NewPayUVerifier creates a PayU signature verifier.
func NewPayUVerifier(logger zerolog.Logger) *PayUVerifier {
	return &PayUVerifier{hash: md5Hex, logger: logger}
}

func (v *PayUVerifier) ProviderCode() string { return domain.ProviderPayU }

func (v *PayUVerifier) RequiredPurposes() []string {
	return []string{domain.PurposeAPIKey, domain.PurposeMerchantID}
}

// Verify applies the merchant-id pre-check, then the MD5 chain.
func (v *PayUVerifier) Verify(ctx context.Context, conn *domain.Connection, bundle *domain.CredentialBundle, n *domain.Notification) error {
	payload, ok := n.Payload.(*domain.PayUPayload)
	if !ok {
		return fmt.Errorf("unexpected payload type %T for payu", n.Payload)
	}

	merchantID, _ := bundle.Secret(domain.PurposeMerchantID)
	if merchantID == "" {
		merchantID = conn.MerchantID()
	}
	if payload.MerchantID != merchantID {
		return ports.ErrSignatureMismatch
	}

	apiKey, _ := bundle.Secret(domain.PurposeAPIKey)
	chain := strings.Join([]string{
		apiKey,
		payload.MerchantID,
		payload.ReferenceSale,
		normalizePayUValue(payload.Value),
		payload.Currency,
		payload.StatePol,
	}, "~")

	expected := v.hash(chain)
	if !hmac.Equal([]byte(strings.ToLower(payload.Sign)), []byte(expected)) {
		return ports.ErrSignatureMismatch
	}
	return nil
}

// normalizePayUValue applies PayU's signing convention: amounts whose second
// decimal is zero are signed with a single decimal ("150.00" -> "150.0"),
// anything else is signed as sent.
func normalizePayUValue(value string) string {
	dot := strings.LastIndex(value, ".")
	if dot == -1 || len(value)-dot-1 != 2 {
		return value
	}
	if value[len(value)-1] == '0' {
		return value[:len(value)-1]
	}
	return value
}

func md5Hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}
