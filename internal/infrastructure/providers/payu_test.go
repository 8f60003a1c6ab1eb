package providers

import (
	"context"
	"strings"
	"testing"

	"payments-webhook-layer/internal/domain"
	"payments-webhook-layer/internal/ports"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func payuNotification(p *domain.PayUPayload) *domain.Notification {
	return &domain.Notification{
		ProviderCode: domain.ProviderPayU,
		Payload:      p,
	}
}

func payuBundle(apiKey, merchantID string) *domain.CredentialBundle {
	return domain.NewCredentialBundle("conn-1", map[string]string{
		domain.PurposeAPIKey:     apiKey,
		domain.PurposeMerchantID: merchantID,
	})
}

func TestPayUVerifier_ValidSignature(t *testing.T) {
	v := NewPayUVerifier(zerolog.Nop())

	payload := &domain.PayUPayload{
		MerchantID:    "508029",
		ReferenceSale: "order-77",
		Value:         "150.00",
		Currency:      "COP",
		StatePol:      "4",
	}
	// The second decimal is zero, so the signed value drops it.
	payload.Sign = md5Hex("key123~508029~order-77~150.0~COP~4")

	err := v.Verify(context.Background(), &domain.Connection{ID: "conn-1"}, payuBundle("key123", "508029"), payuNotification(payload))
	require.NoError(t, err)
}

func TestPayUVerifier_ValueWithNonzeroCentsSignedAsSent(t *testing.T) {
	v := NewPayUVerifier(zerolog.Nop())

	payload := &domain.PayUPayload{
		MerchantID:    "508029",
		ReferenceSale: "order-77",
		Value:         "150.25",
		Currency:      "COP",
		StatePol:      "4",
	}
	payload.Sign = md5Hex("key123~508029~order-77~150.25~COP~4")

	err := v.Verify(context.Background(), &domain.Connection{ID: "conn-1"}, payuBundle("key123", "508029"), payuNotification(payload))
	require.NoError(t, err)
}

func TestPayUVerifier_UppercaseSignAccepted(t *testing.T) {
	v := NewPayUVerifier(zerolog.Nop())

	payload := &domain.PayUPayload{
		MerchantID:    "508029",
		ReferenceSale: "order-77",
		Value:         "99.9",
		Currency:      "COP",
		StatePol:      "6",
	}
	payload.Sign = strings.ToUpper(md5Hex("key123~508029~order-77~99.9~COP~6"))

	err := v.Verify(context.Background(), &domain.Connection{ID: "conn-1"}, payuBundle("key123", "508029"), payuNotification(payload))
	require.NoError(t, err)
}

func TestPayUVerifier_WrongSignature(t *testing.T) {
	v := NewPayUVerifier(zerolog.Nop())

	payload := &domain.PayUPayload{
		MerchantID:    "508029",
		ReferenceSale: "order-77",
		Value:         "150.00",
		Currency:      "COP",
		StatePol:      "4",
		Sign:          "deadbeefdeadbeefdeadbeefdeadbeef",
	}

	err := v.Verify(context.Background(), &domain.Connection{ID: "conn-1"}, payuBundle("key123", "508029"), payuNotification(payload))
	assert.ErrorIs(t, err, ports.ErrSignatureMismatch)
}

func TestPayUVerifier_ForeignMerchantRejectedWithoutHashing(t *testing.T) {
	v := NewPayUVerifier(zerolog.Nop())

	hashed := 0
	v.hash = func(s string) string {
		hashed++
		return md5Hex(s)
	}

	payload := &domain.PayUPayload{
		MerchantID:    "999999",
		ReferenceSale: "order-77",
		Value:         "150.00",
		Currency:      "COP",
		StatePol:      "4",
		Sign:          "irrelevant",
	}

	err := v.Verify(context.Background(), &domain.Connection{ID: "conn-1"}, payuBundle("key123", "508029"), payuNotification(payload))
	assert.ErrorIs(t, err, ports.ErrSignatureMismatch)
	assert.Zero(t, hashed)
}

func TestPayUVerifier_MerchantIDFallsBackToConnectionMetadata(t *testing.T) {
	v := NewPayUVerifier(zerolog.Nop())

	bundle := domain.NewCredentialBundle("conn-1", map[string]string{
		domain.PurposeAPIKey: "key123",
	})
	conn := &domain.Connection{
		ID:       "conn-1",
		Metadata: map[string]string{"merchantId": "508029"},
	}

	payload := &domain.PayUPayload{
		MerchantID:    "508029",
		ReferenceSale: "order-77",
		Value:         "10.0",
		Currency:      "USD",
		StatePol:      "7",
	}
	payload.Sign = md5Hex("key123~508029~order-77~10.0~USD~7")

	err := v.Verify(context.Background(), conn, bundle, payuNotification(payload))
	require.NoError(t, err)
}

func TestNormalizePayUValue(t *testing.T) {
	cases := map[string]string{
		"150.00": "150.0",
		"150.25": "150.25",
		"150.0":  "150.0",
		"150":    "150",
		"99.90":  "99.9",
	}
	for in, want := range cases {
		assert.Equal(t, want, normalizePayUValue(in), "value %q", in)
	}
}
