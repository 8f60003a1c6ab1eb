package providers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"payments-webhook-layer/internal/domain"
	"payments-webhook-layer/internal/ports"

	"github.com/rs/zerolog"
)

const (
	mercadoPagoSignatureHeader = "x-signature"
	mercadoPagoRequestIDHeader = "x-request-id"
)

// MercadoPagoVerifier verifies Mercado Pago notifications: HMAC-SHA256 over
// the canonical manifest "id:<data.id>;request-id:<x-request-id>;ts:<ts>;"
// with the connection's webhook secret.
type MercadoPagoVerifier struct {
	logger zerolog.Logger
}

// NewMercadoPagoVerifier creates a Mercado Pago signature verifier.
func NewMercadoPagoVerifier(logger zerolog.Logger) *MercadoPagoVerifier {
	return &MercadoPagoVerifier{logger: logger}
}

func (v *MercadoPagoVerifier) ProviderCode() string { return domain.ProviderMercadoPago }

func (v *MercadoPagoVerifier) RequiredPurposes() []string {
	return []string{domain.PurposeWebhookSecret, domain.PurposeAccessToken}
}

// Verify checks the manifest signature against this connection's webhook
// secret.
func (v *MercadoPagoVerifier) Verify(ctx context.Context, conn *domain.Connection, bundle *domain.CredentialBundle, n *domain.Notification) error {
	secret, _ := bundle.Secret(domain.PurposeWebhookSecret)

	payload, ok := n.Payload.(*domain.MercadoPagoPayload)
	if !ok {
		return fmt.Errorf("unexpected payload type %T for mercadopago", n.Payload)
	}

	ts, signature, err := parseMercadoPagoSignatureHeader(n.Headers.Get(mercadoPagoSignatureHeader))
	if err != nil {
		return err
	}

	requestID := n.Headers.Get(mercadoPagoRequestIDHeader)
	manifest := mercadoPagoManifest(payload.DataID, requestID, ts)

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(manifest))
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return ports.ErrSignatureMismatch
	}
	return nil
}

// parseMercadoPagoSignatureHeader splits "ts=<unix>,v1=<hex>".
func parseMercadoPagoSignatureHeader(header string) (ts, signature string, err error) {
	if header == "" {
		return "", "", fmt.Errorf("%w: no %s header", ports.ErrMissingSignature, mercadoPagoSignatureHeader)
	}

	for _, part := range strings.Split(header, ",") {
		k, v, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch k {
		case "ts":
			ts = v
		case "v1":
			signature = v
		}
	}

	if ts == "" || signature == "" {
		return "", "", fmt.Errorf("%w: header missing ts or v1", ports.ErrMissingSignature)
	}
	return ts, signature, nil
}

// mercadoPagoManifest builds the canonical signed string. Alphanumeric ids are
// signed lowercase per the provider's convention.
func mercadoPagoManifest(dataID, requestID, ts string) string {
	return fmt.Sprintf("id:%s;request-id:%s;ts:%s;", strings.ToLower(dataID), requestID, ts)
}
