package providers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"payments-webhook-layer/internal/domain"
	"payments-webhook-layer/internal/ports"

	"github.com/rs/zerolog"
)

const stripeSignatureHeader = "Stripe-Signature"

// defaultStripeTolerance bounds how stale a signed timestamp may be before the
// notification is treated as a replay.
const defaultStripeTolerance = 5 * time.Minute

// StripeVerifier verifies Stripe event notifications: HMAC-SHA256 over
// "<timestamp>.<raw body>" with the connection's webhook secret, compared
// against every v1 entry of the Stripe-Signature header.
type StripeVerifier struct {
	tolerance time.Duration
	now       func() time.Time
	logger    zerolog.Logger
}

// NewStripeVerifier creates a Stripe signature verifier.
func NewStripeVerifier(logger zerolog.Logger) *StripeVerifier {
	return &StripeVerifier{
		tolerance: defaultStripeTolerance,
		now:       time.Now,
		logger:    logger,
	}
}

func (v *StripeVerifier) ProviderCode() string { return domain.ProviderStripe }

func (v *StripeVerifier) RequiredPurposes() []string {
	return []string{domain.PurposeWebhookSecret}
}

// Verify checks the notification signature against this connection's webhook
// secret.
func (v *StripeVerifier) Verify(ctx context.Context, conn *domain.Connection, bundle *domain.CredentialBundle, n *domain.Notification) error {
	secret, _ := bundle.Secret(domain.PurposeWebhookSecret)

	timestamp, candidates, err := parseStripeSignatureHeader(n.Headers.Get(stripeSignatureHeader))
	if err != nil {
		return err
	}

	if v.tolerance > 0 {
		ts, err := strconv.ParseInt(timestamp, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: bad timestamp", ports.ErrMissingSignature)
		}
		age := v.now().Sub(time.Unix(ts, 0))
		if age > v.tolerance || age < -v.tolerance {
			return fmt.Errorf("%w: timestamp outside tolerance", ports.ErrSignatureMismatch)
		}
	}

	expected := computeStripeSignature(secret, timestamp, n.Body)
	for _, candidate := range candidates {
		if hmac.Equal([]byte(candidate), []byte(expected)) {
			return nil
		}
	}

	return ports.ErrSignatureMismatch
}

// parseStripeSignatureHeader splits "t=<unix>,v1=<hex>[,v1=<hex>...]". Stripe
// may send several v1 entries during secret rotation.
func parseStripeSignatureHeader(header string) (timestamp string, signatures []string, err error) {
	if header == "" {
		return "", nil, fmt.Errorf("%w: no %s header", ports.ErrMissingSignature, stripeSignatureHeader)
	}

	for _, part := range strings.Split(header, ",") {
		k, v, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch k {
		case "t":
			timestamp = v
		case "v1":
			signatures = append(signatures, v)
		}
	}

	if timestamp == "" || len(signatures) == 0 {
		return "", nil, fmt.Errorf("%w: header missing t or v1", ports.ErrMissingSignature)
	}
	return timestamp, signatures, nil
}

func computeStripeSignature(secret, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
