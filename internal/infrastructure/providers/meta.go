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

// MetaSignatureHeader carries the payload signature on Meta platform
// notifications. Its absence is a structural defect: Meta always sends it, so
// the endpoint rejects such requests before any candidate loop.
const MetaSignatureHeader = "X-Hub-Signature-256"

// MetaVerifier verifies Meta platform notifications: HMAC-SHA256 over the raw
// body with the connection's app secret, hex-encoded behind a "sha256=" prefix.
type MetaVerifier struct {
	logger zerolog.Logger
}

// NewMetaVerifier creates a Meta signature verifier.
func NewMetaVerifier(logger zerolog.Logger) *MetaVerifier {
	return &MetaVerifier{logger: logger}
}

func (v *MetaVerifier) ProviderCode() string { return domain.ProviderMetaMarketing }

func (v *MetaVerifier) RequiredPurposes() []string {
	return []string{domain.PurposeAppSecret, domain.PurposeVerifyToken}
}

// Verify checks the body signature against this connection's app secret.
func (v *MetaVerifier) Verify(ctx context.Context, conn *domain.Connection, bundle *domain.CredentialBundle, n *domain.Notification) error {
	header := n.Headers.Get(MetaSignatureHeader)
	signature, found := strings.CutPrefix(header, "sha256=")
	if !found || signature == "" {
		return fmt.Errorf("%w: no %s header", ports.ErrMissingSignature, MetaSignatureHeader)
	}

	appSecret, _ := bundle.Secret(domain.PurposeAppSecret)

	mac := hmac.New(sha256.New, []byte(appSecret))
	mac.Write(n.Body)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return ports.ErrSignatureMismatch
	}
	return nil
}
