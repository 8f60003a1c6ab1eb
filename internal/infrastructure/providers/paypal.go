package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"payments-webhook-layer/internal/domain"
	"payments-webhook-layer/internal/ports"

	"github.com/rs/zerolog"
)

// DefaultPayPalAPIBase is the live PayPal REST endpoint; sandbox connections
// override it per environment.
const DefaultPayPalAPIBase = "https://api-m.paypal.com"

const payPalSandboxAPIBase = "https://api-m.sandbox.paypal.com"

// PayPalVerifier delegates verification to PayPal's own
// verify-webhook-signature API: the transmission metadata and raw event are
// sent to the provider, and its verdict is trusted. A failed call is
// inconclusive, not a rejection.
type PayPalVerifier struct {
	apiBase    string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewPayPalVerifier creates a delegated PayPal verifier. apiBase overrides the
// live endpoint ("" keeps the default).
func NewPayPalVerifier(apiBase string, logger zerolog.Logger) *PayPalVerifier {
	if apiBase == "" {
		apiBase = DefaultPayPalAPIBase
	}
	return &PayPalVerifier{
		apiBase:    apiBase,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger,
	}
}

func (v *PayPalVerifier) ProviderCode() string { return domain.ProviderPayPal }

func (v *PayPalVerifier) RequiredPurposes() []string {
	return []string{domain.PurposeClientID, domain.PurposeClientSecret, domain.PurposeWebhookID}
}

// Verify packages the transmission metadata and asks PayPal for a verdict.
func (v *PayPalVerifier) Verify(ctx context.Context, conn *domain.Connection, bundle *domain.CredentialBundle, n *domain.Notification) error {
	transmissionID := n.Headers.Get("Paypal-Transmission-Id")
	transmissionTime := n.Headers.Get("Paypal-Transmission-Time")
	transmissionSig := n.Headers.Get("Paypal-Transmission-Sig")
	certURL := n.Headers.Get("Paypal-Cert-Url")
	authAlgo := n.Headers.Get("Paypal-Auth-Algo")

	if transmissionID == "" || transmissionSig == "" || transmissionTime == "" {
		return fmt.Errorf("%w: transmission headers absent", ports.ErrMissingSignature)
	}

	clientID, _ := bundle.Secret(domain.PurposeClientID)
	clientSecret, _ := bundle.Secret(domain.PurposeClientSecret)
	webhookID, _ := bundle.Secret(domain.PurposeWebhookID)

	apiBase := v.apiBaseFor(conn)

	token, err := v.fetchAccessToken(ctx, apiBase, clientID, clientSecret)
	if err != nil {
		return fmt.Errorf("%w: token request failed: %v", ports.ErrVerificationInconclusive, err)
	}

	reqBody := map[string]any{
		"auth_algo":         authAlgo,
		"cert_url":          certURL,
		"transmission_id":   transmissionID,
		"transmission_sig":  transmissionSig,
		"transmission_time": transmissionTime,
		"webhook_id":        webhookID,
		"webhook_event":     json.RawMessage(n.Body),
	}
	encoded, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to encode verification request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		apiBase+"/v1/notifications/verify-webhook-signature", bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("failed to create verification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: verification call failed: %v", ports.ErrVerificationInconclusive, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("%w: verification call returned %d: %s",
			ports.ErrVerificationInconclusive, resp.StatusCode, string(body))
	}

	var verdict struct {
		VerificationStatus string `json:"verification_status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&verdict); err != nil {
		return fmt.Errorf("%w: unreadable verdict: %v", ports.ErrVerificationInconclusive, err)
	}

	if verdict.VerificationStatus != "SUCCESS" {
		return ports.ErrSignatureMismatch
	}
	return nil
}

// apiBaseFor picks the sandbox endpoint for sandbox connections unless an
// explicit override was configured.
func (v *PayPalVerifier) apiBaseFor(conn *domain.Connection) string {
	if v.apiBase != DefaultPayPalAPIBase {
		return v.apiBase
	}
	if conn.Environment == domain.EnvironmentSandbox {
		return payPalSandboxAPIBase
	}
	return v.apiBase
}

// fetchAccessToken performs the client-credentials grant. Tokens are not
// cached: bundles are per-request and a cached token would outlive its secret.
func (v *PayPalVerifier) fetchAccessToken(ctx context.Context, apiBase, clientID, clientSecret string) (string, error) {
	values := url.Values{}
	values.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		apiBase+"/v1/oauth2/token", strings.NewReader(values.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.SetBasicAuth(clientID, clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	var token struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if token.AccessToken == "" {
		return "", fmt.Errorf("token response missing access_token")
	}
	return token.AccessToken, nil
}
