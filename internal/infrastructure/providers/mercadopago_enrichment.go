package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"payments-webhook-layer/internal/domain"

	"github.com/rs/zerolog"
)

// DefaultMercadoPagoAPIBase is the Mercado Pago REST endpoint.
const DefaultMercadoPagoAPIBase = "https://api.mercadopago.com"

// MercadoPagoFetcher resolves the thin payment pointer in a Mercado Pago
// notification into the full payment resource, using the matched connection's
// access token. It runs only after verification.
type MercadoPagoFetcher struct {
	apiBase    string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewMercadoPagoFetcher creates an enrichment fetcher. apiBase overrides the
// live endpoint ("" keeps the default).
func NewMercadoPagoFetcher(apiBase string, logger zerolog.Logger) *MercadoPagoFetcher {
	if apiBase == "" {
		apiBase = DefaultMercadoPagoAPIBase
	}
	return &MercadoPagoFetcher{
		apiBase:    apiBase,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

func (f *MercadoPagoFetcher) ProviderCode() string { return domain.ProviderMercadoPago }

// Fetch retrieves the payment resource and maps it into the normalized event
// snapshot. Only the selected fields are kept; the raw response is discarded.
func (f *MercadoPagoFetcher) Fetch(ctx context.Context, bundle *domain.CredentialBundle, n *domain.Notification) (map[string]any, error) {
	payload, ok := n.Payload.(*domain.MercadoPagoPayload)
	if !ok {
		return nil, fmt.Errorf("unexpected payload type %T for mercadopago", n.Payload)
	}

	accessToken, _ := bundle.Secret(domain.PurposeAccessToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/v1/payments/%s", f.apiBase, payload.DataID), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("payment fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("payment fetch returned %d: %s", resp.StatusCode, string(body))
	}

	var payment struct {
		ID                json.Number `json:"id"`
		Status            string      `json:"status"`
		StatusDetail      string      `json:"status_detail"`
		TransactionAmount float64     `json:"transaction_amount"`
		CurrencyID        string      `json:"currency_id"`
		ExternalReference string      `json:"external_reference"`
		PaymentMethodID   string      `json:"payment_method_id"`
		DateApproved      string      `json:"date_approved"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payment); err != nil {
		return nil, fmt.Errorf("failed to decode payment: %w", err)
	}

	return map[string]any{
		"payment_id":         payment.ID.String(),
		"status":             payment.Status,
		"status_detail":      payment.StatusDetail,
		"transaction_amount": payment.TransactionAmount,
		"currency":           payment.CurrencyID,
		"external_reference": payment.ExternalReference,
		"payment_method":     payment.PaymentMethodID,
		"date_approved":      payment.DateApproved,
	}, nil
}
