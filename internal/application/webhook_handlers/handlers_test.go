package webhook_handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"payments-webhook-layer/internal/application"
	"payments-webhook-layer/internal/domain"
	"payments-webhook-layer/internal/ports"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubResolver struct {
	connections []*domain.Connection
	err         error
	calls       int
}

func (r *stubResolver) ActiveConnections(ctx context.Context, providerCode string) ([]*domain.Connection, error) {
	r.calls++
	return r.connections, r.err
}

type stubCredentialStore struct {
	bundles map[string]map[string]string
}

func (s *stubCredentialStore) Bundle(ctx context.Context, connectionID string) (*domain.CredentialBundle, error) {
	secrets, ok := s.bundles[connectionID]
	if !ok {
		return nil, nil
	}
	return domain.NewCredentialBundle(connectionID, secrets), nil
}

func (s *stubCredentialStore) Save(ctx context.Context, connectionID string, secrets map[string]string) error {
	return nil
}

type stubVerifier struct {
	provider string
	purposes []string
	acceptID string
	calls    int
}

func (v *stubVerifier) ProviderCode() string { return v.provider }

func (v *stubVerifier) RequiredPurposes() []string { return v.purposes }

func (v *stubVerifier) Verify(ctx context.Context, conn *domain.Connection, bundle *domain.CredentialBundle, n *domain.Notification) error {
	v.calls++
	if conn.ID == v.acceptID {
		return nil
	}
	return ports.ErrSignatureMismatch
}

type stubEventRepo struct {
	inserted []*domain.IntegrationEvent
}

func (r *stubEventRepo) Insert(ctx context.Context, event *domain.IntegrationEvent) error {
	r.inserted = append(r.inserted, event)
	return nil
}

func (r *stubEventRepo) List(ctx context.Context, filter ports.EventFilter) ([]*domain.IntegrationEvent, error) {
	return r.inserted, nil
}

type stubFetcher struct {
	snapshot map[string]any
	err      error
}

func (f *stubFetcher) ProviderCode() string { return domain.ProviderMercadoPago }

func (f *stubFetcher) Fetch(ctx context.Context, bundle *domain.CredentialBundle, n *domain.Notification) (map[string]any, error) {
	return f.snapshot, f.err
}

type fixture struct {
	dispatcher *application.VerificationDispatcher
	recorder   *application.EventRecorder
	resolver   *stubResolver
	store      *stubCredentialStore
	verifier   *stubVerifier
	events     *stubEventRepo
}

func newFixture(provider string, purposes []string, acceptID string, conns ...*domain.Connection) *fixture {
	resolver := &stubResolver{connections: conns}
	store := &stubCredentialStore{bundles: make(map[string]map[string]string)}
	for _, c := range conns {
		secrets := make(map[string]string)
		for _, p := range purposes {
			secrets[p] = "secret"
		}
		store.bundles[c.ID] = secrets
	}

	verifier := &stubVerifier{provider: provider, purposes: purposes, acceptID: acceptID}
	dispatcher := application.NewVerificationDispatcher(resolver, store, zerolog.Nop())
	dispatcher.RegisterVerifier(verifier)

	events := &stubEventRepo{}
	recorder := application.NewEventRecorder(events, nil, nil, zerolog.Nop())

	return &fixture{
		dispatcher: dispatcher,
		recorder:   recorder,
		resolver:   resolver,
		store:      store,
		verifier:   verifier,
		events:     events,
	}
}

func conn(id, provider string) *domain.Connection {
	return &domain.Connection{
		ID:           id,
		TenantID:     "tenant-" + id,
		ProviderCode: provider,
		Status:       domain.ConnectionStatusActive,
	}
}

func decodeAck(t *testing.T, rec *httptest.ResponseRecorder) ackResponse {
	t.Helper()
	var ack ackResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&ack))
	return ack
}

func TestStripeHandler_VerifiedNotificationIsRecorded(t *testing.T) {
	f := newFixture(domain.ProviderStripe, []string{domain.PurposeWebhookSecret}, "a", conn("a", domain.ProviderStripe))
	handler := StripeHandler(f.dispatcher, f.recorder, zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe",
		strings.NewReader(`{"id":"evt_1","type":"payment_intent.succeeded","data":{"object":{}}}`))
	rec := httptest.NewRecorder()
	handler(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	ack := decodeAck(t, rec)
	assert.True(t, ack.Received)
	assert.True(t, ack.Verified)
	assert.True(t, ack.Processed)

	require.Len(t, f.events.inserted, 1)
	event := f.events.inserted[0]
	assert.Equal(t, "a", event.ConnectionID)
	assert.Equal(t, "payment_intent.succeeded", event.EventType)
	assert.Equal(t, "evt_1", event.ProviderEventID)
}

func TestStripeHandler_MalformedBodyIs400BeforeAnyVerification(t *testing.T) {
	f := newFixture(domain.ProviderStripe, []string{domain.PurposeWebhookSecret}, "a", conn("a", domain.ProviderStripe))
	handler := StripeHandler(f.dispatcher, f.recorder, zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader(`{not json`))
	rec := httptest.NewRecorder()
	handler(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, f.resolver.calls)
	assert.Zero(t, f.verifier.calls)
	assert.Empty(t, f.events.inserted)
}

func TestStripeHandler_MissingMandatoryFieldsIs400(t *testing.T) {
	f := newFixture(domain.ProviderStripe, []string{domain.PurposeWebhookSecret}, "a", conn("a", domain.ProviderStripe))
	handler := StripeHandler(f.dispatcher, f.recorder, zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader(`{"object":"event"}`))
	rec := httptest.NewRecorder()
	handler(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, f.resolver.calls)
}

func TestStripeHandler_UnattributedNotificationIsAckedUnverified(t *testing.T) {
	f := newFixture(domain.ProviderStripe, []string{domain.PurposeWebhookSecret}, "nobody", conn("a", domain.ProviderStripe))
	handler := StripeHandler(f.dispatcher, f.recorder, zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe",
		strings.NewReader(`{"id":"evt_1","type":"charge.succeeded"}`))
	rec := httptest.NewRecorder()
	handler(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	ack := decodeAck(t, rec)
	assert.True(t, ack.Received)
	assert.False(t, ack.Verified)
	assert.False(t, ack.Processed)
	assert.Empty(t, f.events.inserted)
}

func TestStripeHandler_ResolverOutageStillAcks200(t *testing.T) {
	f := newFixture(domain.ProviderStripe, []string{domain.PurposeWebhookSecret}, "a", conn("a", domain.ProviderStripe))
	f.resolver.err = assert.AnError
	handler := StripeHandler(f.dispatcher, f.recorder, zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe",
		strings.NewReader(`{"id":"evt_1","type":"charge.succeeded"}`))
	rec := httptest.NewRecorder()
	handler(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	ack := decodeAck(t, rec)
	assert.True(t, ack.Received)
	assert.False(t, ack.Verified)
}

func TestPayUHandler_FormConfirmationIsRecorded(t *testing.T) {
	f := newFixture(domain.ProviderPayU, []string{domain.PurposeAPIKey, domain.PurposeMerchantID}, "a", conn("a", domain.ProviderPayU))
	handler := PayUHandler(f.dispatcher, f.recorder, zerolog.Nop())

	form := "merchant_id=508029&reference_sale=order-77&value=150.00&currency=COP&state_pol=4&sign=abc&transaction_id=tx-1"
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payu", strings.NewReader(form))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	handler(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	ack := decodeAck(t, rec)
	assert.True(t, ack.Verified)

	require.Len(t, f.events.inserted, 1)
	event := f.events.inserted[0]
	assert.Equal(t, "payment.approved", event.EventType)
	assert.Equal(t, "order-77", event.ProviderEventID)
	assert.Equal(t, "150.00", event.Payload["value"])
}

func TestPayUHandler_MissingSignedFieldsIs400(t *testing.T) {
	f := newFixture(domain.ProviderPayU, []string{domain.PurposeAPIKey, domain.PurposeMerchantID}, "a", conn("a", domain.ProviderPayU))
	handler := PayUHandler(f.dispatcher, f.recorder, zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/webhooks/payu", strings.NewReader("merchant_id=508029"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	handler(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, f.resolver.calls)
}

func TestMercadoPagoHandler_EnrichedNotificationIsProcessed(t *testing.T) {
	f := newFixture(domain.ProviderMercadoPago,
		[]string{domain.PurposeWebhookSecret, domain.PurposeAccessToken}, "a", conn("a", domain.ProviderMercadoPago))
	fetcher := &stubFetcher{snapshot: map[string]any{"payment_id": "12345", "status": "approved"}}
	handler := MercadoPagoHandler(f.dispatcher, f.recorder, f.store, fetcher, zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/webhooks/mercadopago",
		strings.NewReader(`{"type":"payment","action":"payment.created","data":{"id":12345}}`))
	rec := httptest.NewRecorder()
	handler(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	ack := decodeAck(t, rec)
	assert.True(t, ack.Verified)
	assert.True(t, ack.Processed)

	require.Len(t, f.events.inserted, 1)
	event := f.events.inserted[0]
	assert.Equal(t, domain.EventStatusProcessed, event.Status)
	assert.Equal(t, "approved", event.Payload["status"])
}

func TestMercadoPagoHandler_EnrichmentFailureRecordsPending(t *testing.T) {
	f := newFixture(domain.ProviderMercadoPago,
		[]string{domain.PurposeWebhookSecret, domain.PurposeAccessToken}, "a", conn("a", domain.ProviderMercadoPago))
	fetcher := &stubFetcher{err: assert.AnError}
	handler := MercadoPagoHandler(f.dispatcher, f.recorder, f.store, fetcher, zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/webhooks/mercadopago",
		strings.NewReader(`{"type":"payment","action":"payment.created","data":{"id":12345}}`))
	rec := httptest.NewRecorder()
	handler(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	ack := decodeAck(t, rec)
	assert.True(t, ack.Verified)
	assert.False(t, ack.Processed)

	require.Len(t, f.events.inserted, 1)
	event := f.events.inserted[0]
	assert.Equal(t, domain.EventStatusPending, event.Status)
	assert.Equal(t, "12345", event.Payload["dataId"])
}

func TestMercadoPagoHandler_ResourceIDFromQueryString(t *testing.T) {
	f := newFixture(domain.ProviderMercadoPago,
		[]string{domain.PurposeWebhookSecret, domain.PurposeAccessToken}, "a", conn("a", domain.ProviderMercadoPago))
	fetcher := &stubFetcher{snapshot: map[string]any{"payment_id": "999"}}
	handler := MercadoPagoHandler(f.dispatcher, f.recorder, f.store, fetcher, zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/webhooks/mercadopago?type=payment&data.id=999",
		strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	handler(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, f.events.inserted, 1)
	assert.Equal(t, "999", f.events.inserted[0].ProviderEventID)
}

func TestMetaHandler_MissingSignatureHeaderIs400(t *testing.T) {
	f := newFixture(domain.ProviderMetaMarketing,
		[]string{domain.PurposeAppSecret, domain.PurposeVerifyToken}, "a", conn("a", domain.ProviderMetaMarketing))
	handler := MetaHandler(f.dispatcher, f.recorder, zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/webhooks/meta",
		strings.NewReader(`{"object":"ad_account","entry":[{"id":"act_1"}]}`))
	rec := httptest.NewRecorder()
	handler(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, f.resolver.calls)
}

func TestMetaHandler_SignedNotificationIsRecorded(t *testing.T) {
	f := newFixture(domain.ProviderMetaMarketing,
		[]string{domain.PurposeAppSecret, domain.PurposeVerifyToken}, "a", conn("a", domain.ProviderMetaMarketing))
	handler := MetaHandler(f.dispatcher, f.recorder, zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/webhooks/meta",
		strings.NewReader(`{"object":"ad_account","entry":[{"id":"act_1","changes":[{"field":"spend_cap"}]}]}`))
	req.Header.Set("X-Hub-Signature-256", "sha256=whatever")
	rec := httptest.NewRecorder()
	handler(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, f.events.inserted, 1)
	assert.Equal(t, "ad_account.spend_cap", f.events.inserted[0].EventType)
}
