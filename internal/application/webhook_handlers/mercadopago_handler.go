package webhook_handlers

import (
	"context"
	"net/http"
	"time"

	"payments-webhook-layer/internal/application"
	"payments-webhook-layer/internal/domain"
	"payments-webhook-layer/internal/infrastructure/metrics"
	"payments-webhook-layer/internal/ports"

	"github.com/rs/zerolog"
)

// MercadoPagoHandler receives Mercado Pago notifications. The notification is
// only a pointer to a resource, so after verification the full payment is
// fetched with the matched connection's access token. A failed fetch records
// the event as pending with the thin pointer so nothing is lost.
func MercadoPagoHandler(
	dispatcher *application.VerificationDispatcher,
	recorder *application.EventRecorder,
	credentials ports.CredentialStore,
	fetcher ports.EnrichmentFetcher,
	logger zerolog.Logger,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metrics.NotificationsReceived.WithLabelValues(domain.ProviderMercadoPago).Inc()

		body, ok := readBody(w, r, domain.ProviderMercadoPago)
		if !ok {
			return
		}

		payload, err := domain.ParseMercadoPagoPayload(body, r.URL.Query())
		if err != nil {
			metrics.NotificationsMalformed.WithLabelValues(domain.ProviderMercadoPago).Inc()
			logger.Warn().Err(err).Msg("Rejected malformed mercadopago notification")
			rejectMalformed(w, "malformed mercadopago payload")
			return
		}

		n := &domain.Notification{
			ProviderCode: domain.ProviderMercadoPago,
			Body:         body,
			Headers:      r.Header,
			ReceivedAt:   time.Now(),
			Payload:      payload,
		}

		complete(r.Context(), w, dispatcher, recorder, logger, n,
			func(ctx context.Context, conn *domain.Connection) (map[string]any, domain.EventStatus) {
				thin := map[string]any{
					"topic":  payload.Topic,
					"action": payload.Action,
					"dataId": payload.DataID,
				}

				bundle, err := credentials.Bundle(ctx, conn.ID)
				if err != nil || bundle == nil {
					logger.Error().Err(err).
						Str("connectionId", conn.ID).
						Msg("Credential bundle unavailable for enrichment")
					return thin, domain.EventStatusPending
				}

				snapshot, err := fetcher.Fetch(ctx, bundle, n)
				if err != nil {
					logger.Error().Err(err).
						Str("connectionId", conn.ID).
						Str("dataId", payload.DataID).
						Msg("Failed to enrich mercadopago notification")
					return thin, domain.EventStatusPending
				}
				return snapshot, domain.EventStatusProcessed
			})
	}
}
