package webhook_handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"payments-webhook-layer/internal/application"
	"payments-webhook-layer/internal/domain"
	"payments-webhook-layer/internal/infrastructure/metrics"

	"github.com/rs/zerolog"
)

// StripeHandler receives Stripe event notifications. Stripe payloads are
// self-contained; the recorded snapshot is the decoded event body.
func StripeHandler(
	dispatcher *application.VerificationDispatcher,
	recorder *application.EventRecorder,
	logger zerolog.Logger,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metrics.NotificationsReceived.WithLabelValues(domain.ProviderStripe).Inc()

		body, ok := readBody(w, r, domain.ProviderStripe)
		if !ok {
			return
		}

		payload, err := domain.ParseStripePayload(body)
		if err != nil {
			metrics.NotificationsMalformed.WithLabelValues(domain.ProviderStripe).Inc()
			logger.Warn().Err(err).Msg("Rejected malformed stripe notification")
			rejectMalformed(w, "malformed stripe payload")
			return
		}

		n := &domain.Notification{
			ProviderCode: domain.ProviderStripe,
			Body:         body,
			Headers:      r.Header,
			ReceivedAt:   time.Now(),
			Payload:      payload,
		}

		complete(r.Context(), w, dispatcher, recorder, logger, n,
			func(ctx context.Context, conn *domain.Connection) (map[string]any, domain.EventStatus) {
				var snapshot map[string]any
				if err := json.Unmarshal(body, &snapshot); err != nil {
					snapshot = map[string]any{"id": payload.ID, "type": payload.Type}
				}
				return snapshot, domain.EventStatusProcessed
			})
	}
}
