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

// PayPalHandler receives PayPal webhook events. Verification is delegated to
// PayPal's verify endpoint per candidate, so an unattributed outcome here may
// be an outage rather than a forgery; the dispatcher surfaces that distinction.
func PayPalHandler(
	dispatcher *application.VerificationDispatcher,
	recorder *application.EventRecorder,
	logger zerolog.Logger,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metrics.NotificationsReceived.WithLabelValues(domain.ProviderPayPal).Inc()

		body, ok := readBody(w, r, domain.ProviderPayPal)
		if !ok {
			return
		}

		payload, err := domain.ParsePayPalPayload(body)
		if err != nil {
			metrics.NotificationsMalformed.WithLabelValues(domain.ProviderPayPal).Inc()
			logger.Warn().Err(err).Msg("Rejected malformed paypal notification")
			rejectMalformed(w, "malformed paypal payload")
			return
		}

		n := &domain.Notification{
			ProviderCode: domain.ProviderPayPal,
			Body:         body,
			Headers:      r.Header,
			ReceivedAt:   time.Now(),
			Payload:      payload,
		}

		complete(r.Context(), w, dispatcher, recorder, logger, n,
			func(ctx context.Context, conn *domain.Connection) (map[string]any, domain.EventStatus) {
				var snapshot map[string]any
				if err := json.Unmarshal(body, &snapshot); err != nil {
					snapshot = map[string]any{"id": payload.ID, "event_type": payload.EventName}
				}
				return snapshot, domain.EventStatusProcessed
			})
	}
}
