package webhook_handlers

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"time"

	"payments-webhook-layer/internal/application"
	"payments-webhook-layer/internal/domain"
	"payments-webhook-layer/internal/infrastructure/metrics"

	"github.com/rs/zerolog"
)

// PayUHandler receives PayU payment confirmations, posted as an HTML form.
// The raw body is preserved on the notification so the verifier can re-parse
// the exact fields that were signed.
func PayUHandler(
	dispatcher *application.VerificationDispatcher,
	recorder *application.EventRecorder,
	logger zerolog.Logger,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metrics.NotificationsReceived.WithLabelValues(domain.ProviderPayU).Inc()

		r.Body = http.MaxBytesReader(w, r.Body, maxNotificationBytes)
		body, err := io.ReadAll(r.Body)
		if err != nil {
			metrics.NotificationsMalformed.WithLabelValues(domain.ProviderPayU).Inc()
			rejectMalformed(w, "unreadable request body")
			return
		}

		form, err := url.ParseQuery(string(bytes.TrimSpace(body)))
		if err != nil {
			metrics.NotificationsMalformed.WithLabelValues(domain.ProviderPayU).Inc()
			logger.Warn().Err(err).Msg("Rejected unparsable payu confirmation")
			rejectMalformed(w, "malformed payu confirmation")
			return
		}

		payload, err := domain.ParsePayUPayload(form)
		if err != nil {
			metrics.NotificationsMalformed.WithLabelValues(domain.ProviderPayU).Inc()
			logger.Warn().Err(err).Msg("Rejected malformed payu confirmation")
			rejectMalformed(w, "malformed payu confirmation")
			return
		}

		n := &domain.Notification{
			ProviderCode: domain.ProviderPayU,
			Body:         body,
			Headers:      r.Header,
			ReceivedAt:   time.Now(),
			Payload:      payload,
		}

		complete(r.Context(), w, dispatcher, recorder, logger, n,
			func(ctx context.Context, conn *domain.Connection) (map[string]any, domain.EventStatus) {
				snapshot := make(map[string]any, len(form))
				for key := range form {
					snapshot[key] = form.Get(key)
				}
				return snapshot, domain.EventStatusProcessed
			})
	}
}
