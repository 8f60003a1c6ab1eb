// Package webhook_handlers contains the HTTP handlers for inbound provider
// notifications. Every handler follows the same shape: decode the payload,
// trial it against the active connections, record the outcome, and always
// answer 200 unless the request itself is structurally broken.
package webhook_handlers

import (
	"context"
	"io"
	"net/http"
	"time"

	"payments-webhook-layer/internal/application"
	"payments-webhook-layer/internal/domain"
	"payments-webhook-layer/internal/infrastructure/metrics"

	"github.com/rs/zerolog"
)

// snapshotFunc builds the payload snapshot to record for a matched
// notification. It runs only after verification, with the winning connection.
type snapshotFunc func(ctx context.Context, conn *domain.Connection) (map[string]any, domain.EventStatus)

// complete runs the shared post-decode flow: match, count, record, ack.
func complete(
	ctx context.Context,
	w http.ResponseWriter,
	dispatcher *application.VerificationDispatcher,
	recorder *application.EventRecorder,
	logger zerolog.Logger,
	n *domain.Notification,
	snapshot snapshotFunc,
) {
	start := time.Now()
	result, err := dispatcher.Match(ctx, n)
	metrics.VerificationDuration.WithLabelValues(n.ProviderCode).Observe(time.Since(start).Seconds())

	if err != nil {
		logger.Error().Err(err).
			Str("provider", n.ProviderCode).
			Str("resourceId", n.Payload.ResourceID()).
			Msg("Candidate resolution failed, acknowledging unprocessed")
		acknowledge(w, false, false)
		return
	}

	if result.Inconclusive > 0 {
		metrics.VerificationInconclusive.WithLabelValues(n.ProviderCode).Add(float64(result.Inconclusive))
	}

	if !result.Attributed() {
		metrics.NotificationsUnattributed.WithLabelValues(n.ProviderCode).Inc()
		evt := logger.Warn().
			Str("provider", n.ProviderCode).
			Str("eventType", n.Payload.EventType()).
			Str("resourceId", n.Payload.ResourceID()).
			Int("candidates", result.Attempts)
		if result.Inconclusive > 0 {
			evt = evt.Int("inconclusive", result.Inconclusive).Bool("ambiguous", true)
		}
		evt.Msg("Notification could not be attributed to any connection")
		acknowledge(w, false, false)
		return
	}

	metrics.NotificationsVerified.WithLabelValues(n.ProviderCode).Inc()
	conn := result.Connection

	ctx = domain.WithTenantID(ctx, conn.TenantID)
	payload, status := snapshot(ctx, conn)
	_, err = recorder.Record(ctx, conn, n.Payload.EventType(), n.Payload.ResourceID(), payload, status)
	if err != nil {
		logger.Error().Err(err).
			Str("connectionId", conn.ID).
			Str("provider", n.ProviderCode).
			Str("resourceId", n.Payload.ResourceID()).
			Msg("Failed to record verified notification")
		acknowledge(w, true, false)
		return
	}

	acknowledge(w, true, status == domain.EventStatusProcessed)
}

// readBody drains the request body under the size cap. A false return means
// the 400 has already been written.
func readBody(w http.ResponseWriter, r *http.Request, providerCode string) ([]byte, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxNotificationBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		metrics.NotificationsMalformed.WithLabelValues(providerCode).Inc()
		rejectMalformed(w, "unreadable request body")
		return nil, false
	}
	return body, true
}
