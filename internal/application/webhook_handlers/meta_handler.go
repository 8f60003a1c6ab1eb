package webhook_handlers

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"time"

	"payments-webhook-layer/internal/application"
	"payments-webhook-layer/internal/domain"
	"payments-webhook-layer/internal/infrastructure/metrics"
	"payments-webhook-layer/internal/infrastructure/providers"

	"github.com/rs/zerolog"
)

// MetaHandler receives Meta platform change notifications. Meta always signs
// its deliveries, so a missing signature header is a structural defect and is
// the one verification-adjacent condition that earns a 400.
func MetaHandler(
	dispatcher *application.VerificationDispatcher,
	recorder *application.EventRecorder,
	logger zerolog.Logger,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metrics.NotificationsReceived.WithLabelValues(domain.ProviderMetaMarketing).Inc()

		if r.Header.Get(providers.MetaSignatureHeader) == "" {
			metrics.NotificationsMalformed.WithLabelValues(domain.ProviderMetaMarketing).Inc()
			logger.Warn().Msg("Rejected meta notification without signature header")
			rejectMalformed(w, "missing signature header")
			return
		}

		body, ok := readBody(w, r, domain.ProviderMetaMarketing)
		if !ok {
			return
		}

		payload, err := domain.ParseMetaPayload(body)
		if err != nil {
			metrics.NotificationsMalformed.WithLabelValues(domain.ProviderMetaMarketing).Inc()
			logger.Warn().Err(err).Msg("Rejected malformed meta notification")
			rejectMalformed(w, "malformed meta payload")
			return
		}

		n := &domain.Notification{
			ProviderCode: domain.ProviderMetaMarketing,
			Body:         body,
			Headers:      r.Header,
			ReceivedAt:   time.Now(),
			Payload:      payload,
		}

		complete(r.Context(), w, dispatcher, recorder, logger, n,
			func(ctx context.Context, conn *domain.Connection) (map[string]any, domain.EventStatus) {
				var snapshot map[string]any
				if err := json.Unmarshal(body, &snapshot); err != nil {
					snapshot = map[string]any{"object": payload.Object}
				}
				return snapshot, domain.EventStatusProcessed
			})
	}
}

// MetaChallengeHandler answers Meta's subscription handshake. Meta sends a GET
// with hub.mode, hub.verify_token and hub.challenge; the challenge is echoed
// back only when the token matches some active connection's verify token.
func MetaChallengeHandler(
	connections *application.ConnectionService,
	logger zerolog.Logger,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mode := r.URL.Query().Get("hub.mode")
		token := r.URL.Query().Get("hub.verify_token")
		challenge := r.URL.Query().Get("hub.challenge")

		if mode != "subscribe" || token == "" || challenge == "" {
			http.Error(w, "invalid challenge request", http.StatusBadRequest)
			return
		}

		candidates, err := connections.ActiveConnections(r.Context(), domain.ProviderMetaMarketing)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to resolve connections for meta challenge")
			http.Error(w, "verification unavailable", http.StatusServiceUnavailable)
			return
		}

		for _, conn := range candidates {
			if ok := verifyTokenMatches(r.Context(), connections, conn, token); ok {
				logger.Info().Str("connectionId", conn.ID).Msg("Meta subscription challenge accepted")
				w.Header().Set("Content-Type", "text/plain")
				w.WriteHeader(http.StatusOK)
				w.Write([]byte(challenge))
				return
			}
		}

		logger.Warn().Msg("Meta subscription challenge rejected, no matching verify token")
		http.Error(w, "verify token mismatch", http.StatusForbidden)
	}
}

func verifyTokenMatches(ctx context.Context, connections *application.ConnectionService, conn *domain.Connection, token string) bool {
	bundle, err := connections.CredentialBundle(ctx, conn.ID)
	if err != nil || bundle == nil {
		return false
	}
	expected, ok := bundle.Secret(domain.PurposeVerifyToken)
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(token)) == 1
}
