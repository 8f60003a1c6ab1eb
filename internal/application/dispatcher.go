package application

import (
	"context"
	"errors"
	"fmt"

	"payments-webhook-layer/internal/domain"
	"payments-webhook-layer/internal/ports"

	"github.com/rs/zerolog"
)

// MatchResult reports the outcome of attributing one notification.
// Connection is nil when no candidate verified. Inconclusive counts
// candidates whose verification could not reach a verdict; a nonzero count
// with a nil Connection means the notification may still be authentic.
type MatchResult struct {
	Connection   *domain.Connection
	Attempts     int
	Inconclusive int
}

// Attributed reports whether the notification was matched to a connection.
func (r *MatchResult) Attributed() bool {
	return r.Connection != nil
}

// VerificationDispatcher attributes inbound notifications to tenants by
// trialing each active connection's credentials against the provider's
// verifier. The first candidate that verifies wins and the loop stops.
type VerificationDispatcher struct {
	resolver    ports.ConnectionResolver
	credentials ports.CredentialStore
	verifiers   map[string]ports.Verifier
	logger      zerolog.Logger
}

// NewVerificationDispatcher creates a dispatcher with no verifiers registered.
func NewVerificationDispatcher(
	resolver ports.ConnectionResolver,
	credentials ports.CredentialStore,
	logger zerolog.Logger,
) *VerificationDispatcher {
	return &VerificationDispatcher{
		resolver:    resolver,
		credentials: credentials,
		verifiers:   make(map[string]ports.Verifier),
		logger:      logger,
	}
}

// RegisterVerifier installs the verifier for its provider code.
func (d *VerificationDispatcher) RegisterVerifier(v ports.Verifier) {
	d.verifiers[v.ProviderCode()] = v
	d.logger.Info().Str("provider", v.ProviderCode()).Msg("Registered webhook verifier")
}

// Match trials the notification against every active connection for its
// provider. A nil result error with a nil result.Connection means the
// notification is unattributed; a non-nil error means candidate resolution
// itself failed and no verdict exists.
func (d *VerificationDispatcher) Match(ctx context.Context, n *domain.Notification) (*MatchResult, error) {
	verifier, ok := d.verifiers[n.ProviderCode]
	if !ok {
		return nil, fmt.Errorf("no verifier registered for provider %s", n.ProviderCode)
	}

	candidates, err := d.resolver.ActiveConnections(ctx, n.ProviderCode)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve candidates: %w", err)
	}

	result := &MatchResult{}
	for _, conn := range candidates {
		if !conn.IsActive() {
			continue
		}

		bundle, err := d.credentials.Bundle(ctx, conn.ID)
		if err != nil {
			// Credential store trouble for one candidate must not block
			// the rest; the verdict for this one is unknown.
			result.Inconclusive++
			d.logger.Warn().Err(err).
				Str("connectionId", conn.ID).
				Str("provider", n.ProviderCode).
				Msg("Failed to load credential bundle")
			continue
		}
		if bundle == nil || !bundle.Has(verifier.RequiredPurposes()...) {
			continue
		}

		result.Attempts++
		err = verifier.Verify(ctx, conn, bundle, n)
		if err == nil {
			result.Connection = conn
			return result, nil
		}
		if errors.Is(err, ports.ErrVerificationInconclusive) {
			result.Inconclusive++
			d.logger.Warn().Err(err).
				Str("connectionId", conn.ID).
				Str("provider", n.ProviderCode).
				Msg("Verification inconclusive for candidate")
		}
	}

	return result, nil
}
