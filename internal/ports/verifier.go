package ports

import (
	"context"
	"errors"

	"payments-webhook-layer/internal/domain"
)

var (
	// ErrSignatureMismatch is a clean rejection: the candidate's secrets do not
	// verify this notification.
	ErrSignatureMismatch = errors.New("signature does not match")

	// ErrMissingSignature means the transport metadata the verifier needs
	// (signature header, timestamp) is absent or unparsable.
	ErrMissingSignature = errors.New("signature metadata is missing")

	// ErrVerificationInconclusive means a delegated verification call failed
	// for infrastructure reasons; the candidate was neither confirmed nor
	// rejected.
	ErrVerificationInconclusive = errors.New("verification inconclusive")
)

// Verifier proves that a notification genuinely originated from its provider
// for one connection's secrets. Implementations are pure given (secrets,
// notification); the delegated PayPal case is the only one performing I/O.
type Verifier interface {
	ProviderCode() string

	// RequiredPurposes lists the bundle purposes without which a connection is
	// ineligible for this provider.
	RequiredPurposes() []string

	// Verify returns nil on a match, ErrSignatureMismatch (or
	// ErrMissingSignature) on a rejection, and wraps
	// ErrVerificationInconclusive when a delegated check could not run.
	Verify(ctx context.Context, conn *domain.Connection, bundle *domain.CredentialBundle, n *domain.Notification) error
}

// EnrichmentFetcher fetches the full provider resource when the notification
// is only a pointer, using the matched connection's credentials. It returns
// the normalized payload snapshot to record.
type EnrichmentFetcher interface {
	ProviderCode() string
	Fetch(ctx context.Context, bundle *domain.CredentialBundle, n *domain.Notification) (map[string]any, error)
}
