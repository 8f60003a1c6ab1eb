package application

import (
	"context"
	"fmt"
	"time"

	"payments-webhook-layer/internal/domain"
	"payments-webhook-layer/internal/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// defaultResolverTTL bounds how stale a cached active-connection list may be.
// New connections become visible to the dispatcher within this window.
const defaultResolverTTL = 30 * time.Second

// ConnectionService owns the connection lifecycle and resolves active
// candidates for the dispatcher. Resolution goes through an injected TTL cache
// when one is configured; cache failures fall through to the repository.
type ConnectionService struct {
	repo        ports.ConnectionRepository
	credentials ports.CredentialStore
	cache       ports.LookupCache
	cacheTTL    time.Duration
	logger      zerolog.Logger
}

var _ ports.ConnectionResolver = (*ConnectionService)(nil)

// NewConnectionService creates a new connection service. cache may be nil.
func NewConnectionService(
	repo ports.ConnectionRepository,
	credentials ports.CredentialStore,
	cache ports.LookupCache,
	logger zerolog.Logger,
) *ConnectionService {
	return &ConnectionService{
		repo:        repo,
		credentials: credentials,
		cache:       cache,
		cacheTTL:    defaultResolverTTL,
		logger:      logger,
	}
}

func activeConnectionsKey(providerCode string) string {
	return "connections:active:" + providerCode
}

// ActiveConnections returns the active connections for a provider. An empty
// list is a valid outcome; an error means the data store was unreachable.
func (s *ConnectionService) ActiveConnections(ctx context.Context, providerCode string) ([]*domain.Connection, error) {
	key := activeConnectionsKey(providerCode)

	if s.cache != nil {
		var cached []*domain.Connection
		found, err := s.cache.Get(ctx, key, &cached)
		if err != nil {
			s.logger.Debug().Err(err).Str("provider", providerCode).Msg("Connection cache read failed")
		} else if found {
			return cached, nil
		}
	}

	conns, err := s.repo.ActiveByProvider(ctx, providerCode)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve active connections: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, conns, s.cacheTTL); err != nil {
			s.logger.Debug().Err(err).Str("provider", providerCode).Msg("Connection cache write failed")
		}
	}

	return conns, nil
}

// CreateConnectionInput describes a tenant completing provider onboarding.
type CreateConnectionInput struct {
	TenantID     string
	ProviderCode string
	Environment  domain.Environment
	Metadata     map[string]string
	Secrets      map[string]string
}

// CreateConnection activates a tenant's provider connection and stores its
// credential bundle encrypted.
func (s *ConnectionService) CreateConnection(ctx context.Context, input CreateConnectionInput) (*domain.Connection, error) {
	if _, ok := domain.ProviderByCode(input.ProviderCode); !ok {
		return nil, fmt.Errorf("unknown provider %q", input.ProviderCode)
	}
	if input.TenantID == "" {
		return nil, fmt.Errorf("tenant id is required")
	}
	if input.Environment == "" {
		input.Environment = domain.GetEnvironmentFromContext(ctx)
	}

	status := domain.ConnectionStatusActive
	if len(input.Secrets) == 0 {
		// Onboarding without secrets leaves the connection pending; it is
		// never offered for verification until credentials arrive.
		status = domain.ConnectionStatusPending
	}

	conn := &domain.Connection{
		ID:           uuid.NewString(),
		TenantID:     input.TenantID,
		ProviderCode: input.ProviderCode,
		Status:       status,
		Environment:  input.Environment,
		Metadata:     input.Metadata,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	if err := s.repo.Create(ctx, conn); err != nil {
		return nil, fmt.Errorf("failed to create connection: %w", err)
	}

	if len(input.Secrets) > 0 {
		if err := s.credentials.Save(ctx, conn.ID, input.Secrets); err != nil {
			return nil, fmt.Errorf("failed to store credentials: %w", err)
		}
	}

	s.invalidate(ctx, input.ProviderCode)

	s.logger.Info().
		Str("connectionId", conn.ID).
		Str("tenantId", conn.TenantID).
		Str("provider", conn.ProviderCode).
		Str("environment", string(conn.Environment)).
		Msg("Created connection")

	return conn, nil
}

// Disconnect flips a connection to inactive. The record survives for audit
// continuity; it is simply never offered for verification again.
func (s *ConnectionService) Disconnect(ctx context.Context, id string) error {
	conn, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if conn == nil {
		return fmt.Errorf("connection not found")
	}

	if err := s.repo.UpdateStatus(ctx, id, domain.ConnectionStatusInactive); err != nil {
		return fmt.Errorf("failed to disconnect: %w", err)
	}

	s.invalidate(ctx, conn.ProviderCode)

	s.logger.Info().
		Str("connectionId", id).
		Str("provider", conn.ProviderCode).
		Msg("Disconnected connection")
	return nil
}

// List returns connections, optionally narrowed to one provider.
func (s *ConnectionService) List(ctx context.Context, providerCode string) ([]*domain.Connection, error) {
	if providerCode != "" {
		return s.repo.ListByProvider(ctx, providerCode)
	}

	var all []*domain.Connection
	for _, p := range domain.Catalog() {
		conns, err := s.repo.ListByProvider(ctx, p.Code)
		if err != nil {
			return nil, err
		}
		all = append(all, conns...)
	}
	return all, nil
}

// CredentialBundle exposes bundle retrieval for components that need secrets
// outside the dispatcher loop (the Meta challenge handshake).
func (s *ConnectionService) CredentialBundle(ctx context.Context, connectionID string) (*domain.CredentialBundle, error) {
	return s.credentials.Bundle(ctx, connectionID)
}

func (s *ConnectionService) invalidate(ctx context.Context, providerCode string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, activeConnectionsKey(providerCode)); err != nil {
		s.logger.Debug().Err(err).Str("provider", providerCode).Msg("Connection cache invalidation failed")
	}
}
