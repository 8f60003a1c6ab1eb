package application

import (
	"context"
	"sync"
	"time"

	"payments-webhook-layer/internal/domain"
	"payments-webhook-layer/internal/ports"
)

type fakeResolver struct {
	connections []*domain.Connection
	err         error
}

func (r *fakeResolver) ActiveConnections(ctx context.Context, providerCode string) ([]*domain.Connection, error) {
	return r.connections, r.err
}

type fakeCredentialStore struct {
	bundles map[string]map[string]string
	errors  map[string]error
	saved   map[string]map[string]string
}

func newFakeCredentialStore() *fakeCredentialStore {
	return &fakeCredentialStore{
		bundles: make(map[string]map[string]string),
		errors:  make(map[string]error),
		saved:   make(map[string]map[string]string),
	}
}

func (s *fakeCredentialStore) Bundle(ctx context.Context, connectionID string) (*domain.CredentialBundle, error) {
	if err, ok := s.errors[connectionID]; ok {
		return nil, err
	}
	secrets, ok := s.bundles[connectionID]
	if !ok {
		return nil, nil
	}
	return domain.NewCredentialBundle(connectionID, secrets), nil
}

func (s *fakeCredentialStore) Save(ctx context.Context, connectionID string, secrets map[string]string) error {
	s.saved[connectionID] = secrets
	return nil
}

// fakeVerifier accepts exactly one connection id and counts attempts.
type fakeVerifier struct {
	provider string
	purposes []string
	acceptID string
	perConn  map[string]error
	calls    []string
}

func (v *fakeVerifier) ProviderCode() string { return v.provider }

func (v *fakeVerifier) RequiredPurposes() []string { return v.purposes }

func (v *fakeVerifier) Verify(ctx context.Context, conn *domain.Connection, bundle *domain.CredentialBundle, n *domain.Notification) error {
	v.calls = append(v.calls, conn.ID)
	if err, ok := v.perConn[conn.ID]; ok {
		return err
	}
	if conn.ID == v.acceptID {
		return nil
	}
	return ports.ErrSignatureMismatch
}

type fakeEventRepo struct {
	mu       sync.Mutex
	inserted []*domain.IntegrationEvent
	err      error
}

func (r *fakeEventRepo) Insert(ctx context.Context, event *domain.IntegrationEvent) error {
	if r.err != nil {
		return r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inserted = append(r.inserted, event)
	return nil
}

func (r *fakeEventRepo) List(ctx context.Context, filter ports.EventFilter) ([]*domain.IntegrationEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inserted, nil
}

type fakePublisher struct {
	published []*domain.IntegrationEvent
	err       error
}

func (p *fakePublisher) Publish(ctx context.Context, event *domain.IntegrationEvent) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, event)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

type fakeConnectionRepo struct {
	connections map[string]*domain.Connection
	err         error
	activeCalls int
}

func newFakeConnectionRepo() *fakeConnectionRepo {
	return &fakeConnectionRepo{connections: make(map[string]*domain.Connection)}
}

func (r *fakeConnectionRepo) Create(ctx context.Context, conn *domain.Connection) error {
	r.connections[conn.ID] = conn
	return nil
}

func (r *fakeConnectionRepo) GetByID(ctx context.Context, id string) (*domain.Connection, error) {
	return r.connections[id], nil
}

func (r *fakeConnectionRepo) ListByProvider(ctx context.Context, providerCode string) ([]*domain.Connection, error) {
	var out []*domain.Connection
	for _, c := range r.connections {
		if c.ProviderCode == providerCode {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *fakeConnectionRepo) ActiveByProvider(ctx context.Context, providerCode string) ([]*domain.Connection, error) {
	r.activeCalls++
	if r.err != nil {
		return nil, r.err
	}
	var out []*domain.Connection
	for _, c := range r.connections {
		if c.ProviderCode == providerCode && c.Status == domain.ConnectionStatusActive {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *fakeConnectionRepo) UpdateStatus(ctx context.Context, id string, status domain.ConnectionStatus) error {
	conn, ok := r.connections[id]
	if !ok {
		return nil
	}
	conn.Status = status
	return nil
}

// fakeLookupCache is an in-memory LookupCache without TTL expiry.
type fakeLookupCache struct {
	entries map[string][]*domain.Connection
	deleted []string
}

func newFakeLookupCache() *fakeLookupCache {
	return &fakeLookupCache{entries: make(map[string][]*domain.Connection)}
}

func (c *fakeLookupCache) Get(ctx context.Context, key string, v any) (bool, error) {
	cached, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	if target, ok := v.(*[]*domain.Connection); ok {
		*target = cached
		return true, nil
	}
	return false, nil
}

func (c *fakeLookupCache) Set(ctx context.Context, key string, v any, ttl time.Duration) error {
	if conns, ok := v.([]*domain.Connection); ok {
		c.entries[key] = conns
	}
	return nil
}

func (c *fakeLookupCache) Delete(ctx context.Context, key string) error {
	c.deleted = append(c.deleted, key)
	delete(c.entries, key)
	return nil
}
