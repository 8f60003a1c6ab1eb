package ports

import (
	"context"
	"time"
)

// LookupCache is an injected TTL cache for frequently-reused, non-secret
// lookups (active connection lists). Cache failures must never fail the
// lookup; callers fall through to the source of truth.
type LookupCache interface {
	// Get unmarshals the cached value into v and reports whether it was found.
	Get(ctx context.Context, key string, v any) (bool, error)
	Set(ctx context.Context, key string, v any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
