package domain

import "context"

type contextKey string

const (
	tenantIDKey    contextKey = "tenantId"
	environmentKey contextKey = "environment"
)

// WithTenantID returns a context carrying the tenant id.
func WithTenantID(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, tenantIDKey, tenantID)
}

// GetTenantIDFromContext returns the tenant id or "".
func GetTenantIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(tenantIDKey).(string); ok {
		return v
	}
	return ""
}

// WithEnvironment returns a context carrying the environment.
func WithEnvironment(ctx context.Context, env Environment) context.Context {
	return context.WithValue(ctx, environmentKey, env)
}

// GetEnvironmentFromContext returns the environment or DefaultEnvironment.
func GetEnvironmentFromContext(ctx context.Context) Environment {
	if v, ok := ctx.Value(environmentKey).(Environment); ok && v != "" {
		return v
	}
	return DefaultEnvironment
}
