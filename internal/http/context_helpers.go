package httpx

import (
	"context"

	domainauth "github.com/target/workmarket/internal/domain/auth"
)

// principalKey is an unexported context key type to avoid collisions across packages.
type principalKey struct{}

// SetPrincipalInContext returns a child context that carries the given principal.
// If p is nil, the original ctx is returned unchanged.
func SetPrincipalInContext(ctx context.Context, p *domainauth.Principal) context.Context {
	if p == nil {
		return ctx
	}
	return context.WithValue(ctx, principalKey{}, p)
}

// GetPrincipalFromContext returns the authenticated principal and whether one is present.
func GetPrincipalFromContext(ctx context.Context) (*domainauth.Principal, bool) {
	if p, ok := ctx.Value(principalKey{}).(*domainauth.Principal); ok && p != nil {
		return p, true
	}
	return nil, false
}

// actorFromContext returns the authenticated user id, or fallback.
func actorFromContext(ctx context.Context, fallback string) string {
	if p, ok := GetPrincipalFromContext(ctx); ok && p.UserID != "" {
		return p.UserID
	}
	return fallback
}
