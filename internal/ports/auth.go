// Package ports holds the interfaces that bearer authentication is built
// from. The oidc and devauth adapters verify tokens; authroles maps groups.
package ports

import (
	"context"
	"errors"

	domainauth "github.com/target/workmarket/internal/domain/auth"
)

// ErrInvalidToken is returned by verifiers for malformed, expired or unknown tokens.
var ErrInvalidToken = errors.New("invalid token")

// TokenVerifier authenticates a bearer token and returns the identity behind it.
type TokenVerifier interface {
	Verify(ctx context.Context, rawToken string) (domainauth.Identity, error)
}

// RoleMapper maps provider groups to application roles.
type RoleMapper interface {
	Map(groups []string) domainauth.Role
}
