// Package auth describes who is calling the admin API: a verified identity
// and the role it holds.
package auth

import "time"

// Role represents an API caller's authorization role.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleAgent Role = "agent"
	RoleGuest Role = "guest"
)

// rank orders roles so a higher role satisfies a lower requirement.
var rank = map[Role]int{
	RoleGuest: 0,
	RoleAgent: 1,
	RoleAdmin: 2,
}

// Satisfies reports whether r grants at least the privileges of required.
func (r Role) Satisfies(required Role) bool {
	have, ok := rank[r]
	if !ok {
		return false
	}
	return have >= rank[required]
}

// Identity represents the authenticated principal behind a bearer token.
// Adapters map provider-specific claims into this shape.
type Identity struct {
	UserID    string // provider subject, recorded as the actor of admin intents
	Email     string
	Groups    []string
	ExpiresAt time.Time // absolute expiry from the token
}

// Principal is an identity with its resolved role, attached to request contexts.
type Principal struct {
	Identity
	Role Role
}

// IsAdmin reports whether the principal may call admin operations.
func (p Principal) IsAdmin() bool { return p.Role.Satisfies(RoleAdmin) }

// Expired reports whether the identity's token has expired at now.
func (p Principal) Expired(now time.Time) bool {
	return !p.ExpiresAt.IsZero() && now.After(p.ExpiresAt)
}
