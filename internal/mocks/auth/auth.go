package auth

// Package auth contains simple hand-written test doubles for auth ports.
// These are lightweight and suitable for unit tests without codegen.

import (
	"context"
	"sync"
	"time"

	domainauth "github.com/target/workmarket/internal/domain/auth"
	"github.com/target/workmarket/internal/ports"
)

// Ensure compile-time conformance to ports.
var _ ports.TokenVerifier = (*StaticTokenVerifier)(nil)

// StaticTokenVerifier maps known tokens to identities. Unknown tokens fail with
// ports.ErrInvalidToken.
type StaticTokenVerifier struct {
	mu     sync.Mutex
	tokens map[string]domainauth.Identity
	calls  int
}

// NewStaticTokenVerifier creates an empty verifier.
func NewStaticTokenVerifier() *StaticTokenVerifier {
	return &StaticTokenVerifier{tokens: map[string]domainauth.Identity{}}
}

// Add registers token for userID with the given groups and a one hour expiry.
func (v *StaticTokenVerifier) Add(token, userID string, groups ...string) *StaticTokenVerifier {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.tokens[token] = domainauth.Identity{
		UserID:    userID,
		Email:     userID + "@example.com",
		Groups:    groups,
		ExpiresAt: time.Now().Add(time.Hour),
	}
	return v
}

func (v *StaticTokenVerifier) Verify(_ context.Context, rawToken string) (domainauth.Identity, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls++
	id, ok := v.tokens[rawToken]
	if !ok {
		return domainauth.Identity{}, ports.ErrInvalidToken
	}
	return id, nil
}

// Calls returns how many times Verify was called.
func (v *StaticTokenVerifier) Calls() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.calls
}
