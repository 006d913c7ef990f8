package oidc

// Package oidc verifies OIDC bearer tokens presented to the workmarket API.

import (
	"context"
	"crypto"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"

	domainauth "github.com/target/workmarket/internal/domain/auth"
	"github.com/target/workmarket/internal/ports"
)

// Verifier implements ports.TokenVerifier on top of a go-oidc ID token verifier.
type Verifier struct {
	verifier *gooidc.IDTokenVerifier
}

// VerifierConfig holds configuration for the OIDC verifier.
type VerifierConfig struct {
	ClientID     string
	DiscoveryURL string
	HTTPClient   *http.Client // Optional, defaults to a client with a 30s timeout
}

// DiscoveryDocument represents the subset of the OIDC discovery document we rely on.
type DiscoveryDocument struct {
	Issuer  string `json:"issuer"`
	JwksURI string `json:"jwks_uri"`
}

// NewVerifier fetches the provider's discovery document and builds a verifier that
// accepts ID tokens issued for ClientID.
func NewVerifier(ctx context.Context, config VerifierConfig) (*Verifier, error) {
	if config.ClientID == "" {
		return nil, errors.New("client ID is required")
	}
	if config.DiscoveryURL == "" {
		return nil, errors.New("discovery URL is required")
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	ctx = gooidc.ClientContext(ctx, httpClient)
	issuer := strings.TrimSuffix(config.DiscoveryURL, "/")
	issuer = strings.TrimSuffix(issuer, "/.well-known/openid-configuration")
	op, err := gooidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc new provider: %w", err)
	}
	return &Verifier{verifier: op.Verifier(&gooidc.Config{ClientID: config.ClientID})}, nil
}

// NewStaticVerifier builds a verifier against fixed public keys, skipping discovery.
func NewStaticVerifier(issuer, clientID string, now func() time.Time, keys ...crypto.PublicKey) *Verifier {
	ks := &gooidc.StaticKeySet{PublicKeys: keys}
	return &Verifier{verifier: gooidc.NewVerifier(issuer, ks, &gooidc.Config{ClientID: clientID, Now: now})}
}

// Verify checks the token's signature, issuer, audience and expiry and maps its claims.
func (v *Verifier) Verify(ctx context.Context, rawToken string) (domainauth.Identity, error) {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return domainauth.Identity{}, ports.ErrInvalidToken
	}
	tok, err := v.verifier.Verify(ctx, rawToken)
	if err != nil {
		return domainauth.Identity{}, fmt.Errorf("%w: %w", ports.ErrInvalidToken, err)
	}
	var claims idTokenClaims
	if claimsErr := tok.Claims(&claims); claimsErr != nil {
		return domainauth.Identity{}, fmt.Errorf("parse id_token claims: %w", claimsErr)
	}
	f := mapIDTokenClaims(claims)
	if f.userID == "" {
		return domainauth.Identity{}, fmt.Errorf("%w: token has no subject", ports.ErrInvalidToken)
	}
	return domainauth.Identity{
		UserID:    f.userID,
		Email:     f.email,
		Groups:    f.groups,
		ExpiresAt: tok.Expiry,
	}, nil
}

type idFields struct {
	userID string
	email  string
	groups []string
}

// idTokenClaims represents a superset of standard OIDC and AD/ADFS claim shapes.
type idTokenClaims struct {
	Sub            string   `json:"sub"`
	SamAccountName string   `json:"samaccountname"`
	Mail           string   `json:"mail"`
	Email          string   `json:"email"`
	MemberOf       []string `json:"memberof"`
	Groups         []string `json:"groups"`
}

// mapIDTokenClaims prefers AD/ADFS claims and falls back to the standard ones.
func mapIDTokenClaims(c idTokenClaims) idFields {
	f := idFields{
		userID: firstNonEmpty(c.SamAccountName, c.Sub),
		email:  firstNonEmpty(c.Mail, c.Email),
		groups: c.MemberOf,
	}
	if len(f.groups) == 0 {
		f.groups = c.Groups
	}
	return f
}

// firstNonEmpty returns the first non-empty string from vals, or empty string if none.
func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
