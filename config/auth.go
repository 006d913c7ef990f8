package config

import (
	"fmt"
	"slices"
	"strings"
)

// AuthMode selects the bearer token verifier that guards agent and admin routes.
type AuthMode string

const (
	AuthModeOAuth AuthMode = "oauth" // ID tokens checked against an OIDC issuer
	AuthModeMock  AuthMode = "mock"  // one static token, DEV=true only
)

var authModes = []AuthMode{AuthModeOAuth, AuthModeMock}

// UnmarshalText accepts any casing and surrounding whitespace.
func (a *AuthMode) UnmarshalText(text []byte) error {
	mode := AuthMode(strings.ToLower(strings.TrimSpace(string(text))))
	if !slices.Contains(authModes, mode) {
		names := make([]string, len(authModes))
		for i, m := range authModes {
			names[i] = string(m)
		}
		return fmt.Errorf("AUTH_MODE %q is not one of %s", mode, strings.Join(names, ", "))
	}
	*a = mode
	return nil
}

// OAuthConfig points the verifier at the identity provider. The token audience
// must equal ClientID.
type OAuthConfig struct {
	ClientID     string `env:"CLIENT_ID"     envDefault:"workmarket"`
	DiscoveryURL string `env:"DISCOVERY_URL"`
}

// DevAuthConfig is the identity presented for the dev token.
type DevAuthConfig struct {
	Token  string   `env:"TOKEN"`
	UserID string   `env:"USER_ID" envDefault:"dev-admin"`
	Email  string   `env:"EMAIL"   envDefault:"dev@example.com"`
	Groups []string `env:"GROUPS"  envDefault:"admins"          envSeparator:";"`
}

// AuthConfig controls who may act as an agent and who may operate the market.
// Callers in AdminGroup get the admin role. With AgentGroup empty every other
// verified caller is an agent.
type AuthConfig struct {
	Mode       AuthMode      `env:"AUTH_MODE"   envDefault:"oauth"`
	OAuth      OAuthConfig   `                                     envPrefix:"OAUTH_"`
	DevAuth    DevAuthConfig `                                     envPrefix:"DEV_AUTH_"`
	AdminGroup string        `env:"ADMIN_GROUP" envDefault:"admins"`
	AgentGroup string        `env:"AGENT_GROUP"`
}
