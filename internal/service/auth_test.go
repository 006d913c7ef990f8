package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/workmarket/internal/adapters/authroles"
	domainauth "github.com/target/workmarket/internal/domain/auth"
	mocks "github.com/target/workmarket/internal/mocks/auth"
	"github.com/target/workmarket/internal/ports"
)

func TestNewAuthService(t *testing.T) {
	_, err := NewAuthService(AuthServiceOptions{Roles: authroles.StaticRoleMapper{}})
	require.Error(t, err)

	_, err = NewAuthService(AuthServiceOptions{Verifier: mocks.NewStaticTokenVerifier()})
	require.Error(t, err)

	assert.Panics(t, func() { MustNewAuthService(AuthServiceOptions{}) })
}

func TestAuthService_Authenticate(t *testing.T) {
	verifier := mocks.NewStaticTokenVerifier().
		Add("admin-token", "ops", "admins").
		Add("agent-token", "agent-7", "agents")
	svc := MustNewAuthService(AuthServiceOptions{
		Verifier: verifier,
		Roles:    authroles.StaticRoleMapper{AdminGroup: "admins", AgentGroup: "agents"},
	})

	tests := []struct {
		name     string
		token    string
		wantRole domainauth.Role
		wantErr  error
	}{
		{name: "admin", token: "admin-token", wantRole: domainauth.RoleAdmin},
		{name: "agent", token: "agent-token", wantRole: domainauth.RoleAgent},
		{name: "unknown", token: "nope", wantErr: ports.ErrInvalidToken},
		{name: "empty", token: "  ", wantErr: ports.ErrInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := svc.Authenticate(context.Background(), tt.token)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, p)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantRole, p.Role)
		})
	}
}

func TestAuthService_AuthenticateExpired(t *testing.T) {
	verifier := mocks.NewStaticTokenVerifier().Add("tok", "ops", "admins")
	svc := MustNewAuthService(AuthServiceOptions{
		Verifier: verifier,
		Roles:    authroles.StaticRoleMapper{AdminGroup: "admins"},
		Now:      func() time.Time { return time.Now().Add(2 * time.Hour) },
	})

	_, err := svc.Authenticate(context.Background(), "tok")
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestBearerToken(t *testing.T) {
	tests := map[string]string{
		"Bearer abc":    "abc",
		"bearer  abc  ": "abc",
		"BEARER abc":    "abc",
		"Basic abc":     "",
		"Bearer":        "",
		"":              "",
		"Bearerabc":     "",
	}
	for header, want := range tests {
		assert.Equal(t, want, BearerToken(header), header)
	}
}
