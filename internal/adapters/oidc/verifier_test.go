package oidc

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/workmarket/internal/ports"
)

const (
	testIssuer   = "https://idp.test"
	testClientID = "workmarket"
)

func signToken(t *testing.T, key *rsa.PrivateKey, claims map[string]any) string {
	t.Helper()
	enc := func(v any) string {
		raw, err := json.Marshal(v)
		require.NoError(t, err)
		return base64.RawURLEncoding.EncodeToString(raw)
	}
	input := enc(map[string]string{"alg": "RS256", "typ": "JWT"}) + "." + enc(claims)
	digest := sha256.Sum256([]byte(input))
	sig, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, digest[:])
	require.NoError(t, err)
	return input + "." + base64.RawURLEncoding.EncodeToString(sig)
}

func TestVerifier_Verify(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	now := time.Now()
	v := NewStaticVerifier(testIssuer, testClientID, func() time.Time { return now }, key.Public())

	base := func() map[string]any {
		return map[string]any{
			"iss": testIssuer,
			"aud": testClientID,
			"sub": "abc-123",
			"exp": now.Add(time.Hour).Unix(),
			"iat": now.Unix(),
		}
	}

	t.Run("standard claims", func(t *testing.T) {
		claims := base()
		claims["email"] = "ops@example.com"
		claims["groups"] = []string{"workmarket-admins"}

		id, err := v.Verify(context.Background(), signToken(t, key, claims))
		require.NoError(t, err)
		assert.Equal(t, "abc-123", id.UserID)
		assert.Equal(t, "ops@example.com", id.Email)
		assert.Equal(t, []string{"workmarket-admins"}, id.Groups)
		assert.WithinDuration(t, now.Add(time.Hour), id.ExpiresAt, time.Second)
	})

	t.Run("ad claims take precedence", func(t *testing.T) {
		claims := base()
		claims["samaccountname"] = "z001"
		claims["mail"] = "z001@corp.example"
		claims["email"] = "other@example.com"
		claims["memberof"] = []string{"ad-admins"}
		claims["groups"] = []string{"ignored"}

		id, err := v.Verify(context.Background(), signToken(t, key, claims))
		require.NoError(t, err)
		assert.Equal(t, "z001", id.UserID)
		assert.Equal(t, "z001@corp.example", id.Email)
		assert.Equal(t, []string{"ad-admins"}, id.Groups)
	})

	failures := []struct {
		name   string
		mutate func(map[string]any)
		token  string
	}{
		{name: "empty token", token: " "},
		{name: "garbage", token: "not.a.jwt"},
		{name: "wrong audience", mutate: func(c map[string]any) { c["aud"] = "someone-else" }},
		{name: "wrong issuer", mutate: func(c map[string]any) { c["iss"] = "https://evil.test" }},
		{name: "expired", mutate: func(c map[string]any) { c["exp"] = now.Add(-time.Minute).Unix() }},
	}
	for _, tt := range failures {
		t.Run(tt.name, func(t *testing.T) {
			token := tt.token
			if tt.mutate != nil {
				claims := base()
				tt.mutate(claims)
				token = signToken(t, key, claims)
			}
			_, err := v.Verify(context.Background(), token)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ports.ErrInvalidToken))
		})
	}

	t.Run("foreign key", func(t *testing.T) {
		other, err := rsa.GenerateKey(rand.Reader, 2048)
		require.NoError(t, err)
		_, err = v.Verify(context.Background(), signToken(t, other, base()))
		assert.ErrorIs(t, err, ports.ErrInvalidToken)
	})
}

func TestNewVerifier_Discovery(t *testing.T) {
	issuer := ""
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(DiscoveryDocument{Issuer: issuer, JwksURI: issuer + "/jwks"})
	}))
	defer srv.Close()
	issuer = srv.URL

	v, err := NewVerifier(context.Background(), VerifierConfig{
		ClientID:     testClientID,
		DiscoveryURL: srv.URL + "/.well-known/openid-configuration",
	})
	require.NoError(t, err)
	assert.NotNil(t, v)
}

func TestNewVerifier_ValidationErrors(t *testing.T) {
	tests := []struct {
		name   string
		config VerifierConfig
		errMsg string
	}{
		{name: "missing client ID", config: VerifierConfig{DiscoveryURL: "http://example.com"}, errMsg: "client ID is required"},
		{name: "missing discovery URL", config: VerifierConfig{ClientID: "client"}, errMsg: "discovery URL is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewVerifier(context.Background(), tt.config)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
