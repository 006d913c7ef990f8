package bootstrap

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/target/workmarket/config"
	domainauth "github.com/target/workmarket/internal/domain/auth"
)

func TestBuildAuthService(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	devAuth := config.AuthConfig{
		Mode:       config.AuthModeMock,
		AdminGroup: "admins",
		DevAuth: config.DevAuthConfig{
			Token:  "dev-token",
			UserID: "dev",
			Email:  "dev@example.com",
			Groups: []string{"admins"},
		},
	}

	tests := []struct {
		name    string
		auth    config.AuthConfig
		isDev   bool
		wantNil bool
	}{
		{name: "mock in dev", auth: devAuth, isDev: true},
		{name: "mock outside dev", auth: devAuth, wantNil: true},
		{
			name: "mock without token",
			auth: config.AuthConfig{
				Mode:    config.AuthModeMock,
				DevAuth: config.DevAuthConfig{UserID: "dev"},
			},
			isDev:   true,
			wantNil: true,
		},
		{
			name:    "oauth without discovery url",
			auth:    config.AuthConfig{Mode: config.AuthModeOAuth, OAuth: config.OAuthConfig{ClientID: "workmarket"}},
			wantNil: true,
		},
		{name: "unknown mode", auth: config.AuthConfig{Mode: "ldap"}, wantNil: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := BuildAuthService(context.Background(), AuthConfig{Auth: tt.auth, IsDev: tt.isDev, Logger: logger})
			if tt.wantNil {
				if svc != nil {
					t.Fatalf("BuildAuthService() = %v, want nil", svc)
				}
				return
			}
			if svc == nil {
				t.Fatal("BuildAuthService() = nil, want service")
			}
		})
	}
}

func TestBuildAuthServiceDevTokenIsAdmin(t *testing.T) {
	svc := BuildAuthService(context.Background(), AuthConfig{
		IsDev: true,
		Auth: config.AuthConfig{
			Mode:       config.AuthModeMock,
			AdminGroup: "admins",
			DevAuth: config.DevAuthConfig{
				Token:  "dev-token",
				UserID: "dev",
				Groups: []string{"admins"},
			},
		},
	})
	if svc == nil {
		t.Fatal("expected auth service")
	}

	principal, err := svc.Authenticate(context.Background(), "dev-token")
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if principal.Role != domainauth.RoleAdmin {
		t.Fatalf("role = %q, want %q", principal.Role, domainauth.RoleAdmin)
	}

	if _, err := svc.Authenticate(context.Background(), "other"); err == nil {
		t.Fatal("expected unknown token to be rejected")
	}
}
