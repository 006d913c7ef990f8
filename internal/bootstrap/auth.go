package bootstrap

import (
	"context"
	"log/slog"

	"github.com/target/workmarket/config"
	"github.com/target/workmarket/internal/adapters/authroles"
	"github.com/target/workmarket/internal/adapters/devauth"
	"github.com/target/workmarket/internal/adapters/oidc"
	"github.com/target/workmarket/internal/ports"
	"github.com/target/workmarket/internal/service"
)

// AuthConfig contains configuration for auth service.
type AuthConfig struct {
	Auth   config.AuthConfig
	IsDev  bool
	Logger *slog.Logger
}

// BuildAuthService creates an auth service based on the configured auth mode.
// Returns nil when the verifier cannot be built; admin routes then answer 503.
func BuildAuthService(ctx context.Context, cfg AuthConfig) *service.AuthService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var (
		verifier ports.TokenVerifier
		err      error
	)
	switch cfg.Auth.Mode {
	case config.AuthModeMock:
		if !cfg.IsDev {
			logger.Warn("mock auth requested outside dev mode, auth disabled")
			return nil
		}
		verifier, err = devauth.NewVerifier(devauth.Config{
			Token:  cfg.Auth.DevAuth.Token,
			UserID: cfg.Auth.DevAuth.UserID,
			Email:  cfg.Auth.DevAuth.Email,
			Groups: cfg.Auth.DevAuth.Groups,
		})
	case config.AuthModeOAuth:
		verifier, err = oidc.NewVerifier(ctx, oidc.VerifierConfig{
			ClientID:     cfg.Auth.OAuth.ClientID,
			DiscoveryURL: cfg.Auth.OAuth.DiscoveryURL,
		})
	default:
		logger.Warn("unknown auth mode, auth disabled", "mode", cfg.Auth.Mode)
		return nil
	}
	if err != nil {
		logger.Warn("failed to create token verifier, auth disabled", "mode", cfg.Auth.Mode, "error", err)
		return nil
	}

	svc, err := service.NewAuthService(service.AuthServiceOptions{
		Verifier: verifier,
		Roles: authroles.StaticRoleMapper{
			AdminGroup: cfg.Auth.AdminGroup,
			AgentGroup: cfg.Auth.AgentGroup,
		},
		Logger: logger,
	})
	if err != nil {
		logger.Warn("failed to create auth service, auth disabled", "error", err)
		return nil
	}
	return svc
}
