package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	domainauth "github.com/target/workmarket/internal/domain/auth"
	"github.com/target/workmarket/internal/ports"
)

// AuthServiceOptions groups dependencies for AuthService.
type AuthServiceOptions struct {
	Verifier ports.TokenVerifier // Required: bearer token verifier
	Roles    ports.RoleMapper    // Required: group to role mapping
	Logger   *slog.Logger        // Optional: structured logger
	Now      func() time.Time    // Optional: clock override for tests
}

// AuthService turns bearer tokens into principals.
type AuthService struct {
	verifier ports.TokenVerifier
	roles    ports.RoleMapper
	logger   *slog.Logger
	now      func() time.Time
}

// ErrTokenExpired is returned for verified tokens whose identity has expired.
var ErrTokenExpired = errors.New("token expired")

// NewAuthService constructs a new AuthService.
func NewAuthService(opts AuthServiceOptions) (*AuthService, error) {
	if opts.Verifier == nil {
		return nil, errors.New("TokenVerifier is required")
	}
	if opts.Roles == nil {
		return nil, errors.New("RoleMapper is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &AuthService{
		verifier: opts.Verifier,
		roles:    opts.Roles,
		logger:   logger.With("component", "auth_service"),
		now:      now,
	}, nil
}

// MustNewAuthService constructs a new AuthService and panics on error.
func MustNewAuthService(opts AuthServiceOptions) *AuthService {
	svc, err := NewAuthService(opts)
	if err != nil {
		//nolint:forbidigo // Must constructor fails fast when dependencies are invalid during startup
		panic(fmt.Errorf("failed to create AuthService: %w", err))
	}
	return svc
}

// Authenticate verifies rawToken and resolves the caller's role.
func (s *AuthService) Authenticate(ctx context.Context, rawToken string) (*domainauth.Principal, error) {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return nil, ports.ErrInvalidToken
	}

	id, err := s.verifier.Verify(ctx, rawToken)
	if err != nil {
		s.logger.DebugContext(ctx, "token rejected", "error", err)
		return nil, fmt.Errorf("verify token: %w", err)
	}

	p := &domainauth.Principal{Identity: id, Role: s.roles.Map(id.Groups)}
	if p.Expired(s.now()) {
		return nil, ErrTokenExpired
	}
	return p, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	const prefix = "bearer "
	header = strings.TrimSpace(header)
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
