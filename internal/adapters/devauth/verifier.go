package devauth

// Package devauth provides a config-driven TokenVerifier for local development.

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	domainauth "github.com/target/workmarket/internal/domain/auth"
	"github.com/target/workmarket/internal/ports"
)

// Config controls the dev verifier. Token and UserID are required; Groups may be empty.
type Config struct {
	Token           string
	UserID          string
	Email           string
	Groups          []string
	SessionDuration time.Duration // default 8h when zero
}

// Verifier accepts exactly one static bearer token and returns the configured identity.
type Verifier struct {
	token    []byte
	identity domainauth.Identity
	duration time.Duration
}

// NewVerifier constructs a dev verifier from Config.
func NewVerifier(cfg Config) (*Verifier, error) {
	if cfg.Token == "" {
		return nil, errors.New("dev auth: Token is required")
	}
	if cfg.UserID == "" {
		return nil, errors.New("dev auth: UserID is required")
	}
	dur := cfg.SessionDuration
	if dur == 0 {
		dur = 8 * time.Hour
	}
	return &Verifier{
		token: []byte(cfg.Token),
		identity: domainauth.Identity{
			UserID: cfg.UserID,
			Email:  cfg.Email,
			Groups: append([]string(nil), cfg.Groups...),
		},
		duration: dur,
	}, nil
}

// Verify compares the token in constant time. Each successful call gets a fresh expiry.
func (v *Verifier) Verify(_ context.Context, rawToken string) (domainauth.Identity, error) {
	if subtle.ConstantTimeCompare([]byte(strings.TrimSpace(rawToken)), v.token) != 1 {
		return domainauth.Identity{}, ports.ErrInvalidToken
	}
	id := v.identity
	id.Groups = append([]string(nil), v.identity.Groups...)
	id.ExpiresAt = time.Now().Add(v.duration)
	return id, nil
}
