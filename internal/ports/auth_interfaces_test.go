package ports_test

import (
	"testing"

	"github.com/target/workmarket/internal/adapters/authroles"
	"github.com/target/workmarket/internal/adapters/devauth"
	"github.com/target/workmarket/internal/adapters/oidc"
	mocks "github.com/target/workmarket/internal/mocks/auth"
	"github.com/target/workmarket/internal/ports"
)

// This test only verifies that adapters and mocks conform to the ports at compile time.
func TestAdaptersImplementPorts(t *testing.T) {
	t.Helper()

	var _ ports.TokenVerifier = (*oidc.Verifier)(nil)
	var _ ports.TokenVerifier = (*devauth.Verifier)(nil)
	var _ ports.TokenVerifier = (*mocks.StaticTokenVerifier)(nil)
	var _ ports.RoleMapper = authroles.StaticRoleMapper{}
}
