package httpx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	domainauth "github.com/target/workmarket/internal/domain/auth"
)

func TestGetPrincipalFromContext(t *testing.T) {
	if p, ok := GetPrincipalFromContext(context.Background()); assert.False(t, ok) {
		assert.Nil(t, p)
	}

	assert.Equal(t, context.Background(), SetPrincipalInContext(context.Background(), nil))

	admin := &domainauth.Principal{Identity: domainauth.Identity{UserID: "ops"}, Role: domainauth.RoleAdmin}
	ctx := SetPrincipalInContext(context.Background(), admin)
	p, ok := GetPrincipalFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, admin, p)
}

func TestActorFromContext(t *testing.T) {
	assert.Equal(t, "anon", actorFromContext(context.Background(), "anon"))

	ctx := SetPrincipalInContext(context.Background(), &domainauth.Principal{Identity: domainauth.Identity{UserID: "ops"}})
	assert.Equal(t, "ops", actorFromContext(ctx, "anon"))
}
