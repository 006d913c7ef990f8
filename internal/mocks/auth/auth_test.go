package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/workmarket/internal/ports"
)

func TestStaticTokenVerifier(t *testing.T) {
	v := NewStaticTokenVerifier().Add("tok", "ops", "admins")

	id, err := v.Verify(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "ops", id.UserID)
	assert.Equal(t, []string{"admins"}, id.Groups)

	_, err = v.Verify(context.Background(), "nope")
	assert.ErrorIs(t, err, ports.ErrInvalidToken)
	assert.Equal(t, 2, v.Calls())
}
