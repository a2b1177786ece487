package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trips/auth"
	"trips/entity"
)

func TestJWTVerifier(t *testing.T) {
	ctx := context.Background()
	verifier := auth.NewJWTVerifier("secret")

	token, err := auth.NewToken("secret", entity.Identity{UserID: "user-1", Role: entity.RoleOrganizer}, time.Hour)
	require.NoError(t, err)

	identity, err := verifier.Verify(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, entity.Identity{UserID: "user-1", Role: entity.RoleOrganizer}, identity)

	t.Run("wrong secret", func(t *testing.T) {
		other, err := auth.NewToken("other", entity.Identity{UserID: "user-1"}, time.Hour)
		require.NoError(t, err)

		_, err = verifier.Verify(ctx, other)
		assert.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		expired, err := auth.NewToken("secret", entity.Identity{UserID: "user-1"}, -time.Minute)
		require.NoError(t, err)

		_, err = verifier.Verify(ctx, expired)
		assert.Error(t, err)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := verifier.Verify(ctx, "not-a-token")
		assert.Error(t, err)
	})

	t.Run("default role", func(t *testing.T) {
		student, err := auth.NewToken("secret", entity.Identity{UserID: "user-2"}, time.Hour)
		require.NoError(t, err)

		identity, err := verifier.Verify(ctx, student)
		require.NoError(t, err)
		assert.Equal(t, entity.RoleStudent, identity.Role)
	})
}
