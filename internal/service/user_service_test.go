package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"estate-api/internal/model"
	"estate-api/pkg/apierror"
)

func TestUpdateRole(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("normalizes and stores the role", func(t *testing.T) {
		env := newTestEnv(t)
		user := env.seedUser(t, "r@example.com", model.AccountStatusActive)

		summary, err := env.userSvc.UpdateRole(ctx, user.ID, " Guest ")
		require.NoError(t, err)
		assert.Equal(t, model.RoleGuest, summary.Role)

		me, err := env.userSvc.Me(ctx, user.Identity())
		require.NoError(t, err)
		assert.Equal(t, model.RoleGuest, me.Role)
	})

	t.Run("rejects unknown roles", func(t *testing.T) {
		env := newTestEnv(t)
		user := env.seedUser(t, "bad@example.com", model.AccountStatusActive)

		_, err := env.userSvc.UpdateRole(ctx, user.ID, "owner")
		requireAPIError(t, err, http.StatusBadRequest, apierror.CodeBadRequest)
	})

	t.Run("unknown user", func(t *testing.T) {
		env := newTestEnv(t)

		_, err := env.userSvc.UpdateRole(ctx, "missing", model.RoleAdmin)
		requireAPIError(t, err, http.StatusNotFound, apierror.CodeNotFound)
	})
}

func TestMeUnknownUser(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	_, err := env.userSvc.Me(context.Background(), model.Identity{UserID: "gone"})
	requireAPIError(t, err, http.StatusNotFound, apierror.CodeNotFound)
}

func TestEnsureAdmin(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newTestEnv(t)

	require.NoError(t, env.userSvc.EnsureAdmin(ctx, "Root@Example.com", testPassword))
	require.NoError(t, env.userSvc.EnsureAdmin(ctx, "root@example.com", "Other!pass1"))

	admin, err := env.users.FindByEmail(ctx, "root@example.com")
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, admin.Role)
	assert.Equal(t, model.AccountStatusActive, admin.Status)

	pair := env.signIn(t, "root@example.com", "console")
	assert.NotEmpty(t, pair.AccessToken)

	require.NoError(t, env.userSvc.EnsureAdmin(ctx, "", ""))
}
