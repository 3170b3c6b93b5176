package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/travelhub/internal/logger"
	"github.com/iliyamo/travelhub/internal/model"
	"github.com/iliyamo/travelhub/internal/utils"
)

func newAuth(t *testing.T, store *memStore) *AuthService {
	t.Helper()
	auth, err := NewAuthService(userStore{store}, AuthConfig{
		Secret:     "test-secret",
		TokenTTL:   24 * time.Hour,
		BcryptCost: 4,
	}, logger.Nop())
	require.NoError(t, err)
	return auth
}

func TestRegisterAndLogin(t *testing.T) {
	auth := newAuth(t, newMemStore())
	ctx := context.Background()

	res, err := auth.Register(ctx, " C@X.com ", "secret2", "Carla")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, "c@x.com", res.User.Email)
	assert.Equal(t, model.RoleClient, res.User.Role)
	assert.NotEqual(t, "secret2", res.User.PasswordHash)

	login, err := auth.Login(ctx, "c@x.com", "secret2")
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, login.User.ID)

	claims, err := utils.ParseAccessToken("test-secret", login.Token, time.Now())
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, claims.Subject)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	store := newMemStore()
	auth := newAuth(t, store)
	ctx := context.Background()

	first, err := auth.Register(ctx, "a@x.com", "secret1", "Ann")
	require.NoError(t, err)

	_, err = auth.Register(ctx, "A@x.com", "another1", "Imposter")
	assert.ErrorIs(t, err, model.ErrDuplicateIdentity)

	again, err := auth.Login(ctx, "a@x.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, first.User.ID, again.User.ID)
	assert.Equal(t, "Ann", again.User.Name)
	assert.Len(t, store.users, 1)
}

func TestRegisterValidation(t *testing.T) {
	auth := newAuth(t, newMemStore())
	ctx := context.Background()
	cases := map[string][3]string{
		"bad email":      {"not-an-email", "secret1", "Ann"},
		"named address":  {"Ann <ann@x.com>", "secret1", "Ann"},
		"short password": {"a@x.com", "abc", "Ann"},
		"missing name":   {"a@x.com", "secret1", "   "},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := auth.Register(ctx, in[0], in[1], in[2])
			assert.ErrorIs(t, err, model.ErrValidationFailed)
		})
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	auth := newAuth(t, newMemStore())
	ctx := context.Background()
	_, err := auth.Register(ctx, "a@x.com", "secret1", "Ann")
	require.NoError(t, err)

	_, wrongPass := auth.Login(ctx, "a@x.com", "wrong-password")
	_, unknown := auth.Login(ctx, "nobody@x.com", "secret1")
	assert.ErrorIs(t, wrongPass, model.ErrInvalidCredentials)
	assert.ErrorIs(t, unknown, model.ErrInvalidCredentials)
	assert.Equal(t, wrongPass.Error(), unknown.Error())
}

func TestVerify(t *testing.T) {
	store := newMemStore()
	auth := newAuth(t, store)
	ctx := context.Background()
	res, err := auth.Register(ctx, "c@x.com", "secret2", "Carla")
	require.NoError(t, err)

	id, err := auth.Verify(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, model.Identity{SubjectID: res.User.ID, Role: model.RoleClient}, id)

	t.Run("malformed", func(t *testing.T) {
		_, err := auth.Verify(ctx, "garbage")
		assert.ErrorIs(t, err, model.ErrInvalidToken)
	})

	t.Run("forged", func(t *testing.T) {
		tok, err := utils.NewAccessToken("other-secret", res.User.ID, "ADMIN", time.Hour, time.Now())
		require.NoError(t, err)
		_, err = auth.Verify(ctx, tok.Token)
		assert.ErrorIs(t, err, model.ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		tok, err := utils.NewAccessToken("test-secret", res.User.ID, "CLIENT", time.Hour, time.Now().Add(-2*time.Hour))
		require.NoError(t, err)
		_, err = auth.Verify(ctx, tok.Token)
		assert.ErrorIs(t, err, model.ErrInvalidToken)
	})

	t.Run("role comes from the store", func(t *testing.T) {
		store.mu.Lock()
		u := store.users[res.User.ID]
		u.Role = model.RoleAdmin
		store.users[res.User.ID] = u
		store.mu.Unlock()

		id, err := auth.Verify(ctx, res.Token)
		require.NoError(t, err)
		assert.True(t, id.IsAdmin())
	})

	t.Run("deleted account", func(t *testing.T) {
		store.mu.Lock()
		delete(store.users, res.User.ID)
		store.mu.Unlock()

		_, err := auth.Verify(ctx, res.Token)
		assert.ErrorIs(t, err, model.ErrIdentityGone)
		_, err = auth.Me(ctx, id)
		assert.ErrorIs(t, err, model.ErrIdentityGone)
	})
}

func TestRequireRole(t *testing.T) {
	auth := newAuth(t, newMemStore())
	admin := model.Identity{SubjectID: "a", Role: model.RoleAdmin}
	client := model.Identity{SubjectID: "c", Role: model.RoleClient}

	assert.NoError(t, auth.RequireRole(admin, model.RoleAdmin))
	assert.ErrorIs(t, auth.RequireRole(client, model.RoleAdmin), model.ErrForbidden)
	assert.ErrorIs(t, auth.RequireRole(model.Identity{Role: model.RoleAdmin}, model.RoleAdmin), model.ErrForbidden)
}

func TestCreateAdmin(t *testing.T) {
	auth := newAuth(t, newMemStore())
	ctx := context.Background()
	u, err := auth.CreateAdmin(ctx, "root@x.com", "secret1", "Root")
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, u.Role)

	res, err := auth.Login(ctx, "root@x.com", "secret1")
	require.NoError(t, err)
	id, err := auth.Verify(ctx, res.Token)
	require.NoError(t, err)
	assert.True(t, id.IsAdmin())
}
