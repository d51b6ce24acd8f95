package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/supportdesk/supportgate/internal/config"
	"github.com/supportdesk/supportgate/internal/model"
	"github.com/supportdesk/supportgate/internal/pkg/apperrors"
	"github.com/supportdesk/supportgate/internal/repository"
)

func newAuthFixture(t *testing.T) (*AuthService, *TokenService) {
	t.Helper()
	store := repository.NewMemoryStore()
	users := NewUserService(store.Users(), store.Roles())
	_, err := users.Create(context.Background(), model.UserCreateRequest{
		Name: "Alice", Email: "alice@example.com", Password: "wonderland",
	})
	require.NoError(t, err)

	tokens := NewTokenService("secret", 15*time.Minute)
	ops := []config.OperatorConfig{{Username: "admin", Password: "secret"}}
	return NewAuthService(ops, store.Users(), tokens), tokens
}

func TestAuthServiceOperatorLogin(t *testing.T) {
	auth, tokens := newAuthFixture(t)

	resp, err := auth.Login(context.Background(), "admin", "secret")
	require.NoError(t, err)
	assert.Equal(t, "bearer", resp.TokenType)
	assert.Equal(t, int64(900), resp.ExpiresIn)

	p, err := tokens.Verify(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "admin", p.Username)
}

func TestAuthServiceUserLogin(t *testing.T) {
	auth, _ := newAuthFixture(t)

	p, err := auth.Authenticate(context.Background(), "alice@example.com", "wonderland")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", p.Username)
}

func TestAuthServiceRejectsBadCredentials(t *testing.T) {
	auth, _ := newAuthFixture(t)
	ctx := context.Background()

	cases := []struct{ user, pass string }{
		{"admin", "wrong"},
		{"alice@example.com", "wrong"},
		{"nobody@example.com", "x"},
		{"", "secret"},
		{"admin", ""},
	}
	for _, tc := range cases {
		_, err := auth.Login(ctx, tc.user, tc.pass)
		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr, "user=%q", tc.user)
		assert.Equal(t, apperrors.ErrAuthFailed, appErr.Type)
		assert.Equal(t, "Incorrect username or password", appErr.Message)
	}
}
