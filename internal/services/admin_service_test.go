package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bluerally/buooy-backend/internal/models"
	"github.com/bluerally/buooy-backend/internal/repositories"
	"github.com/bluerally/buooy-backend/internal/testutil"
	"github.com/bluerally/buooy-backend/pkg/config"
)

func TestAdminLogin(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewSQLiteDB(t)
	svc := NewAdminService(repositories.NewStore(db), config.AdminConfig{SessionSecret: "s3cret", SessionTTL: time.Hour}, zap.NewNop())

	_, err := svc.CreateAdmin(ctx, "root", "short")
	assert.ErrorIs(t, err, ErrInvalid)

	admin, err := svc.CreateAdmin(ctx, "root", "correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", admin.Password)

	_, err = svc.CreateAdmin(ctx, "root", "another password")
	assert.ErrorIs(t, err, ErrConflict)

	_, err = svc.Login(ctx, "root", "wrong password")
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = svc.Login(ctx, "nobody", "correct horse")
	assert.ErrorIs(t, err, ErrUnauthorized)

	session, err := svc.Login(ctx, "root", "correct horse")
	require.NoError(t, err)
	username, err := svc.ParseSession(session)
	require.NoError(t, err)
	assert.Equal(t, "root", username)

	other := NewAdminService(repositories.NewStore(db), config.AdminConfig{SessionSecret: "different"}, zap.NewNop())
	_, err = other.ParseSession(session)
	assert.ErrorIs(t, err, ErrUnauthorized)

	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	stale, err := svc.Login(ctx, "root", "correct horse")
	require.NoError(t, err)
	_, err = svc.ParseSession(stale)
	assert.ErrorIs(t, err, ErrUnauthorized)

	// access tokens for app users are not admin sessions
	access, err := NewAccessToken("s3cret", 1, time.Now(), time.Hour)
	require.NoError(t, err)
	_, err = svc.ParseSession(access)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestAdminUsers(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewSQLiteDB(t)
	store := repositories.NewStore(db)
	svc := NewAdminService(store, config.AdminConfig{SessionSecret: "s3cret"}, zap.NewNop())

	alice := testutil.CreateUser(t, db, "alice")
	testutil.CreateUser(t, db, "bob")

	users, total, err := svc.ListUsers(ctx, "", 1)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, users, 2)

	users, total, err = svc.ListUsers(ctx, "ali", 1)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, users, 1)
	assert.Equal(t, alice.ID, users[0].ID)

	require.NoError(t, store.Tokens.CreateToken(ctx, &models.UserToken{
		UserID: alice.ID, RefreshToken: "tok", ExpiresAt: time.Now().Add(time.Hour).UTC(), IsActive: true,
	}))

	active, err := svc.ToggleActive(ctx, alice.ID)
	require.NoError(t, err)
	assert.False(t, active)
	_, err = store.Tokens.GetActiveToken(ctx, "tok", time.Now().UTC())
	assert.Error(t, err, "tokens are revoked on deactivation")

	active, err = svc.ToggleActive(ctx, alice.ID)
	require.NoError(t, err)
	assert.True(t, active)

	got, err := svc.GetUser(ctx, alice.ID)
	require.NoError(t, err)
	assert.True(t, got.IsActive)

	_, err = svc.ToggleActive(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}
