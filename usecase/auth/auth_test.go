package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/crm/domain"
	"github.com/fastygo/crm/repository/memory"
)

const testSecret = "test-secret"

func newUseCase(t *testing.T, now *time.Time) *UseCase {
	t.Helper()
	store := memory.New()
	store.AddUser(domain.User{ID: "u1", Role: domain.RoleMember, Status: domain.UserStatusActive})
	store.AddUser(domain.User{ID: "u2", Role: domain.RoleMember, Status: domain.UserStatusActive})
	store.AddUser(domain.User{ID: "gone", Role: domain.RoleMember, Status: domain.UserStatusInactive})
	return New(store.Users(), store.Sessions(), TokenConfig{Secret: testSecret, Issuer: "crm"}, func() time.Time { return *now }, nil)
}

func TestCreateSessionSignsToken(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	uc := newUseCase(t, &now)

	login, err := uc.CreateSession(context.Background(), "u1", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "u1", login.User.ID)
	assert.Equal(t, now.Add(time.Hour), login.Session.ExpiresAt)

	claims := jwt.MapClaims{}
	_, err = jwt.NewParser(jwt.WithoutClaimsValidation()).ParseWithClaims(login.Token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(testSecret), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "u1", claims["user_id"])
	assert.Equal(t, login.Session.ID, claims["session_id"])
	assert.Equal(t, "crm", claims["iss"])
}

func TestCreateSessionRejectsInactive(t *testing.T) {
	now := time.Now()
	uc := newUseCase(t, &now)

	_, err := uc.CreateSession(context.Background(), "gone", time.Hour)
	require.ErrorIs(t, err, domain.ErrUnauthorized)
	_, err = uc.CreateSession(context.Background(), "nobody", time.Hour)
	require.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestValidateSession(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	uc := newUseCase(t, &now)
	login, err := uc.CreateSession(ctx, "u1", time.Hour)
	require.NoError(t, err)

	require.NoError(t, uc.ValidateSession(ctx, login.Session.ID, "u1"))
	require.ErrorIs(t, uc.ValidateSession(ctx, login.Session.ID, "u2"), domain.ErrUnauthorized)
	require.ErrorIs(t, uc.ValidateSession(ctx, "missing", "u1"), domain.ErrUnauthorized)

	now = now.Add(time.Hour)
	require.ErrorIs(t, uc.ValidateSession(ctx, login.Session.ID, "u1"), domain.ErrUnauthorized)
	_, err = uc.GetSession(ctx, login.Session.ID)
	require.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestRefreshAndRevoke(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	uc := newUseCase(t, &now)
	login, err := uc.CreateSession(ctx, "u1", time.Hour)
	require.NoError(t, err)

	now = now.Add(30 * time.Minute)
	_, err = uc.RefreshSession(ctx, "u2", login.Session.ID, time.Hour)
	require.ErrorIs(t, err, domain.ErrPermissionDenied)

	refreshed, err := uc.RefreshSession(ctx, "u1", login.Session.ID, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), refreshed.Session.ExpiresAt)
	assert.NotEmpty(t, refreshed.Token)

	now = now.Add(45 * time.Minute)
	stored, err := uc.GetSession(ctx, login.Session.ID)
	require.NoError(t, err, "refreshed expiry is persisted")
	assert.Equal(t, refreshed.Session.ExpiresAt, stored.ExpiresAt)

	require.ErrorIs(t, uc.RevokeSession(ctx, "u2", login.Session.ID), domain.ErrPermissionDenied)
	_, err = uc.GetSession(ctx, login.Session.ID)
	require.NoError(t, err, "another user cannot revoke the session")

	require.NoError(t, uc.RevokeSession(ctx, "u1", login.Session.ID))
	require.NoError(t, uc.RevokeSession(ctx, "u1", login.Session.ID), "revoking twice is a no-op")
	_, err = uc.RefreshSession(ctx, "u1", login.Session.ID, time.Hour)
	require.ErrorIs(t, err, domain.ErrSessionNotFound)
}
