package services

import (
	"context"
	"testing"
	"time"

	"github.com/SAP-F-2025/exam-attempt-service/internal/auth"
	"github.com/SAP-F-2025/exam-attempt-service/internal/models"
	"github.com/SAP-F-2025/exam-attempt-service/internal/validator"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthFixture(t *testing.T) (*testStore, *auth.TokenManager, AuthService) {
	store := newTestStore(t)
	tokens := auth.NewTokenManager("test-secret", 15*time.Minute, 24*time.Hour)
	return store, tokens, NewAuthService(store.repo, tokens, validator.New(), discardLogger())
}

func TestAuthService_RegisterAndLogin(t *testing.T) {
	store, tokens, service := newAuthFixture(t)
	ctx := context.Background()

	registered, err := service.Register(ctx, &RegisterRequest{
		Email: "Student@Example.com", Password: "correct-horse", FullName: "Student One",
	})
	require.NoError(t, err)
	assert.Equal(t, "student@example.com", registered.User.Email)
	assert.Equal(t, models.RoleStudent, registered.User.Role)
	assert.Equal(t, "Bearer", registered.Tokens.TokenType)

	token, err := tokens.Parse(registered.Tokens.AccessToken)
	require.NoError(t, err)
	access, ok := token.(auth.AccessToken)
	require.True(t, ok)
	assert.Equal(t, registered.User.ID, access.Subject)
	assert.Equal(t, models.RoleStudent, access.Role)

	_, err = service.Register(ctx, &RegisterRequest{Email: "STUDENT@example.com", Password: "another-pass"})
	assert.ErrorIs(t, err, ErrEmailTaken)

	_, err = service.Register(ctx, &RegisterRequest{Email: "short@example.com", Password: "short"})
	assert.True(t, IsValidation(err))

	loggedIn, err := service.Login(ctx, &LoginRequest{Email: "student@example.com", Password: "correct-horse"})
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, loggedIn.User.ID)
	assert.NotNil(t, loggedIn.User.LastLoginAt)

	_, err = service.Login(ctx, &LoginRequest{Email: "student@example.com", Password: "wrong-horse"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = service.Login(ctx, &LoginRequest{Email: "nobody@example.com", Password: "correct-horse"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	require.NoError(t, store.db.Model(&models.User{}).Where("id = ?", registered.User.ID).Update("is_active", false).Error)
	_, err = service.Login(ctx, &LoginRequest{Email: "student@example.com", Password: "correct-horse"})
	assert.ErrorIs(t, err, ErrInactiveUser)
	assert.True(t, IsUnauthorized(err))
}

func TestAuthService_Refresh(t *testing.T) {
	store, _, service := newAuthFixture(t)
	ctx := context.Background()

	registered, err := service.Register(ctx, &RegisterRequest{Email: "s@example.com", Password: "password-1"})
	require.NoError(t, err)

	pair, err := service.Refresh(ctx, &RefreshRequest{RefreshToken: registered.Tokens.RefreshToken})
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)

	_, err = service.Refresh(ctx, &RefreshRequest{RefreshToken: registered.Tokens.AccessToken})
	assert.True(t, IsUnauthorized(err))

	_, err = service.Refresh(ctx, &RefreshRequest{RefreshToken: "not-a-token"})
	assert.True(t, IsUnauthorized(err))

	// a promoted user gets the new role on the next refresh
	require.NoError(t, store.db.Model(&models.User{}).Where("id = ?", registered.User.ID).Update("role", models.RoleAdmin).Error)
	pair, err = service.Refresh(ctx, &RefreshRequest{RefreshToken: registered.Tokens.RefreshToken})
	require.NoError(t, err)
	token, err := auth.NewTokenManager("test-secret", time.Minute, time.Hour).Parse(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, token.(auth.AccessToken).Role)

	require.NoError(t, store.db.Model(&models.User{}).Where("id = ?", registered.User.ID).Update("is_active", false).Error)
	_, err = service.Refresh(ctx, &RefreshRequest{RefreshToken: registered.Tokens.RefreshToken})
	assert.ErrorIs(t, err, ErrInactiveUser)
}

func TestAuthService_EnsureAdmin(t *testing.T) {
	store, _, service := newAuthFixture(t)
	ctx := context.Background()

	require.NoError(t, service.EnsureAdmin(ctx, "admin@example.com", "admin-password"))
	require.NoError(t, service.EnsureAdmin(ctx, "Admin@Example.com", "other-password"))
	assert.Equal(t, int64(1), store.count(&models.User{}, "role = ?", models.RoleAdmin))

	loggedIn, err := service.Login(ctx, &LoginRequest{Email: "admin@example.com", Password: "admin-password"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, loggedIn.User.Role)
}

func TestAuthService_Me(t *testing.T) {
	store, _, service := newAuthFixture(t)
	u := store.user(models.RoleStudent)

	me, err := service.Me(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.Email, me.Email)

	_, err = service.Me(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestAuthService_UpdateProfile(t *testing.T) {
	_, _, service := newAuthFixture(t)
	ctx := context.Background()

	registered, err := service.Register(ctx, &RegisterRequest{Email: "p@example.com", Password: "password-1", FullName: "Old"})
	require.NoError(t, err)
	id := registered.User.ID

	name := "  New Name "
	user, err := service.UpdateProfile(ctx, id, &UpdateProfileRequest{FullName: &name})
	require.NoError(t, err)
	assert.Equal(t, "New Name", user.FullName)

	next := "password-2"
	_, err = service.UpdateProfile(ctx, id, &UpdateProfileRequest{Password: &next})
	assert.True(t, IsValidation(err), "current password is required")

	_, err = service.UpdateProfile(ctx, id, &UpdateProfileRequest{Password: &next, CurrentPassword: "wrong-pass"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	weak := "short"
	_, err = service.UpdateProfile(ctx, id, &UpdateProfileRequest{Password: &weak, CurrentPassword: "password-1"})
	assert.True(t, IsValidation(err))

	_, err = service.UpdateProfile(ctx, id, &UpdateProfileRequest{Password: &next, CurrentPassword: "password-1"})
	require.NoError(t, err)

	_, err = service.Login(ctx, &LoginRequest{Email: "p@example.com", Password: "password-1"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = service.Login(ctx, &LoginRequest{Email: "p@example.com", Password: "password-2"})
	require.NoError(t, err)

	_, err = service.UpdateProfile(ctx, uuid.New(), &UpdateProfileRequest{FullName: &name})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestAuthService_Deactivate(t *testing.T) {
	_, _, service := newAuthFixture(t)
	ctx := context.Background()

	registered, err := service.Register(ctx, &RegisterRequest{Email: "d@example.com", Password: "password-1"})
	require.NoError(t, err)

	require.NoError(t, service.Deactivate(ctx, registered.User.ID))

	_, err = service.Login(ctx, &LoginRequest{Email: "d@example.com", Password: "password-1"})
	assert.ErrorIs(t, err, ErrInactiveUser)
	_, err = service.Refresh(ctx, &RefreshRequest{RefreshToken: registered.Tokens.RefreshToken})
	assert.ErrorIs(t, err, ErrInactiveUser)

	name := "Ghost"
	_, err = service.UpdateProfile(ctx, registered.User.ID, &UpdateProfileRequest{FullName: &name})
	assert.ErrorIs(t, err, ErrInactiveUser)

	assert.ErrorIs(t, service.Deactivate(ctx, uuid.New()), ErrUserNotFound)
}
