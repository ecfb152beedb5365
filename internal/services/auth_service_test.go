package services

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recipe-studio/catalogue/internal/models"
	"github.com/recipe-studio/catalogue/internal/repository"
	"github.com/recipe-studio/catalogue/internal/testutil"
	appErr "github.com/recipe-studio/catalogue/pkg/errors"
)

var testSecret = []byte("test-secret")

func newAuthService(t *testing.T) AuthService {
	t.Helper()
	return NewAuthService(repository.NewUserRepository(testutil.NewDB(t)), testSecret, time.Hour)
}

func TestRegisterNormalizesEmail(t *testing.T) {
	svc := newAuthService(t)
	ctx := context.Background()

	cases := [][2]string{
		{"test1@EXAMPLE.com", "test1@example.com"},
		{"Test2@Example.com", "Test2@example.com"},
		{"TEST3@EXAMPLE.COM", "TEST3@example.com"},
		{"test4@example.COM", "test4@example.com"},
	}
	for _, c := range cases {
		u, err := svc.Register(ctx, c[0], "sample123", "Test")
		require.NoError(t, err, c[0])
		assert.Equal(t, c[1], u.Email)
		assert.True(t, u.IsActive)
		assert.False(t, u.IsStaff)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc := newAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "", "sample123", "Test")
	assert.True(t, appErr.IsCode(err, appErr.CodeInvalid))

	_, err = svc.Register(ctx, "short@example.com", "pw", "Test")
	var ae *appErr.AppError
	require.ErrorAs(t, err, &ae)
	assert.Contains(t, ae.Fields, "password")

	_, err = svc.Register(ctx, "dup@example.com", "sample123", "Test")
	require.NoError(t, err)
	_, err = svc.Register(ctx, "dup@EXAMPLE.com", "sample123", "Test")
	assert.True(t, appErr.IsCode(err, appErr.CodeConflict))
}

func TestCreateSuperuser(t *testing.T) {
	svc := newAuthService(t)
	u, err := svc.CreateSuperuser(context.Background(), "admin@example.com", "test123", "Admin")
	require.NoError(t, err)
	assert.True(t, u.IsSuperuser)
	assert.True(t, u.IsStaff)
}

func TestLogin(t *testing.T) {
	svc := newAuthService(t)
	ctx := context.Background()
	u, err := svc.Register(ctx, "login@example.com", "goodpass", "Test")
	require.NoError(t, err)

	token, got, err := svc.Login(ctx, "login@EXAMPLE.com", "goodpass")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, time.Hour, token.ExpiresIn)

	parsed, err := jwt.Parse(token.AccessToken, func(*jwt.Token) (any, error) { return testSecret, nil })
	require.NoError(t, err)
	sub, err := parsed.Claims.GetSubject()
	require.NoError(t, err)
	assert.Equal(t, u.ID.String(), sub)

	_, _, err = svc.Login(ctx, "login@example.com", "badpass")
	assert.True(t, appErr.IsCode(err, appErr.CodeUnauthorized))

	_, _, err = svc.Login(ctx, "nobody@example.com", "goodpass")
	assert.True(t, appErr.IsCode(err, appErr.CodeUnauthorized))
}

func TestLoginInactiveUser(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewAuthService(repository.NewUserRepository(db), testSecret, time.Hour)
	ctx := context.Background()
	u, err := svc.Register(ctx, "inactive@example.com", "goodpass", "Test")
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.User{}).Where("id = ?", u.ID).Update("is_active", false).Error)

	_, _, err = svc.Login(ctx, "inactive@example.com", "goodpass")
	assert.True(t, appErr.IsCode(err, appErr.CodeUnauthorized))
}

func TestActiveUser(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewAuthService(repository.NewUserRepository(db), testSecret, time.Hour)
	ctx := context.Background()

	active := testutil.CreateUser(t, db, "active@example.com")
	got, err := svc.ActiveUser(ctx, active.ID)
	require.NoError(t, err)
	assert.Equal(t, active.ID, got.ID)

	inactive := testutil.CreateUser(t, db, "inactive@example.com")
	require.NoError(t, db.Model(&models.User{}).Where("id = ?", inactive.ID).Update("is_active", false).Error)
	_, err = svc.ActiveUser(ctx, inactive.ID)
	assert.True(t, appErr.IsCode(err, appErr.CodeUnauthorized))

	require.NoError(t, db.Delete(&models.User{}, "id = ?", active.ID).Error)
	_, err = svc.ActiveUser(ctx, active.ID)
	assert.True(t, appErr.IsCode(err, appErr.CodeUnauthorized))
}

func TestUpdateProfile(t *testing.T) {
	svc := newAuthService(t)
	ctx := context.Background()
	u, err := svc.Register(ctx, "me@example.com", "oldpass", "Old Name")
	require.NoError(t, err)

	updated, err := svc.UpdateProfile(ctx, u.ID, &UpdateProfileInput{Name: ptr("New Name"), Password: ptr("newpassword123")})
	require.NoError(t, err)
	assert.Equal(t, "New Name", updated.Name)

	_, _, err = svc.Login(ctx, "me@example.com", "newpassword123")
	require.NoError(t, err)

	_, err = svc.UpdateProfile(ctx, u.ID, &UpdateProfileInput{Password: ptr("abc")})
	assert.True(t, appErr.IsCode(err, appErr.CodeInvalid))
}
