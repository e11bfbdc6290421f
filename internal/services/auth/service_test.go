package auth_test

import (
	"context"
	"testing"

	"turapay/internal/repositories"
	"turapay/internal/services/auth"
	"turapay/internal/testutil"
	"turapay/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func newService(t *testing.T) (auth.Service, *gorm.DB) {
	t.Helper()
	db := testutil.NewDB(t)
	users := repositories.NewUserRepository(db)
	return auth.NewServiceWithCost(users, "access", "refresh", bcrypt.MinCost), db
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, auth.RegisterRequest{
		Email: "Jane@TuraPay.test", Phone: "+12025550100", Name: "Jane", Password: "Passw0rd!",
	})
	require.NoError(t, err)
	assert.Equal(t, "jane@turapay.test", user.Email)
	assert.False(t, user.Verified)

	_, err = svc.Register(ctx, auth.RegisterRequest{
		Email: "jane@turapay.test", Phone: "+12025550199", Name: "Jane", Password: "Passw0rd!",
	})
	assert.ErrorIs(t, err, auth.ErrUserExists)

	logged, access, refresh, err := svc.Login(ctx, "jane@turapay.test", "", "Passw0rd!", "127.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, user.ID, logged.ID)
	assert.NotNil(t, logged.LastLoginAt)

	_, claims, err := utils.ParseToken(access, "access")
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)

	newAccess, _, err := svc.RefreshTokens(ctx, refresh)
	require.NoError(t, err)
	assert.NotEmpty(t, newAccess)
}

func TestLogin_WrongPassword(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()
	u := testutil.CreateUser(t, db, "x@turapay.test", false)

	_, _, _, err := svc.Login(ctx, "x@turapay.test", "", "wrong-pass1!", "")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	stored, err := svc.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.FailedLoginAttempts)

	_, _, _, err = svc.Login(ctx, "nobody@turapay.test", "", "Passw0rd!", "")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestRegister_WeakPassword(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.Register(context.Background(), auth.RegisterRequest{
		Email: "weak@turapay.test", Phone: "+260970000000", Name: "W", Password: "password",
	})
	assert.ErrorIs(t, err, auth.ErrWeakPassword)
}

func TestLogoutInvalidatesRefreshToken(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, auth.RegisterRequest{
		Email: "out@turapay.test", Phone: "+260971111111", Name: "O", Password: "Passw0rd!",
	})
	require.NoError(t, err)
	_, _, refresh, err := svc.Login(ctx, "", "+260971111111", "Passw0rd!", "")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, user.ID))

	_, _, err = svc.RefreshTokens(ctx, refresh)
	assert.Error(t, err)

	version, err := svc.GetUserTokenVersion(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, version)
}
