package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"turapay/internal/models"
	"turapay/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	accessSecret  = "access-secret"
	refreshSecret = "refresh-secret"
)

type versionTable map[uint]int

func (v versionTable) GetUserTokenVersion(_ context.Context, id uint) (int, error) {
	version, ok := v[id]
	if !ok {
		return 0, errors.New("record not found")
	}
	return version, nil
}

func token(t *testing.T, userID uint, role string, version int) string {
	t.Helper()
	access, _, err := utils.GenerateTokens(&models.UserClaims{
		UserID:       userID,
		Role:         role,
		TokenVersion: version,
		Permissions:  models.GetDefaultPermissions(role),
	}, accessSecret, refreshSecret)
	require.NoError(t, err)
	return access
}

func newApp(versions versionTable) *fiber.App {
	m := NewAuthMiddleware(versions, accessSecret)
	app := fiber.New()
	app.Get("/me", m.Handler, func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"user_id": c.Locals("userID")})
	})
	app.Get("/admin", m.Handler, AdminAuthMiddleware, func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	app.Get("/settings", m.Handler, HasPermission(models.PermissionSettingsRead), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	return app
}

func TestAuthMiddleware(t *testing.T) {
	app := newApp(versionTable{1: 1, 2: 3, 9: 1})

	tests := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"missing header", "/me", "", http.StatusUnauthorized},
		{"not bearer", "/me", "Token abc", http.StatusUnauthorized},
		{"garbage token", "/me", "Bearer not-a-jwt", http.StatusUnauthorized},
		{"valid", "/me", "Bearer " + token(t, 1, models.RoleUser, 1), http.StatusOK},
		{"revoked version", "/me", "Bearer " + token(t, 2, models.RoleUser, 2), http.StatusUnauthorized},
		{"unknown user", "/me", "Bearer " + token(t, 5, models.RoleUser, 1), http.StatusUnauthorized},
		{"user on admin route", "/admin", "Bearer " + token(t, 1, models.RoleUser, 1), http.StatusForbidden},
		{"admin on admin route", "/admin", "Bearer " + token(t, 9, models.RoleAdmin, 1), http.StatusNoContent},
		{"permission granted", "/settings", "Bearer " + token(t, 1, models.RoleUser, 1), http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestAuthMiddleware_RejectsRefreshToken(t *testing.T) {
	app := newApp(versionTable{1: 1})
	_, refresh, err := utils.GenerateTokens(&models.UserClaims{UserID: 1, Role: models.RoleUser, TokenVersion: 1}, accessSecret, refreshSecret)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+refresh)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
