package models

import "github.com/golang-jwt/jwt/v5"

// Application permissions
const (
	// Admin permissions
	PermissionReadAdmin  = "admin:read"
	PermissionWriteAdmin = "admin:write"

	// Sender permissions
	PermissionTransferRead  = "transfer:read"
	PermissionTransferWrite = "transfer:write"
	PermissionPaymentWrite  = "payment:write"
	PermissionKYCWrite      = "kyc:write"
	PermissionSettingsRead  = "settings:read"
)

type UserClaims struct {
	jwt.RegisteredClaims
	UserID       uint     `json:"user_id"`
	Email        string   `json:"email"`
	Role         string   `json:"role"`
	Permissions  []string `json:"permissions"`
	TokenVersion int      `json:"token_version"`
}

// HasPermission checks if the claims include a specific permission
func (c *UserClaims) HasPermission(permission string) bool {
	for _, p := range c.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// GetDefaultPermissions returns default permissions based on role
func GetDefaultPermissions(role string) []string {
	switch role {
	case RoleAdmin:
		return []string{
			PermissionTransferRead,
			PermissionTransferWrite,
			PermissionPaymentWrite,
			PermissionKYCWrite,
			PermissionSettingsRead,
			PermissionReadAdmin,
			PermissionWriteAdmin,
		}
	case RoleUser:
		return []string{
			PermissionTransferRead,
			PermissionTransferWrite,
			PermissionPaymentWrite,
			PermissionKYCWrite,
			PermissionSettingsRead,
		}
	default:
		return []string{}
	}
}
