package auth

import "errors"

var (
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrUserExists          = errors.New("user with this email or phone already exists")
	ErrWeakPassword        = errors.New("password must be at least 8 characters and contain a number and a special character")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrAccountDisabled     = errors.New("account is disabled")
)
