package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"turapay/internal/models"
	"turapay/internal/repositories"
	"turapay/internal/utils"

	"golang.org/x/crypto/bcrypt"
)

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"required,min=7,max=20"`
	Name     string `json:"name" validate:"required,max=120"`
	Country  string `json:"country" validate:"omitempty,max=64"`
	Password string `json:"password" validate:"required,min=8"`
}

type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*models.User, error)
	Login(ctx context.Context, email, phone, password, ip string) (*models.User, string, string, error)
	RefreshTokens(ctx context.Context, refreshToken string) (string, string, error)
	Logout(ctx context.Context, userID uint) error
	ChangePassword(ctx context.Context, userID uint, oldPassword, newPassword string) error
	GetUserByID(ctx context.Context, userID uint) (*models.User, error)
	GetUserTokenVersion(ctx context.Context, userID uint) (int, error)
}

type service struct {
	userRepo      repositories.UserRepository
	accessSecret  string
	refreshSecret string
	bcryptCost    int
}

func NewService(userRepo repositories.UserRepository, accessSecret, refreshSecret string) Service {
	return &service{
		userRepo:      userRepo,
		accessSecret:  accessSecret,
		refreshSecret: refreshSecret,
		bcryptCost:    bcrypt.DefaultCost,
	}
}

// NewServiceWithCost lets tests hash with bcrypt.MinCost.
func NewServiceWithCost(userRepo repositories.UserRepository, accessSecret, refreshSecret string, cost int) Service {
	return &service{
		userRepo:      userRepo,
		accessSecret:  accessSecret,
		refreshSecret: refreshSecret,
		bcryptCost:    cost,
	}
}

func (s *service) Register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	phone := strings.TrimSpace(req.Phone)

	if !utils.StrongPassword(req.Password) {
		return nil, ErrWeakPassword
	}

	if _, err := s.userRepo.GetByEmail(ctx, email); err == nil {
		return nil, ErrUserExists
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if _, err := s.userRepo.GetByPhone(ctx, phone); err == nil {
		return nil, ErrUserExists
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("failed to check phone: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, errors.New("failed to hash password")
	}

	user := &models.User{
		Email:        email,
		Phone:        phone,
		Name:         strings.TrimSpace(req.Name),
		Country:      req.Country,
		Password:     string(hashed),
		Role:         models.RoleUser,
		Status:       "active",
		TokenVersion: 1,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	log.Printf("User %d registered (%s)", user.ID, user.Email)
	return user, nil
}

func (s *service) Login(ctx context.Context, email, phone, password, ip string) (*models.User, string, string, error) {
	user, err := s.getUserByIdentifier(ctx, email, phone)
	if err != nil {
		log.Printf("Login failed: User not found for identifier: %s", email+phone)
		return nil, "", "", ErrInvalidCredentials
	}

	if user.Status != "" && user.Status != "active" {
		return nil, "", "", ErrAccountDisabled
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		log.Printf("Login failed: Incorrect password for user ID: %d", user.ID)
		user.FailedLoginAttempts++
		if uerr := s.userRepo.Update(ctx, user); uerr != nil {
			log.Printf("Failed to record login attempt for user %d: %v", user.ID, uerr)
		}
		return nil, "", "", ErrInvalidCredentials
	}

	accessToken, refreshToken, err := s.issue(user)
	if err != nil {
		log.Println("Error generating tokens:", err)
		return nil, "", "", errors.New("error generating tokens")
	}

	now := time.Now()
	user.LastLoginAt = &now
	user.LastLoginIP = ip
	user.FailedLoginAttempts = 0
	if err := s.userRepo.Update(ctx, user); err != nil {
		log.Printf("Failed to record login for user %d: %v", user.ID, err)
	}

	return user, accessToken, refreshToken, nil
}

func (s *service) RefreshTokens(ctx context.Context, refreshToken string) (string, string, error) {
	_, claims, err := utils.ParseToken(refreshToken, s.refreshSecret)
	if err != nil {
		return "", "", ErrInvalidRefreshToken
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		return "", "", errors.New("user not found")
	}

	if user.TokenVersion != claims.TokenVersion {
		return "", "", errors.New("token version mismatch")
	}

	return s.issue(user)
}

// Logout bumps the token version, invalidating every outstanding token.
func (s *service) Logout(ctx context.Context, userID uint) error {
	return s.userRepo.IncrementTokenVersion(ctx, userID)
}

func (s *service) ChangePassword(ctx context.Context, userID uint, oldPassword, newPassword string) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return errors.New("failed to get user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(oldPassword)); err != nil {
		return errors.New("invalid old password")
	}

	if !utils.StrongPassword(newPassword) {
		return ErrWeakPassword
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.bcryptCost)
	if err != nil {
		return errors.New("failed to hash password")
	}

	user.Password = string(hashedPassword)
	user.TokenVersion++ // Invalidate existing tokens

	if err := s.userRepo.Update(ctx, user); err != nil {
		return errors.New("failed to update password")
	}

	return nil
}

func (s *service) GetUserByID(ctx context.Context, userID uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, userID)
}

func (s *service) GetUserTokenVersion(ctx context.Context, userID uint) (int, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return 0, err
	}
	return user.TokenVersion, nil
}

func (s *service) issue(user *models.User) (string, string, error) {
	return utils.GenerateTokens(&models.UserClaims{
		UserID:       user.ID,
		Email:        user.Email,
		Role:         user.Role,
		TokenVersion: user.TokenVersion,
		Permissions:  models.GetDefaultPermissions(user.Role),
	}, s.accessSecret, s.refreshSecret)
}

func (s *service) getUserByIdentifier(ctx context.Context, email, phone string) (*models.User, error) {
	if email != "" {
		return s.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	}
	return s.userRepo.GetByPhone(ctx, strings.TrimSpace(phone))
}
