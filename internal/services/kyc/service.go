// Package kyc handles identity document submission and review.
package kyc

import (
	"context"
	"errors"
	"fmt"
	"log"

	apperrors "turapay/internal/errors"
	"turapay/internal/models"
	"turapay/internal/repositories"

	"gorm.io/gorm"
)

type SubmitRequest struct {
	DocumentType string `json:"document_type" validate:"required,oneof=passport national_id drivers_license"`
	DocumentURL  string `json:"document_url" validate:"required,url"`
}

type Service interface {
	Submit(ctx context.Context, userID uint, req SubmitRequest) (*models.KYCVerification, error)
	Latest(ctx context.Context, userID uint) (*models.KYCVerification, error)
	List(ctx context.Context, status string, limit, offset int) ([]models.KYCVerification, int64, error)
	Approve(ctx context.Context, id, adminID uint) (*models.KYCVerification, error)
	Reject(ctx context.Context, id, adminID uint, reason string) (*models.KYCVerification, error)
}

type service struct {
	db    *gorm.DB
	kyc   repositories.KYCRepository
	users repositories.UserRepository
}

func NewService(db *gorm.DB, kyc repositories.KYCRepository, users repositories.UserRepository) Service {
	return &service{db: db, kyc: kyc, users: users}
}

func (s *service) Submit(ctx context.Context, userID uint, req SubmitRequest) (*models.KYCVerification, error) {
	record := &models.KYCVerification{
		UserID:       userID,
		DocumentType: req.DocumentType,
		DocumentURL:  req.DocumentURL,
		Status:       models.KYCStatusPending,
	}
	if err := s.kyc.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to save kyc submission: %w", err)
	}
	log.Printf("KYC %d submitted by user %d", record.ID, userID)
	return record, nil
}

func (s *service) Latest(ctx context.Context, userID uint) (*models.KYCVerification, error) {
	record, err := s.kyc.LatestForUser(ctx, userID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, apperrors.ErrKYCNotFound
	}
	return record, err
}

func (s *service) List(ctx context.Context, status string, limit, offset int) ([]models.KYCVerification, int64, error) {
	return s.kyc.List(ctx, status, limit, offset)
}

// Approve marks a pending submission approved and the owner verified together.
func (s *service) Approve(ctx context.Context, id, adminID uint) (*models.KYCVerification, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		kycRepo := s.kyc.WithTx(tx)
		if err := review(ctx, kycRepo, id, models.KYCStatusApproved, map[string]interface{}{"reviewed_by": adminID}); err != nil {
			return err
		}
		record, err := kycRepo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		return s.users.WithTx(tx).SetVerified(ctx, record.UserID, true)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("KYC %d approved by admin %d", id, adminID)
	return s.kyc.FindByID(ctx, id)
}

func (s *service) Reject(ctx context.Context, id, adminID uint, reason string) (*models.KYCVerification, error) {
	err := review(ctx, s.kyc, id, models.KYCStatusRejected, map[string]interface{}{
		"reviewed_by":      adminID,
		"rejection_reason": reason,
	})
	if err != nil {
		return nil, err
	}

	log.Printf("KYC %d rejected by admin %d: %s", id, adminID, reason)
	return s.kyc.FindByID(ctx, id)
}

func review(ctx context.Context, repo repositories.KYCRepository, id uint, status string, fields map[string]interface{}) error {
	rows, err := repo.Review(ctx, id, status, fields)
	if err != nil {
		return fmt.Errorf("failed to review kyc %d: %w", id, err)
	}
	if rows > 0 {
		return nil
	}
	if _, err := repo.FindByID(ctx, id); errors.Is(err, repositories.ErrNotFound) {
		return apperrors.ErrKYCNotFound
	}
	return apperrors.ErrKYCAlreadyReviewed
}
