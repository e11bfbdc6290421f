// Package admin implements the operator review surface.
package admin

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	apperrors "turapay/internal/errors"
	"turapay/internal/models"
	"turapay/internal/repositories"
	"turapay/internal/services/notification"
)

// ApproveRequest confirms that the sender's deposit was received.
type ApproveRequest struct {
	TID            string `json:"tid" validate:"required,max=128"`
	SenderName     string `json:"sender_name" validate:"required,max=120"`
	SenderNumber   string `json:"sender_number" validate:"omitempty,max=32"`
	Notes          string `json:"notes" validate:"omitempty,max=1000"`
	Status         string `json:"status" validate:"omitempty,oneof=deposited completed paid"`
	ExpectedStatus string `json:"expected_status" validate:"omitempty,oneof=pending processing"`
}

type RejectRequest struct {
	Reason         string `json:"reason" validate:"required,max=1000"`
	ExpectedStatus string `json:"expected_status" validate:"omitempty,oneof=pending processing"`
}

// TransferService is the status-write surface of the transfer service.
type TransferService interface {
	Transition(ctx context.Context, id string, expected, next models.TransactionStatus, fields map[string]interface{}) (*models.Transaction, error)
}

type Service interface {
	Approve(ctx context.Context, id string, adminID uint, req ApproveRequest) (*models.Transaction, error)
	Reject(ctx context.Context, id string, adminID uint, req RejectRequest) (*models.Transaction, error)
	ListUsers(ctx context.Context, limit, offset int) ([]models.User, int64, error)
	SetUserVerified(ctx context.Context, userID uint, verified bool) (*models.User, error)
}

type service struct {
	transfers TransferService
	users     repositories.UserRepository
	notifier  notification.Notifier
}

func NewService(transfers TransferService, users repositories.UserRepository, notifier notification.Notifier) Service {
	return &service{
		transfers: transfers,
		users:     users,
		notifier:  notifier,
	}
}

func expectedOrPending(s string) models.TransactionStatus {
	if s == "" {
		return models.StatusPending
	}
	return models.TransactionStatus(s)
}

// Approve moves the transfer to deposited, or to paid/completed when the
// caller asks for it, only if it is still in the expected status.
func (s *service) Approve(ctx context.Context, id string, adminID uint, req ApproveRequest) (*models.Transaction, error) {
	next := models.StatusDeposited
	if req.Status != "" {
		next = models.TransactionStatus(req.Status)
	}
	switch next {
	case models.StatusDeposited, models.StatusPaid, models.StatusCompleted:
	default:
		return nil, apperrors.ErrInvalidTransition
	}

	fields := map[string]interface{}{
		"tid":         req.TID,
		"sender_name": req.SenderName,
		"admin_notes": req.Notes,
		"reviewed_by": adminID,
	}
	if req.SenderNumber != "" {
		fields["sender_number"] = req.SenderNumber
	}
	if next != models.StatusDeposited {
		fields["payment_date"] = time.Now()
	}

	tx, err := s.transfers.Transition(ctx, id, expectedOrPending(req.ExpectedStatus), next, fields)
	if err != nil {
		return nil, err
	}

	log.Printf("Admin %d approved transaction %s as %s (tid %s)", adminID, id, next, req.TID)
	s.notify(ctx, tx)
	return tx, nil
}

func (s *service) Reject(ctx context.Context, id string, adminID uint, req RejectRequest) (*models.Transaction, error) {
	tx, err := s.transfers.Transition(ctx, id, expectedOrPending(req.ExpectedStatus), models.StatusRejected,
		map[string]interface{}{
			"rejection_reason": req.Reason,
			"reviewed_by":      adminID,
		})
	if err != nil {
		return nil, err
	}

	log.Printf("Admin %d rejected transaction %s: %s", adminID, id, req.Reason)
	s.notify(ctx, tx)
	return tx, nil
}

func (s *service) notify(ctx context.Context, tx *models.Transaction) {
	if s.notifier == nil {
		return
	}
	user, err := s.users.GetByID(ctx, tx.SenderID)
	if err != nil {
		log.Printf("Could not load sender %d for transaction %s: %v", tx.SenderID, tx.ID, err)
		return
	}
	_ = s.notifier.TransferReviewed(ctx, user, tx)
}

func (s *service) ListUsers(ctx context.Context, limit, offset int) ([]models.User, int64, error) {
	return s.users.List(ctx, limit, offset)
}

func (s *service) SetUserVerified(ctx context.Context, userID uint, verified bool) (*models.User, error) {
	if err := s.users.SetVerified(ctx, userID, verified); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to update user %d: %w", userID, err)
	}
	log.Printf("User %d verified=%t", userID, verified)
	return s.users.GetByID(ctx, userID)
}
