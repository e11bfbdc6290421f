package transfer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	apperrors "turapay/internal/errors"
	"turapay/internal/models"
	"turapay/internal/repositories"
	"turapay/internal/services/fee"
	"turapay/internal/services/settings"

	"gorm.io/gorm"
)

const (
	defaultCurrency = "USD"
	recentWindow    = 24 * time.Hour
)

// service implements the transfer Service interface.
type service struct {
	db            *gorm.DB
	transactions  repositories.TransactionRepository
	users         repositories.UserRepository
	settings      repositories.SettingRepository
	rates         RateProvider
	localCurrency string
}

// NewService creates a new transfer service instance.
func NewService(
	db *gorm.DB,
	transactions repositories.TransactionRepository,
	users repositories.UserRepository,
	settingRepo repositories.SettingRepository,
	rates RateProvider,
	localCurrency string,
) Service {
	return &service{
		db:            db,
		transactions:  transactions,
		users:         users,
		settings:      settingRepo,
		rates:         rates,
		localCurrency: strings.ToUpper(localCurrency),
	}
}

func (s *service) currencies(currency, payoutCurrency string) (string, string) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = defaultCurrency
	}
	payoutCurrency = strings.ToUpper(strings.TrimSpace(payoutCurrency))
	if payoutCurrency == "" {
		payoutCurrency = s.localCurrency
	}
	return currency, payoutCurrency
}

func (s *service) Quote(ctx context.Context, amount float64, currency, payoutCurrency string) (*Quote, error) {
	if amount <= 0 {
		return nil, apperrors.ErrInvalidAmount
	}
	currency, payoutCurrency = s.currencies(currency, payoutCurrency)

	rate, err := s.rates.Convert(ctx, currency, payoutCurrency)
	if err != nil {
		return nil, err
	}
	values, err := settings.Load(ctx, s.settings)
	if err != nil {
		return nil, err
	}

	return &Quote{
		Quote:          fee.Compute(amount, values.FeePercentage),
		Currency:       currency,
		ExchangeRate:   rate,
		PayoutAmount:   fee.Payout(amount, rate),
		PayoutCurrency: payoutCurrency,
	}, nil
}

// Create checks the sender's limits and inserts a pending record in one
// database transaction. The exchange rate is snapshotted before it opens.
func (s *service) Create(ctx context.Context, senderID uint, req CreateRequest) (*models.Transaction, error) {
	if req.Amount <= 0 {
		return nil, apperrors.ErrInvalidAmount
	}
	currency, payoutCurrency := s.currencies(req.Currency, req.PayoutCurrency)

	rate, err := s.rates.Convert(ctx, currency, payoutCurrency)
	if err != nil {
		return nil, err
	}

	payoutMethod := req.PayoutMethod
	if payoutMethod == "" {
		payoutMethod = models.PayoutMobileMoney
	}

	var record *models.Transaction
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sender, err := s.users.WithTx(tx).GetByID(ctx, senderID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return apperrors.ErrUserNotFound
			}
			return fmt.Errorf("failed to load sender: %w", err)
		}

		values, err := settings.Load(ctx, s.settings.WithTx(tx))
		if err != nil {
			return err
		}

		if !sender.Verified && req.Amount > values.UnverifiedSendLimit {
			return apperrors.ErrUnverifiedLimitExceeded.WithMessage(fmt.Sprintf(
				"Unverified accounts can send up to %.2f %s. Verify your account to send more.",
				values.UnverifiedSendLimit, currency))
		}
		if req.Amount > values.MaxTransferLimit {
			return apperrors.ErrMaxLimitExceeded.WithMessage(fmt.Sprintf(
				"The maximum transfer amount is %.2f %s.", values.MaxTransferLimit, currency))
		}

		q := fee.Compute(req.Amount, values.FeePercentage)
		senderName := req.SenderName
		if senderName == "" {
			senderName = sender.Name
		}
		senderNumber := req.SenderNumber
		if senderNumber == "" {
			senderNumber = sender.Phone
		}

		record = &models.Transaction{
			SenderID:        senderID,
			ReceiverName:    strings.TrimSpace(req.ReceiverName),
			ReceiverPhone:   strings.TrimSpace(req.ReceiverPhone),
			ReceiverCountry: req.ReceiverCountry,
			Amount:          q.Amount,
			Fee:             q.Fee,
			TotalAmount:     q.TotalAmount,
			Currency:        currency,
			ExchangeRate:    rate,
			PayoutCurrency:  payoutCurrency,
			PayoutAmount:    fee.Payout(req.Amount, rate),
			PayoutMethod:    payoutMethod,
			Status:          models.StatusPending,
			SenderName:      senderName,
			SenderNumber:    senderNumber,

			CollectionReference: strings.TrimSpace(req.CollectionReference),
		}
		return s.transactions.WithTx(tx).Create(ctx, record)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Transfer %s created by user %d: %.2f %s (fee %.2f, rate %.4f)",
		record.ID, senderID, record.Amount, record.Currency, record.Fee, record.ExchangeRate)
	return record, nil
}

func (s *service) Get(ctx context.Context, id string, senderID uint) (*models.Transaction, error) {
	tx, err := s.transactions.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, err
	}
	if senderID != 0 && tx.SenderID != senderID {
		return nil, apperrors.ErrTransactionNotFound
	}
	return tx, nil
}

func (s *service) ListForSender(ctx context.Context, senderID uint, recent bool, limit, offset int) ([]models.Transaction, int64, error) {
	var since *time.Time
	if recent {
		t := time.Now().Add(-recentWindow)
		since = &t
	}
	return s.transactions.ListBySender(ctx, senderID, since, limit, offset)
}

func (s *service) List(ctx context.Context, status models.TransactionStatus, limit, offset int) ([]models.Transaction, int64, error) {
	return s.transactions.List(ctx, status, limit, offset)
}

func (s *service) AttachProof(ctx context.Context, id string, senderID uint, url string) (*models.Transaction, error) {
	if _, err := s.Get(ctx, id, senderID); err != nil {
		return nil, err
	}

	rows, err := s.transactions.UpdateStatus(ctx, id, models.StatusPending, models.StatusPending,
		map[string]interface{}{"payment_proof_url": url})
	if err != nil {
		return nil, fmt.Errorf("failed to attach proof: %w", err)
	}
	if rows == 0 {
		return nil, apperrors.ErrProofNotAllowed
	}
	return s.Get(ctx, id, senderID)
}

func (s *service) Transition(ctx context.Context, id string, expected, next models.TransactionStatus, fields map[string]interface{}) (*models.Transaction, error) {
	if !next.Valid() || !expected.CanTransitionTo(next) {
		return nil, apperrors.ErrInvalidTransition
	}

	rows, err := s.transactions.UpdateStatus(ctx, id, expected, next, fields)
	if err != nil {
		return nil, fmt.Errorf("failed to update transaction %s: %w", id, err)
	}
	if rows == 0 {
		if _, err := s.Get(ctx, id, 0); err != nil {
			return nil, err
		}
		return nil, apperrors.ErrStatusConflict
	}

	log.Printf("Transaction %s: %s -> %s", id, expected, next)
	return s.Get(ctx, id, 0)
}

func (s *service) Advance(ctx context.Context, id string, next models.TransactionStatus, fields map[string]interface{}) (*models.Transaction, bool, error) {
	current, err := s.Get(ctx, id, 0)
	if err != nil {
		return nil, false, err
	}
	if current.Status == next {
		return current, false, nil
	}

	updated, err := s.Transition(ctx, id, current.Status, next, fields)
	if err != nil {
		return nil, false, err
	}
	return updated, true, nil
}
