package repositories

import (
	"context"
	"time"

	"turapay/internal/models"

	"gorm.io/gorm"
)

// TransactionRepository persists transfer records.
type TransactionRepository interface {
	Create(ctx context.Context, tx *models.Transaction) error
	FindByID(ctx context.Context, id string) (*models.Transaction, error)
	FindByPaymentReference(ctx context.Context, ref string) (*models.Transaction, error)
	ListBySender(ctx context.Context, senderID uint, since *time.Time, limit, offset int) ([]models.Transaction, int64, error)
	List(ctx context.Context, status models.TransactionStatus, limit, offset int) ([]models.Transaction, int64, error)
	// ListAwaitingPoll returns processing payouts with a gateway reference,
	// untouched since before, that have no open or exhausted poll entry.
	ListAwaitingPoll(ctx context.Context, before time.Time, limit int) ([]models.Transaction, error)
	// UpdateStatus writes next only if the row is still in expected and
	// returns the number of rows changed.
	UpdateStatus(ctx context.Context, id string, expected, next models.TransactionStatus, fields map[string]interface{}) (int64, error)
	UpdateFields(ctx context.Context, id string, fields map[string]interface{}) error
	WithTx(tx *gorm.DB) TransactionRepository
}

type transactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

func (r *transactionRepository) WithTx(tx *gorm.DB) TransactionRepository {
	return &transactionRepository{db: tx}
}

func (r *transactionRepository) Create(ctx context.Context, tx *models.Transaction) error {
	return r.db.WithContext(ctx).Create(tx).Error
}

func (r *transactionRepository) FindByID(ctx context.Context, id string) (*models.Transaction, error) {
	var tx models.Transaction
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&tx).Error; err != nil {
		return nil, notFound(err)
	}
	return &tx, nil
}

func (r *transactionRepository) FindByPaymentReference(ctx context.Context, ref string) (*models.Transaction, error) {
	var tx models.Transaction
	if err := r.db.WithContext(ctx).Where("payment_reference = ?", ref).First(&tx).Error; err != nil {
		return nil, notFound(err)
	}
	return &tx, nil
}

func (r *transactionRepository) ListBySender(ctx context.Context, senderID uint, since *time.Time, limit, offset int) ([]models.Transaction, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Transaction{}).Where("sender_id = ?", senderID)
	if since != nil {
		query = query.Where("created_at >= ?", *since)
	}

	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var transactions []models.Transaction
	err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&transactions).Error
	return transactions, total, err
}

func (r *transactionRepository) List(ctx context.Context, status models.TransactionStatus, limit, offset int) ([]models.Transaction, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Transaction{})
	if status != "" {
		query = query.Where("status = ?", string(status))
	}

	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var transactions []models.Transaction
	err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&transactions).Error
	return transactions, total, err
}

func (r *transactionRepository) ListAwaitingPoll(ctx context.Context, before time.Time, limit int) ([]models.Transaction, error) {
	polled := r.db.Model(&models.ReconciliationEntry{}).
		Select("transaction_id").
		Where("kind = ? AND state IN ?", models.ReconcileGatewayPoll, []string{models.ReconcileOpen, models.ReconcileExhausted})

	var transactions []models.Transaction
	err := r.db.WithContext(ctx).
		Where("status = ? AND payment_reference <> '' AND updated_at <= ?", string(models.StatusProcessing), before).
		Where("id NOT IN (?)", polled).
		Order("updated_at ASC").
		Limit(limit).
		Find(&transactions).Error
	return transactions, err
}

func (r *transactionRepository) UpdateStatus(ctx context.Context, id string, expected, next models.TransactionStatus, fields map[string]interface{}) (int64, error) {
	updates := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		updates[k] = v
	}
	updates["status"] = string(next)

	result := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("id = ? AND status = ?", id, string(expected)).
		Updates(updates)
	return result.RowsAffected, result.Error
}

func (r *transactionRepository) UpdateFields(ctx context.Context, id string, fields map[string]interface{}) error {
	result := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("id = ?", id).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
