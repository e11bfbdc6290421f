package repositories

import (
	"context"
	"time"

	"turapay/internal/models"

	"gorm.io/gorm"
)

type ReconciliationRepository interface {
	Create(ctx context.Context, entry *models.ReconciliationEntry) error
	Due(ctx context.Context, now time.Time, limit int) ([]models.ReconciliationEntry, error)
	// HasEntry reports whether an entry of kind exists for the transaction in
	// any of states.
	HasEntry(ctx context.Context, kind, transactionID string, states ...string) (bool, error)
	Save(ctx context.Context, entry *models.ReconciliationEntry) error
	List(ctx context.Context, state string, limit, offset int) ([]models.ReconciliationEntry, int64, error)
}

type reconciliationRepository struct {
	db *gorm.DB
}

func NewReconciliationRepository(db *gorm.DB) ReconciliationRepository {
	return &reconciliationRepository{db: db}
}

func (r *reconciliationRepository) Create(ctx context.Context, entry *models.ReconciliationEntry) error {
	if entry.State == "" {
		entry.State = models.ReconcileOpen
	}
	if entry.NextAttemptAt.IsZero() {
		entry.NextAttemptAt = time.Now()
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *reconciliationRepository) Due(ctx context.Context, now time.Time, limit int) ([]models.ReconciliationEntry, error) {
	var entries []models.ReconciliationEntry
	err := r.db.WithContext(ctx).
		Where("state = ? AND next_attempt_at <= ?", models.ReconcileOpen, now).
		Order("next_attempt_at ASC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

func (r *reconciliationRepository) HasEntry(ctx context.Context, kind, transactionID string, states ...string) (bool, error) {
	query := r.db.WithContext(ctx).Model(&models.ReconciliationEntry{}).
		Where("kind = ? AND transaction_id = ?", kind, transactionID)
	if len(states) > 0 {
		query = query.Where("state IN ?", states)
	}

	var count int64
	err := query.Count(&count).Error
	return count > 0, err
}

func (r *reconciliationRepository) Save(ctx context.Context, entry *models.ReconciliationEntry) error {
	return r.db.WithContext(ctx).Save(entry).Error
}

func (r *reconciliationRepository) List(ctx context.Context, state string, limit, offset int) ([]models.ReconciliationEntry, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.ReconciliationEntry{})
	if state != "" {
		query = query.Where("state = ?", state)
	}

	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []models.ReconciliationEntry
	err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&entries).Error
	return entries, total, err
}
