package repositories

import (
	"context"

	"turapay/internal/models"

	"gorm.io/gorm"
)

type KYCRepository interface {
	Create(ctx context.Context, kyc *models.KYCVerification) error
	FindByID(ctx context.Context, id uint) (*models.KYCVerification, error)
	LatestForUser(ctx context.Context, userID uint) (*models.KYCVerification, error)
	List(ctx context.Context, status string, limit, offset int) ([]models.KYCVerification, int64, error)
	// Review moves a pending submission to status; it returns rows changed.
	Review(ctx context.Context, id uint, status string, fields map[string]interface{}) (int64, error)
	WithTx(tx *gorm.DB) KYCRepository
}

type kycRepository struct {
	db *gorm.DB
}

func NewKYCRepository(db *gorm.DB) KYCRepository {
	return &kycRepository{db: db}
}

func (r *kycRepository) WithTx(tx *gorm.DB) KYCRepository {
	return &kycRepository{db: tx}
}

func (r *kycRepository) Create(ctx context.Context, kyc *models.KYCVerification) error {
	return r.db.WithContext(ctx).Create(kyc).Error
}

func (r *kycRepository) FindByID(ctx context.Context, id uint) (*models.KYCVerification, error) {
	var kyc models.KYCVerification
	if err := r.db.WithContext(ctx).First(&kyc, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &kyc, nil
}

func (r *kycRepository) LatestForUser(ctx context.Context, userID uint) (*models.KYCVerification, error) {
	var kyc models.KYCVerification
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		First(&kyc).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &kyc, nil
}

func (r *kycRepository) List(ctx context.Context, status string, limit, offset int) ([]models.KYCVerification, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.KYCVerification{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []models.KYCVerification
	err := query.Order("created_at ASC").Limit(limit).Offset(offset).Find(&items).Error
	return items, total, err
}

func (r *kycRepository) Review(ctx context.Context, id uint, status string, fields map[string]interface{}) (int64, error) {
	updates := map[string]interface{}{"status": status}
	for k, v := range fields {
		updates[k] = v
	}
	result := r.db.WithContext(ctx).
		Model(&models.KYCVerification{}).
		Where("id = ? AND status = ?", id, models.KYCStatusPending).
		Updates(updates)
	return result.RowsAffected, result.Error
}
