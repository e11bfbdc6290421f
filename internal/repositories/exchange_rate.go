package repositories

import (
	"context"
	"time"

	"turapay/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ExchangeRateRepository interface {
	All(ctx context.Context) ([]models.ExchangeRate, error)
	Get(ctx context.Context, currency string) (*models.ExchangeRate, error)
	Upsert(ctx context.Context, currency string, rate float64, updatedBy *uint) (*models.ExchangeRate, error)
	Delete(ctx context.Context, currency string) error
}

type exchangeRateRepository struct {
	db *gorm.DB
}

func NewExchangeRateRepository(db *gorm.DB) ExchangeRateRepository {
	return &exchangeRateRepository{db: db}
}

func (r *exchangeRateRepository) All(ctx context.Context) ([]models.ExchangeRate, error) {
	var rates []models.ExchangeRate
	err := r.db.WithContext(ctx).Order("currency").Find(&rates).Error
	return rates, err
}

func (r *exchangeRateRepository) Get(ctx context.Context, currency string) (*models.ExchangeRate, error) {
	var rate models.ExchangeRate
	if err := r.db.WithContext(ctx).Where("currency = ?", currency).First(&rate).Error; err != nil {
		return nil, notFound(err)
	}
	return &rate, nil
}

func (r *exchangeRateRepository) Upsert(ctx context.Context, currency string, rate float64, updatedBy *uint) (*models.ExchangeRate, error) {
	row := &models.ExchangeRate{
		Currency:  currency,
		Rate:      rate,
		UpdatedBy: updatedBy,
		UpdatedAt: time.Now(),
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "currency"}},
		DoUpdates: clause.AssignmentColumns([]string{"rate", "updated_by", "updated_at"}),
	}).Create(row).Error
	if err != nil {
		return nil, err
	}
	return row, nil
}

func (r *exchangeRateRepository) Delete(ctx context.Context, currency string) error {
	result := r.db.WithContext(ctx).Where("currency = ?", currency).Delete(&models.ExchangeRate{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
