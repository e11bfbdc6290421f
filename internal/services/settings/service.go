// Package settings serves the operator-tunable key/value settings.
package settings

import (
	"context"
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"
	"time"

	apperrors "turapay/internal/errors"
	"turapay/internal/models"
	"turapay/internal/repositories"
	"turapay/internal/repositories/cache"
	cachekeys "turapay/internal/utils/cache"
)

const cacheTTL = 10 * time.Minute

var allKey = cachekeys.GenerateKey(cachekeys.EntitySetting, cachekeys.KeyAll, "settings")

// Values is the parsed view of the settings the transfer flow reads.
type Values struct {
	FeePercentage       float64 `json:"transfer_fee_percentage"`
	UnverifiedSendLimit float64 `json:"unverified_send_limit"`
	MaxTransferLimit    float64 `json:"max_transfer_limit"`
	RecipientName       string  `json:"payment_recipient_name"`
	RecipientNumber     string  `json:"payment_recipient_number"`
}

type Service interface {
	All(ctx context.Context) (map[string]string, error)
	Values(ctx context.Context) (*Values, error)
	Update(ctx context.Context, key, value string, updatedBy uint) (*models.Setting, error)
}

type service struct {
	repo  repositories.SettingRepository
	cache cache.Cache
}

// NewService builds the settings service. c may be nil when Redis is unavailable.
func NewService(repo repositories.SettingRepository, c cache.Cache) Service {
	return &service{repo: repo, cache: c}
}

func (s *service) All(ctx context.Context) (map[string]string, error) {
	if s.cache != nil {
		var cached map[string]string
		hit, err := s.cache.Get(ctx, allKey, &cached)
		if err != nil {
			log.Printf("settings cache read failed: %v", err)
		} else if hit {
			return cached, nil
		}
	}

	out, err := readAll(ctx, s.repo)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetWithTTL(ctx, allKey, out, cacheTTL); err != nil {
			log.Printf("settings cache write failed: %v", err)
		}
	}
	return out, nil
}

func (s *service) Values(ctx context.Context) (*Values, error) {
	all, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	return Parse(all)
}

// Update overwrites one setting. Last write wins.
func (s *service) Update(ctx context.Context, key, value string, updatedBy uint) (*models.Setting, error) {
	if _, known := models.DefaultSettings[key]; !known {
		return nil, apperrors.ErrUnknownSetting
	}

	value = strings.TrimSpace(value)
	if models.NumericSettings[key] {
		if _, err := parseNonNegative(value); err != nil {
			return nil, apperrors.ErrInvalidSettingValue
		}
	}

	setting, err := s.repo.Upsert(ctx, key, value, &updatedBy)
	if err != nil {
		return nil, fmt.Errorf("failed to update setting %s: %w", key, err)
	}

	if s.cache != nil {
		if err := s.cache.Delete(ctx, allKey); err != nil {
			log.Printf("settings cache invalidation failed: %v", err)
		}
	}
	log.Printf("Setting %s updated to %q by user %d", key, value, updatedBy)
	return setting, nil
}

// Load reads settings straight from repo, bypassing any cache. The transfer
// service calls it with a transaction-scoped repository.
func Load(ctx context.Context, repo repositories.SettingRepository) (*Values, error) {
	all, err := readAll(ctx, repo)
	if err != nil {
		return nil, err
	}
	return Parse(all)
}

// Parse converts raw values, falling back to defaults for missing keys.
func Parse(all map[string]string) (*Values, error) {
	get := func(key string) string {
		if v, ok := all[key]; ok {
			return v
		}
		return models.DefaultSettings[key]
	}

	num := func(key string) (float64, error) {
		v, err := parseNonNegative(get(key))
		if err != nil {
			return 0, fmt.Errorf("setting %s: %w", key, err)
		}
		return v, nil
	}

	var (
		v   Values
		err error
	)
	if v.FeePercentage, err = num(models.SettingTransferFeePercentage); err != nil {
		return nil, err
	}
	if v.UnverifiedSendLimit, err = num(models.SettingUnverifiedSendLimit); err != nil {
		return nil, err
	}
	if v.MaxTransferLimit, err = num(models.SettingMaxTransferLimit); err != nil {
		return nil, err
	}
	v.RecipientName = get(models.SettingPaymentRecipientName)
	v.RecipientNumber = get(models.SettingPaymentRecipientNumber)
	return &v, nil
}

func readAll(ctx context.Context, repo repositories.SettingRepository) (map[string]string, error) {
	rows, err := repo.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}
	out := make(map[string]string, len(rows))
	for _, row := range rows {
		out[row.Key] = row.Value
	}
	return out, nil
}

func parseNonNegative(value string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, err
	}
	if f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("value %q must be a non-negative number", value)
	}
	return f, nil
}
