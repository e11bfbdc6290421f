// Package rates keeps the USD-based exchange-rate table used to price transfers.
package rates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"turapay/internal/config"
	apperrors "turapay/internal/errors"
	"turapay/internal/models"
	"turapay/internal/repositories"
	"turapay/internal/repositories/cache"
	cachekeys "turapay/internal/utils/cache"

	"github.com/go-resty/resty/v2"
)

const (
	BaseCurrency = "USD"

	SourceLive    = "live"
	SourceCache   = "cache"
	SourceDefault = "default"

	cacheTTL = 24 * time.Hour
)

var tableKey = cachekeys.GenerateKey(cachekeys.EntityRate, cachekeys.KeyAll, BaseCurrency)

// Table is a snapshot of USD-based rates.
type Table struct {
	Base      string             `json:"base"`
	Rates     map[string]float64 `json:"rates"`
	Overrides map[string]float64 `json:"overrides,omitempty"`
	FetchedAt time.Time          `json:"fetched_at"`
	Source    string             `json:"source"`
}

type Service interface {
	// Rate returns units of currency per one USD.
	Rate(ctx context.Context, currency string) (float64, error)
	// Convert returns units of to per one unit of from.
	Convert(ctx context.Context, from, to string) (float64, error)
	Table(ctx context.Context) (*Table, error)
	Refresh(ctx context.Context) error
	SetOverride(ctx context.Context, currency string, rate float64, updatedBy uint) (*models.ExchangeRate, error)
	DeleteOverride(ctx context.Context, currency string) error
}

type apiResponse struct {
	Result   string             `json:"result"`
	BaseCode string             `json:"base_code"`
	Base     string             `json:"base"`
	Rates    map[string]float64 `json:"rates"`
}

type service struct {
	cfg   config.RatesConfig
	http  *resty.Client
	repo  repositories.ExchangeRateRepository
	cache cache.Cache

	mu    sync.RWMutex
	table *Table
}

// NewService builds the rate service. c may be nil when Redis is unavailable.
func NewService(cfg config.RatesConfig, repo repositories.ExchangeRateRepository, c cache.Cache) Service {
	return &service{
		cfg:   cfg,
		http:  resty.New().SetTimeout(15 * time.Second).SetHeader("Accept", "application/json"),
		repo:  repo,
		cache: c,
	}
}

// Refresh fetches the live table. On failure the previous table is kept.
func (s *service) Refresh(ctx context.Context) error {
	table, err := s.fetch(ctx)
	if err != nil {
		log.Printf("[RATES] refresh failed, keeping previous rates: %v", err)
		return err
	}

	s.mu.Lock()
	s.table = table
	s.mu.Unlock()

	if s.cache != nil {
		if err := s.cache.SetWithTTL(ctx, tableKey, table, cacheTTL); err != nil {
			log.Printf("[RATES] cache write failed: %v", err)
		}
	}
	log.Printf("[RATES] refreshed %d rates, %s=%.4f", len(table.Rates), s.local(), table.Rates[s.local()])
	return nil
}

func (s *service) fetch(ctx context.Context) (*Table, error) {
	resp, err := s.http.R().SetContext(ctx).Get(s.cfg.APIURL)
	if err != nil {
		return nil, fmt.Errorf("rate request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("rate API returned status %d", resp.StatusCode())
	}

	var body apiResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, fmt.Errorf("failed to parse rate response: %w", err)
	}
	if body.Result != "" && body.Result != "success" {
		return nil, fmt.Errorf("rate API result %q", body.Result)
	}
	if len(body.Rates) == 0 {
		return nil, errors.New("rate API returned no rates")
	}

	base := body.BaseCode
	if base == "" {
		base = body.Base
	}
	if base != "" && !strings.EqualFold(base, BaseCurrency) {
		return nil, fmt.Errorf("rate API base %s, want %s", base, BaseCurrency)
	}

	rates := make(map[string]float64, len(body.Rates))
	for code, rate := range body.Rates {
		if rate > 0 {
			rates[strings.ToUpper(code)] = rate
		}
	}
	rates[BaseCurrency] = 1

	return &Table{
		Base:      BaseCurrency,
		Rates:     rates,
		FetchedAt: time.Now(),
		Source:    SourceLive,
	}, nil
}

// current returns the in-memory table, else the cached one, else the default.
func (s *service) current(ctx context.Context) *Table {
	s.mu.RLock()
	table := s.table
	s.mu.RUnlock()
	if table != nil {
		return table
	}

	if s.cache != nil {
		var cached Table
		hit, err := s.cache.Get(ctx, tableKey, &cached)
		if err != nil {
			log.Printf("[RATES] cache read failed: %v", err)
		} else if hit && len(cached.Rates) > 0 {
			cached.Source = SourceCache
			s.mu.Lock()
			if s.table == nil {
				s.table = &cached
			}
			s.mu.Unlock()
			return &cached
		}
	}

	return &Table{
		Base: BaseCurrency,
		Rates: map[string]float64{
			BaseCurrency: 1,
			s.local():    s.cfg.DefaultRate,
		},
		Source: SourceDefault,
	}
}

func (s *service) Rate(ctx context.Context, currency string) (float64, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = s.local()
	}
	if currency == BaseCurrency {
		return 1, nil
	}

	override, err := s.repo.Get(ctx, currency)
	switch {
	case err == nil:
		return override.Rate, nil
	case !errors.Is(err, repositories.ErrNotFound):
		return 0, fmt.Errorf("failed to read rate override: %w", err)
	}

	if rate, ok := s.current(ctx).Rates[currency]; ok && rate > 0 {
		return rate, nil
	}
	if currency == s.local() && s.cfg.DefaultRate > 0 {
		return s.cfg.DefaultRate, nil
	}
	return 0, apperrors.ErrUnsupportedCurrency
}

func (s *service) Convert(ctx context.Context, from, to string) (float64, error) {
	from = strings.ToUpper(strings.TrimSpace(from))
	to = strings.ToUpper(strings.TrimSpace(to))
	if from == to {
		return 1, nil
	}

	fromRate, err := s.Rate(ctx, from)
	if err != nil {
		return 0, err
	}
	toRate, err := s.Rate(ctx, to)
	if err != nil {
		return 0, err
	}
	return toRate / fromRate, nil
}

// Table returns the live table with operator overrides listed alongside.
func (s *service) Table(ctx context.Context) (*Table, error) {
	base := s.current(ctx)

	out := &Table{
		Base:      base.Base,
		Rates:     make(map[string]float64, len(base.Rates)),
		FetchedAt: base.FetchedAt,
		Source:    base.Source,
	}
	for code, rate := range base.Rates {
		out.Rates[code] = rate
	}

	overrides, err := s.repo.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read rate overrides: %w", err)
	}
	if len(overrides) > 0 {
		out.Overrides = make(map[string]float64, len(overrides))
		for _, o := range overrides {
			out.Overrides[o.Currency] = o.Rate
			out.Rates[o.Currency] = o.Rate
		}
	}
	return out, nil
}

func (s *service) SetOverride(ctx context.Context, currency string, rate float64, updatedBy uint) (*models.ExchangeRate, error) {
	if rate <= 0 {
		return nil, apperrors.ErrInvalidRate
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" || currency == BaseCurrency {
		return nil, apperrors.ErrUnsupportedCurrency
	}

	row, err := s.repo.Upsert(ctx, currency, rate, &updatedBy)
	if err != nil {
		return nil, fmt.Errorf("failed to save rate override: %w", err)
	}
	log.Printf("Rate override %s=%.4f set by user %d", currency, rate, updatedBy)
	return row, nil
}

func (s *service) DeleteOverride(ctx context.Context, currency string) error {
	err := s.repo.Delete(ctx, strings.ToUpper(strings.TrimSpace(currency)))
	if errors.Is(err, repositories.ErrNotFound) {
		return apperrors.ErrRateNotFound
	}
	return err
}

func (s *service) local() string {
	return strings.ToUpper(s.cfg.LocalCurrency)
}
