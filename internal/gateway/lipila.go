// Package gateway talks to the Lipila collection and disbursement API.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"turapay/internal/config"
	"turapay/internal/models"

	"github.com/go-resty/resty/v2"
)

const (
	pathMobileCollection   = "/api/v1/collections/mobile-money"
	pathCardCollection     = "/api/v1/collections/card"
	pathCollectionStatus   = "/api/v1/collections/check-status"
	pathMobileDisbursement = "/api/v1/disbursements/mobile-money"
	pathDisbursementStatus = "/api/v1/disbursements/check-status"
)

// Gateway statuses as reported by Lipila.
const (
	StatusSuccessful = "Successful"
	StatusPending    = "Pending"
	StatusFailed     = "Failed"
)

// ErrNotConfigured is returned by every call when no API key is set.
var ErrNotConfigured = errors.New("payment gateway not configured")

// APIError is a non-2xx answer from the gateway. Details holds the decoded
// body, or the raw text when the body is not JSON.
type APIError struct {
	StatusCode int
	Details    interface{}
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gateway returned status %d", e.StatusCode)
}

// Client is the subset of the gateway used by the payment services.
type Client interface {
	Configured() bool
	CollectMobileMoney(ctx context.Context, req MobileCollectionRequest) (models.JSON, error)
	CollectCard(ctx context.Context, req CardCollectionRequest) (models.JSON, error)
	CollectionStatus(ctx context.Context, referenceID string) (models.JSON, error)
	DisburseMobileMoney(ctx context.Context, req DisbursementRequest) (models.JSON, error)
	DisbursementStatus(ctx context.Context, referenceID string) (models.JSON, error)
}

type MobileCollectionRequest struct {
	ReferenceID   string  `json:"referenceId"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
	AccountNumber string  `json:"accountNumber"`
	Narration     string  `json:"narration"`
	CallbackURL   string  `json:"callbackUrl,omitempty"`
}

type CardDetails struct {
	CardNumber     string `json:"cardNumber"`
	ExpiryMonth    string `json:"expiryMonth"`
	ExpiryYear     string `json:"expiryYear"`
	CVV            string `json:"cvv"`
	CardholderName string `json:"cardHolderName"`
}

type CardCollectionRequest struct {
	ReferenceID string      `json:"referenceId"`
	Amount      float64     `json:"amount"`
	Currency    string      `json:"currency"`
	Narration   string      `json:"narration"`
	CallbackURL string      `json:"callbackUrl,omitempty"`
	Card        CardDetails `json:"cardDetails"`
}

type DisbursementRequest struct {
	ReferenceID   string  `json:"referenceId"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
	AccountNumber string  `json:"accountNumber"`
	Narration     string  `json:"narration"`
	CallbackURL   string  `json:"callbackUrl,omitempty"`
}

// LipilaClient implements Client over HTTP.
type LipilaClient struct {
	http        *resty.Client
	apiKey      string
	callbackURL string
}

func NewLipilaClient(cfg config.LipilaConfig) *LipilaClient {
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json")
	if cfg.APIKey != "" {
		client.SetHeader("x-api-key", cfg.APIKey)
	}

	return &LipilaClient{
		http:        client,
		apiKey:      cfg.APIKey,
		callbackURL: cfg.CallbackURL,
	}
}

func (c *LipilaClient) Configured() bool {
	return c.apiKey != ""
}

func (c *LipilaClient) CollectMobileMoney(ctx context.Context, req MobileCollectionRequest) (models.JSON, error) {
	if req.CallbackURL == "" {
		req.CallbackURL = c.callbackURL
	}
	return c.post(ctx, pathMobileCollection, req)
}

func (c *LipilaClient) CollectCard(ctx context.Context, req CardCollectionRequest) (models.JSON, error) {
	if req.CallbackURL == "" {
		req.CallbackURL = c.callbackURL
	}
	return c.post(ctx, pathCardCollection, req)
}

func (c *LipilaClient) CollectionStatus(ctx context.Context, referenceID string) (models.JSON, error) {
	return c.get(ctx, pathCollectionStatus, referenceID)
}

func (c *LipilaClient) DisburseMobileMoney(ctx context.Context, req DisbursementRequest) (models.JSON, error) {
	if req.CallbackURL == "" {
		req.CallbackURL = c.callbackURL
	}
	return c.post(ctx, pathMobileDisbursement, req)
}

func (c *LipilaClient) DisbursementStatus(ctx context.Context, referenceID string) (models.JSON, error) {
	return c.get(ctx, pathDisbursementStatus, referenceID)
}

func (c *LipilaClient) post(ctx context.Context, path string, body interface{}) (models.JSON, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	resp, err := c.http.R().SetContext(ctx).SetBody(body).Post(path)
	if err != nil {
		return nil, fmt.Errorf("lipila request failed: %w", err)
	}
	return decode(resp)
}

func (c *LipilaClient) get(ctx context.Context, path, referenceID string) (models.JSON, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("referenceId", referenceID).
		Get(path)
	if err != nil {
		return nil, fmt.Errorf("lipila request failed: %w", err)
	}
	return decode(resp)
}

func decode(resp *resty.Response) (models.JSON, error) {
	body := resp.Body()

	if resp.StatusCode() < http.StatusOK || resp.StatusCode() >= http.StatusMultipleChoices {
		var details interface{}
		if err := json.Unmarshal(body, &details); err != nil {
			details = string(body)
		}
		return nil, &APIError{StatusCode: resp.StatusCode(), Details: details}
	}

	out := models.JSON{}
	if len(body) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to parse gateway response: %w", err)
	}
	return out, nil
}

// SplitCardExpiry turns "MM/YY" or "MM/YYYY" into month and four-digit year.
func SplitCardExpiry(expiry string) (month, year string, err error) {
	parts := strings.Split(strings.TrimSpace(expiry), "/")
	if len(parts) != 2 {
		return "", "", fmt.Errorf("invalid card expiry %q", expiry)
	}
	month = strings.TrimSpace(parts[0])
	year = strings.TrimSpace(parts[1])
	if len(month) == 1 {
		month = "0" + month
	}
	if len(month) != 2 {
		return "", "", fmt.Errorf("invalid card expiry month %q", month)
	}
	switch len(year) {
	case 2:
		year = "20" + year
	case 4:
	default:
		return "", "", fmt.Errorf("invalid card expiry year %q", year)
	}
	return month, year, nil
}
