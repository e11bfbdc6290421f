package transfer

import (
	"context"

	"turapay/internal/models"
	"turapay/internal/services/fee"
)

// RateProvider converts between currencies.
type RateProvider interface {
	Convert(ctx context.Context, from, to string) (float64, error)
}

// CreateRequest is what a sender submits to open a transfer.
type CreateRequest struct {
	ReceiverName    string  `json:"receiver_name" validate:"required,max=120"`
	ReceiverPhone   string  `json:"receiver_phone" validate:"required,max=32"`
	ReceiverCountry string  `json:"receiver_country" validate:"omitempty,max=64"`
	Amount          float64 `json:"amount"`
	Currency        string  `json:"currency" validate:"omitempty,len=3"`
	PayoutCurrency  string  `json:"payout_currency" validate:"omitempty,len=3"`
	PayoutMethod    string  `json:"payout_method" validate:"omitempty,oneof=mobile_money bank_transfer cash_pickup"`
	SenderName      string  `json:"sender_name" validate:"omitempty,max=120"`
	SenderNumber    string  `json:"sender_number" validate:"omitempty,max=32"`

	// CollectionReference is the referenceId of the collection that funded
	// this transfer, when the sender paid through the gateway.
	CollectionReference string `json:"collection_reference" validate:"omitempty,max=64"`
}

// Quote prices a transfer without creating it.
type Quote struct {
	fee.Quote
	Currency       string  `json:"currency"`
	ExchangeRate   float64 `json:"exchange_rate"`
	PayoutAmount   float64 `json:"payout_amount"`
	PayoutCurrency string  `json:"payout_currency"`
}

// Service owns the transfer record and is the only writer of its status.
type Service interface {
	Quote(ctx context.Context, amount float64, currency, payoutCurrency string) (*Quote, error)
	Create(ctx context.Context, senderID uint, req CreateRequest) (*models.Transaction, error)
	// Get returns a transfer; senderID 0 skips the ownership check.
	Get(ctx context.Context, id string, senderID uint) (*models.Transaction, error)
	ListForSender(ctx context.Context, senderID uint, recent bool, limit, offset int) ([]models.Transaction, int64, error)
	List(ctx context.Context, status models.TransactionStatus, limit, offset int) ([]models.Transaction, int64, error)
	AttachProof(ctx context.Context, id string, senderID uint, url string) (*models.Transaction, error)
	// Transition moves id from expected to next if the row is still in expected.
	Transition(ctx context.Context, id string, expected, next models.TransactionStatus, fields map[string]interface{}) (*models.Transaction, error)
	// Advance moves id from whatever status it holds to next. changed is false
	// when the record was already in next.
	Advance(ctx context.Context, id string, next models.TransactionStatus, fields map[string]interface{}) (tx *models.Transaction, changed bool, err error)
}
