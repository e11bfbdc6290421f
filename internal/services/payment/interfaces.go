package payment

import (
	"context"

	"turapay/internal/models"
)

// CollectionRequest pulls funds from a payer. A request carrying ReferenceID
// is a status check for an earlier collection.
type CollectionRequest struct {
	Amount         float64 `json:"amount"`
	Currency       string  `json:"currency"`
	AccountNumber  string  `json:"accountNumber"`
	ReferenceID    string  `json:"referenceId"`
	CardNumber     string  `json:"cardNumber"`
	CardExpiry     string  `json:"cardExpiry"`
	CardCVV        string  `json:"cardCVV"`
	CardholderName string  `json:"cardholderName"`
}

func (r CollectionRequest) hasCard() bool {
	return r.CardNumber != "" && r.CardExpiry != "" && r.CardCVV != "" && r.CardholderName != ""
}

// DisbursementRequest pays a receiver. A request carrying ReferenceID is a
// status check for an earlier disbursement.
type DisbursementRequest struct {
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
	AccountNumber string  `json:"accountNumber"`
	TransactionID string  `json:"transactionId"`
	ReferenceID   string  `json:"referenceId"`

	// Only the record's sender or an admin may move the linked record.
	CallerID      uint `json:"-"`
	CallerIsAdmin bool `json:"-"`
}

// Service fronts the collection and disbursement gateway.
type Service interface {
	Collect(ctx context.Context, req CollectionRequest) (models.JSON, error)
	Disburse(ctx context.Context, req DisbursementRequest) (models.JSON, error)
}

// TransferService is the status-write surface of the transfer service.
type TransferService interface {
	Get(ctx context.Context, id string, senderID uint) (*models.Transaction, error)
	Transition(ctx context.Context, id string, expected, next models.TransactionStatus, fields map[string]interface{}) (*models.Transaction, error)
	Advance(ctx context.Context, id string, next models.TransactionStatus, fields map[string]interface{}) (*models.Transaction, bool, error)
}
