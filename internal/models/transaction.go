package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TransactionStatus is the lifecycle state of a transfer.
type TransactionStatus string

const (
	StatusPending    TransactionStatus = "pending"
	StatusProcessing TransactionStatus = "processing"
	StatusDeposited  TransactionStatus = "deposited"
	StatusPaid       TransactionStatus = "paid"
	StatusCompleted  TransactionStatus = "completed"
	StatusRejected   TransactionStatus = "rejected"
	StatusFailed     TransactionStatus = "failed"
)

// Payout methods offered to senders.
const (
	PayoutMobileMoney  = "mobile_money"
	PayoutBankTransfer = "bank_transfer"
	PayoutCashPickup   = "cash_pickup"
)

var allowedTransitions = map[TransactionStatus][]TransactionStatus{
	StatusPending: {
		StatusProcessing,
		StatusDeposited,
		StatusPaid,
		StatusCompleted,
		StatusRejected,
		StatusFailed,
	},
	StatusProcessing: {
		StatusCompleted,
		StatusFailed,
		StatusPaid,
	},
}

// Valid reports whether s is a known status.
func (s TransactionStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusDeposited, StatusPaid,
		StatusCompleted, StatusRejected, StatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is allowed.
func (s TransactionStatus) IsTerminal() bool {
	switch s {
	case StatusDeposited, StatusPaid, StatusCompleted, StatusRejected, StatusFailed:
		return true
	}
	return false
}

// CanTransitionTo reports whether moving from s to next is legal.
func (s TransactionStatus) CanTransitionTo(next TransactionStatus) bool {
	for _, allowed := range allowedTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Transaction is a cross-border transfer from a sender to a free-form receiver.
// ExchangeRate and Fee are snapshots taken at creation and never recomputed.
type Transaction struct {
	ID              string            `gorm:"primaryKey;type:varchar(64)" json:"id"`
	SenderID        uint              `gorm:"not null;index" json:"sender_id"`
	ReceiverName    string            `gorm:"not null" json:"receiver_name"`
	ReceiverPhone   string            `gorm:"not null" json:"receiver_phone"`
	ReceiverCountry string            `json:"receiver_country"`
	Amount          float64           `gorm:"not null" json:"amount"`
	Fee             float64           `gorm:"default:0" json:"fee"`
	TotalAmount     float64           `gorm:"not null" json:"total_amount"`
	Currency        string            `gorm:"default:'USD'" json:"currency"`
	ExchangeRate    float64           `gorm:"not null" json:"exchange_rate"`
	PayoutCurrency  string            `json:"payout_currency"`
	PayoutAmount    float64           `json:"payout_amount"`
	PayoutMethod    string            `json:"payout_method"`
	Status          TransactionStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`

	PaymentProofURL     string     `json:"payment_proof_url,omitempty"`
	AdminNotes          string     `json:"admin_notes,omitempty"`
	RejectionReason     string     `json:"rejection_reason,omitempty"`
	TID                 string     `gorm:"column:tid" json:"tid,omitempty"`
	SenderNumber        string     `json:"sender_number,omitempty"`
	SenderName          string     `json:"sender_name,omitempty"`
	PaymentReference    string     `gorm:"index" json:"payment_reference,omitempty"`
	CollectionReference string     `json:"collection_reference,omitempty"`
	PaymentDate         *time.Time `json:"payment_date,omitempty"`
	ReviewedBy          *uint      `json:"reviewed_by,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate assigns an opaque id when the caller did not supply one.
func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Status == "" {
		t.Status = StatusPending
	}
	return nil
}
