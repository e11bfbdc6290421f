package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	// ReconcileStatusWrite retries a status write that failed after the gateway confirmed.
	ReconcileStatusWrite = "status_write"
	// ReconcileGatewayPoll asks the gateway for the outcome of a processing payout.
	ReconcileGatewayPoll = "gateway_poll"
)

const (
	ReconcileOpen      = "open"
	ReconcileResolved  = "resolved"
	ReconcileExhausted = "exhausted"
)

// ReconciliationEntry records a money-moved-but-not-recorded mismatch or an
// unconfirmed payout until it is settled or runs out of attempts.
type ReconciliationEntry struct {
	gorm.Model
	Kind          string            `gorm:"type:varchar(20);not null;index" json:"kind"`
	TransactionID string            `gorm:"type:varchar(64);index" json:"transaction_id"`
	ReferenceID   string            `gorm:"index" json:"reference_id"`
	TargetStatus  TransactionStatus `gorm:"type:varchar(20)" json:"target_status"`
	State         string            `gorm:"type:varchar(20);default:'open';index" json:"state"`
	Attempts      int               `gorm:"default:0" json:"attempts"`
	MaxAttempts   int               `gorm:"default:10" json:"max_attempts"`
	LastError     string            `json:"last_error,omitempty"`
	Payload       datatypes.JSON    `json:"payload,omitempty"`
	NextAttemptAt time.Time         `gorm:"index" json:"next_attempt_at"`
}

// Exhausted reports whether no attempts remain.
func (e *ReconciliationEntry) Exhausted() bool {
	return e.Attempts >= e.MaxAttempts
}
