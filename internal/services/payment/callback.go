package payment

import (
	"context"
	"errors"
	"log"
	"time"

	apperrors "turapay/internal/errors"
	"turapay/internal/gateway"
	"turapay/internal/models"
	"turapay/internal/repositories"
)

// Callback outcomes reported back to the gateway.
const (
	OutcomeCompleted        = "completed"
	OutcomeFailed           = "failed"
	OutcomeIgnored          = "ignored"
	OutcomeUnknownReference = "unknown_reference"
	OutcomeAlreadyFinal     = "already_final"
)

// CallbackEvent is the gateway's asynchronous status notification.
type CallbackEvent struct {
	ReferenceID string `json:"referenceId" validate:"required"`
	Status      string `json:"status" validate:"required"`
	Type        string `json:"type"`
	Message     string `json:"message"`
	Identifier  string `json:"identifier"`
}

// CallbackProcessor applies gateway callbacks to transfer records.
type CallbackProcessor struct {
	transactions repositories.TransactionRepository
	transfers    TransferService
}

func NewCallbackProcessor(transactions repositories.TransactionRepository, transfers TransferService) *CallbackProcessor {
	return &CallbackProcessor{transactions: transactions, transfers: transfers}
}

// Handle is idempotent: redelivered or stale events are acknowledged
// without changing anything. Only storage failures return an error.
func (p *CallbackProcessor) Handle(ctx context.Context, ev CallbackEvent) (string, error) {
	var (
		next   models.TransactionStatus
		fields map[string]interface{}
	)
	switch ev.Status {
	case gateway.StatusSuccessful:
		next = models.StatusCompleted
		fields = map[string]interface{}{"payment_date": time.Now()}
	case gateway.StatusFailed:
		next = models.StatusFailed
	default:
		log.Printf("Callback for %s with status %q ignored", ev.ReferenceID, ev.Status)
		return OutcomeIgnored, nil
	}

	tx, err := p.transactions.FindByPaymentReference(ctx, ev.ReferenceID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			log.Printf("Callback for unknown reference %s (%s)", ev.ReferenceID, ev.Status)
			return OutcomeUnknownReference, nil
		}
		return "", err
	}

	_, changed, err := p.transfers.Advance(ctx, tx.ID, next, fields)
	switch {
	case err == nil && changed:
		log.Printf("Callback moved transaction %s to %s", tx.ID, next)
		return string(next), nil
	case err == nil:
		return OutcomeAlreadyFinal, nil
	case errors.Is(err, apperrors.ErrInvalidTransition), errors.Is(err, apperrors.ErrStatusConflict):
		log.Printf("Callback %s for transaction %s not applied: %v", ev.Status, tx.ID, err)
		return OutcomeAlreadyFinal, nil
	default:
		return "", err
	}
}
