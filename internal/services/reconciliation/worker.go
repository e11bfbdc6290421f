// Package reconciliation settles transfers whose gateway outcome and stored
// status disagree, with a bounded number of attempts per entry.
package reconciliation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	apperrors "turapay/internal/errors"
	"turapay/internal/gateway"
	"turapay/internal/models"
	"turapay/internal/repositories"
	"turapay/internal/services/notification"
)

const (
	defaultBatchSize = 50
	defaultPollAfter = 2 * time.Minute
	maxBackoff       = 30 * time.Minute
)

// TransferService is the status-write surface of the transfer service.
type TransferService interface {
	Advance(ctx context.Context, id string, next models.TransactionStatus, fields map[string]interface{}) (*models.Transaction, bool, error)
}

type Options struct {
	MaxAttempts int
	BatchSize   int
	// PollAfter is how long a payout may sit in processing before the
	// worker starts asking the gateway about it.
	PollAfter time.Duration
}

type Worker struct {
	entries      repositories.ReconciliationRepository
	transactions repositories.TransactionRepository
	transfers    TransferService
	gateway      gateway.Client
	notifier     notification.Notifier
	opts         Options
	now          func() time.Time
}

func NewWorker(
	entries repositories.ReconciliationRepository,
	transactions repositories.TransactionRepository,
	transfers TransferService,
	gw gateway.Client,
	notifier notification.Notifier,
	opts Options,
) *Worker {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 10
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.PollAfter <= 0 {
		opts.PollAfter = defaultPollAfter
	}
	return &Worker{
		entries:      entries,
		transactions: transactions,
		transfers:    transfers,
		gateway:      gw,
		notifier:     notifier,
		opts:         opts,
		now:          time.Now,
	}
}

// Run performs one reconciliation pass.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.enqueuePolls(ctx); err != nil {
		log.Printf("[RECONCILER] failed to enqueue gateway polls: %v", err)
	}

	due, err := w.entries.Due(ctx, w.now(), w.opts.BatchSize)
	if err != nil {
		return fmt.Errorf("failed to load due entries: %w", err)
	}
	if len(due) > 0 {
		log.Printf("[RECONCILER] processing %d entries", len(due))
	}

	for i := range due {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := w.process(ctx, &due[i]); err != nil {
			log.Printf("[RECONCILER] entry %d: %v", due[i].ID, err)
		}
	}
	return nil
}

// enqueuePolls opens a gateway_poll entry for each payout that has been
// processing longer than PollAfter. A payout gets at most one poll entry
// until it leaves processing; once that entry is exhausted it is left to
// an operator.
func (w *Worker) enqueuePolls(ctx context.Context) error {
	stuck, err := w.transactions.ListAwaitingPoll(ctx, w.now().Add(-w.opts.PollAfter), w.opts.BatchSize)
	if err != nil {
		return err
	}

	for _, tx := range stuck {
		entry := &models.ReconciliationEntry{
			Kind:          models.ReconcileGatewayPoll,
			TransactionID: tx.ID,
			ReferenceID:   tx.PaymentReference,
			MaxAttempts:   w.opts.MaxAttempts,
			NextAttemptAt: w.now(),
		}
		if err := w.entries.Create(ctx, entry); err != nil {
			return err
		}
		log.Printf("[RECONCILER] polling gateway for transaction %s (ref %s)", tx.ID, tx.PaymentReference)
	}
	return nil
}

func (w *Worker) process(ctx context.Context, entry *models.ReconciliationEntry) error {
	entry.Attempts++

	var (
		resolved bool
		fatal    bool
		err      error
	)
	switch entry.Kind {
	case models.ReconcileStatusWrite:
		resolved, fatal, err = w.retryStatusWrite(ctx, entry)
	case models.ReconcileGatewayPoll:
		resolved, fatal, err = w.pollGateway(ctx, entry)
	default:
		fatal, err = true, fmt.Errorf("unknown entry kind %q", entry.Kind)
	}

	switch {
	case resolved:
		entry.State = models.ReconcileResolved
		entry.LastError = ""
		log.Printf("[RECONCILER] entry %d resolved after %d attempts", entry.ID, entry.Attempts)
	case fatal || entry.Exhausted():
		entry.State = models.ReconcileExhausted
		if err != nil {
			entry.LastError = err.Error()
		}
	default:
		if err != nil {
			entry.LastError = err.Error()
		}
		entry.NextAttemptAt = w.now().Add(backoff(entry.Attempts))
	}

	if serr := w.entries.Save(ctx, entry); serr != nil {
		return fmt.Errorf("failed to save entry: %w", serr)
	}

	if entry.State == models.ReconcileExhausted && w.notifier != nil {
		_ = w.notifier.ReconciliationExhausted(ctx, entry)
	}
	return nil
}

func (w *Worker) retryStatusWrite(ctx context.Context, entry *models.ReconciliationEntry) (resolved, fatal bool, err error) {
	return w.advance(ctx, entry)
}

func (w *Worker) pollGateway(ctx context.Context, entry *models.ReconciliationEntry) (resolved, fatal bool, err error) {
	if !w.gateway.Configured() {
		return false, false, apperrors.ErrGatewayMisconfigured
	}

	resp, err := w.gateway.DisbursementStatus(ctx, entry.ReferenceID)
	if err != nil {
		return false, false, fmt.Errorf("status check failed: %w", err)
	}

	switch status := resp.String("status"); status {
	case gateway.StatusSuccessful:
		entry.TargetStatus = models.StatusCompleted
	case gateway.StatusFailed:
		entry.TargetStatus = models.StatusFailed
	default:
		return false, false, fmt.Errorf("gateway status %q", status)
	}
	return w.advance(ctx, entry)
}

// advance moves the record to the entry's target. A record that cannot
// legally reach it needs an operator, so the entry is given up at once.
func (w *Worker) advance(ctx context.Context, entry *models.ReconciliationEntry) (resolved, fatal bool, err error) {
	var fields map[string]interface{}
	switch entry.TargetStatus {
	case models.StatusCompleted:
		fields = map[string]interface{}{"payment_date": w.now()}
	case models.StatusProcessing:
		fields = map[string]interface{}{"payment_reference": entry.ReferenceID}
	}

	tx, changed, err := w.transfers.Advance(ctx, entry.TransactionID, entry.TargetStatus, fields)
	switch {
	case err == nil:
		// a payout already in processing under another reference cannot take this one
		if !changed && entry.TargetStatus == models.StatusProcessing && tx.PaymentReference != entry.ReferenceID {
			return false, true, fmt.Errorf("transaction is linked to payout %s", tx.PaymentReference)
		}
		return true, false, nil
	case errors.Is(err, apperrors.ErrInvalidTransition), errors.Is(err, apperrors.ErrTransactionNotFound):
		return false, true, err
	default:
		return false, false, err
	}
}

func backoff(attempts int) time.Duration {
	d := time.Duration(attempts) * time.Minute
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}
