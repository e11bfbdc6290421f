// Package notification tells senders and operators about transfer events.
package notification

import (
	"context"
	"fmt"
	"log"

	"turapay/internal/config"
	"turapay/internal/models"
)

// Notifier is the notification surface the other services depend on.
type Notifier interface {
	TransferReviewed(ctx context.Context, user *models.User, tx *models.Transaction) error
	ReconciliationExhausted(ctx context.Context, entry *models.ReconciliationEntry) error
}

// Mailer delivers one plain-text email.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Service logs every notification and emails it when a mailer is configured.
type Service struct {
	mailer  Mailer
	alertTo string
}

// NewService creates a notification service. Without a SendGrid key it only logs.
func NewService(cfg *config.Config) *Service {
	var mailer Mailer
	if cfg.SendGridAPIKey != "" {
		mailer = NewSendGridMailer(cfg.SendGridAPIKey, cfg.AlertEmailFrom)
	}
	return NewServiceWithMailer(mailer, cfg.AlertEmailTo)
}

func NewServiceWithMailer(mailer Mailer, alertTo string) *Service {
	return &Service{mailer: mailer, alertTo: alertTo}
}

// TransferReviewed tells the sender their transfer was approved or rejected.
func (s *Service) TransferReviewed(ctx context.Context, user *models.User, tx *models.Transaction) error {
	log.Printf("Notify user %d: transfer %s is now %s", tx.SenderID, tx.ID, tx.Status)
	if s.mailer == nil || user == nil || user.Email == "" {
		return nil
	}

	subject := fmt.Sprintf("Your TuraPay transfer is %s", tx.Status)
	body := fmt.Sprintf("Hello %s,\n\nYour transfer of %.2f %s to %s is now %s.\n",
		user.Name, tx.Amount, tx.Currency, tx.ReceiverName, tx.Status)
	if tx.Status == models.StatusRejected && tx.RejectionReason != "" {
		body += fmt.Sprintf("Reason: %s\n", tx.RejectionReason)
	}
	body += fmt.Sprintf("\nReference: %s\n", tx.ID)

	if err := s.mailer.Send(ctx, user.Email, subject, body); err != nil {
		log.Printf("Failed to email user %d about transfer %s: %v", user.ID, tx.ID, err)
		return err
	}
	return nil
}

// ReconciliationExhausted alerts operators that an entry needs manual work.
func (s *Service) ReconciliationExhausted(ctx context.Context, entry *models.ReconciliationEntry) error {
	log.Printf("[RECONCILER] ALERT entry %d (%s) for transaction %s exhausted after %d attempts: %s",
		entry.ID, entry.Kind, entry.TransactionID, entry.Attempts, entry.LastError)
	if s.mailer == nil || s.alertTo == "" {
		return nil
	}

	subject := fmt.Sprintf("[TuraPay] reconciliation needs attention: transaction %s", entry.TransactionID)
	body := fmt.Sprintf(
		"Reconciliation entry %d could not be settled automatically.\n\n"+
			"Kind: %s\nTransaction: %s\nGateway reference: %s\nTarget status: %s\nAttempts: %d\nLast error: %s\n",
		entry.ID, entry.Kind, entry.TransactionID, entry.ReferenceID, entry.TargetStatus, entry.Attempts, entry.LastError)

	if err := s.mailer.Send(ctx, s.alertTo, subject, body); err != nil {
		log.Printf("[RECONCILER] failed to send alert for entry %d: %v", entry.ID, err)
		return err
	}
	return nil
}
