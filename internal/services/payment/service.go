package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	apperrors "turapay/internal/errors"
	"turapay/internal/gateway"
	"turapay/internal/models"
	"turapay/internal/repositories"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	defaultCurrency = "ZMW"
	narration       = "TuraPay transfer"
)

type service struct {
	gateway     gateway.Client
	transfers   TransferService
	reconcile   repositories.ReconciliationRepository
	maxAttempts int
}

// NewService creates the payment service. maxAttempts bounds the
// reconciliation entries it queues.
func NewService(gw gateway.Client, transfers TransferService, reconcile repositories.ReconciliationRepository, maxAttempts int) Service {
	return &service{
		gateway:     gw,
		transfers:   transfers,
		reconcile:   reconcile,
		maxAttempts: maxAttempts,
	}
}

func currencyOrDefault(currency string) string {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		return defaultCurrency
	}
	return currency
}

func (s *service) Collect(ctx context.Context, req CollectionRequest) (models.JSON, error) {
	if req.Amount <= 0 {
		return nil, apperrors.ErrInvalidAmount
	}
	if req.ReferenceID == "" && req.AccountNumber == "" && !req.hasCard() {
		return nil, apperrors.ErrMissingCardDetails
	}

	var month, year string
	if req.ReferenceID == "" && req.AccountNumber == "" {
		var err error
		if month, year, err = gateway.SplitCardExpiry(req.CardExpiry); err != nil {
			return nil, apperrors.ErrInvalidCardExpiry
		}
	}

	if !s.gateway.Configured() {
		return nil, apperrors.ErrGatewayMisconfigured
	}

	if req.ReferenceID != "" {
		return s.gateway.CollectionStatus(ctx, req.ReferenceID)
	}

	referenceID := uuid.NewString()
	currency := currencyOrDefault(req.Currency)

	var (
		resp models.JSON
		err  error
	)
	if req.AccountNumber != "" {
		resp, err = s.gateway.CollectMobileMoney(ctx, gateway.MobileCollectionRequest{
			ReferenceID:   referenceID,
			Amount:        req.Amount,
			Currency:      currency,
			AccountNumber: req.AccountNumber,
			Narration:     narration,
		})
	} else {
		resp, err = s.gateway.CollectCard(ctx, gateway.CardCollectionRequest{
			ReferenceID: referenceID,
			Amount:      req.Amount,
			Currency:    currency,
			Narration:   narration,
			Card: gateway.CardDetails{
				CardNumber:     req.CardNumber,
				ExpiryMonth:    month,
				ExpiryYear:     year,
				CVV:            req.CardCVV,
				CardholderName: req.CardholderName,
			},
		})
	}
	if err != nil {
		return nil, err
	}

	log.Printf("Collection %s created: %.2f %s", referenceID, req.Amount, currency)
	return resp.Merge(models.JSON{"success": true, "referenceId": referenceID}), nil
}

func (s *service) Disburse(ctx context.Context, req DisbursementRequest) (models.JSON, error) {
	if req.Amount <= 0 {
		return nil, apperrors.ErrInvalidAmount
	}
	if req.ReferenceID == "" && req.AccountNumber == "" {
		return nil, apperrors.ErrMissingAccountNumber
	}
	if !s.gateway.Configured() {
		return nil, apperrors.ErrGatewayMisconfigured
	}

	if req.ReferenceID != "" {
		return s.disbursementStatus(ctx, req)
	}

	referenceID := uuid.NewString()
	currency := currencyOrDefault(req.Currency)

	resp, err := s.gateway.DisburseMobileMoney(ctx, gateway.DisbursementRequest{
		ReferenceID:   referenceID,
		Amount:        req.Amount,
		Currency:      currency,
		AccountNumber: req.AccountNumber,
		Narration:     narration,
	})
	if err != nil {
		return nil, err
	}
	log.Printf("Disbursement %s created: %.2f %s", referenceID, req.Amount, currency)

	if req.TransactionID != "" {
		s.linkDisbursement(ctx, req, referenceID, resp)
	}

	return resp.Merge(models.JSON{"success": true, "referenceId": referenceID}), nil
}

// disbursementStatus returns the gateway payload unchanged. A Successful
// payout completes the linked record; if that write fails the mismatch is
// queued for reconciliation and the caller still gets the payload.
func (s *service) disbursementStatus(ctx context.Context, req DisbursementRequest) (models.JSON, error) {
	resp, err := s.gateway.DisbursementStatus(ctx, req.ReferenceID)
	if err != nil {
		return nil, err
	}

	if resp.String("status") != gateway.StatusSuccessful || req.TransactionID == "" {
		return resp, nil
	}

	record, err := s.linkedRecord(ctx, req)
	if err != nil {
		log.Printf("Disbursement %s not applied to transaction %s: %v", req.ReferenceID, req.TransactionID, err)
		return resp, nil
	}
	if record.PaymentReference != "" && record.PaymentReference != req.ReferenceID {
		log.Printf("Disbursement %s not applied to transaction %s: record is linked to %s",
			req.ReferenceID, req.TransactionID, record.PaymentReference)
		return resp, nil
	}

	_, _, err = s.transfers.Advance(ctx, req.TransactionID, models.StatusCompleted,
		map[string]interface{}{"payment_date": time.Now()})
	if err == nil {
		return resp, nil
	}

	log.Printf("Failed to complete transaction %s after successful disbursement %s: %v",
		req.TransactionID, req.ReferenceID, err)
	if qerr := s.queueStatusWrite(ctx, req.TransactionID, req.ReferenceID, models.StatusCompleted, resp, err); qerr != nil {
		log.Printf("Failed to queue reconciliation for transaction %s: %v", req.TransactionID, qerr)
	}
	return resp, nil
}

// linkDisbursement moves the caller's pending record to processing under the
// new payout reference. If that write fails the reference is queued so the
// payout can still be matched by the worker or an operator.
func (s *service) linkDisbursement(ctx context.Context, req DisbursementRequest, referenceID string, resp models.JSON) {
	if _, err := s.linkedRecord(ctx, req); err != nil {
		log.Printf("Disbursement %s not linked to transaction %s: %v", referenceID, req.TransactionID, err)
		return
	}

	_, err := s.transfers.Transition(ctx, req.TransactionID, models.StatusPending, models.StatusProcessing,
		map[string]interface{}{"payment_reference": referenceID})
	if err == nil {
		return
	}

	log.Printf("Failed to mark transaction %s processing after disbursement %s: %v",
		req.TransactionID, referenceID, err)
	if qerr := s.queueStatusWrite(ctx, req.TransactionID, referenceID, models.StatusProcessing, resp, err); qerr != nil {
		log.Printf("Failed to queue reconciliation for transaction %s: %v", req.TransactionID, qerr)
	}
}

// linkedRecord loads the record a disbursement names, provided the caller
// sent it or is an admin.
func (s *service) linkedRecord(ctx context.Context, req DisbursementRequest) (*models.Transaction, error) {
	if req.CallerIsAdmin {
		return s.transfers.Get(ctx, req.TransactionID, 0)
	}
	if req.CallerID == 0 {
		return nil, apperrors.ErrTransactionNotFound
	}
	return s.transfers.Get(ctx, req.TransactionID, req.CallerID)
}

func (s *service) queueStatusWrite(ctx context.Context, transactionID, referenceID string, target models.TransactionStatus, resp models.JSON, cause error) error {
	open, err := s.reconcile.HasEntry(ctx, models.ReconcileStatusWrite, transactionID, models.ReconcileOpen)
	if err != nil {
		return err
	}
	if open {
		return nil
	}

	payload, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("failed to encode gateway payload: %w", err)
	}

	entry := &models.ReconciliationEntry{
		Kind:          models.ReconcileStatusWrite,
		TransactionID: transactionID,
		ReferenceID:   referenceID,
		TargetStatus:  target,
		MaxAttempts:   s.maxAttempts,
		LastError:     cause.Error(),
		Payload:       datatypes.JSON(payload),
	}
	if err := s.reconcile.Create(ctx, entry); err != nil {
		return err
	}
	log.Printf("[RECONCILER] queued %s write for transaction %s (entry %d)", target, transactionID, entry.ID)
	return nil
}
