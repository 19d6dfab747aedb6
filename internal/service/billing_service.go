package service

import (
	"context"
	"fmt"
	"time"

	"patient-payments/internal/core/domain"
	"patient-payments/internal/core/ports"
	"patient-payments/pkg/apperror"

	"github.com/rs/zerolog"
)

// BillingServiceImpl implements ports.BillingService.
type BillingServiceImpl struct {
	repo ports.BillingRepository
	now  func() time.Time
	log  zerolog.Logger
}

// NewBillingService creates a new BillingServiceImpl.
func NewBillingService(repo ports.BillingRepository, log zerolog.Logger) *BillingServiceImpl {
	return &BillingServiceImpl{repo: repo, now: time.Now, log: log}
}

// UpdatePayment records a payment confirmation on a bill. Only a
// "completed" payment marks the bill paid; the payment date is always set.
func (s *BillingServiceImpl) UpdatePayment(ctx context.Context, update domain.BillingPaymentUpdate) (*domain.BillingRecord, error) {
	if update.PaymentStatus == "" {
		return nil, apperror.Validation("payment status is required")
	}

	status := domain.BillingStatusFor(update.PaymentStatus)
	record, err := s.repo.UpdatePayment(ctx, update, status, s.now().UTC())
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("update billing payment: %w", err))
	}
	if record == nil {
		return nil, apperror.ErrNotFound("Billing record")
	}

	s.log.Info().
		Str("billing_id", update.BillingID.String()).
		Str("payment_transaction_id", update.PaymentTransactionID).
		Str("status", string(record.Status)).
		Msg("billing payment updated")

	return record, nil
}
