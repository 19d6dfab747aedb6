package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"patient-payments/internal/core/domain"
	"patient-payments/internal/core/ports"
	"patient-payments/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// PaymentServiceImpl implements ports.PaymentService.
type PaymentServiceImpl struct {
	validator  ports.PaymentValidator
	cipher     ports.Cipher
	audit      ports.AuditTrail
	gateway    ports.PaymentGateway
	methodRepo ports.PaymentMethodRepository
	txRepo     ports.TransactionRepository
	secret     string
	now        func() time.Time
	log        zerolog.Logger
}

// NewPaymentService creates a new PaymentServiceImpl. secret is the
// card-data encryption secret; when empty a random one is generated and
// envelopes written by this process cannot be read after it exits.
func NewPaymentService(
	validator ports.PaymentValidator,
	cipher ports.Cipher,
	audit ports.AuditTrail,
	gateway ports.PaymentGateway,
	methodRepo ports.PaymentMethodRepository,
	txRepo ports.TransactionRepository,
	secret string,
	log zerolog.Logger,
) *PaymentServiceImpl {
	if secret == "" {
		secret = uuid.NewString()
		log.Warn().Msg("no card encryption secret configured, using an ephemeral one")
	}
	return &PaymentServiceImpl{
		validator:  validator,
		cipher:     cipher,
		audit:      audit,
		gateway:    gateway,
		methodRepo: methodRepo,
		txRepo:     txRepo,
		secret:     secret,
		now:        time.Now,
		log:        log,
	}
}

// AddPaymentMethod validates and encrypts the card, stores the envelope and
// returns the non-sensitive token. Validation failures are not audited.
func (s *PaymentServiceImpl) AddPaymentMethod(ctx context.Context, details domain.CardDetails) (*domain.PaymentMethod, error) {
	card, err := s.validator.Validate(details)
	if err != nil {
		return nil, err
	}

	envelope, err := s.cipher.Encrypt([]byte(card.Number), s.secret)
	if err != nil {
		return nil, err
	}

	stored := &domain.StoredPaymentMethod{
		PaymentMethod: domain.PaymentMethod{
			ID:          uuid.New(),
			Kind:        card.Kind,
			Last4:       card.Last4(),
			ExpiryMonth: card.ExpiryMonth,
			ExpiryYear:  card.ExpiryYear,
			CreatedAt:   s.now().UTC(),
		},
		Envelope: envelope,
	}

	if err := s.methodRepo.Create(ctx, stored); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("create payment method: %w", err))
	}

	s.audit.Append(ctx, domain.AuditEntry{
		Action: domain.AuditActionAddPaymentMethod,
		Details: map[string]any{
			"paymentMethodId": stored.ID.String(),
			"type":            string(stored.Kind),
		},
	})

	s.log.Info().
		Str("payment_method_id", stored.ID.String()).
		Str("type", string(stored.Kind)).
		Str("last4", stored.Last4).
		Msg("payment method added")

	method := stored.PaymentMethod
	return &method, nil
}

// GetPaymentMethod returns the token for id.
func (s *PaymentServiceImpl) GetPaymentMethod(ctx context.Context, id uuid.UUID) (*domain.PaymentMethod, error) {
	stored, err := s.methodRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("get payment method: %w", err))
	}
	if stored == nil {
		return nil, apperror.ErrNotFound("Payment method")
	}
	method := stored.PaymentMethod
	return &method, nil
}

// ProcessPayment charges a stored payment method.
//
// The transaction is persisted pending, the gateway is called, and the
// transaction moves to completed or failed. One PROCESS_PAYMENT audit entry
// is written in both cases before returning. A gateway error is returned
// unchanged together with the failed transaction.
func (s *PaymentServiceImpl) ProcessPayment(ctx context.Context, req ports.PaymentRequest) (*domain.Transaction, error) {
	if !domain.ValidAmount(req.Amount) {
		return nil, apperror.ErrInvalidAmount()
	}

	if _, err := s.GetPaymentMethod(ctx, req.PaymentMethodID); err != nil {
		return nil, err
	}

	txn := domain.NewTransaction(req.Amount, req.Currency, req.PaymentMethodID, req.Metadata, s.now())
	if err := s.txRepo.Create(ctx, txn); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create transaction: %w", err))
	}

	// The charge and everything after it must finish even if the caller
	// goes away.
	ctx = context.WithoutCancel(ctx)

	chargeErr := s.gateway.ExecuteCharge(ctx, txn.Amount, txn.PaymentMethodID)
	if chargeErr != nil {
		_ = txn.Fail(s.now())
	} else {
		_ = txn.Complete(s.now())
	}

	persisted := true
	if err := s.txRepo.UpdateStatus(ctx, txn); err != nil {
		persisted = false
		ev := s.log.Error().Err(err).Str("transaction_id", txn.ID.String()).Str("status", string(txn.Status))
		if errors.Is(err, domain.ErrInvalidTransition) {
			ev = ev.Str("error_code", apperror.ErrInvalidTransition().Code)
		}
		ev.Msg("failed to persist transaction status")
	}

	details := map[string]any{
		"transactionId": txn.ID.String(),
		"amount":        txn.Amount.StringFixed(domain.AmountScale),
		"status":        string(txn.Status),
	}
	if chargeErr != nil {
		details["error"] = chargeErr.Error()
	}
	// The store still holds this transaction as pending; reconcile from here.
	if !persisted {
		details["persisted"] = false
	}
	s.audit.Append(ctx, domain.AuditEntry{
		Action:  domain.AuditActionProcessPayment,
		Details: details,
	})

	if chargeErr != nil {
		s.log.Warn().
			Err(chargeErr).
			Str("transaction_id", txn.ID.String()).
			Msg("payment failed")
		return txn, chargeErr
	}

	s.log.Info().
		Str("transaction_id", txn.ID.String()).
		Str("amount", txn.Amount.String()).
		Str("currency", txn.Currency).
		Msg("payment completed")

	return txn, nil
}
