package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultCurrency is applied when a payment request names none.
const DefaultCurrency = "USD"

// ErrInvalidTransition is returned when a terminal transaction is asked to
// change status.
var ErrInvalidTransition = errors.New("transaction already in terminal state")

// TransactionStatus represents the lifecycle state of a transaction.
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
)

// Transaction is a single charge attempt against a stored payment method.
// It is created pending and moves exactly once to completed or failed.
// A retry is a new Transaction.
type Transaction struct {
	ID              uuid.UUID         `json:"id"`
	Amount          decimal.Decimal   `json:"amount"`
	Currency        string            `json:"currency"`
	Status          TransactionStatus `json:"status"`
	PaymentMethodID uuid.UUID         `json:"payment_method_id"`
	Metadata        map[string]any    `json:"metadata,omitempty"`
	Timestamp       time.Time         `json:"timestamp"`
	ProcessedAt     *time.Time        `json:"processed_at,omitempty"`
}

// NewTransaction builds a pending transaction. Currency falls back to
// DefaultCurrency.
func NewTransaction(amount decimal.Decimal, currency string, paymentMethodID uuid.UUID, metadata map[string]any, now time.Time) *Transaction {
	if currency == "" {
		currency = DefaultCurrency
	}
	return &Transaction{
		ID:              uuid.New(),
		Amount:          amount,
		Currency:        currency,
		Status:          TransactionStatusPending,
		PaymentMethodID: paymentMethodID,
		Metadata:        metadata,
		Timestamp:       now.UTC(),
	}
}

// IsTerminal returns true if the transaction is in a final state.
func (t *Transaction) IsTerminal() bool {
	return t.Status == TransactionStatusCompleted ||
		t.Status == TransactionStatusFailed
}

// Complete moves a pending transaction to completed.
func (t *Transaction) Complete(at time.Time) error {
	return t.transition(TransactionStatusCompleted, at)
}

// Fail moves a pending transaction to failed.
func (t *Transaction) Fail(at time.Time) error {
	return t.transition(TransactionStatusFailed, at)
}

func (t *Transaction) transition(to TransactionStatus, at time.Time) error {
	if t.IsTerminal() {
		return ErrInvalidTransition
	}
	t.Status = to
	ts := at.UTC()
	t.ProcessedAt = &ts
	return nil
}

// AmountScale is the most decimal places a charge may carry.
const AmountScale = 2

// ValidAmount reports whether amount is strictly positive and representable
// in AmountScale decimal places. "1.500" is accepted, "1.005" is not.
func ValidAmount(amount decimal.Decimal) bool {
	return amount.IsPositive() && amount.Equal(amount.Truncate(AmountScale))
}
