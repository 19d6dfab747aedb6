package ports

import (
	"context"
	"time"

	"patient-payments/internal/core/domain"

	"github.com/google/uuid"
)

//go:generate mockgen -source=repositories.go -destination=mocks/repositories_mock.go -package=mocks

// PaymentMethodRepository persists tokenized payment methods.
type PaymentMethodRepository interface {
	Create(ctx context.Context, method *domain.StoredPaymentMethod) error
	// GetByID returns nil, nil when the method does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.StoredPaymentMethod, error)
}

// TransactionRepository defines persistence operations for transactions.
type TransactionRepository interface {
	Create(ctx context.Context, transaction *domain.Transaction) error
	// GetByID returns nil, nil when the transaction does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
	// UpdateStatus moves a pending transaction to a terminal status and
	// returns domain.ErrInvalidTransition if it is no longer pending.
	UpdateStatus(ctx context.Context, transaction *domain.Transaction) error
}

// BillingRepository writes payment confirmations onto billing records.
type BillingRepository interface {
	// UpdatePayment returns nil, nil when the record does not exist.
	UpdatePayment(ctx context.Context, update domain.BillingPaymentUpdate, status domain.BillingStatus, paidAt time.Time) (*domain.BillingRecord, error)
}

// AuditStore is the durable side of the audit trail.
type AuditStore interface {
	// Append persists entry and returns it with its assigned sequence.
	Append(ctx context.Context, entry domain.AuditEntry) (domain.AuditEntry, error)
	// Scan returns up to limit matching entries strictly after the given key,
	// in key order. A nil after starts from the beginning.
	Scan(ctx context.Context, filter domain.AuditFilter, after *domain.AuditKey, limit int) ([]domain.AuditEntry, error)
}
