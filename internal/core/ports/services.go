package ports

import (
	"context"
	"iter"
	"time"

	"patient-payments/internal/core/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

//go:generate mockgen -source=services.go -destination=mocks/services_mock.go -package=mocks

// KeyDeriver turns a secret and a 16-byte salt into a 256-bit key.
type KeyDeriver interface {
	Derive(secret string, salt []byte) ([]byte, error)
}

// Cipher handles authenticated encryption of opaque payloads.
// Decrypt failures are indistinguishable from one another.
type Cipher interface {
	Encrypt(plaintext []byte, secret string) (string, error)
	Decrypt(envelope string, secret string) ([]byte, error)
}

// PaymentValidator checks raw card input, failing fast in order:
// card number, expiry, CVV.
type PaymentValidator interface {
	Validate(details domain.CardDetails) (domain.ValidatedCard, error)
}

// CardClassifier decides credit vs debit from the card digits.
type CardClassifier interface {
	Classify(digits string) domain.CardKind
}

// AuditTrail is the append-only log of security-relevant actions.
type AuditTrail interface {
	// Append never fails the caller; persistence errors are logged.
	Append(ctx context.Context, entry domain.AuditEntry)
	// Query lazily yields matching entries in key order.
	Query(ctx context.Context, filter domain.AuditFilter) iter.Seq2[domain.AuditEntry, error]
}

// PaymentGateway executes a charge against a card processor.
type PaymentGateway interface {
	ExecuteCharge(ctx context.Context, amount decimal.Decimal, paymentMethodID uuid.UUID) error
}

// TokenService handles JWT token operations.
type TokenService interface {
	Generate(subject string) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	Subject string
}

// RateLimitStore counts requests per key in fixed windows.
type RateLimitStore interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (*RateLimitResult, error)
}

// RateLimitResult holds the outcome of a rate limit check.
type RateLimitResult struct {
	Allowed   bool
	Limit     int64
	Remaining int64
	ResetAt   int64 // Unix timestamp
}

// --- Service Ports (Business Logic) ---

// PaymentService defines the core payment business logic.
type PaymentService interface {
	AddPaymentMethod(ctx context.Context, details domain.CardDetails) (*domain.PaymentMethod, error)
	GetPaymentMethod(ctx context.Context, id uuid.UUID) (*domain.PaymentMethod, error)
	ProcessPayment(ctx context.Context, req PaymentRequest) (*domain.Transaction, error)
}

// PaymentRequest holds validated input for payment processing.
type PaymentRequest struct {
	Amount          decimal.Decimal
	Currency        string // empty = domain.DefaultCurrency
	PaymentMethodID uuid.UUID
	Metadata        map[string]any
}

// BillingService pushes payment confirmations onto billing records.
type BillingService interface {
	UpdatePayment(ctx context.Context, update domain.BillingPaymentUpdate) (*domain.BillingRecord, error)
}
