package postgres

import (
	"context"
	"errors"
	"fmt"

	"patient-payments/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// PaymentMethodRepo implements ports.PaymentMethodRepository.
type PaymentMethodRepo struct {
	pool Pool
}

func NewPaymentMethodRepo(pool Pool) *PaymentMethodRepo {
	return &PaymentMethodRepo{pool: pool}
}

// Create inserts a tokenized payment method with its encrypted envelope.
func (r *PaymentMethodRepo) Create(ctx context.Context, m *domain.StoredPaymentMethod) error {
	query := `INSERT INTO payment_methods (id, card_kind, last4, expiry_month, expiry_year, envelope, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.pool.Exec(ctx, query,
		m.ID, string(m.Kind), m.Last4, m.ExpiryMonth, m.ExpiryYear,
		m.Envelope, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert payment method: %w", err)
	}
	return nil
}

// GetByID fetches a payment method by UUID.
func (r *PaymentMethodRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.StoredPaymentMethod, error) {
	query := `SELECT id, card_kind, last4, expiry_month, expiry_year, envelope, created_at
		FROM payment_methods WHERE id = $1`

	var (
		m    domain.StoredPaymentMethod
		kind string
	)
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&m.ID, &kind, &m.Last4, &m.ExpiryMonth, &m.ExpiryYear,
		&m.Envelope, &m.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get payment method by id: %w", err)
	}
	m.Kind = domain.CardKind(kind)
	return &m, nil
}
