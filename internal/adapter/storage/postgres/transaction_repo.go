package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"patient-payments/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// TransactionRepo implements ports.TransactionRepository.
type TransactionRepo struct {
	pool Pool
}

// NewTransactionRepo creates a new TransactionRepo.
func NewTransactionRepo(pool Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

// Create inserts a new pending transaction. Amounts travel as text so the
// NUMERIC column keeps full precision.
func (r *TransactionRepo) Create(ctx context.Context, t *domain.Transaction) error {
	metadata, err := encodeMetadata(t.Metadata)
	if err != nil {
		return err
	}

	query := `INSERT INTO transactions (id, amount, currency, status, payment_method_id, metadata, created_at, processed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err = r.pool.Exec(ctx, query,
		t.ID, t.Amount.String(), t.Currency, string(t.Status),
		t.PaymentMethodID, metadata, t.Timestamp, t.ProcessedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// GetByID fetches a transaction by UUID.
func (r *TransactionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	query := `SELECT id, amount::text, currency, status, payment_method_id, metadata, created_at, processed_at
		FROM transactions WHERE id = $1`

	return r.scanTransaction(r.pool.QueryRow(ctx, query, id))
}

// UpdateStatus writes the terminal status of t. The pending guard lives in
// the WHERE clause so a second writer cannot flip a finished transaction.
func (r *TransactionRepo) UpdateStatus(ctx context.Context, t *domain.Transaction) error {
	query := `UPDATE transactions SET status = $1, processed_at = $2 WHERE id = $3 AND status = 'pending'`

	tag, err := r.pool.Exec(ctx, query, string(t.Status), t.ProcessedAt, t.ID)
	if err != nil {
		return fmt.Errorf("update transaction status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("transaction %s: %w", t.ID, domain.ErrInvalidTransition)
	}
	return nil
}

// scanTransaction is a helper to scan a single row into a Transaction.
func (r *TransactionRepo) scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var (
		t        domain.Transaction
		amount   string
		status   string
		metadata []byte
	)
	err := row.Scan(
		&t.ID, &amount, &t.Currency, &status,
		&t.PaymentMethodID, &metadata, &t.Timestamp, &t.ProcessedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan transaction: %w", err)
	}

	if t.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("parse transaction amount: %w", err)
	}
	t.Status = domain.TransactionStatus(status)
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &t.Metadata); err != nil {
			return nil, fmt.Errorf("decode transaction metadata: %w", err)
		}
		if len(t.Metadata) == 0 {
			t.Metadata = nil
		}
	}
	return &t, nil
}

func encodeMetadata(m map[string]any) ([]byte, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	return b, nil
}
