package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"patient-payments/internal/core/domain"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// BillingRepo implements ports.BillingRepository against billing_records.
type BillingRepo struct {
	pool Pool
}

func NewBillingRepo(pool Pool) *BillingRepo {
	return &BillingRepo{pool: pool}
}

// UpdatePayment records a payment outcome on a bill and returns the updated
// row, or nil when no bill has that id.
func (r *BillingRepo) UpdatePayment(ctx context.Context, u domain.BillingPaymentUpdate, status domain.BillingStatus, paidAt time.Time) (*domain.BillingRecord, error) {
	query := `UPDATE billing_records
		SET status = $1, payment_method_type = $2, payment_transaction_id = $3,
			payment_status = $4, payment_date = $5, updated_at = $5
		WHERE id = $6
		RETURNING id, amount::text, patient_responsibility::text, status,
			payment_method_type, payment_transaction_id, payment_status, payment_date`

	var (
		rec            domain.BillingRecord
		amount, owed   string
		recordedStatus string
	)
	err := r.pool.QueryRow(ctx, query,
		string(status), u.PaymentMethodType, u.PaymentTransactionID,
		u.PaymentStatus, paidAt, u.BillingID,
	).Scan(
		&rec.ID, &amount, &owed, &recordedStatus,
		&rec.PaymentMethodType, &rec.PaymentTransactionID, &rec.PaymentStatus, &rec.PaymentDate,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("update billing payment: %w", err)
	}

	if rec.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("parse billing amount: %w", err)
	}
	if rec.PatientResponsibility, err = decimal.NewFromString(owed); err != nil {
		return nil, fmt.Errorf("parse patient responsibility: %w", err)
	}
	rec.Status = domain.BillingStatus(recordedStatus)
	return &rec, nil
}
