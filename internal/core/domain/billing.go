package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BillingStatus is the patient-facing state of a bill.
type BillingStatus string

const (
	BillingStatusPending   BillingStatus = "pending"
	BillingStatusPaid      BillingStatus = "paid"
	BillingStatusProcessed BillingStatus = "processed"
)

// BillingRecord holds the fields of a bill that the payment core writes.
type BillingRecord struct {
	ID                    uuid.UUID       `json:"id"`
	Amount                decimal.Decimal `json:"amount"`
	PatientResponsibility decimal.Decimal `json:"patient_responsibility"`
	Status                BillingStatus   `json:"status"`
	PaymentMethodType     string          `json:"payment_method_type,omitempty"`
	PaymentTransactionID  string          `json:"payment_transaction_id,omitempty"`
	PaymentStatus         string          `json:"payment_status,omitempty"`
	PaymentDate           *time.Time      `json:"payment_date,omitempty"`
}

// BillingPaymentUpdate is the payment confirmation pushed to a bill.
type BillingPaymentUpdate struct {
	BillingID            uuid.UUID
	PaymentMethodType    string
	PaymentTransactionID string
	PaymentStatus        string
}

// BillingStatusFor maps a payment status onto a bill status: only
// "completed" pays the bill.
func BillingStatusFor(paymentStatus string) BillingStatus {
	if paymentStatus == string(TransactionStatusCompleted) {
		return BillingStatusPaid
	}
	return BillingStatusPending
}
