package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// AddPaymentMethodRequest is the request body for tokenizing a card. Field
// content is checked by the payment validator, not by binding, so the
// specific VAL_00x codes reach the client.
type AddPaymentMethodRequest struct {
	CardNumber  string `json:"card_number" binding:"required,max=32"`
	ExpiryMonth string `json:"expiry_month" binding:"required,max=2"`
	ExpiryYear  string `json:"expiry_year" binding:"required,max=4"`
	CVV         string `json:"cvv" binding:"required,max=8"`
}

// PaymentMethodResponse is the non-sensitive token returned to the portal.
type PaymentMethodResponse struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Last4       string `json:"last4"`
	ExpiryMonth int    `json:"expiry_month"`
	ExpiryYear  int    `json:"expiry_year"`
	CreatedAt   string `json:"created_at"`
}

// ProcessPaymentRequest is the request body for charging a stored method.
type ProcessPaymentRequest struct {
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency" binding:"omitempty,currency"`
	PaymentMethodID string          `json:"payment_method_id" binding:"required,uuid"`
	Metadata        map[string]any  `json:"metadata,omitempty"`
}

// TransactionResponse is the response body for transaction results.
type TransactionResponse struct {
	ID              string         `json:"id"`
	Amount          string         `json:"amount"`
	Currency        string         `json:"currency"`
	Status          string         `json:"status"`
	PaymentMethodID string         `json:"payment_method_id"`
	Metadata        map[string]any `json:"metadata,omitempty"`
	Timestamp       string         `json:"timestamp"`
	ProcessedAt     *string        `json:"processed_at,omitempty"`
}

// BillingPaymentRequest is the payment confirmation pushed onto a bill.
type BillingPaymentRequest struct {
	PaymentMethodType    string `json:"payment_method_type" binding:"omitempty,max=32,safe_id"`
	PaymentTransactionID string `json:"payment_transaction_id" binding:"required,max=100,safe_id"`
	PaymentStatus        string `json:"payment_status" binding:"required,max=32,safe_id"`
}

// BillingRecordResponse is the bill after a payment update.
type BillingRecordResponse struct {
	ID                    string  `json:"id"`
	Amount                string  `json:"amount"`
	PatientResponsibility string  `json:"patient_responsibility"`
	Status                string  `json:"status"`
	PaymentMethodType     string  `json:"payment_method_type,omitempty"`
	PaymentTransactionID  string  `json:"payment_transaction_id,omitempty"`
	PaymentStatus         string  `json:"payment_status,omitempty"`
	PaymentDate           *string `json:"payment_date,omitempty"`
}

// AuditQueryParams are the query-string filters of GET /audit.
type AuditQueryParams struct {
	Action        string    `form:"action" binding:"omitempty,oneof=ADD_PAYMENT_METHOD PROCESS_PAYMENT"`
	ActorID       string    `form:"actor_id" binding:"omitempty,max=128"`
	IP            string    `form:"ip" binding:"omitempty,ip"`
	TransactionID string    `form:"transaction_id" binding:"omitempty,max=100,safe_id"`
	From          time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To            time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
	Limit         int       `form:"limit" binding:"omitempty,min=1,max=1000"`
}

// AuditEntryResponse is one audit record.
type AuditEntryResponse struct {
	Timestamp string         `json:"timestamp"`
	Sequence  int64          `json:"sequence"`
	Action    string         `json:"action"`
	ActorID   string         `json:"actor_id"`
	ClientIP  string         `json:"client_ip"`
	UserAgent string         `json:"user_agent"`
	Details   map[string]any `json:"details"`
}

// AuditListResponse wraps audit query results. Truncated is set when more
// entries matched than the limit allowed.
type AuditListResponse struct {
	Items     []AuditEntryResponse `json:"items"`
	Count     int                  `json:"count"`
	Truncated bool                 `json:"truncated"`
}
