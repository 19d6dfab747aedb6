package domain

import (
	"time"

	"github.com/google/uuid"
)

// CardKind is the coarse classification of a card.
type CardKind string

const (
	CardKindCredit CardKind = "credit"
	CardKindDebit  CardKind = "debit"
)

// PaymentMethod is the non-sensitive token handed back to callers.
// It never carries the card number or CVV.
type PaymentMethod struct {
	ID          uuid.UUID `json:"id"`
	Kind        CardKind  `json:"type"`
	Last4       string    `json:"last4"`
	ExpiryMonth int       `json:"expiry_month"`
	ExpiryYear  int       `json:"expiry_year"`
	CreatedAt   time.Time `json:"created_at"`
}

// StoredPaymentMethod is the persisted form: the token plus the encrypted
// card number envelope.
type StoredPaymentMethod struct {
	PaymentMethod
	Envelope string `json:"-"`
}

// CardDetails is raw card input as submitted by the patient.
type CardDetails struct {
	CardNumber  string
	ExpiryMonth string
	ExpiryYear  string
	CVV         string
}

// String keeps card data out of logs and %v output.
func (CardDetails) String() string {
	return "CardDetails{redacted}"
}

// GoString mirrors String for %#v.
func (d CardDetails) GoString() string {
	return d.String()
}

// ValidatedCard is the normalized result of a successful validation.
type ValidatedCard struct {
	Number      string // digits only
	Kind        CardKind
	ExpiryMonth int
	ExpiryYear  int
}

// Last4 returns the final four digits of the normalized number.
func (v ValidatedCard) Last4() string {
	if len(v.Number) < 4 {
		return v.Number
	}
	return v.Number[len(v.Number)-4:]
}
