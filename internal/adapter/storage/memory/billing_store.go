package memory

import (
	"context"
	"sync"
	"time"

	"patient-payments/internal/core/domain"

	"github.com/google/uuid"
)

// BillingStore holds billing records for dev runs and tests. Records are
// seeded with Put; the payment core only updates them.
type BillingStore struct {
	mu      sync.RWMutex
	records map[uuid.UUID]domain.BillingRecord
}

func NewBillingStore() *BillingStore {
	return &BillingStore{records: make(map[uuid.UUID]domain.BillingRecord)}
}

// Put inserts or replaces a record.
func (s *BillingStore) Put(record domain.BillingRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.ID] = record
}

func (s *BillingStore) UpdatePayment(_ context.Context, update domain.BillingPaymentUpdate, status domain.BillingStatus, paidAt time.Time) (*domain.BillingRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[update.BillingID]
	if !ok {
		return nil, nil
	}
	rec.PaymentMethodType = update.PaymentMethodType
	rec.PaymentTransactionID = update.PaymentTransactionID
	rec.PaymentStatus = update.PaymentStatus
	rec.PaymentDate = &paidAt
	rec.Status = status
	s.records[rec.ID] = rec
	return &rec, nil
}
