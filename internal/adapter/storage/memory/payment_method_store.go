package memory

import (
	"context"
	"fmt"
	"sync"

	"patient-payments/internal/core/domain"

	"github.com/google/uuid"
)

// PaymentMethodStore keeps tokenized payment methods in memory.
type PaymentMethodStore struct {
	mu      sync.RWMutex
	methods map[uuid.UUID]domain.StoredPaymentMethod
}

func NewPaymentMethodStore() *PaymentMethodStore {
	return &PaymentMethodStore{methods: make(map[uuid.UUID]domain.StoredPaymentMethod)}
}

func (s *PaymentMethodStore) Create(_ context.Context, method *domain.StoredPaymentMethod) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.methods[method.ID]; exists {
		return fmt.Errorf("payment method %s already exists", method.ID)
	}
	s.methods[method.ID] = *method
	return nil
}

func (s *PaymentMethodStore) GetByID(_ context.Context, id uuid.UUID) (*domain.StoredPaymentMethod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.methods[id]
	if !ok {
		return nil, nil
	}
	return &m, nil
}
