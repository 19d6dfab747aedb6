package memory

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"patient-payments/internal/core/domain"

	"github.com/google/uuid"
)

// TransactionStore keeps transactions in memory and enforces the
// pending-to-terminal rule on status updates.
type TransactionStore struct {
	mu  sync.RWMutex
	txs map[uuid.UUID]domain.Transaction
}

func NewTransactionStore() *TransactionStore {
	return &TransactionStore{txs: make(map[uuid.UUID]domain.Transaction)}
}

func (s *TransactionStore) Create(_ context.Context, tx *domain.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.txs[tx.ID]; exists {
		return fmt.Errorf("transaction %s already exists", tx.ID)
	}
	cp := *tx
	cp.Metadata = maps.Clone(tx.Metadata)
	s.txs[tx.ID] = cp
	return nil
}

func (s *TransactionStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, ok := s.txs[id]
	if !ok {
		return nil, nil
	}
	tx.Metadata = maps.Clone(tx.Metadata)
	return &tx, nil
}

func (s *TransactionStore) UpdateStatus(_ context.Context, tx *domain.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.txs[tx.ID]
	if !ok || current.Status != domain.TransactionStatusPending {
		return domain.ErrInvalidTransition
	}
	current.Status = tx.Status
	current.ProcessedAt = tx.ProcessedAt
	s.txs[tx.ID] = current
	return nil
}

// List returns every stored transaction. Test-only helper.
func (s *TransactionStore) List() []domain.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Transaction, 0, len(s.txs))
	for _, tx := range s.txs {
		out = append(out, tx)
	}
	return out
}
