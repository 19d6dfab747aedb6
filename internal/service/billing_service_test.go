package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"patient-payments/internal/core/domain"
	"patient-payments/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestBillingService_UpdatePayment_StatusMapping(t *testing.T) {
	tests := []struct {
		paymentStatus string
		want          domain.BillingStatus
	}{
		{"completed", domain.BillingStatusPaid},
		{"failed", domain.BillingStatusPending},
		{"pending", domain.BillingStatusPending},
		{"COMPLETED", domain.BillingStatusPending},
	}

	for _, tt := range tests {
		t.Run(tt.paymentStatus, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			repo := mocks.NewMockBillingRepository(ctrl)
			svc := NewBillingService(repo, newTestLogger())
			svc.now = fixedNow

			update := domain.BillingPaymentUpdate{
				BillingID:            uuid.New(),
				PaymentMethodType:    "credit",
				PaymentTransactionID: "tx-123",
				PaymentStatus:        tt.paymentStatus,
			}
			paidAt := fixedNow()

			repo.EXPECT().UpdatePayment(gomock.Any(), update, tt.want, paidAt).Return(&domain.BillingRecord{
				ID:                   update.BillingID,
				Status:               tt.want,
				PaymentStatus:        tt.paymentStatus,
				PaymentTransactionID: "tx-123",
				PaymentDate:          &paidAt,
			}, nil)

			record, err := svc.UpdatePayment(context.Background(), update)
			require.NoError(t, err)
			assert.Equal(t, tt.want, record.Status)
			assert.Equal(t, paidAt, *record.PaymentDate)
		})
	}
}

func TestBillingService_UpdatePayment_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockBillingRepository(ctrl)
	svc := NewBillingService(repo, newTestLogger())

	repo.EXPECT().UpdatePayment(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil)

	_, err := svc.UpdatePayment(context.Background(), domain.BillingPaymentUpdate{BillingID: uuid.New(), PaymentStatus: "completed"})
	assertAppError(t, err, "PAY_002")
}

func TestBillingService_UpdatePayment_RepoError(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockBillingRepository(ctrl)
	svc := NewBillingService(repo, newTestLogger())

	repo.EXPECT().UpdatePayment(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errors.New("timeout"))

	_, err := svc.UpdatePayment(context.Background(), domain.BillingPaymentUpdate{BillingID: uuid.New(), PaymentStatus: "completed"})
	assertAppError(t, err, "SYS_001")
}

func TestBillingService_UpdatePayment_RequiresStatus(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := NewBillingService(mocks.NewMockBillingRepository(ctrl), newTestLogger())

	_, err := svc.UpdatePayment(context.Background(), domain.BillingPaymentUpdate{BillingID: uuid.New()})
	assertAppError(t, err, "VAL_005")
}

func TestBillingService_SetsPaymentDateToNow(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockBillingRepository(ctrl)
	svc := NewBillingService(repo, newTestLogger())

	before := time.Now().UTC()
	repo.EXPECT().UpdatePayment(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, u domain.BillingPaymentUpdate, s domain.BillingStatus, at time.Time) (*domain.BillingRecord, error) {
			assert.False(t, at.Before(before))
			assert.Equal(t, time.UTC, at.Location())
			return &domain.BillingRecord{ID: u.BillingID, Status: s, PaymentDate: &at}, nil
		})

	_, err := svc.UpdatePayment(context.Background(), domain.BillingPaymentUpdate{BillingID: uuid.New(), PaymentStatus: "completed"})
	require.NoError(t, err)
}
