package handler

import (
	"time"

	"patient-payments/internal/adapter/http/dto"
	"patient-payments/internal/core/domain"
	"patient-payments/internal/core/ports"
	"patient-payments/pkg/apperror"
	"patient-payments/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// BillingHandler exposes the billing boundary update.
type BillingHandler struct {
	billingSvc ports.BillingService
}

func NewBillingHandler(billingSvc ports.BillingService) *BillingHandler {
	return &BillingHandler{billingSvc: billingSvc}
}

// UpdatePayment handles PUT /api/v1/billing/:id/payment.
func (h *BillingHandler) UpdatePayment(c *gin.Context) {
	billingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("billing id must be a UUID"))
		return
	}

	var req dto.BillingPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	rec, err := h.billingSvc.UpdatePayment(c.Request.Context(), domain.BillingPaymentUpdate{
		BillingID:            billingID,
		PaymentMethodType:    req.PaymentMethodType,
		PaymentTransactionID: req.PaymentTransactionID,
		PaymentStatus:        req.PaymentStatus,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toBillingRecordResponse(rec))
}

func toBillingRecordResponse(r *domain.BillingRecord) dto.BillingRecordResponse {
	resp := dto.BillingRecordResponse{
		ID:                    r.ID.String(),
		Amount:                r.Amount.StringFixed(2),
		PatientResponsibility: r.PatientResponsibility.StringFixed(2),
		Status:                string(r.Status),
		PaymentMethodType:     r.PaymentMethodType,
		PaymentTransactionID:  r.PaymentTransactionID,
		PaymentStatus:         r.PaymentStatus,
	}
	if r.PaymentDate != nil {
		s := r.PaymentDate.UTC().Format(time.RFC3339)
		resp.PaymentDate = &s
	}
	return resp
}
