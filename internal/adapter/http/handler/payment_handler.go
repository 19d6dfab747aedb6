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

// PaymentHandler handles payment-related endpoints.
type PaymentHandler struct {
	paymentSvc ports.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(paymentSvc ports.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentSvc: paymentSvc}
}

// ProcessPayment handles POST /api/v1/payments. A declined charge still
// produced a failed transaction, which is returned alongside GW_001.
func (h *PaymentHandler) ProcessPayment(c *gin.Context) {
	var req dto.ProcessPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	methodID, err := uuid.Parse(req.PaymentMethodID)
	if err != nil {
		response.Error(c, apperror.Validation("payment_method_id must be a UUID"))
		return
	}

	txn, err := h.paymentSvc.ProcessPayment(c.Request.Context(), ports.PaymentRequest{
		Amount:          req.Amount,
		Currency:        req.Currency,
		PaymentMethodID: methodID,
		Metadata:        req.Metadata,
	})
	if err != nil {
		if txn != nil && txn.Status == domain.TransactionStatusFailed {
			response.ErrorWithData(c, apperror.ErrGatewayFailure(err), toTransactionResponse(txn))
			return
		}
		response.Error(c, err)
		return
	}

	response.Created(c, toTransactionResponse(txn))
}

// toTransactionResponse converts domain.Transaction to DTO.
func toTransactionResponse(tx *domain.Transaction) dto.TransactionResponse {
	resp := dto.TransactionResponse{
		ID:              tx.ID.String(),
		Amount:          tx.Amount.StringFixed(domain.AmountScale),
		Currency:        tx.Currency,
		Status:          string(tx.Status),
		PaymentMethodID: tx.PaymentMethodID.String(),
		Metadata:        tx.Metadata,
		Timestamp:       tx.Timestamp.Format(time.RFC3339),
	}
	if tx.ProcessedAt != nil {
		s := tx.ProcessedAt.Format(time.RFC3339)
		resp.ProcessedAt = &s
	}
	return resp
}
