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

// PaymentMethodHandler handles card tokenization endpoints.
type PaymentMethodHandler struct {
	paymentSvc ports.PaymentService
}

func NewPaymentMethodHandler(paymentSvc ports.PaymentService) *PaymentMethodHandler {
	return &PaymentMethodHandler{paymentSvc: paymentSvc}
}

// AddPaymentMethod handles POST /api/v1/payment-methods.
func (h *PaymentMethodHandler) AddPaymentMethod(c *gin.Context) {
	var req dto.AddPaymentMethodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	method, err := h.paymentSvc.AddPaymentMethod(c.Request.Context(), domain.CardDetails{
		CardNumber:  req.CardNumber,
		ExpiryMonth: req.ExpiryMonth,
		ExpiryYear:  req.ExpiryYear,
		CVV:         req.CVV,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toPaymentMethodResponse(method))
}

// GetPaymentMethod handles GET /api/v1/payment-methods/:id.
func (h *PaymentMethodHandler) GetPaymentMethod(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("payment method id must be a UUID"))
		return
	}

	method, err := h.paymentSvc.GetPaymentMethod(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toPaymentMethodResponse(method))
}

func toPaymentMethodResponse(m *domain.PaymentMethod) dto.PaymentMethodResponse {
	return dto.PaymentMethodResponse{
		ID:          m.ID.String(),
		Type:        string(m.Kind),
		Last4:       m.Last4,
		ExpiryMonth: m.ExpiryMonth,
		ExpiryYear:  m.ExpiryYear,
		CreatedAt:   m.CreatedAt.UTC().Format(time.RFC3339),
	}
}
