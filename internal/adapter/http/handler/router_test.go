package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"patient-payments/internal/adapter/gateway"
	"patient-payments/internal/adapter/http/handler"
	"patient-payments/internal/adapter/http/middleware"
	"patient-payments/internal/adapter/storage/memory"
	"patient-payments/internal/core/domain"
	"patient-payments/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	router  *gin.Engine
	tokens  *service.JWTTokenService
	audit   *memory.AuditStore
	billing *memory.BillingStore
}

func newTestServer(t *testing.T, failureRate float64) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := zerolog.Nop()

	auditStore := memory.NewAuditStore()
	billingStore := memory.NewBillingStore()
	trail := service.NewAuditTrail(auditStore, 50, log)
	tokens := service.NewJWTTokenService("router-test-secret", time.Hour, "patient-portal")

	paymentSvc := service.NewPaymentService(
		service.NewCardValidator(service.FirstDigitClassifier{}, nil),
		service.NewAESGCMCipher(service.NewPBKDF2KeyDeriver(service.MinKDFIterations)),
		trail,
		gateway.NewSimulated(0, failureRate, log),
		memory.NewPaymentMethodStore(),
		memory.NewTransactionStore(),
		"router-test-card-secret",
		log,
	)

	router := handler.SetupRouter(handler.RouterDeps{
		PaymentSvc:     paymentSvc,
		BillingSvc:     service.NewBillingService(billingStore, log),
		Audit:          trail,
		TokenSvc:       tokens,
		RateLimitStore: memory.NewRateLimitStore(),
		RateLimit:      middleware.RateLimitRule{Limit: 100, Window: time.Minute},
		Logger:         log,
	})

	return &testServer{router: router, tokens: tokens, audit: auditStore, billing: billingStore}
}

func (s *testServer) do(t *testing.T, method, path, subject string, body any) (int, map[string]any) {
	t.Helper()

	var raw []byte
	if body != nil {
		var err error
		raw, err = json.Marshal(body)
		require.NoError(t, err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "portal-e2e")
	req.RemoteAddr = "192.0.2.10:40000"
	if subject != "" {
		token, _, err := s.tokens.Generate(subject)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return w.Code, resp
}

func validCardBody() map[string]string {
	return map[string]string{
		"card_number":  "4111-1111-1111-1111",
		"expiry_month": "12",
		"expiry_year":  "2099",
		"cvv":          "123",
	}
}

func TestRouter_RequiresBearerToken(t *testing.T) {
	s := newTestServer(t, 0)

	code, resp := s.do(t, http.MethodPost, "/api/v1/payment-methods", "", validCardBody())
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "AUTH_001", resp["error_code"])
	assert.Zero(t, s.audit.Len())
}

func TestRouter_AddMethodThenPay(t *testing.T) {
	s := newTestServer(t, 0)

	code, resp := s.do(t, http.MethodPost, "/api/v1/payment-methods", "patient-7", validCardBody())
	require.Equal(t, http.StatusCreated, code, resp)
	method := resp["data"].(map[string]any)
	assert.Equal(t, "credit", method["type"])
	assert.Equal(t, "1111", method["last4"])

	methodID := method["id"].(string)
	code, resp = s.do(t, http.MethodGet, "/api/v1/payment-methods/"+methodID, "patient-7", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, methodID, resp["data"].(map[string]any)["id"])

	code, resp = s.do(t, http.MethodPost, "/api/v1/payments", "patient-7", map[string]any{
		"amount":            "120.00",
		"payment_method_id": methodID,
	})
	require.Equal(t, http.StatusCreated, code, resp)
	txn := resp["data"].(map[string]any)
	assert.Equal(t, "completed", txn["status"])
	assert.Equal(t, "USD", txn["currency"])

	code, resp = s.do(t, http.MethodGet, "/api/v1/audit?actor_id=patient-7", "auditor", nil)
	require.Equal(t, http.StatusOK, code)
	items := resp["data"].(map[string]any)["items"].([]any)
	require.Len(t, items, 2)

	first := items[0].(map[string]any)
	assert.Equal(t, "ADD_PAYMENT_METHOD", first["action"])
	assert.Equal(t, "192.0.2.10", first["client_ip"])
	assert.Equal(t, "portal-e2e", first["user_agent"])
	assert.Equal(t, methodID, first["details"].(map[string]any)["paymentMethodId"])

	second := items[1].(map[string]any)
	assert.Equal(t, "PROCESS_PAYMENT", second["action"])
	details := second["details"].(map[string]any)
	assert.Equal(t, txn["id"], details["transactionId"])
	assert.Equal(t, "120.00", details["amount"])
	assert.Equal(t, "completed", details["status"])
}

func TestRouter_DeclinedPaymentIsAuditedAndReturned(t *testing.T) {
	s := newTestServer(t, 1)

	_, resp := s.do(t, http.MethodPost, "/api/v1/payment-methods", "patient-8", validCardBody())
	methodID := resp["data"].(map[string]any)["id"].(string)

	code, resp := s.do(t, http.MethodPost, "/api/v1/payments", "patient-8", map[string]any{
		"amount":            49.99,
		"payment_method_id": methodID,
	})
	assert.Equal(t, http.StatusPaymentRequired, code)
	assert.Equal(t, "GW_001", resp["error_code"])
	txnID := resp["data"].(map[string]any)["id"].(string)

	code, resp = s.do(t, http.MethodGet, "/api/v1/audit?transaction_id="+txnID, "patient-8", nil)
	require.Equal(t, http.StatusOK, code)
	items := resp["data"].(map[string]any)["items"].([]any)
	require.Len(t, items, 1)
	details := items[0].(map[string]any)["details"].(map[string]any)
	assert.Equal(t, "failed", details["status"])
	assert.Equal(t, "Payment processing failed", details["error"])
}

func TestRouter_SubCentAmountIsRejected(t *testing.T) {
	s := newTestServer(t, 0)

	_, resp := s.do(t, http.MethodPost, "/api/v1/payment-methods", "patient-8", validCardBody())
	methodID := resp["data"].(map[string]any)["id"].(string)

	for _, amount := range []string{"0.004", "1.005"} {
		code, resp := s.do(t, http.MethodPost, "/api/v1/payments", "patient-8", map[string]any{
			"amount":            amount,
			"payment_method_id": methodID,
		})
		assert.Equal(t, http.StatusBadRequest, code, amount)
		assert.Equal(t, "PAY_001", resp["error_code"], amount)
	}
	// Only the ADD_PAYMENT_METHOD entry exists.
	assert.Equal(t, 1, s.audit.Len())
}

func TestRouter_ExpiredCardIsRejectedWithoutAudit(t *testing.T) {
	s := newTestServer(t, 0)

	body := validCardBody()
	body["expiry_year"] = "2001"
	code, resp := s.do(t, http.MethodPost, "/api/v1/payment-methods", "patient-9", body)

	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "VAL_002", resp["error_code"])
	assert.Zero(t, s.audit.Len())
}

func TestRouter_BillingUpdate(t *testing.T) {
	s := newTestServer(t, 0)
	billID := uuid.New()
	s.billing.Put(domain.BillingRecord{
		ID:                    billID,
		Amount:                decimal.NewFromInt(300),
		PatientResponsibility: decimal.NewFromInt(60),
		Status:                domain.BillingStatusPending,
	})

	code, resp := s.do(t, http.MethodPut, "/api/v1/billing/"+billID.String()+"/payment", "patient-1", map[string]string{
		"payment_method_type":    "credit",
		"payment_transaction_id": "tx-55",
		"payment_status":         "completed",
	})
	require.Equal(t, http.StatusOK, code, resp)
	assert.Equal(t, "paid", resp["data"].(map[string]any)["status"])

	code, _ = s.do(t, http.MethodPut, "/api/v1/billing/"+uuid.NewString()+"/payment", "patient-1", map[string]string{
		"payment_transaction_id": "tx-56",
		"payment_status":         "completed",
	})
	assert.Equal(t, http.StatusNotFound, code)
}

func TestRouter_ResponsesAreNotCached(t *testing.T) {
	s := newTestServer(t, 0)
	token, _, err := s.tokens.Generate("patient-1")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/audit", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.NotEmpty(t, w.Header().Get("X-RateLimit-Limit"))
}

func TestRouter_Health(t *testing.T) {
	s := newTestServer(t, 0)

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
