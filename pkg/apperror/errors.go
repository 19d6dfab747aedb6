package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is reports whether target is an AppError with the same code, so callers can
// write errors.Is(err, apperror.ErrCardExpired()).
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// HasCode reports whether err carries an AppError with the given code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// ---- Payment Validation (VAL) ----

func ErrInvalidCardNumber() *AppError {
	return New("VAL_001", "Invalid card number", http.StatusBadRequest)
}

func ErrCardExpired() *AppError {
	return New("VAL_002", "Card has expired", http.StatusUnprocessableEntity)
}

func ErrInvalidCVV() *AppError {
	return New("VAL_003", "Invalid CVV", http.StatusBadRequest)
}

func ErrInvalidExpiry() *AppError {
	return New("VAL_004", "Invalid expiry date", http.StatusBadRequest)
}

// Validation returns a VAL_005 request validation error.
func Validation(message string) *AppError {
	return New("VAL_005", message, http.StatusBadRequest)
}

// IsValidation reports whether err belongs to the VAL family.
func IsValidation(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return len(appErr.Code) > 4 && appErr.Code[:4] == "VAL_"
	}
	return false
}

// ---- Cryptography (CRY) ----

func ErrKeyDerivation(err error) *AppError {
	return Wrap("CRY_001", "Key derivation failed", http.StatusInternalServerError, err)
}

// ErrDecryptionFailed never carries a cause: wrong secret, truncated input and
// tag mismatch must look the same to the caller.
func ErrDecryptionFailed() *AppError {
	return New("CRY_002", "Unable to decrypt data", http.StatusBadRequest)
}

func ErrEncryptionFailure(err error) *AppError {
	return Wrap("CRY_003", "Encryption service failure", http.StatusInternalServerError, err)
}

// ---- Payment Business Logic (PAY) ----

func ErrInvalidAmount() *AppError {
	return New("PAY_001", "Invalid amount", http.StatusBadRequest)
}

func ErrNotFound(entity string) *AppError {
	return New("PAY_002", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

func ErrInvalidTransition() *AppError {
	return New("PAY_003", "Transaction is already in a terminal state", http.StatusConflict)
}

// ---- Gateway (GW) ----

func ErrGatewayFailure(err error) *AppError {
	return Wrap("GW_001", "Payment processing failed", http.StatusPaymentRequired, err)
}

// ---- Audit (AUD) ----

func ErrAuditPersistence(err error) *AppError {
	return Wrap("AUD_001", "Audit persistence failure", http.StatusInternalServerError, err)
}

// ---- Authentication (AUTH) ----

func ErrInvalidToken() *AppError {
	return New("AUTH_001", "Invalid or expired token", http.StatusUnauthorized)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

func ErrDatabaseError(err error) *AppError {
	return Wrap("SYS_001", "Internal database error", http.StatusInternalServerError, err)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}
