package errors

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	verifly "github.com/verifly/verifly-go/errors"
)

// ErrorCode represents a standardized error code
type ErrorCode string

const (
	// Client errors (4xx)
	ErrCodeBadRequest          ErrorCode = "bad_request"
	ErrCodeNotFound            ErrorCode = "not_found"
	ErrCodeValidationFailed    ErrorCode = "validation_failed"
	ErrCodeUnauthorized        ErrorCode = "unauthorized"
	ErrCodeInsufficientBalance ErrorCode = "insufficient_balance"
	ErrCodeRateLimited         ErrorCode = "rate_limited"

	// Server errors (5xx)
	ErrCodeInternalError ErrorCode = "internal_error"
	ErrCodeDatabaseError ErrorCode = "database_error"
	ErrCodeServiceError  ErrorCode = "service_error"
)

// APIError represents a structured API error that carries error code and details
type APIError struct {
	Code    ErrorCode       `json:"code"`
	Message string          `json:"message"`
	Details string          `json:"details,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	// Status is the HTTP status the error is sent with
	Status int `json:"-"`
}

func (e *APIError) Error() string {
	jsonErr, _ := json.Marshal(e)
	return string(jsonErr)
}

func newError(status int, code ErrorCode, message string, details []string) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
		Details: strings.Join(details, ", "),
		Status:  status,
	}
}

// Error constructors for common error types
func NewBadRequestError(message string, details ...string) *APIError {
	return newError(http.StatusBadRequest, ErrCodeBadRequest, message, details)
}

func NewNotFoundError(message string, details ...string) *APIError {
	return newError(http.StatusNotFound, ErrCodeNotFound, message, details)
}

func NewValidationError(details ...string) *APIError {
	return newError(http.StatusBadRequest, ErrCodeValidationFailed, "Validation failed", details)
}

func NewUnauthorizedError(message string, details ...string) *APIError {
	return newError(http.StatusUnauthorized, ErrCodeUnauthorized, message, details)
}

func NewInternalError(message string, details ...string) *APIError {
	return newError(http.StatusInternalServerError, ErrCodeInternalError, message, details)
}

func NewDatabaseError(message string, details ...string) *APIError {
	return newError(http.StatusInternalServerError, ErrCodeDatabaseError, message, details)
}

func NewServiceError(message string, details ...string) *APIError {
	return newError(http.StatusBadGateway, ErrCodeServiceError, message, details)
}

// FromVerifly maps an error returned by the Verifly client to an APIError.
// Errors that are already APIErrors are returned unchanged.
func FromVerifly(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var vErr *verifly.Error
	if !errors.As(err, &vErr) {
		return NewInternalError("Unexpected error", err.Error())
	}

	switch vErr.Kind {
	case verifly.KindValidation, verifly.KindEncoding:
		return NewValidationError(vErr.Message)
	case verifly.KindNotFound:
		return NewNotFoundError(vErr.Message)
	case verifly.KindInsufficientBalance:
		e := newError(http.StatusPaymentRequired, ErrCodeInsufficientBalance, vErr.Message, nil)
		e.Data = vErr.BalanceData()
		return e
	case verifly.KindRateLimit:
		return newError(http.StatusTooManyRequests, ErrCodeRateLimited, vErr.Message, nil)
	case verifly.KindAuthentication, verifly.KindConfiguration:
		// the receiver's own credentials were rejected, not the caller's
		return NewServiceError("Verifly rejected the receiver credentials", vErr.Message)
	case verifly.KindTransport:
		return newError(http.StatusGatewayTimeout, ErrCodeServiceError, "Verifly unreachable", []string{vErr.Message})
	default:
		return NewServiceError("Verifly request failed", vErr.Message)
	}
}
