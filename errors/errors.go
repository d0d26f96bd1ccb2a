// Package errors defines the error kinds returned by the Verifly SDK.
//
// Every error produced by the SDK is an *Error carrying a Kind. Callers match
// kinds with the standard library:
//
//	if errors.Is(err, apierrors.ErrInsufficientBalance) { ... }
package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"
)

// Kind classifies an SDK error
type Kind string

const (
	KindConfiguration       Kind = "configuration"
	KindEncoding            Kind = "encoding"
	KindValidation          Kind = "validation"
	KindAuthentication      Kind = "authentication"
	KindInsufficientBalance Kind = "insufficient_balance"
	KindNotFound            Kind = "not_found"
	KindRateLimit           Kind = "rate_limit"
	KindServer              Kind = "server"
	KindTransport           Kind = "transport"
	KindUnknown             Kind = "unknown"
)

// DefaultMessage is used when an error response carries neither message nor error
const DefaultMessage = "Unknown error"

// Error is the error type returned by the SDK
type Error struct {
	Kind    Kind
	Message string
	// StatusCode is the HTTP status of the response, zero for local errors
	StatusCode int
	// Response is the raw response body
	Response json.RawMessage
	// Data is the response's "data" field, kept byte-for-byte
	Data json.RawMessage
	Err  error
}

// Sentinels for errors.Is matching. They match any *Error of the same kind.
var (
	ErrConfiguration       = &Error{Kind: KindConfiguration}
	ErrEncoding            = &Error{Kind: KindEncoding}
	ErrValidation          = &Error{Kind: KindValidation}
	ErrAuthentication      = &Error{Kind: KindAuthentication}
	ErrInsufficientBalance = &Error{Kind: KindInsufficientBalance}
	ErrNotFound            = &Error{Kind: KindNotFound}
	ErrRateLimit           = &Error{Kind: KindRateLimit}
	ErrServer              = &Error{Kind: KindServer}
	ErrTransport           = &Error{Kind: KindTransport}
	ErrUnknown             = &Error{Kind: KindUnknown}
)

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("[%d] %s", e.StatusCode, msg)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is a sentinel of the same kind.
// An encoding failure is also a validation failure.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Message != "" || t.StatusCode != 0 {
		return false
	}
	if t.Kind == e.Kind {
		return true
	}
	return e.Kind == KindEncoding && t.Kind == KindValidation
}

// BalanceData returns the "data" field of an insufficient balance response
func (e *Error) BalanceData() json.RawMessage {
	if e.Kind != KindInsufficientBalance {
		return nil
	}
	return e.Data
}

// New creates an error of the given kind
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates an error of the given kind with a formatted message
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an error of the given kind wrapping err
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of err, or KindUnknown if err is not an SDK error
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// KindForStatus maps an HTTP status code to an error kind
func KindForStatus(status int) Kind {
	switch status {
	case http.StatusBadRequest:
		return KindValidation
	case http.StatusUnauthorized:
		return KindAuthentication
	case http.StatusPaymentRequired:
		return KindInsufficientBalance
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusTooManyRequests:
		return KindRateLimit
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
		return KindServer
	default:
		return KindUnknown
	}
}

// FromResponse builds the error for a non-success response
func FromResponse(status int, body []byte) *Error {
	e := &Error{
		Kind:       KindForStatus(status),
		StatusCode: status,
		Message:    DefaultMessage,
	}

	if !gjson.ValidBytes(body) {
		return e
	}

	e.Response = json.RawMessage(body)
	parsed := gjson.ParseBytes(body)
	if msg := parsed.Get("message"); msg.Exists() && msg.String() != "" {
		e.Message = msg.String()
	} else if msg := parsed.Get("error"); msg.Exists() && msg.String() != "" {
		e.Message = msg.String()
	}
	if data := parsed.Get("data"); data.Exists() {
		e.Data = json.RawMessage(data.Raw)
	}

	return e
}
