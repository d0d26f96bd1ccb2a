// Package transport carries signed requests to the Verifly API.
//
// The SDK core only depends on the Transport interface. HTTPTransport is the
// default implementation; retries and client-side throttling are opt-in.
package transport

import (
	"context"
	"net/http"
	"net/url"
)

// Request is one call to the remote service
type Request struct {
	Method string
	// Path is appended to the transport base URL
	Path  string
	Query url.Values
	// Body is sent as-is; nil sends no body
	Body   []byte
	Header http.Header
}

// Response is the status and body returned by the remote service
type Response struct {
	StatusCode int
	Body       []byte
	Header     http.Header
}

// Transport sends requests to the remote service. It returns an error only
// when no response was received.
//
//go:generate mockgen -source=transport.go -destination=../internal/mocks/transport.go -package=mocks -mock_names=Transport=MockTransport
type Transport interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}
