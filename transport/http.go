package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// HeaderRequestID correlates SDK logs with Verifly support requests
	HeaderRequestID = "X-Request-ID"

	tracerName = "github.com/verifly/verifly-go/transport"
)

// HTTPTransport sends requests over net/http
type HTTPTransport struct {
	client          *http.Client
	baseURL         string
	userAgent       string
	maxRetries      int
	initialInterval time.Duration
	maxInterval     time.Duration
	limiter         *rate.Limiter
	tracer          trace.Tracer
	logger          *zap.Logger
}

// Option configures an HTTPTransport
type Option func(*HTTPTransport)

// WithTimeout sets the per-attempt timeout of the default HTTP client
func WithTimeout(timeout time.Duration) Option {
	return func(t *HTTPTransport) {
		t.client.Timeout = timeout
	}
}

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(t *HTTPTransport) {
		if client != nil {
			t.client = client
		}
	}
}

// WithUserAgent sets the User-Agent header
func WithUserAgent(userAgent string) Option {
	return func(t *HTTPTransport) {
		t.userAgent = userAgent
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(t *HTTPTransport) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithMaxRetries retries network errors and 429/502/503 responses up to n
// times with exponential backoff. Zero disables retries.
func WithMaxRetries(n int) Option {
	return func(t *HTTPTransport) {
		if n >= 0 {
			t.maxRetries = n
		}
	}
}

// WithBackOff sets the first and the largest wait between retries
func WithBackOff(initial, max time.Duration) Option {
	return func(t *HTTPTransport) {
		t.initialInterval = initial
		t.maxInterval = max
	}
}

// WithRateLimit throttles outgoing requests to rps per second with the given burst
func WithRateLimit(rps float64, burst int) Option {
	return func(t *HTTPTransport) {
		if rps <= 0 {
			t.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		t.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithTracerProvider sets the OpenTelemetry tracer provider, the global one by default
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(t *HTTPTransport) {
		if tp != nil {
			t.tracer = tp.Tracer(tracerName)
		}
	}
}

// NewHTTPTransport creates a transport for baseURL
func NewHTTPTransport(baseURL string, opts ...Option) *HTTPTransport {
	t := &HTTPTransport{
		client:          &http.Client{Timeout: 30 * time.Second},
		baseURL:         strings.TrimRight(baseURL, "/"),
		initialInterval: 2 * time.Second,
		maxInterval:     30 * time.Second,
		tracer:          otel.Tracer(tracerName),
		logger:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// BaseURL returns the URL requests are sent to
func (t *HTTPTransport) BaseURL() string {
	return t.baseURL
}

// Do sends req and returns the response of the last attempt
func (t *HTTPTransport) Do(ctx context.Context, req *Request) (*Response, error) {
	target := t.baseURL + req.Path
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	requestID := uuid.NewString()
	ctx, span := t.tracer.Start(ctx, "verifly.request",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", req.Method),
			attribute.String("url.path", req.Path),
			attribute.String("verifly.request_id", requestID),
		),
	)
	defer span.End()

	log := t.logger.With(
		zap.String("request_id", requestID),
		zap.String("method", req.Method),
		zap.String("path", req.Path),
	)

	var resp *Response
	attempt := 0
	operation := func() error {
		attempt++
		resp = nil

		if t.limiter != nil {
			if err := t.limiter.Wait(ctx); err != nil {
				return backoff.Permanent(fmt.Errorf("rate limiter: %w", err))
			}
		}

		var body io.Reader
		if req.Body != nil {
			body = bytes.NewReader(req.Body)
		}
		httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
		}
		for k, values := range req.Header {
			for _, v := range values {
				httpReq.Header.Add(k, v)
			}
		}
		if t.userAgent != "" {
			httpReq.Header.Set("User-Agent", t.userAgent)
		}
		httpReq.Header.Set(HeaderRequestID, requestID)

		start := time.Now()
		httpResp, err := t.client.Do(httpReq)
		if err != nil {
			// Network errors are retryable
			log.Warn("request attempt failed", zap.Int("attempt", attempt), zap.Error(err))
			return fmt.Errorf("failed to perform request: %w", err)
		}
		defer func() {
			if err := httpResp.Body.Close(); err != nil {
				log.Warn("failed to close response body", zap.Error(err))
			}
		}()

		respBody, err := io.ReadAll(httpResp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response body: %w", err)
		}

		resp = &Response{
			StatusCode: httpResp.StatusCode,
			Body:       respBody,
			Header:     httpResp.Header,
		}
		log.Debug("received response",
			zap.Int("attempt", attempt),
			zap.Int("status", httpResp.StatusCode),
			zap.Duration("duration", time.Since(start)),
			zap.ByteString("body", respBody),
		)

		if isRetryableStatus(httpResp.StatusCode) {
			log.Warn("retryable response status", zap.Int("attempt", attempt), zap.Int("status", httpResp.StatusCode))
			return fmt.Errorf("retryable status code %d", httpResp.StatusCode)
		}

		return nil
	}

	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(t.newBackOff(), uint64(t.maxRetries)), ctx))
	span.SetAttributes(attribute.Int("verifly.attempts", attempt))
	if err != nil && resp == nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	if resp.StatusCode >= http.StatusBadRequest {
		span.SetStatus(codes.Error, http.StatusText(resp.StatusCode))
	}

	return resp, nil
}

func (t *HTTPTransport) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = t.initialInterval
	b.MaxInterval = t.maxInterval
	b.MaxElapsedTime = 1 * time.Minute // Total retry duration
	b.Multiplier = 2.0
	b.RandomizationFactor = 0.5 // Add jitter to prevent thundering herd
	return b
}

func isRetryableStatus(status int) bool {
	switch status {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable:
		return true
	default:
		return false
	}
}
