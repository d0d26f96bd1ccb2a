package transport_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/verifly/verifly-go/transport"
)

func TestHTTPTransport_Do(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/verify/create", r.URL.Path)
		assert.Equal(t, "1", r.URL.Query().Get("page"))
		assert.Equal(t, "pk_test", r.Header.Get("X-API-Key"))
		assert.Equal(t, "Verifly-Go-SDK/test", r.Header.Get("User-Agent"))
		assert.NotEmpty(t, r.Header.Get(transport.HeaderRequestID))

		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.Equal(t, `{"phone":"5551234567"}`, string(body))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()

	tr := transport.NewHTTPTransport(server.URL+"/", transport.WithUserAgent("Verifly-Go-SDK/test"))
	assert.Equal(t, server.URL, tr.BaseURL())

	resp, err := tr.Do(context.Background(), &transport.Request{
		Method: http.MethodPost,
		Path:   "/api/verify/create",
		Query:  url.Values{"page": []string{"1"}},
		Body:   []byte(`{"phone":"5551234567"}`),
		Header: http.Header{"X-Api-Key": []string{"pk_test"}},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, `{"success":true}`, string(resp.Body))
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
}

func TestHTTPTransport_NoBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Empty(t, body)
		assert.Equal(t, int64(0), r.ContentLength)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	tr := transport.NewHTTPTransport(server.URL)
	resp, err := tr.Do(context.Background(), &transport.Request{Method: http.MethodGet, Path: "/api/verify/balance"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHTTPTransport_NoRetryByDefault(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"message":"down"}`))
	}))
	defer server.Close()

	tr := transport.NewHTTPTransport(server.URL)
	resp, err := tr.Do(context.Background(), &transport.Request{Method: http.MethodGet, Path: "/x"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestHTTPTransport_RetriesRetryableStatus(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, `{"a":1}`, string(body))
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	tr := transport.NewHTTPTransport(server.URL,
		transport.WithMaxRetries(3),
		transport.WithBackOff(time.Millisecond, 5*time.Millisecond),
	)
	resp, err := tr.Do(context.Background(), &transport.Request{Method: http.MethodPost, Path: "/x", Body: []byte(`{"a":1}`)})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(3), calls.Load())
}

func TestHTTPTransport_RetriesExhausted(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	tr := transport.NewHTTPTransport(server.URL,
		transport.WithMaxRetries(2),
		transport.WithBackOff(time.Millisecond, 5*time.Millisecond),
	)
	resp, err := tr.Do(context.Background(), &transport.Request{Method: http.MethodGet, Path: "/x"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, int32(3), calls.Load())
}

func TestHTTPTransport_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusPaymentRequired)
	}))
	defer server.Close()

	tr := transport.NewHTTPTransport(server.URL, transport.WithMaxRetries(3), transport.WithBackOff(time.Millisecond, time.Millisecond))
	resp, err := tr.Do(context.Background(), &transport.Request{Method: http.MethodGet, Path: "/x"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusPaymentRequired, resp.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestHTTPTransport_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	baseURL := server.URL
	server.Close()

	tr := transport.NewHTTPTransport(baseURL)
	resp, err := tr.Do(context.Background(), &transport.Request{Method: http.MethodGet, Path: "/x"})
	require.Error(t, err)
	assert.Nil(t, resp)
}

func TestHTTPTransport_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	tr := transport.NewHTTPTransport(server.URL, transport.WithTimeout(20*time.Millisecond))
	_, err := tr.Do(context.Background(), &transport.Request{Method: http.MethodGet, Path: "/x"})
	require.Error(t, err)
}

func TestHTTPTransport_ContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tr := transport.NewHTTPTransport(server.URL)
	_, err := tr.Do(ctx, &transport.Request{Method: http.MethodGet, Path: "/x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHTTPTransport_RateLimit(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	tr := transport.NewHTTPTransport(server.URL, transport.WithRateLimit(20, 1))

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := tr.Do(context.Background(), &transport.Request{Method: http.MethodGet, Path: "/x"})
		require.NoError(t, err)
	}
	assert.Equal(t, int32(3), calls.Load())
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestHTTPTransport_Tracing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	recorder := tracetest.NewSpanRecorder()
	tp := trace.NewTracerProvider(trace.WithSpanProcessor(recorder))

	tr := transport.NewHTTPTransport(server.URL, transport.WithTracerProvider(tp))
	_, err := tr.Do(context.Background(), &transport.Request{Method: http.MethodGet, Path: "/api/verify/missing"})
	require.NoError(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "verifly.request", spans[0].Name())

	attrs := map[string]any{}
	for _, kv := range spans[0].Attributes() {
		attrs[string(kv.Key)] = kv.Value.AsInterface()
	}
	assert.Equal(t, "/api/verify/missing", attrs["url.path"])
	assert.Equal(t, int64(http.StatusNotFound), attrs["http.response.status_code"])
}
