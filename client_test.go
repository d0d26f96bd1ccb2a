package verifly_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	verifly "github.com/verifly/verifly-go"
	apierrors "github.com/verifly/verifly-go/errors"
	"github.com/verifly/verifly-go/internal/mocks"
	"github.com/verifly/verifly-go/signature"
	"github.com/verifly/verifly-go/transport"
)

const (
	testAPIKey = "pk_test"
	testSecret = "mysecret"
)

// verifyingServer checks every request the way the Verifly API does
func verifyingServer(t *testing.T, secret string, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)

		payload := string(body)
		if payload == "" {
			payload = "{}"
		}
		expected, err := signature.Sign([]byte(secret), payload, r.Header.Get("X-Timestamp"))
		assert.NoError(t, err)

		if r.Header.Get("X-API-Key") != testAPIKey || !signature.Equal(expected, r.Header.Get("X-Signature")) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"success":false,"error":"Invalid signature"}`))
			return
		}
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, verifly.DefaultUserAgent, r.Header.Get("User-Agent"))

		handler(w, r)
	}))
}

func TestNew_RequiresCredentials(t *testing.T) {
	tests := []struct {
		name   string
		apiKey string
		secret string
	}{
		{name: "missing api key", apiKey: "", secret: testSecret},
		{name: "missing secret", apiKey: testAPIKey, secret: ""},
		{name: "missing both", apiKey: "", secret: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := verifly.New(tt.apiKey, tt.secret)
			require.Error(t, err)
			assert.Nil(t, client)
			assert.True(t, errors.Is(err, apierrors.ErrConfiguration))
		})
	}

	_, err := verifly.New(testAPIKey, testSecret, verifly.WithBaseURL(""))
	assert.True(t, errors.Is(err, apierrors.ErrConfiguration))
}

func TestClient_SignedRequestAccepted(t *testing.T) {
	server := verifyingServer(t, testSecret, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/verify/balance", r.URL.Path)
		_, _ = w.Write([]byte(`{"success":true,"data":{"balance":12.5,"currency":"TRY","recentTransactions":[]}}`))
	})
	defer server.Close()

	client, err := verifly.New(testAPIKey, testSecret, verifly.WithBaseURL(server.URL))
	require.NoError(t, err)

	balance, err := client.Verification().Balance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 12.5, balance.Balance)
	assert.Equal(t, "TRY", balance.Currency)
}

func TestClient_WithSecretKeyIsIndependent(t *testing.T) {
	server := verifyingServer(t, "rotated", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"data":{"balance":1,"currency":"TRY"}}`))
	})
	defer server.Close()

	original, err := verifly.New(testAPIKey, testSecret, verifly.WithBaseURL(server.URL))
	require.NoError(t, err)

	rotated, err := original.WithSecretKey("rotated")
	require.NoError(t, err)
	require.NotSame(t, original, rotated)

	_, err = rotated.Verification().Balance(context.Background())
	require.NoError(t, err)

	_, err = original.Verification().Balance(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, apierrors.ErrAuthentication))
	assert.Equal(t, "[401] Invalid signature", err.Error())

	assert.True(t, rotated.Webhook().Verify(nil, mustSign(t, "rotated", "{}", "1"), "1"))
	assert.False(t, original.Webhook().Verify(nil, mustSign(t, "rotated", "{}", "1"), "1"))

	_, err = original.WithSecretKey("")
	assert.True(t, errors.Is(err, apierrors.ErrConfiguration))
}

func TestClient_WithDebug(t *testing.T) {
	client, err := verifly.New(testAPIKey, testSecret)
	require.NoError(t, err)
	assert.False(t, client.Debug())

	debugClient := client.WithDebug(true)
	assert.True(t, debugClient.Debug())
	assert.False(t, client.Debug())
	assert.Equal(t, testAPIKey, debugClient.APIKey())
}

func TestClient_GETIsSignedAsEmptyObject(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockTransport := mocks.NewMockTransport(ctrl)
	mockClock := mocks.NewMockClock(ctrl)
	mockClock.EXPECT().Now().Return(time.Unix(1700000000, 0)).AnyTimes()

	client, err := verifly.New(testAPIKey, testSecret,
		verifly.WithTransport(mockTransport),
		verifly.WithClock(mockClock),
	)
	require.NoError(t, err)

	mockTransport.EXPECT().
		Do(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
			assert.Equal(t, http.MethodGet, req.Method)
			assert.Equal(t, "/api/verify/sess-1", req.Path)
			assert.Nil(t, req.Body)
			assert.Equal(t, "1700000000", req.Header.Get("X-Timestamp"))
			assert.Equal(t, "b95bd98ba7bc8f44d9db1643be526b7c985a55afa065ee111ba5e6a1c18bdc86", req.Header.Get("X-Signature"))
			return &transport.Response{StatusCode: http.StatusOK, Body: []byte(`{"data":{"sessionId":"sess-1","status":"pending"}}`)}, nil
		}).
		Times(1)

	session, err := client.Verification().Get(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "sess-1", session.SessionID)
	assert.Equal(t, "pending", session.Status)
}

func TestClient_TransportError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockTransport := mocks.NewMockTransport(ctrl)
	client, err := verifly.New(testAPIKey, testSecret, verifly.WithTransport(mockTransport), verifly.WithTimeout(5*time.Second))
	require.NoError(t, err)

	mockTransport.EXPECT().Do(gomock.Any(), gomock.Any()).Return(nil, context.DeadlineExceeded).Times(1)
	_, err = client.Verification().Balance(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, apierrors.ErrTransport))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Contains(t, err.Error(), "request timeout after 5s")

	mockTransport.EXPECT().Do(gomock.Any(), gomock.Any()).Return(nil, errors.New("connection refused")).Times(1)
	_, err = client.Verification().Balance(context.Background())
	assert.True(t, errors.Is(err, apierrors.ErrTransport))
	assert.Contains(t, err.Error(), "connection refused")
}

func TestClient_Do(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockTransport := mocks.NewMockTransport(ctrl)
	client, err := verifly.New(testAPIKey, testSecret, verifly.WithTransport(mockTransport))
	require.NoError(t, err)

	mockTransport.EXPECT().
		Do(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
			assert.Equal(t, http.MethodPut, req.Method)
			assert.Equal(t, `{"z":1,"a":2}`, string(req.Body))
			assert.Equal(t, "b", req.Query.Get("a"))
			return &transport.Response{StatusCode: http.StatusOK, Body: []byte(`{"ok":true}`)}, nil
		}).
		Times(1)

	var out struct {
		OK bool `json:"ok"`
	}
	err = client.Do(context.Background(), http.MethodPut, "/api/custom", url.Values{"a": []string{"b"}},
		json.RawMessage(`{"z": 1, "a": 2}`), &out)
	require.NoError(t, err)
	assert.True(t, out.OK)
}

func mustSign(t *testing.T, secret, payload, timestamp string) string {
	t.Helper()
	sig, err := signature.Sign([]byte(secret), payload, timestamp)
	require.NoError(t, err)
	return sig
}
