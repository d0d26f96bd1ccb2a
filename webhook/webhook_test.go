package webhook_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verifly/verifly-go/canonical"
	apierrors "github.com/verifly/verifly-go/errors"
	"github.com/verifly/verifly-go/webhook"
)

const (
	testSecret    = "mysecret"
	testTimestamp = "1700000000"
	testBody      = `{"event":"verification.completed","sessionId":"abc123"}`
	testSignature = "b2a695dda1b4bdbaaac1b45ec65214e829c37d71c6bd1a577391b8a6dc414286"
)

func TestVerifier_GenerateSignature(t *testing.T) {
	v := webhook.NewVerifier(testSecret)

	payload, err := canonical.Parse([]byte(testBody))
	require.NoError(t, err)

	sig, err := v.GenerateSignature(payload, testTimestamp)
	require.NoError(t, err)
	assert.Equal(t, testSignature, sig)
}

func TestVerifier_VerifyRoundTrip(t *testing.T) {
	v := webhook.NewVerifier(testSecret)

	payloads := []any{
		nil,
		map[string]any{},
		json.RawMessage(`{"event":"verification.failed","data":{"sessionId":"s1","reason":"too many attempts"}}`),
		json.RawMessage(`{"event":"verification.completed","data":{"note":"Şükrü <ok>","n":[1,2.5,null]}}`),
		struct {
			Event string `json:"event"`
		}{Event: "verification.expired"},
	}

	for _, p := range payloads {
		sig, err := v.GenerateSignature(p, testTimestamp)
		require.NoError(t, err)
		assert.True(t, v.Verify(p, sig, testTimestamp))
		assert.False(t, v.Verify(p, sig, "1700000001"))
	}
}

func TestVerifier_VerifyRejectsEverySingleCharacterMutation(t *testing.T) {
	v := webhook.NewVerifier(testSecret)
	payload := json.RawMessage(testBody)

	for i := 0; i < len(testSignature); i++ {
		replacement := byte('0')
		if testSignature[i] == '0' {
			replacement = '1'
		}
		mutated := testSignature[:i] + string(replacement) + testSignature[i+1:]
		assert.False(t, v.Verify(payload, mutated, testTimestamp), "mutation at %d", i)
	}

	assert.True(t, v.Verify(payload, testSignature, testTimestamp))
	assert.False(t, v.Verify(payload, strings.ToUpper(testSignature), testTimestamp))
	assert.False(t, v.Verify(payload, testSignature+"0", testTimestamp))
	assert.False(t, v.Verify(payload, "", testTimestamp))
}

func TestVerifier_WrongSecret(t *testing.T) {
	v := webhook.NewVerifier("othersecret")
	assert.False(t, v.Verify(json.RawMessage(testBody), testSignature, testTimestamp))
}

func TestVerifier_VerifyUnencodablePayload(t *testing.T) {
	v := webhook.NewVerifier(testSecret)
	assert.False(t, v.Verify(map[string]any{"ch": make(chan int)}, testSignature, testTimestamp))
}

func TestVerifier_ConstructEvent(t *testing.T) {
	v := webhook.NewVerifier(testSecret)

	payload, err := canonical.Parse([]byte(testBody))
	require.NoError(t, err)

	event, err := v.ConstructEvent(payload, testSignature, testTimestamp)
	require.NoError(t, err)

	assert.Equal(t, payload, event.Payload())
	assert.Equal(t, webhook.EventVerificationCompleted, event.Type())
	assert.Equal(t, "abc123", event.SessionID())
	assert.Equal(t, testBody, string(event.Raw()))
}

func TestVerifier_ConstructEventTamperedPayload(t *testing.T) {
	v := webhook.NewVerifier(testSecret)

	payload, err := canonical.Parse([]byte(testBody))
	require.NoError(t, err)
	tampered := payload.Set("sessionId", canonical.String("abc124"))

	event, err := v.ConstructEvent(tampered, testSignature, testTimestamp)
	require.Error(t, err)
	assert.Nil(t, event)
	assert.True(t, errors.Is(err, webhook.ErrInvalidSignature))
	assert.True(t, errors.Is(err, apierrors.ErrAuthentication))
	assert.Equal(t, "invalid signature", err.Error())
}

func TestVerifier_ConstructEventReorderedPayload(t *testing.T) {
	v := webhook.NewVerifier(testSecret)

	_, err := v.ConstructEventFromBytes([]byte(`{"sessionId":"abc123","event":"verification.completed"}`), testSignature, testTimestamp)
	assert.True(t, errors.Is(err, apierrors.ErrAuthentication))
}

func TestVerifier_ConstructEventFromBytes(t *testing.T) {
	v := webhook.NewVerifier(testSecret)

	event, err := v.ConstructEventFromBytes([]byte("{\n  \"event\": \"verification.completed\",\n  \"sessionId\": \"abc123\"\n}"), testSignature, testTimestamp)
	require.NoError(t, err)
	assert.Equal(t, "abc123", event.SessionID())

	_, err = v.ConstructEventFromBytes([]byte(`{"event":`), testSignature, testTimestamp)
	assert.True(t, errors.Is(err, apierrors.ErrValidation))
}

func TestEvent_Accessors(t *testing.T) {
	v := webhook.NewVerifier(testSecret)

	body := []byte(`{"event":"verification.failed","data":{"sessionId":"s1","method":"sms","reason":"expired code","extra":{"a":1}}}`)
	value, err := canonical.Parse(body)
	require.NoError(t, err)
	sig, err := v.GenerateSignature(value, testTimestamp)
	require.NoError(t, err)

	event, err := v.ConstructEventFromBytes(body, sig, testTimestamp)
	require.NoError(t, err)

	assert.Equal(t, webhook.EventVerificationFailed, event.Type())
	assert.Equal(t, "s1", event.SessionID())
	assert.Equal(t, "sms", event.Method())
	assert.Equal(t, "expired code", event.Reason())
	assert.JSONEq(t, `{"sessionId":"s1","method":"sms","reason":"expired code","extra":{"a":1}}`, string(event.Data()))
	assert.Equal(t, int64(1), event.Get("data.extra.a").Int())

	var decoded struct {
		Event string `json:"event"`
		Data  struct {
			SessionID string `json:"sessionId"`
		} `json:"data"`
	}
	require.NoError(t, event.Decode(&decoded))
	assert.Equal(t, "s1", decoded.Data.SessionID)
}

func newSignedRequest(body, sig, timestamp string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if sig != "" {
		req.Header.Set("X-Signature", sig)
	}
	if timestamp != "" {
		req.Header.Set("X-Timestamp", timestamp)
	}
	return req
}

func TestVerifier_ParseRequest(t *testing.T) {
	v := webhook.NewVerifier(testSecret)

	tests := []struct {
		name       string
		req        *http.Request
		expectErr  error
		wantStatus int
	}{
		{
			name:       "valid",
			req:        newSignedRequest(testBody, testSignature, testTimestamp),
			wantStatus: http.StatusOK,
		},
		{
			name:       "missing signature",
			req:        newSignedRequest(testBody, "", testTimestamp),
			expectErr:  webhook.ErrMissingHeaders,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing timestamp",
			req:        newSignedRequest(testBody, testSignature, ""),
			expectErr:  webhook.ErrMissingHeaders,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "invalid signature",
			req:        newSignedRequest(testBody, strings.Repeat("0", 64), testTimestamp),
			expectErr:  apierrors.ErrAuthentication,
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "invalid json",
			req:        newSignedRequest("not json", testSignature, testTimestamp),
			expectErr:  apierrors.ErrValidation,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, err := v.ParseRequest(tt.req)
			if tt.expectErr == nil {
				require.NoError(t, err)
				assert.Equal(t, "abc123", event.SessionID())
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.expectErr))
			assert.Equal(t, tt.wantStatus, webhook.StatusCode(err))
		})
	}
}

func TestVerifier_Handler(t *testing.T) {
	v := webhook.NewVerifier(testSecret)

	var received []string
	h := v.Handler(func(r *http.Request, event *webhook.Event) webhook.Response {
		received = append(received, event.SessionID())
		return webhook.Success("")
	})

	tests := []struct {
		name       string
		req        *http.Request
		wantStatus int
		wantBody   string
	}{
		{
			name:       "accepted",
			req:        newSignedRequest(testBody, testSignature, testTimestamp),
			wantStatus: http.StatusOK,
			wantBody:   `{"success":true,"message":"OK"}`,
		},
		{
			name:       "missing headers",
			req:        newSignedRequest(testBody, "", ""),
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"success":false,"message":"missing signature headers"}`,
		},
		{
			name:       "forged",
			req:        newSignedRequest(`{"event":"verification.completed","sessionId":"evil"}`, testSignature, testTimestamp),
			wantStatus: http.StatusUnauthorized,
			wantBody:   `{"success":false,"message":"Invalid signature"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, tt.req)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
		})
	}

	assert.Equal(t, []string{"abc123"}, received)
}

func TestResponses(t *testing.T) {
	assert.Equal(t, webhook.Response{Success: true, Message: "OK", Status: http.StatusOK}, webhook.Success(""))
	assert.Equal(t, webhook.Response{Success: false, Message: "bad", Status: http.StatusBadRequest}, webhook.Failure("bad", 0))
	assert.Equal(t, webhook.Response{Success: false, Message: "gone", Status: http.StatusGone}, webhook.Failure("gone", http.StatusGone))
	assert.Equal(t, webhook.Response{Success: false, Message: "Unauthorized", Status: http.StatusUnauthorized}, webhook.Unauthorized(""))
}
