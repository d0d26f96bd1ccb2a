package signature_test

import (
	"errors"
	"net/http"
	"regexp"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	apierrors "github.com/verifly/verifly-go/errors"
	"github.com/verifly/verifly-go/internal/mocks"
	"github.com/verifly/verifly-go/signature"
)

const (
	testSecret  = "mysecret"
	testPayload = `{"event":"verification.completed","sessionId":"abc123"}`
)

var hexSignature = regexp.MustCompile(`^[0-9a-f]{64}$`)

func TestSign_RegressionVector(t *testing.T) {
	sig, err := signature.Sign([]byte(testSecret), testPayload, "1700000000")
	require.NoError(t, err)
	assert.Equal(t, "b2a695dda1b4bdbaaac1b45ec65214e829c37d71c6bd1a577391b8a6dc414286", sig)
}

func TestSign_EmptyObject(t *testing.T) {
	sig, err := signature.Sign([]byte(testSecret), "{}", "1700000000")
	require.NoError(t, err)
	assert.Equal(t, "b95bd98ba7bc8f44d9db1643be526b7c985a55afa065ee111ba5e6a1c18bdc86", sig)
}

func TestSign_FormatAndDeterminism(t *testing.T) {
	inputs := []struct {
		secret    string
		payload   string
		timestamp string
	}{
		{"mysecret", testPayload, "1700000000"},
		{"k", "{}", "0"},
		{"sëcret", `{"name":"Şükrü"}`, "1700000123"},
		{"another-secret", `{"data":{"nested":[1,2,3]}}`, "99999999999"},
	}

	for _, in := range inputs {
		first, err := signature.Sign([]byte(in.secret), in.payload, in.timestamp)
		require.NoError(t, err)
		second, err := signature.Sign([]byte(in.secret), in.payload, in.timestamp)
		require.NoError(t, err)

		assert.Len(t, first, signature.Size)
		assert.Regexp(t, hexSignature, first)
		assert.Equal(t, first, second)
	}
}

func TestSign_TimestampIsBound(t *testing.T) {
	first, err := signature.Sign([]byte(testSecret), testPayload, "1700000000")
	require.NoError(t, err)
	second, err := signature.Sign([]byte(testSecret), testPayload, "1700000001")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Equal(t, "d31a719108b404cdb3b93d8646b3a4da0757a3ccb9d895047350161259460d6c", second)
}

func TestSign_InvalidUTF8(t *testing.T) {
	_, err := signature.Sign([]byte(testSecret), "{\"a\":\"\xff\"}", "1700000000")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apierrors.ErrEncoding))

	_, err = signature.Sign([]byte(testSecret), "{}", "\xfe")
	assert.True(t, errors.Is(err, apierrors.ErrEncoding))
}

func TestEqual(t *testing.T) {
	sig, err := signature.Sign([]byte(testSecret), testPayload, "1700000000")
	require.NoError(t, err)

	assert.True(t, signature.Equal(sig, sig))
	assert.False(t, signature.Equal(sig, ""))
	assert.False(t, signature.Equal(sig, sig[:63]))
}

func TestTimestamp(t *testing.T) {
	assert.Equal(t, "1700000000", signature.Timestamp(time.Unix(1700000000, 999_000_000)))
	assert.Equal(t, "0", signature.Timestamp(time.Unix(0, 0)))
}

func TestSigner_BuildHeaders(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockClock := mocks.NewMockClock(ctrl)
	mockClock.EXPECT().Now().Return(time.Unix(1700000000, 0)).Times(1)

	signer := signature.NewSigner("pk_test", testSecret, signature.WithClock(mockClock))

	body := map[string]any{"event": "verification.completed", "sessionId": "abc123"}
	headers, payload, err := signer.BuildHeaders(body)
	require.NoError(t, err)

	assert.Equal(t, testPayload, string(payload))
	assert.Equal(t, "pk_test", headers.APIKey)
	assert.Equal(t, "1700000000", headers.Timestamp)
	assert.Equal(t, "b2a695dda1b4bdbaaac1b45ec65214e829c37d71c6bd1a577391b8a6dc414286", headers.Signature)
}

func TestSigner_NilBodyMatchesEmptyObject(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockClock := mocks.NewMockClock(ctrl)
	mockClock.EXPECT().Now().Return(time.Unix(1700000000, 0)).Times(2)

	signer := signature.NewSigner("pk_test", testSecret, signature.WithClock(mockClock))

	absent, absentPayload, err := signer.BuildHeaders(nil)
	require.NoError(t, err)
	empty, emptyPayload, err := signer.BuildHeaders(map[string]any{})
	require.NoError(t, err)

	assert.Equal(t, "{}", string(absentPayload))
	assert.Equal(t, absentPayload, emptyPayload)
	assert.Equal(t, absent.Signature, empty.Signature)
	assert.Equal(t, "b95bd98ba7bc8f44d9db1643be526b7c985a55afa065ee111ba5e6a1c18bdc86", absent.Signature)
}

func TestSigner_UnserializableBody(t *testing.T) {
	signer := signature.NewSigner("pk_test", testSecret)

	_, _, err := signer.BuildHeaders(map[string]any{"ch": make(chan int)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apierrors.ErrValidation))
}

func TestSigner_DebugLogging(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	logger := zap.New(core)

	quiet := signature.NewSigner("pk_test", testSecret, signature.WithLogger(logger))
	_, _, err := quiet.BuildHeaders(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, logs.Len())

	loud := signature.NewSigner("pk_test", testSecret, signature.WithLogger(logger), signature.WithDebug(true))
	headers, _, err := loud.BuildHeaders(nil)
	require.NoError(t, err)
	require.Equal(t, 1, logs.Len())

	entry := logs.All()[0]
	assert.Equal(t, "{}", entry.ContextMap()["payload"])
	assert.Equal(t, headers.Signature, entry.ContextMap()["signature"])
}

func TestHeaders_Apply(t *testing.T) {
	h := http.Header{}
	signature.Headers{APIKey: "pk", Signature: "sig", Timestamp: "1"}.Apply(h)

	assert.Equal(t, "pk", h.Get("X-API-Key"))
	assert.Equal(t, "sig", h.Get("X-Signature"))
	assert.Equal(t, "1", h.Get("X-Timestamp"))
	assert.Equal(t, "application/json", h.Get("Content-Type"))
}
