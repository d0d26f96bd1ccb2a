package server_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	verifly "github.com/verifly/verifly-go"
	"github.com/verifly/verifly-go/internal/api/middleware"
	"github.com/verifly/verifly-go/internal/api/server"
	"github.com/verifly/verifly-go/internal/logger"
	"github.com/verifly/verifly-go/internal/mocks"
	"github.com/verifly/verifly-go/internal/processor"
	"github.com/verifly/verifly-go/signature"
)

func TestMain(m *testing.M) {
	if err := logger.Initialize(logger.Config{Debug: false}); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func newServer(t *testing.T) (*server.Server, *mocks.MockProcessor) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	client, err := verifly.New("pk_test", "mysecret")
	require.NoError(t, err)
	auth, err := middleware.NewAuthenticator(middleware.AuthConfig{}, nil)
	require.NoError(t, err)

	proc := mocks.NewMockProcessor(ctrl)
	srv := server.New(server.Config{Host: "127.0.0.1", Port: 0}, verifly.NewHandle(client), nil, proc, auth)
	return srv, proc
}

func TestServer_Routes(t *testing.T) {
	srv, proc := newServer(t)

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy","version":"`+verifly.Version+`"}`, w.Body.String())

	proc.EXPECT().Process(gomock.Any(), gomock.Any()).Return(&processor.Result{EventID: "evt-1"}, nil)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/verifly",
		strings.NewReader(`{"event":"verification.completed","sessionId":"abc123"}`))
	req.Header.Set(signature.HeaderSignature, "b2a695dda1b4bdbaaac1b45ec65214e829c37d71c6bd1a577391b8a6dc414286")
	req.Header.Set(signature.HeaderTimestamp, "1700000000")
	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	// no credentials configured
	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/verifications/abc123", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestServer_ShutdownBeforeStart(t *testing.T) {
	srv, _ := newServer(t)
	assert.NoError(t, srv.Shutdown(context.Background()))
}
