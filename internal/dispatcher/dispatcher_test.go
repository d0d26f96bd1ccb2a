package dispatcher_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verifly/verifly-go/internal/dispatcher"
	"github.com/verifly/verifly-go/internal/logger"
	"github.com/verifly/verifly-go/internal/mocks"
	"github.com/verifly/verifly-go/internal/store/schema"
	"github.com/verifly/verifly-go/webhook"
)

func TestMain(m *testing.M) {
	if err := logger.Initialize(logger.Config{Debug: false}); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

const testTimestamp = "1700000000"

func newEvent(t *testing.T, body string) *webhook.Event {
	t.Helper()
	v := webhook.NewVerifier("mysecret")
	sig, err := v.GenerateSignature(json.RawMessage(body), testTimestamp)
	require.NoError(t, err)
	event, err := v.ConstructEventFromBytes([]byte(body), sig, testTimestamp)
	require.NoError(t, err)
	return event
}

func TestDispatcher_RunsHandlersAndMarksDispatched(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	st := mocks.NewMockStore(ctrl)

	d := dispatcher.New(context.Background(), dispatcher.Config{WorkerPoolSize: 2}, st)

	var calls atomic.Int32
	d.Register(webhook.EventVerificationCompleted, func(ctx context.Context, event *webhook.Event) error {
		calls.Add(1)
		assert.Equal(t, "sess-1", event.SessionID())
		return nil
	})
	d.Register(webhook.EventVerificationCompleted, func(ctx context.Context, event *webhook.Event) error {
		calls.Add(1)
		return nil
	})

	st.EXPECT().UpdateWebhookEventStatus(gomock.Any(), "evt-1", schema.WebhookEventStatusDispatched, "").Return(nil)

	event := newEvent(t, `{"event":"verification.completed","data":{"sessionId":"sess-1","method":"sms"}}`)
	require.NoError(t, d.Dispatch(context.Background(), "evt-1", event))
	d.Stop()

	assert.Equal(t, int32(2), calls.Load())
}

func TestDispatcher_HandlerErrorMarksFailed(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	st := mocks.NewMockStore(ctrl)

	d := dispatcher.New(context.Background(), dispatcher.Config{}, st)
	d.Register(webhook.EventVerificationFailed, func(ctx context.Context, event *webhook.Event) error {
		return errors.New("crm unavailable")
	})

	st.EXPECT().
		UpdateWebhookEventStatus(gomock.Any(), "evt-2", schema.WebhookEventStatusFailed, "crm unavailable").
		Return(nil)

	event := newEvent(t, `{"event":"verification.failed","data":{"sessionId":"sess-2","reason":"too many attempts"}}`)
	require.NoError(t, d.Dispatch(context.Background(), "evt-2", event))
	d.Stop()
}

func TestDispatcher_UnknownEventType(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	st := mocks.NewMockStore(ctrl)

	d := dispatcher.New(context.Background(), dispatcher.Config{}, st)
	st.EXPECT().UpdateWebhookEventStatus(gomock.Any(), "evt-3", schema.WebhookEventStatusDispatched, "").Return(nil)

	require.NoError(t, d.Dispatch(context.Background(), "evt-3", newEvent(t, `{"event":"balance.low"}`)))
	d.Stop()
}

func TestDispatcher_WithoutStore(t *testing.T) {
	d := dispatcher.New(context.Background(), dispatcher.Config{}, nil)

	done := make(chan struct{})
	d.Register(webhook.EventVerificationExpired, func(ctx context.Context, event *webhook.Event) error {
		close(done)
		return nil
	})

	require.NoError(t, d.Dispatch(context.Background(), "", newEvent(t, `{"event":"verification.expired","sessionId":"s"}`)))
	d.Stop()
	<-done
}

func TestDispatcher_CanceledRequestContext(t *testing.T) {
	d := dispatcher.New(context.Background(), dispatcher.Config{}, nil)

	var ran atomic.Bool
	d.Register(webhook.EventVerificationExpired, func(ctx context.Context, event *webhook.Event) error {
		ran.Store(ctx.Err() == nil)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, d.Dispatch(ctx, "", newEvent(t, `{"event":"verification.expired"}`)))
	d.Stop()

	assert.True(t, ran.Load())
}

func TestDispatcher_StopDrainsQueuedEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	d := dispatcher.New(ctx, dispatcher.Config{WorkerPoolSize: 1, WorkerQueueSize: 100}, nil)

	var handled atomic.Int32
	d.Register(webhook.EventVerificationCompleted, func(ctx context.Context, event *webhook.Event) error {
		time.Sleep(20 * time.Millisecond)
		handled.Add(1)
		return nil
	})

	event := newEvent(t, `{"event":"verification.completed","sessionId":"abc123"}`)
	for i := 0; i < 10; i++ {
		require.NoError(t, d.Dispatch(context.Background(), "", event))
	}

	// the service context going away must not drop acknowledged events
	cancel()
	d.Stop()

	assert.Equal(t, int32(10), handled.Load())
}

func TestDispatcher_DispatchAfterStop(t *testing.T) {
	d := dispatcher.New(context.Background(), dispatcher.Config{}, nil)
	d.Stop()

	err := d.Dispatch(context.Background(), "", newEvent(t, `{}`))
	assert.ErrorIs(t, err, dispatcher.ErrStopped)
}

func TestDefaultHandlers(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status string
	}{
		{"completed", `{"event":"verification.completed","data":{"sessionId":"sess-1","method":"whatsapp"}}`, dispatcher.SessionStatusCompleted},
		{"failed", `{"event":"verification.failed","data":{"sessionId":"sess-1","reason":"wrong code"}}`, dispatcher.SessionStatusFailed},
		{"expired", `{"event":"verification.expired","data":{"sessionId":"sess-1"}}`, dispatcher.SessionStatusExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()
			st := mocks.NewMockStore(ctrl)

			d := dispatcher.New(context.Background(), dispatcher.Config{}, st)
			dispatcher.RegisterDefaultHandlers(d, st)

			gomock.InOrder(
				st.EXPECT().UpdateVerificationSessionStatus(gomock.Any(), "sess-1", tt.status).Return(nil),
				st.EXPECT().UpdateWebhookEventStatus(gomock.Any(), "evt", schema.WebhookEventStatusDispatched, "").Return(nil),
			)

			require.NoError(t, d.Dispatch(context.Background(), "evt", newEvent(t, tt.body)))
			d.Stop()
		})
	}
}

func TestDefaultHandlers_StoreError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	st := mocks.NewMockStore(ctrl)

	d := dispatcher.New(context.Background(), dispatcher.Config{}, st)
	dispatcher.RegisterDefaultHandlers(d, st)

	st.EXPECT().UpdateVerificationSessionStatus(gomock.Any(), "sess-9", dispatcher.SessionStatusCompleted).
		Return(errors.New("connection reset"))
	st.EXPECT().
		UpdateWebhookEventStatus(gomock.Any(), "evt", schema.WebhookEventStatusFailed, "failed to update session sess-9: connection reset").
		Return(nil)

	require.NoError(t, d.Dispatch(context.Background(), "evt", newEvent(t, `{"event":"verification.completed","sessionId":"sess-9"}`)))
	d.Stop()
}
