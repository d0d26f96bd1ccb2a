package store

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verifly/verifly-go/internal/store/schema"
)

// RunStoreTests runs the store test suite against the store returned by initDB
func RunStoreTests(t *testing.T, initDB func(t *testing.T) Store) {
	t.Run("CreateWebhookEvent", func(t *testing.T) {
		testCreateWebhookEvent(t, initDB(t))
	})
	t.Run("UpdateWebhookEventStatus", func(t *testing.T) {
		testUpdateWebhookEventStatus(t, initDB(t))
	})
	t.Run("VerificationSession", func(t *testing.T) {
		testVerificationSession(t, initDB(t))
	})
}

func buildTestWebhookEvent(eventType, sessionID, signature string) CreateWebhookEventInput {
	payload, _ := json.Marshal(map[string]any{
		"event": eventType,
		"data":  map[string]any{"sessionId": sessionID},
	})
	return CreateWebhookEventInput{
		EventType: eventType,
		SessionID: sessionID,
		Signature: signature,
		Timestamp: "1700000000",
		Payload:   payload,
	}
}

func testCreateWebhookEvent(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("records event with ulid", func(t *testing.T) {
		event, err := store.CreateWebhookEvent(ctx, buildTestWebhookEvent("verification.completed", "sess-1", "aa01"))
		require.NoError(t, err)
		require.NotNil(t, event)
		assert.Len(t, event.ID, 26)
		assert.Equal(t, schema.WebhookEventStatusReceived, event.Status)
		assert.False(t, event.ReceivedAt.IsZero())
	})

	t.Run("duplicate signature and timestamp is rejected", func(t *testing.T) {
		input := buildTestWebhookEvent("verification.failed", "sess-2", "bb02")
		_, err := store.CreateWebhookEvent(ctx, input)
		require.NoError(t, err)

		_, err = store.CreateWebhookEvent(ctx, input)
		assert.ErrorIs(t, err, ErrDuplicateEvent)

		input.Timestamp = "1700000001"
		_, err = store.CreateWebhookEvent(ctx, input)
		assert.NoError(t, err)
	})

	t.Run("failed event is reclaimed once by a redelivery", func(t *testing.T) {
		input := buildTestWebhookEvent("verification.completed", "sess-6", "ee01")
		first, err := store.CreateWebhookEvent(ctx, input)
		require.NoError(t, err)
		require.NoError(t, store.UpdateWebhookEventStatus(ctx, first.ID, schema.WebhookEventStatusFailed, "dispatcher stopped"))

		again, err := store.CreateWebhookEvent(ctx, input)
		require.NoError(t, err)
		assert.Equal(t, first.ID, again.ID)
		assert.Equal(t, schema.WebhookEventStatusReceived, again.Status)
		assert.Empty(t, again.ErrorMessage)
		assert.Nil(t, again.ProcessedAt)

		_, err = store.CreateWebhookEvent(ctx, input)
		assert.ErrorIs(t, err, ErrDuplicateEvent)

		require.NoError(t, store.UpdateWebhookEventStatus(ctx, first.ID, schema.WebhookEventStatusDispatched, ""))
		_, err = store.CreateWebhookEvent(ctx, input)
		assert.ErrorIs(t, err, ErrDuplicateEvent)
	})

	t.Run("events are listed by session oldest first", func(t *testing.T) {
		first, err := store.CreateWebhookEvent(ctx, buildTestWebhookEvent("verification.failed", "sess-3", "cc01"))
		require.NoError(t, err)
		second, err := store.CreateWebhookEvent(ctx, buildTestWebhookEvent("verification.completed", "sess-3", "cc02"))
		require.NoError(t, err)
		_, err = store.CreateWebhookEvent(ctx, buildTestWebhookEvent("verification.completed", "other", "cc03"))
		require.NoError(t, err)

		events, err := store.GetWebhookEventsBySessionID(ctx, "sess-3")
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, first.ID, events[0].ID)
		assert.Equal(t, second.ID, events[1].ID)
		assert.JSONEq(t, `{"event":"verification.completed","data":{"sessionId":"sess-3"}}`, string(events[1].Payload))

		events, err = store.GetWebhookEventsBySessionID(ctx, "missing")
		require.NoError(t, err)
		assert.Empty(t, events)
	})
}

func testUpdateWebhookEventStatus(t *testing.T, store Store) {
	ctx := context.Background()

	event, err := store.CreateWebhookEvent(ctx, buildTestWebhookEvent("verification.expired", "sess-4", "dd01"))
	require.NoError(t, err)

	require.NoError(t, store.UpdateWebhookEventStatus(ctx, event.ID, schema.WebhookEventStatusFailed, "publish failed"))

	events, err := store.GetWebhookEventsBySessionID(ctx, "sess-4")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, schema.WebhookEventStatusFailed, events[0].Status)
	assert.Equal(t, "publish failed", events[0].ErrorMessage)
	assert.NotNil(t, events[0].ProcessedAt)
}

func testVerificationSession(t *testing.T, store Store) {
	ctx := context.Background()

	session, err := store.GetVerificationSession(ctx, "sess-5")
	require.NoError(t, err)
	assert.Nil(t, session)

	err = store.UpsertVerificationSession(ctx, UpsertVerificationSessionInput{
		SessionID: "sess-5",
		Phone:     "5551234567",
		Methods:   []string{"sms", "call"},
		IframeURL: "https://www.verifly.net/iframe/sess-5",
		Status:    "pending",
		Data:      json.RawMessage(`{"orderId":"ORD-1"}`),
	})
	require.NoError(t, err)

	session, err = store.GetVerificationSession(ctx, "sess-5")
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, "5551234567", session.Phone)
	assert.Equal(t, []string{"sms", "call"}, []string(session.Methods))
	assert.Equal(t, "pending", session.Status)
	assert.JSONEq(t, `{"orderId":"ORD-1"}`, string(session.Data))

	require.NoError(t, store.UpdateVerificationSessionStatus(ctx, "sess-5", "completed"))
	session, err = store.GetVerificationSession(ctx, "sess-5")
	require.NoError(t, err)
	assert.Equal(t, "completed", session.Status)

	// unknown sessions are ignored
	assert.NoError(t, store.UpdateVerificationSessionStatus(ctx, "missing", "completed"))

	// upsert refreshes an existing row
	err = store.UpsertVerificationSession(ctx, UpsertVerificationSessionInput{
		SessionID: "sess-5",
		Phone:     "5551234567",
		Status:    "code_sent",
	})
	require.NoError(t, err)
	session, err = store.GetVerificationSession(ctx, "sess-5")
	require.NoError(t, err)
	assert.Equal(t, "code_sent", session.Status)
}
