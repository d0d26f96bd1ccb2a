package dispatcher

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/verifly/verifly-go/internal/logger"
	"github.com/verifly/verifly-go/internal/store"
	"github.com/verifly/verifly-go/webhook"
)

// Session statuses recorded from webhook events
const (
	SessionStatusCompleted = "completed"
	SessionStatusFailed    = "failed"
	SessionStatusExpired   = "expired"
)

// RegisterDefaultHandlers logs the three verification outcomes and, when st
// is not nil, records them on the stored session
func RegisterDefaultHandlers(d Dispatcher, st store.Store) {
	d.Register(webhook.EventVerificationCompleted, func(ctx context.Context, event *webhook.Event) error {
		logger.InfoCtx(ctx, "Session verified",
			zap.String("session_id", event.SessionID()),
			zap.String("method", event.Method()))
		return updateSessionStatus(ctx, st, event, SessionStatusCompleted)
	})

	d.Register(webhook.EventVerificationFailed, func(ctx context.Context, event *webhook.Event) error {
		logger.InfoCtx(ctx, "Session failed",
			zap.String("session_id", event.SessionID()),
			zap.String("reason", event.Reason()))
		return updateSessionStatus(ctx, st, event, SessionStatusFailed)
	})

	d.Register(webhook.EventVerificationExpired, func(ctx context.Context, event *webhook.Event) error {
		logger.InfoCtx(ctx, "Session expired", zap.String("session_id", event.SessionID()))
		return updateSessionStatus(ctx, st, event, SessionStatusExpired)
	})
}

func updateSessionStatus(ctx context.Context, st store.Store, event *webhook.Event, status string) error {
	sessionID := event.SessionID()
	if st == nil || sessionID == "" {
		return nil
	}
	if err := st.UpdateVerificationSessionStatus(ctx, sessionID, status); err != nil {
		return fmt.Errorf("failed to update session %s: %w", sessionID, err)
	}
	return nil
}
