package executor

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	verifly "github.com/verifly/verifly-go"
	"github.com/verifly/verifly-go/internal/api/shared/constants"
	"github.com/verifly/verifly-go/internal/api/shared/dto"
	apierrors "github.com/verifly/verifly-go/internal/api/shared/errors"
	"github.com/verifly/verifly-go/internal/logger"
	"github.com/verifly/verifly-go/internal/store"
)

// Executor is the interface for the API executor
//
//go:generate mockgen -source=executor.go -destination=../../../mocks/api_executor.go -package=mocks -mock_names=Executor=MockAPIExecutor
type Executor interface {
	// CreateVerification creates a session through Verifly and records it
	CreateVerification(ctx context.Context, req *dto.CreateVerificationRequest) (*dto.VerificationResponse, error)

	// GetVerification returns the live session with the webhooks received for it
	GetVerification(ctx context.Context, sessionID string) (*dto.VerificationResponse, error)

	// CancelVerification cancels a pending session
	CancelVerification(ctx context.Context, sessionID string) (*verifly.Result, error)

	// Health reports whether the receiver's dependencies are reachable
	Health(ctx context.Context) *dto.HealthResponse
}

type executor struct {
	client *verifly.Handle
	store  store.Store
}

// NewExecutor creates an executor. st may be nil when no database is configured.
func NewExecutor(client *verifly.Handle, st store.Store) Executor {
	return &executor{client: client, store: st}
}

func (e *executor) CreateVerification(ctx context.Context, req *dto.CreateVerificationRequest) (*dto.VerificationResponse, error) {
	session, err := e.client.Load().Verification().Create(ctx, req.Params())
	if err != nil {
		return nil, apierrors.FromVerifly(err)
	}

	if e.store != nil {
		methods := req.Params().Methods
		names := make([]string, 0, len(methods))
		for _, m := range methods {
			names = append(names, string(m))
		}

		err := e.store.UpsertVerificationSession(ctx, store.UpsertVerificationSessionInput{
			SessionID: session.SessionID,
			Phone:     req.Phone,
			Email:     req.Email,
			Methods:   names,
			IframeURL: session.IframeURL,
			Status:    sessionStatus(session),
			Data:      req.Data,
		})
		if err != nil {
			// the session exists at Verifly, so the caller still gets it
			logger.ErrorCtx(ctx, fmt.Errorf("failed to record verification session: %w", err),
				zap.String("session_id", session.SessionID))
		}
	}

	return dto.MapSessionToDTO(session), nil
}

func (e *executor) GetVerification(ctx context.Context, sessionID string) (*dto.VerificationResponse, error) {
	session, err := e.client.Load().Verification().Get(ctx, sessionID)
	if err != nil {
		return nil, apierrors.FromVerifly(err)
	}

	resp := dto.MapSessionToDTO(session)
	if e.store == nil {
		return resp, nil
	}

	if session.Status != "" {
		if err := e.store.UpdateVerificationSessionStatus(ctx, sessionID, session.Status); err != nil {
			logger.WarnCtx(ctx, "Failed to refresh session status",
				zap.String("session_id", sessionID), zap.Error(err))
		}
	}

	events, err := e.store.GetWebhookEventsBySessionID(ctx, sessionID)
	if err != nil {
		return nil, apierrors.NewDatabaseError(fmt.Sprintf("Failed to get webhook events: %v", err))
	}
	if len(events) > constants.MAX_EVENTS_PER_SESSION {
		events = events[len(events)-constants.MAX_EVENTS_PER_SESSION:]
	}
	for _, ev := range events {
		resp.Events = append(resp.Events, dto.MapWebhookEventToDTO(ev))
	}

	return resp, nil
}

func (e *executor) CancelVerification(ctx context.Context, sessionID string) (*verifly.Result, error) {
	result, err := e.client.Load().Verification().Cancel(ctx, sessionID)
	if err != nil {
		return nil, apierrors.FromVerifly(err)
	}

	if e.store != nil && result.Success {
		if err := e.store.UpdateVerificationSessionStatus(ctx, sessionID, "cancelled"); err != nil {
			logger.WarnCtx(ctx, "Failed to record cancellation",
				zap.String("session_id", sessionID), zap.Error(err))
		}
	}

	return result, nil
}

func (e *executor) Health(ctx context.Context) *dto.HealthResponse {
	resp := &dto.HealthResponse{Status: "healthy", Version: verifly.Version}
	if e.store == nil {
		return resp
	}

	if err := e.store.Ping(ctx); err != nil {
		logger.WarnCtx(ctx, "Database health check failed", zap.Error(err))
		resp.Status = "unhealthy"
		resp.Database = "unreachable"
		return resp
	}
	resp.Database = "ok"
	return resp
}

func sessionStatus(s *verifly.Session) string {
	if s.Status != "" {
		return s.Status
	}
	return "pending"
}
