package rest

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/verifly/verifly-go/internal/api/middleware"
	"github.com/verifly/verifly-go/internal/api/shared/dto"
	apierrors "github.com/verifly/verifly-go/internal/api/shared/errors"
	"github.com/verifly/verifly-go/internal/api/shared/executor"
	"github.com/verifly/verifly-go/internal/logger"
	"github.com/verifly/verifly-go/internal/processor"
	"github.com/verifly/verifly-go/webhook"
)

// Handler defines the interface for REST API handlers
//
//go:generate mockgen -source=handler.go -destination=../../mocks/api_handler.go -package=mocks -mock_names=Handler=MockAPIHandler
type Handler interface {
	// HandleWebhook processes a webhook verified by middleware.VerifyWebhook
	// POST /webhooks/verifly
	HandleWebhook(c *gin.Context)

	// CreateVerification creates a verification session
	// POST /api/v1/verifications
	CreateVerification(c *gin.Context)

	// GetVerification retrieves a session and the webhooks received for it
	// GET /api/v1/verifications/:session_id
	GetVerification(c *gin.Context)

	// CancelVerification cancels a pending session
	// POST /api/v1/verifications/:session_id/cancel
	CancelVerification(c *gin.Context)

	// HealthCheck returns the health status of the receiver
	// GET /health
	HealthCheck(c *gin.Context)
}

// handler implements the Handler interface
type handler struct {
	executor  executor.Executor
	processor processor.Processor
}

// NewHandler creates a new REST API handler
func NewHandler(exec executor.Executor, proc processor.Processor) Handler {
	return &handler{
		executor:  exec,
		processor: proc,
	}
}

// HandleWebhook answers Verifly with a webhook response; a non 2xx status makes it redeliver
func (h *handler) HandleWebhook(c *gin.Context) {
	event, sig, timestamp, ok := middleware.WebhookEvent(c)
	if !ok {
		respondWebhook(c, webhook.Failure("Webhook not verified", http.StatusInternalServerError))
		return
	}

	result, err := h.processor.Process(c.Request.Context(), processor.Input{
		Event:     event,
		Signature: sig,
		Timestamp: timestamp,
	})
	if err != nil {
		status := webhook.StatusCode(err)
		if status >= http.StatusInternalServerError {
			logger.ErrorCtx(c.Request.Context(), fmt.Errorf("failed to process webhook: %w", err),
				zap.String("event_type", string(event.Type())))
			respondWebhook(c, webhook.Failure("Processing failed", status))
			return
		}
		respondWebhook(c, webhook.Failure(err.Error(), status))
		return
	}

	if result.Duplicate {
		respondWebhook(c, webhook.Success("Already processed"))
		return
	}
	respondWebhook(c, webhook.Success(""))
}

// CreateVerification creates a verification session
func (h *handler) CreateVerification(c *gin.Context) {
	var req dto.CreateVerificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	if err := req.Validate(); err != nil {
		respondError(c, err)
		return
	}

	response, err := h.executor.CreateVerification(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response)
}

// GetVerification retrieves a session by ID
func (h *handler) GetVerification(c *gin.Context) {
	sessionID := c.Param("session_id")
	if sessionID == "" {
		respondBadRequest(c, "Session ID is required")
		return
	}

	response, err := h.executor.GetVerification(c.Request.Context(), sessionID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// CancelVerification cancels a session by ID
func (h *handler) CancelVerification(c *gin.Context) {
	sessionID := c.Param("session_id")
	if sessionID == "" {
		respondBadRequest(c, "Session ID is required")
		return
	}

	result, err := h.executor.CancelVerification(c.Request.Context(), sessionID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": result.Success, "message": result.Message})
}

// HealthCheck returns the health status of the receiver
func (h *handler) HealthCheck(c *gin.Context) {
	health := h.executor.Health(c.Request.Context())

	status := http.StatusOK
	if health.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, health)
}

// respondError sends an APIError, mapping client errors first
func respondError(c *gin.Context, err error) {
	var apiErr *apierrors.APIError
	if !errors.As(err, &apiErr) {
		apiErr = apierrors.FromVerifly(err)
	}
	if apiErr.Status >= http.StatusInternalServerError {
		logger.ErrorCtx(c.Request.Context(), err, zap.String("path", c.Request.URL.Path))
	}
	c.JSON(apiErr.Status, apiErr)
}
