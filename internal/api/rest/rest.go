package rest

import (
	"github.com/gin-gonic/gin"

	verifly "github.com/verifly/verifly-go"
	"github.com/verifly/verifly-go/internal/api/middleware"
)

// SetupRoutes configures all REST API routes
func SetupRoutes(router *gin.Engine, handler Handler, client *verifly.Handle, auth *middleware.Authenticator) {
	// Health check endpoint (no auth, no version prefix)
	router.GET("/health", handler.HealthCheck)

	// Webhooks authenticate with their signature
	router.POST("/webhooks/verifly", middleware.VerifyWebhook(client), handler.HandleWebhook)

	// API v1 routes
	v1 := router.Group("/api/v1", auth.Middleware())
	{
		v1.POST("/verifications", handler.CreateVerification)
		v1.GET("/verifications/:session_id", handler.GetVerification)
		v1.POST("/verifications/:session_id/cancel", handler.CancelVerification)
	}
}
