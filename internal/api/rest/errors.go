package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/verifly/verifly-go/internal/api/shared/errors"
	"github.com/verifly/verifly-go/webhook"
)

// respondBadRequest responds with a bad request error
func respondBadRequest(c *gin.Context, message string, details ...string) {
	c.JSON(http.StatusBadRequest, errors.NewBadRequestError(message, details...))
}

// respondValidationError responds with a validation error
func respondValidationError(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, errors.NewValidationError(message))
}

// respondWebhook sends the body Verifly expects from a webhook endpoint
func respondWebhook(c *gin.Context, resp webhook.Response) {
	c.JSON(resp.Status, resp)
}
