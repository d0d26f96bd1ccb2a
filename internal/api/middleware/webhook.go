package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	verifly "github.com/verifly/verifly-go"
	apierrors "github.com/verifly/verifly-go/errors"
	"github.com/verifly/verifly-go/internal/logger"
	"github.com/verifly/verifly-go/signature"
	"github.com/verifly/verifly-go/webhook"
)

const (
	WEBHOOK_EVENT_KEY      = "webhook_event"
	WEBHOOK_EVENT_TYPE_KEY = "webhook_event_type"
)

// VerifyWebhook checks the X-Signature of a webhook against the current
// secret of client and stores the verified event in the gin context
func VerifyWebhook(client *verifly.Handle) gin.HandlerFunc {
	return func(c *gin.Context) {
		event, err := client.Load().Webhook().ParseRequest(c.Request)
		if err != nil {
			status := webhook.StatusCode(err)
			logger.WarnCtx(c.Request.Context(), "Webhook rejected",
				zap.Error(err),
				zap.Int("status", status),
				zap.String("client_ip", c.ClientIP()),
			)

			resp := webhook.Failure(rejectMessage(err), status)
			if status == http.StatusUnauthorized {
				resp = webhook.Unauthorized("Invalid signature")
			}
			c.AbortWithStatusJSON(resp.Status, resp)
			return
		}

		c.Set(WEBHOOK_EVENT_KEY, event)
		c.Set(WEBHOOK_EVENT_TYPE_KEY, string(event.Type()))
		c.Next()
	}
}

// WebhookEvent returns the event stored by VerifyWebhook with the headers it was signed with
func WebhookEvent(c *gin.Context) (event *webhook.Event, sig string, timestamp string, ok bool) {
	v, exists := c.Get(WEBHOOK_EVENT_KEY)
	if !exists {
		return nil, "", "", false
	}
	event, ok = v.(*webhook.Event)
	return event, c.GetHeader(signature.HeaderSignature), c.GetHeader(signature.HeaderTimestamp), ok
}

func rejectMessage(err error) string {
	var e *apierrors.Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return err.Error()
}
