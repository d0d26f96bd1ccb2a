package schema

import (
	"time"

	"gorm.io/datatypes"
)

// WebhookEventStatus is the processing status of a received webhook
type WebhookEventStatus string

const (
	// WebhookEventStatusReceived is a verified webhook that has not been dispatched yet
	WebhookEventStatusReceived WebhookEventStatus = "received"
	// WebhookEventStatusDispatched is a webhook whose handlers all succeeded
	WebhookEventStatusDispatched WebhookEventStatus = "dispatched"
	// WebhookEventStatusFailed is a webhook whose publish or handler failed
	WebhookEventStatusFailed WebhookEventStatus = "failed"
)

// WebhookEvent represents the webhook_events table - audit log of verified webhooks
type WebhookEvent struct {
	// ID is a ULID assigned on receipt, time-sortable
	ID string `gorm:"column:id;primaryKey;type:varchar(26)"`
	// EventType is the "event" field of the payload (e.g., "verification.completed")
	EventType string `gorm:"column:event_type;not null;type:varchar(100);index"`
	// SessionID is the verification session the event belongs to, empty if absent
	SessionID string `gorm:"column:session_id;type:varchar(255);index"`
	// Signature is the X-Signature header the event was verified with
	Signature string `gorm:"column:signature;not null;type:varchar(64);uniqueIndex:idx_webhook_events_signature_timestamp"`
	// Timestamp is the X-Timestamp header the event was verified with
	Timestamp string `gorm:"column:timestamp;not null;type:varchar(32);uniqueIndex:idx_webhook_events_signature_timestamp"`
	// Payload is the raw body as received
	Payload datatypes.JSON `gorm:"column:payload;not null;type:jsonb"`
	// Status indicates the processing status: received, dispatched, failed
	Status WebhookEventStatus `gorm:"column:status;not null;default:received;type:varchar(20)"`
	// ErrorMessage contains error details if processing failed
	ErrorMessage string `gorm:"column:error_message;type:text"`
	// ReceivedAt is when the webhook was accepted
	ReceivedAt time.Time `gorm:"column:received_at;not null;default:now();type:timestamptz"`
	// ProcessedAt is when the status last changed from received
	ProcessedAt *time.Time `gorm:"column:processed_at;type:timestamptz"`
}

// TableName specifies the table name for the WebhookEvent model
func (WebhookEvent) TableName() string {
	return "webhook_events"
}
