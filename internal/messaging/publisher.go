package messaging

import (
	"context"
	"encoding/json"
	"time"
)

// Event is a verified webhook as it is fanned out to other services
type Event struct {
	// ID is the ID assigned when the webhook was recorded
	ID string `json:"id"`
	// Type is the "event" field of the webhook payload
	Type string `json:"type"`
	// SessionID is the verification session, empty if the payload has none
	SessionID string `json:"sessionId,omitempty"`
	// Timestamp is the X-Timestamp header the webhook was signed with
	Timestamp string `json:"timestamp"`
	// Payload is the webhook body as received
	Payload json.RawMessage `json:"payload"`
	// ReceivedAt is when the receiver accepted the webhook
	ReceivedAt time.Time `json:"receivedAt"`
}

// Publisher defines the interface for publishing events to message queue
//
//go:generate mockgen -source=publisher.go -destination=../mocks/publisher.go -package=mocks -mock_names=Publisher=MockPublisher
type Publisher interface {
	// PublishEvent publishes a verified webhook to the message broker
	PublishEvent(ctx context.Context, event *Event) error
	// Close closes the connection
	Close()
}
