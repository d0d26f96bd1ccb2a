package store

import (
	"context"
	"encoding/json"

	"github.com/verifly/verifly-go/internal/store/schema"
)

//go:generate mockgen -source=store.go -destination=../mocks/store.go -package=mocks -mock_names=Store=MockStore

// CreateWebhookEventInput is a verified webhook to record
type CreateWebhookEventInput struct {
	EventType string
	SessionID string
	Signature string
	Timestamp string
	Payload   json.RawMessage
}

// UpsertVerificationSessionInput is a session returned by the Verifly API
type UpsertVerificationSessionInput struct {
	SessionID string
	Phone     string
	Email     string
	Methods   []string
	IframeURL string
	Status    string
	Data      json.RawMessage
}

// Store defines the interface for database operations
type Store interface {
	// CreateWebhookEvent records a verified webhook and returns it with its assigned ID.
	// A webhook with the same signature and timestamp already recorded returns ErrDuplicateEvent,
	// unless its dispatch failed: that record is reset to received and returned.
	CreateWebhookEvent(ctx context.Context, input CreateWebhookEventInput) (*schema.WebhookEvent, error)
	// UpdateWebhookEventStatus sets the processing status of a recorded webhook
	UpdateWebhookEventStatus(ctx context.Context, id string, status schema.WebhookEventStatus, errorMessage string) error
	// GetWebhookEventsBySessionID returns the webhooks of a session, oldest first
	GetWebhookEventsBySessionID(ctx context.Context, sessionID string) ([]schema.WebhookEvent, error)
	// UpsertVerificationSession records or refreshes a session
	UpsertVerificationSession(ctx context.Context, input UpsertVerificationSessionInput) error
	// UpdateVerificationSessionStatus sets the status of a recorded session.
	// Unknown sessions are ignored.
	UpdateVerificationSessionStatus(ctx context.Context, sessionID string, status string) error
	// GetVerificationSession returns a recorded session, or nil if it does not exist
	GetVerificationSession(ctx context.Context, sessionID string) (*schema.VerificationSession, error)
	// Ping checks the database connection
	Ping(ctx context.Context) error
}
