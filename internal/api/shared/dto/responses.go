package dto

import (
	"encoding/json"
	"time"

	verifly "github.com/verifly/verifly-go"
	"github.com/verifly/verifly-go/internal/store/schema"
)

// VerificationResponse represents a verification session
type VerificationResponse struct {
	SessionID        string          `json:"session_id"`
	IframeURL        string          `json:"iframe_url,omitempty"`
	Status           string          `json:"status,omitempty"`
	Method           string          `json:"method,omitempty"`
	RecipientContact string          `json:"recipient_contact,omitempty"`
	ExpiresAt        string          `json:"expires_at,omitempty"`
	Data             json.RawMessage `json:"data,omitempty"`
	// Events are the webhooks received for the session, oldest first
	Events []WebhookEventResponse `json:"events,omitempty"`
}

// WebhookEventResponse represents a recorded webhook
type WebhookEventResponse struct {
	ID           string          `json:"id"`
	EventType    string          `json:"event_type"`
	Status       string          `json:"status"`
	ErrorMessage string          `json:"error_message,omitempty"`
	Payload      json.RawMessage `json:"payload"`
	ReceivedAt   time.Time       `json:"received_at"`
	ProcessedAt  *time.Time      `json:"processed_at,omitempty"`
}

// HealthResponse represents the health of the receiver
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database,omitempty"`
	Version  string `json:"version"`
}

// MapSessionToDTO maps a client session to its response
func MapSessionToDTO(s *verifly.Session) *VerificationResponse {
	return &VerificationResponse{
		SessionID:        s.SessionID,
		IframeURL:        s.IframeURL,
		Status:           s.Status,
		Method:           s.Method,
		RecipientContact: s.RecipientContact,
		ExpiresAt:        s.ExpiresAt,
		Data:             s.Data,
	}
}

// MapWebhookEventToDTO maps a recorded webhook to its response
func MapWebhookEventToDTO(e schema.WebhookEvent) WebhookEventResponse {
	return WebhookEventResponse{
		ID:           e.ID,
		EventType:    e.EventType,
		Status:       string(e.Status),
		ErrorMessage: e.ErrorMessage,
		Payload:      json.RawMessage(e.Payload),
		ReceivedAt:   e.ReceivedAt,
		ProcessedAt:  e.ProcessedAt,
	}
}
