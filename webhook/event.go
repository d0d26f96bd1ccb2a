package webhook

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/verifly/verifly-go/canonical"
)

// EventType is the kind of a webhook event
type EventType string

const (
	// EventVerificationCompleted is sent when the user completes verification
	EventVerificationCompleted EventType = "verification.completed"
	// EventVerificationFailed is sent when verification fails
	EventVerificationFailed EventType = "verification.failed"
	// EventVerificationExpired is sent when the session times out
	EventVerificationExpired EventType = "verification.expired"
)

// Event is a verified webhook payload
type Event struct {
	payload any
	value   canonical.Value
	raw     []byte
}

func newEvent(payload any, value canonical.Value) (*Event, error) {
	raw, err := canonical.Encode(value)
	if err != nil {
		return nil, err
	}
	return &Event{payload: payload, value: value, raw: raw}, nil
}

// Payload returns the verified payload exactly as it was passed in
func (e *Event) Payload() any {
	return e.payload
}

// Value returns the payload as an ordered JSON value
func (e *Event) Value() canonical.Value {
	return e.value
}

// Raw returns the canonical JSON of the payload
func (e *Event) Raw() json.RawMessage {
	return append(json.RawMessage(nil), e.raw...)
}

// Type returns the "event" field
func (e *Event) Type() EventType {
	return EventType(e.get("event").String())
}

// SessionID returns the session id from "data.sessionId", falling back to a
// top level "sessionId"
func (e *Event) SessionID() string {
	if id := e.get("data.sessionId"); id.Exists() {
		return id.String()
	}
	return e.get("sessionId").String()
}

// Method returns "data.method" of a completed verification
func (e *Event) Method() string {
	return e.get("data.method").String()
}

// Reason returns "data.reason" of a failed verification
func (e *Event) Reason() string {
	return e.get("data.reason").String()
}

// Data returns the raw "data" field, nil when absent
func (e *Event) Data() json.RawMessage {
	data := e.get("data")
	if !data.Exists() {
		return nil
	}
	return json.RawMessage(data.Raw)
}

// Get returns the field at a gjson path
func (e *Event) Get(path string) gjson.Result {
	return e.get(path)
}

// Decode unmarshals the payload into v
func (e *Event) Decode(v any) error {
	if err := json.Unmarshal(e.raw, v); err != nil {
		return fmt.Errorf("failed to decode webhook event: %w", err)
	}
	return nil
}

func (e *Event) get(path string) gjson.Result {
	return gjson.GetBytes(e.raw, path)
}
