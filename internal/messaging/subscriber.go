package messaging

import "context"

// EventHandler is called for each event received from the message broker
type EventHandler func(event *Event) error

// Subscriber defines the interface for consuming published webhooks
//
//go:generate mockgen -source=subscriber.go -destination=../mocks/subscriber.go -package=mocks -mock_names=Subscriber=MockSubscriber
type Subscriber interface {
	// SubscribeEvents delivers events matching the subject filter to handler until ctx is done
	SubscribeEvents(ctx context.Context, filter string, handler EventHandler) error
	// Close closes the connection
	Close()
}
