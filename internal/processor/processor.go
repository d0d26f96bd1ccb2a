package processor

import (
	"context"
	"errors"
	"fmt"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	apierrors "github.com/verifly/verifly-go/errors"
	"github.com/verifly/verifly-go/internal/adapter"
	"github.com/verifly/verifly-go/internal/dispatcher"
	"github.com/verifly/verifly-go/internal/logger"
	"github.com/verifly/verifly-go/internal/messaging"
	"github.com/verifly/verifly-go/internal/replay"
	"github.com/verifly/verifly-go/internal/store"
	"github.com/verifly/verifly-go/internal/store/schema"
	"github.com/verifly/verifly-go/webhook"
)

// Input is a webhook whose signature has been verified
type Input struct {
	Event     *webhook.Event
	Signature string
	Timestamp string
}

// Result describes how a webhook was handled
type Result struct {
	// EventID is the ID assigned to the webhook, empty for duplicates
	EventID string
	// Duplicate is set when the webhook was already received
	Duplicate bool
}

// Processor records, fans out and dispatches verified webhooks
//
//go:generate mockgen -source=processor.go -destination=../mocks/processor.go -package=mocks -mock_names=Processor=MockProcessor
type Processor interface {
	// Process handles a verified webhook. Duplicates are not an error.
	Process(ctx context.Context, in Input) (*Result, error)
}

// Deps are the components a processor works with. Guard, Store and
// Publisher are optional.
type Deps struct {
	Guard      replay.Guard
	Store      store.Store
	Publisher  messaging.Publisher
	Dispatcher dispatcher.Dispatcher
	Clock      adapter.Clock
}

type processor struct {
	deps Deps
}

// New creates a processor
func New(deps Deps) Processor {
	if deps.Clock == nil {
		deps.Clock = adapter.NewClock()
	}
	return &processor{deps: deps}
}

func (p *processor) Process(ctx context.Context, in Input) (*Result, error) {
	event := in.Event
	log := logger.WithEvent(ctx, logger.EventInfo{
		EventType: string(event.Type()),
		SessionID: event.SessionID(),
	})

	if p.deps.Guard != nil {
		if err := p.deps.Guard.Claim(ctx, in.Signature, in.Timestamp); err != nil {
			switch {
			case errors.Is(err, replay.ErrReplayed):
				return &Result{Duplicate: true}, nil
			case errors.Is(err, replay.ErrStale), errors.Is(err, replay.ErrInvalidTimestamp):
				return nil, apierrors.Wrap(apierrors.KindValidation, "webhook rejected", err)
			default:
				return nil, fmt.Errorf("replay check failed: %w", err)
			}
		}
	}

	eventID, err := p.record(ctx, in)
	if errors.Is(err, store.ErrDuplicateEvent) {
		log.Info("Duplicate webhook ignored")
		return &Result{Duplicate: true}, nil
	}
	if err != nil {
		p.release(ctx, in)
		return nil, err
	}

	log = log.With(zap.String("event_id", eventID))

	if p.deps.Publisher != nil {
		msg := &messaging.Event{
			ID:         eventID,
			Type:       string(event.Type()),
			SessionID:  event.SessionID(),
			Timestamp:  in.Timestamp,
			Payload:    event.Raw(),
			ReceivedAt: p.deps.Clock.Now().UTC(),
		}
		// the audit log keeps the event, so a broker outage does not fail the delivery
		if err := p.deps.Publisher.PublishEvent(ctx, msg); err != nil {
			log.Error("Failed to publish webhook event", zap.Error(err))
		}
	}

	if err := p.deps.Dispatcher.Dispatch(ctx, eventID, event); err != nil {
		p.markFailed(ctx, eventID, err)
		p.release(ctx, in)
		return nil, fmt.Errorf("failed to dispatch webhook event: %w", err)
	}

	log.Info("Webhook event accepted")
	return &Result{EventID: eventID}, nil
}

// record stores the webhook in the audit log and returns its ID
func (p *processor) record(ctx context.Context, in Input) (string, error) {
	if p.deps.Store == nil {
		return ulid.MustNewDefault(p.deps.Clock.Now()).String(), nil
	}

	rec, err := p.deps.Store.CreateWebhookEvent(ctx, store.CreateWebhookEventInput{
		EventType: string(in.Event.Type()),
		SessionID: in.Event.SessionID(),
		Signature: in.Signature,
		Timestamp: in.Timestamp,
		Payload:   in.Event.Raw(),
	})
	if err != nil {
		return "", err
	}
	return rec.ID, nil
}

func (p *processor) markFailed(ctx context.Context, eventID string, cause error) {
	if p.deps.Store == nil {
		return
	}
	if err := p.deps.Store.UpdateWebhookEventStatus(ctx, eventID, schema.WebhookEventStatusFailed, cause.Error()); err != nil {
		logger.ErrorCtx(ctx, err, zap.String("event_id", eventID))
	}
}

// release lets a redelivery through after a failure
func (p *processor) release(ctx context.Context, in Input) {
	if p.deps.Guard == nil {
		return
	}
	if err := p.deps.Guard.Release(ctx, in.Signature, in.Timestamp); err != nil {
		logger.ErrorCtx(ctx, err)
	}
}
