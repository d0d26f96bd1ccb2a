package jetstream

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/verifly/verifly-go/internal/adapter"
	"github.com/verifly/verifly-go/internal/logger"
	"github.com/verifly/verifly-go/internal/messaging"
)

// DefaultSubjectPrefix is used when Config.SubjectPrefix is empty
const DefaultSubjectPrefix = "verifly.events"

// Config holds the configuration for NATS JetStream connection
type Config struct {
	URL            string
	StreamName     string
	SubjectPrefix  string
	MaxReconnects  int
	ReconnectWait  time.Duration
	ConnectionName string
}

type publisher struct {
	nc     adapter.NatsConn
	js     adapter.JetStream
	prefix string
}

// NewPublisher connects to NATS, makes sure the stream exists and returns a publisher
func NewPublisher(ctx context.Context, cfg Config, natsJS adapter.NatsJetStream) (messaging.Publisher, error) {
	nc, js, err := connect(cfg, natsJS)
	if err != nil {
		return nil, err
	}

	prefix := subjectPrefix(cfg)
	err = js.EnsureStream(ctx, jetstream.StreamConfig{
		Name:     cfg.StreamName,
		Subjects: []string{prefix + ".>"},
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to ensure stream %s: %w", cfg.StreamName, err)
	}

	return &publisher{
		nc:     nc,
		js:     js,
		prefix: prefix,
	}, nil
}

// PublishEvent publishes a verified webhook to NATS JetStream.
// The event ID is used as the message ID so redeliveries are deduplicated by the stream.
func (p *publisher) PublishEvent(ctx context.Context, event *messaging.Event) error {
	logger.DebugCtx(ctx, "Publishing NATS event",
		zap.String("event_id", event.ID),
		zap.String("event_type", event.Type))

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	subject := BuildSubject(p.prefix, event.Type)
	if _, err := p.js.Publish(ctx, subject, data, jetstream.WithMsgID(event.ID)); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

// Close closes the NATS connection
func (p *publisher) Close() {
	if p.nc == nil {
		return
	}
	p.nc.Close()
}

// BuildSubject returns the subject of an event type.
// Format: {prefix}.{event_type}, e.g. verifly.events.verification.completed
func BuildSubject(prefix, eventType string) string {
	if eventType == "" {
		eventType = "unknown"
	}
	// wildcards and whitespace are not allowed in a published subject
	eventType = strings.Map(func(r rune) rune {
		switch r {
		case '*', '>', ' ', '\t', '\r', '\n':
			return '_'
		}
		return r
	}, eventType)
	return prefix + "." + strings.Trim(eventType, ".")
}

func subjectPrefix(cfg Config) string {
	if cfg.SubjectPrefix == "" {
		return DefaultSubjectPrefix
	}
	return strings.TrimSuffix(cfg.SubjectPrefix, ".")
}

func connect(cfg Config, natsJS adapter.NatsJetStream) (adapter.NatsConn, adapter.JetStream, error) {
	opts := []nats.Option{
		nats.Name(cfg.ConnectionName),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logger.Error(err, zap.String("message", "Disconnected from NATS"))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("Reconnected to NATS", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Info("NATS connection closed")
		}),
	}

	nc, js, err := natsJS.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to NATS and create JetStream: %w", err)
	}
	return nc, js, nil
}
