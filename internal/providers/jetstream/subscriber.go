package jetstream

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/verifly/verifly-go/internal/adapter"
	"github.com/verifly/verifly-go/internal/logger"
	"github.com/verifly/verifly-go/internal/messaging"
)

type subscriber struct {
	nc     adapter.NatsConn
	js     adapter.JetStream
	stream string
	prefix string
}

// NewSubscriber connects to NATS and returns a subscriber on the configured stream
func NewSubscriber(cfg Config, natsJS adapter.NatsJetStream) (messaging.Subscriber, error) {
	nc, js, err := connect(cfg, natsJS)
	if err != nil {
		return nil, err
	}

	return &subscriber{
		nc:     nc,
		js:     js,
		stream: cfg.StreamName,
		prefix: subjectPrefix(cfg),
	}, nil
}

// SubscribeEvents consumes new events matching filter with an ephemeral consumer.
// An empty filter receives every event type. Messages are acked once handler succeeds.
func (s *subscriber) SubscribeEvents(ctx context.Context, filter string, handler messaging.EventHandler) error {
	if filter == "" {
		filter = s.prefix + ".>"
	}

	consumer, err := s.js.CreateOrUpdateConsumer(ctx, s.stream, jetstream.ConsumerConfig{
		FilterSubject:     filter,
		AckPolicy:         jetstream.AckExplicitPolicy,
		DeliverPolicy:     jetstream.DeliverNewPolicy,
		InactiveThreshold: time.Minute,
	})
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}

	cc, err := consumer.Consume(func(msg adapter.Message) {
		var event messaging.Event
		if err := json.Unmarshal(msg.Data(), &event); err != nil {
			logger.Warn("Dropping malformed event", zap.String("subject", msg.Subject()), zap.Error(err))
			_ = msg.Ack()
			return
		}

		if err := handler(&event); err != nil {
			// left unacked for redelivery
			logger.Error(err, zap.String("subject", msg.Subject()), zap.String("event_id", event.ID))
			return
		}

		if err := msg.Ack(); err != nil {
			logger.Warn("Failed to ack event", zap.String("event_id", event.ID), zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("failed to consume: %w", err)
	}

	select {
	case <-ctx.Done():
		cc.Stop()
		return nil
	case <-cc.Closed():
		return fmt.Errorf("consumer closed")
	}
}

// Close closes the NATS connection
func (s *subscriber) Close() {
	if s.nc == nil {
		return
	}
	s.nc.Close()
}
