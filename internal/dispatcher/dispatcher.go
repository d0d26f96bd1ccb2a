package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/alitto/pond/v2"
	"go.uber.org/zap"

	"github.com/verifly/verifly-go/internal/logger"
	"github.com/verifly/verifly-go/internal/store"
	"github.com/verifly/verifly-go/internal/store/schema"
	"github.com/verifly/verifly-go/webhook"
)

const (
	DEFAULT_WORKER_POOL_SIZE  = 20
	DEFAULT_WORKER_QUEUE_SIZE = 2048
)

// ErrStopped is returned by Dispatch after Stop
var ErrStopped = errors.New("dispatcher stopped")

// Handler processes one verified webhook event
type Handler func(ctx context.Context, event *webhook.Event) error

// Config holds the worker pool settings
type Config struct {
	WorkerPoolSize  int
	WorkerQueueSize int
}

// Dispatcher runs the handlers registered for an event type on a worker pool
//
//go:generate mockgen -source=dispatcher.go -destination=../mocks/dispatcher.go -package=mocks -mock_names=Dispatcher=MockDispatcher
type Dispatcher interface {
	// Register adds a handler for an event type. Handlers run in registration order.
	Register(eventType webhook.EventType, handler Handler)
	// Dispatch queues the event. Once the handlers have run the recorded
	// webhook with eventID is marked dispatched or failed.
	Dispatch(ctx context.Context, eventID string, event *webhook.Event) error
	// Stop waits for queued events and stops the pool
	Stop()
}

type dispatcher struct {
	pool     pond.Pool
	store    store.Store
	mu       sync.RWMutex
	handlers map[webhook.EventType][]Handler
}

// New creates a dispatcher. st may be nil when no database is configured.
func New(ctx context.Context, cfg Config, st store.Store) Dispatcher {
	workerPoolSize := cfg.WorkerPoolSize
	if workerPoolSize <= 0 {
		workerPoolSize = DEFAULT_WORKER_POOL_SIZE
	}
	workerQueueSize := cfg.WorkerQueueSize
	if workerQueueSize <= 0 {
		workerQueueSize = DEFAULT_WORKER_QUEUE_SIZE
	}

	// The pool is not bound to ctx: a cancelled pool drops queued tasks,
	// and every queued event has already been acknowledged. Stop drains it.
	pool := pond.NewPool(
		workerPoolSize,
		pond.WithQueueSize(workerQueueSize),
	)

	logger.InfoCtx(ctx, "Dispatcher worker pool created",
		zap.Int("workers", workerPoolSize),
		zap.Int("queue_size", workerQueueSize))

	return &dispatcher{
		pool:     pool,
		store:    st,
		handlers: make(map[webhook.EventType][]Handler),
	}
}

func (d *dispatcher) Register(eventType webhook.EventType, handler Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[eventType] = append(d.handlers[eventType], handler)
}

func (d *dispatcher) Dispatch(ctx context.Context, eventID string, event *webhook.Event) error {
	if d.pool.Stopped() {
		return ErrStopped
	}

	// handlers outlive the request that delivered the event
	taskCtx := context.WithoutCancel(ctx)

	d.pool.SubmitErr(func() error {
		err := d.run(taskCtx, event)
		d.markProcessed(taskCtx, eventID, event, err)
		return err
	})
	return nil
}

func (d *dispatcher) run(ctx context.Context, event *webhook.Event) error {
	d.mu.RLock()
	handlers := d.handlers[event.Type()]
	d.mu.RUnlock()

	log := logger.WithEvent(ctx, logger.EventInfo{
		EventType: string(event.Type()),
		SessionID: event.SessionID(),
	})

	if len(handlers) == 0 {
		log.Info("No handler registered for webhook event")
		return nil
	}

	var errs []error
	for _, handler := range handlers {
		if err := handler(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		err := errors.Join(errs...)
		log.Error("Webhook handler failed", zap.Error(err))
		return err
	}
	return nil
}

func (d *dispatcher) markProcessed(ctx context.Context, eventID string, event *webhook.Event, handlerErr error) {
	if d.store == nil || eventID == "" {
		return
	}

	status := schema.WebhookEventStatusDispatched
	message := ""
	if handlerErr != nil {
		status = schema.WebhookEventStatusFailed
		message = handlerErr.Error()
	}

	if err := d.store.UpdateWebhookEventStatus(ctx, eventID, status, message); err != nil {
		logger.ErrorCtx(ctx, fmt.Errorf("failed to mark webhook event processed: %w", err),
			zap.String("event_id", eventID),
			zap.String("event_type", string(event.Type())))
	}
}

func (d *dispatcher) Stop() {
	logger.Info("Shutting down dispatcher worker pool",
		zap.Uint64("submitted", d.pool.SubmittedTasks()),
		zap.Uint64("waiting", d.pool.WaitingTasks()),
		zap.Uint64("successful", d.pool.SuccessfulTasks()),
		zap.Uint64("failed", d.pool.FailedTasks()))

	d.pool.StopAndWait()

	logger.Info("Dispatcher worker pool shutdown complete",
		zap.Uint64("total_submitted", d.pool.SubmittedTasks()),
		zap.Uint64("total_completed", d.pool.CompletedTasks()),
		zap.Uint64("total_failed", d.pool.FailedTasks()))
}
