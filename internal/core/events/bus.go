package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// ErrQueueFull is returned by Publish when the delivery queue has no room. The
// event is dropped; publishers on a request path must not block on consumers.
var ErrQueueFull = errors.New("events: queue full")

var ErrClosed = errors.New("events: bus closed")

type Event interface {
	EventType() string
	EventID() string
	OccurredAt() time.Time
	Payload() interface{}
}

type BaseEvent struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) EventID() string {
	return e.ID
}

func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

func (e BaseEvent) Payload() interface{} {
	return e.Data
}

type Handler func(ctx context.Context, event Event) error

type Option func(*EventBus)

// WithQueueSize bounds the number of events waiting for a worker.
func WithQueueSize(n int) Option {
	return func(eb *EventBus) {
		if n > 0 {
			eb.queueSize = n
		}
	}
}

func WithWorkers(n int) Option {
	return func(eb *EventBus) {
		if n > 0 {
			eb.workers = n
		}
	}
}

type delivery struct {
	ctx   context.Context
	event Event
}

// EventBus fans events out to the handlers subscribed to their type. Publish hands
// the event to a fixed pool of workers through a bounded queue; Dispatch runs the
// handlers on the caller's goroutine.
type EventBus struct {
	handlers  map[string][]Handler
	logger    *slog.Logger
	mu        sync.RWMutex
	queue     chan delivery
	queueSize int
	workers   int
	wg        sync.WaitGroup

	// sendMu orders sends against closing the queue
	sendMu  sync.RWMutex
	closed  bool
	dropped atomic.Int64
}

func NewEventBus(logger *slog.Logger, opts ...Option) *EventBus {
	eb := &EventBus{
		handlers:  make(map[string][]Handler),
		logger:    logger,
		queueSize: 1024,
		workers:   4,
	}
	for _, opt := range opts {
		opt(eb)
	}

	eb.queue = make(chan delivery, eb.queueSize)
	eb.wg.Add(eb.workers)
	for i := 0; i < eb.workers; i++ {
		go eb.work()
	}
	return eb
}

func (eb *EventBus) Subscribe(eventType string, handler Handler) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.handlers[eventType] = append(eb.handlers[eventType], handler)
	eb.logger.Info("event handler registered",
		"event_type", eventType,
		"total_handlers", len(eb.handlers[eventType]))
}

// Publish queues the event without waiting for its handlers.
func (eb *EventBus) Publish(ctx context.Context, event Event) error {
	if len(eb.subscribers(event.EventType())) == 0 {
		return nil
	}

	eb.sendMu.RLock()
	defer eb.sendMu.RUnlock()
	if eb.closed {
		return ErrClosed
	}

	select {
	case eb.queue <- delivery{ctx: ctx, event: event}:
		return nil
	default:
		eb.dropped.Add(1)
		return fmt.Errorf("%w: dropped %s %s", ErrQueueFull, event.EventType(), event.EventID())
	}
}

// Dispatch runs every handler of the event in subscription order and returns their
// joined errors. A failing handler does not stop the others.
func (eb *EventBus) Dispatch(ctx context.Context, event Event) error {
	var errs []error
	for _, h := range eb.subscribers(event.EventType()) {
		if err := h(ctx, event); err != nil {
			eb.logger.Error("event handler failed",
				"event_type", event.EventType(),
				"event_id", event.EventID(),
				"error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Dropped is the number of events Publish discarded on a full queue.
func (eb *EventBus) Dropped() int64 {
	return eb.dropped.Load()
}

// Close stops accepting events and waits for queued ones to be handled.
func (eb *EventBus) Close() {
	eb.sendMu.Lock()
	if !eb.closed {
		eb.closed = true
		close(eb.queue)
	}
	eb.sendMu.Unlock()
	eb.wg.Wait()
}

func (eb *EventBus) subscribers(eventType string) []Handler {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	return eb.handlers[eventType]
}

func (eb *EventBus) work() {
	defer eb.wg.Done()
	for d := range eb.queue {
		_ = eb.Dispatch(d.ctx, d.event)
	}
}
