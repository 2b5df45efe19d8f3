package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Message is one delivery on the bus. CorrelationID is stable across
// redeliveries of the same publish.
type Message struct {
	CorrelationID string
	Topic         string
	Payload       json.RawMessage
	Attempt       int
}

// Handler processes one message. Returning an error triggers redelivery
// until the attempt budget is exhausted.
type Handler func(ctx context.Context, msg Message) error

// Publisher is the narrow interface components use to emit events.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) error
}

// Bus is an in-process, at-least-once message bus. Each subscription gets
// its own delivery goroutine, so ordering is guaranteed only within one
// subscription's queue, never across topics.
type Bus struct {
	subscribers map[string][]*subscription
	maxAttempts int
	queueSize   int
	retryDelay  time.Duration
	mu          sync.RWMutex
	wg          sync.WaitGroup
	closed      bool
}

type subscription struct {
	handler Handler
	queue   chan Message
}

// Config holds bus delivery settings.
type Config struct {
	MaxAttempts int
	RetryDelay  time.Duration
	QueueSize   int
}

// DefaultConfig returns the standard bus settings.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 3,
		RetryDelay:  250 * time.Millisecond,
		QueueSize:   64,
	}
}

// NewBus creates a message bus.
func NewBus(cfg Config) *Bus {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 250 * time.Millisecond
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	return &Bus{
		subscribers: make(map[string][]*subscription),
		maxAttempts: cfg.MaxAttempts,
		queueSize:   cfg.QueueSize,
		retryDelay:  cfg.RetryDelay,
	}
}

// Subscribe registers a handler for a topic. Must be called before the
// first Publish on that topic to guarantee delivery.
func (b *Bus) Subscribe(topic string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &subscription{
		handler: handler,
		queue:   make(chan Message, b.queueSize),
	}
	b.subscribers[topic] = append(b.subscribers[topic], sub)

	b.wg.Add(1)
	go b.deliver(sub)
}

// Publish marshals the payload as JSON and queues it for every subscriber
// of the topic. Publishing to a topic with no subscribers is a logged no-op.
func (b *Bus) Publish(_ context.Context, topic string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", topic, err)
	}

	msg := Message{
		CorrelationID: uuid.New().String(),
		Topic:         topic,
		Payload:       body,
		Attempt:       1,
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return fmt.Errorf("bus is closed")
	}

	subs := b.subscribers[topic]
	if len(subs) == 0 {
		slog.Debug("no subscribers for topic", "topic", topic)
		return nil
	}

	for _, sub := range subs {
		sub.queue <- msg
	}

	slog.Debug("event published",
		"topic", topic,
		"correlation_id", msg.CorrelationID)

	return nil
}

// deliver runs one subscription's delivery loop, redelivering on handler
// error up to the attempt budget.
func (b *Bus) deliver(sub *subscription) {
	defer b.wg.Done()

	for msg := range sub.queue {
		for attempt := 1; attempt <= b.maxAttempts; attempt++ {
			msg.Attempt = attempt
			err := sub.handler(context.Background(), msg)
			if err == nil {
				break
			}

			if attempt == b.maxAttempts {
				slog.Error("event handler failed, dropping message",
					"topic", msg.Topic,
					"correlation_id", msg.CorrelationID,
					"attempts", attempt,
					"error", err)
				break
			}

			slog.Warn("event handler failed, redelivering",
				"topic", msg.Topic,
				"correlation_id", msg.CorrelationID,
				"attempt", attempt,
				"error", err)
			time.Sleep(b.retryDelay)
		}
	}
}

// Close stops accepting publishes and waits for queued messages to drain.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	for _, subs := range b.subscribers {
		for _, sub := range subs {
			close(sub.queue)
		}
	}
	b.mu.Unlock()

	b.wg.Wait()
}
