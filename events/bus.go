package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"marketplace-service/models"

	EventBus "github.com/asaskevich/EventBus"
	"go.uber.org/zap"
)

const defaultHandlerTimeout = 30 * time.Second

// Handler processes one event. Returned errors are logged; events are never redelivered.
type Handler func(ctx context.Context, event models.Event) error

// Bus is the in-process domain event bus. Subscribers run asynchronously, one goroutine per event, so
// publishing never blocks a request.
type Bus struct {
	bus     EventBus.Bus
	timeout time.Duration
	logger  *zap.Logger

	mu     sync.RWMutex
	closed bool
}

func NewBus(logger *zap.Logger) *Bus {
	return &Bus{
		bus:     EventBus.New(),
		timeout: defaultHandlerTimeout,
		logger:  logger,
	}
}

// Publish hands event to every subscriber of topic. Events published after Close are dropped.
func (b *Bus) Publish(topic string, event models.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		b.logger.Warn("event dropped after shutdown", zap.String("topic", topic), zap.String("event_type", event.Type()))
		return
	}
	b.bus.Publish(topic, event)
}

// Subscribe registers handler for topic under name, which appears in the logs.
func (b *Bus) Subscribe(topic, name string, handler Handler) error {
	fn := func(event models.Event) {
		ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				b.logger.Error("event handler panicked",
					zap.String("topic", topic),
					zap.String("subscriber", name),
					zap.Any("panic", r),
				)
			}
		}()
		if err := handler(ctx, event); err != nil {
			b.logger.Error("event handler failed",
				zap.String("topic", topic),
				zap.String("subscriber", name),
				zap.String("event_type", event.Type()),
				zap.Error(err),
			)
		}
	}
	if err := b.bus.SubscribeAsync(topic, fn, false); err != nil {
		return fmt.Errorf("subscribe %s to %s: %w", name, topic, err)
	}
	return nil
}

// Close stops accepting events and waits for running handlers.
func (b *Bus) Close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	b.bus.WaitAsync()
}
