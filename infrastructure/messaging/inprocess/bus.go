// Package inprocess provides a same-process event bus used in local
// development and tests, and as the fan-out point for in-process
// subscribers.
package inprocess

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"tutormatch-backend/application/ports"
	"tutormatch-backend/domain/events"
)

// Bus implements ports.EventBus with synchronous in-process dispatch.
// Handler errors are logged, never propagated to the publisher.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]ports.EventHandler
	logger   *zap.Logger
}

// NewBus creates an empty in-process event bus
func NewBus(logger *zap.Logger) *Bus {
	return &Bus{
		handlers: make(map[string][]ports.EventHandler),
		logger:   logger,
	}
}

// Publish delivers an event to every handler subscribed to its type
func (b *Bus) Publish(ctx context.Context, event events.DomainEvent) error {
	b.mu.RLock()
	subscribed := make([]ports.EventHandler, len(b.handlers[event.GetEventType()]))
	copy(subscribed, b.handlers[event.GetEventType()])
	b.mu.RUnlock()

	for _, handler := range subscribed {
		if !handler.CanHandle(event.GetEventType()) {
			continue
		}
		if err := handler.Handle(ctx, event); err != nil {
			b.logger.Error("event handler failed",
				zap.String("event_type", event.GetEventType()),
				zap.Error(err))
		}
	}
	return nil
}

// PublishBatch delivers multiple events in order
func (b *Bus) PublishBatch(ctx context.Context, batch []events.DomainEvent) error {
	for _, event := range batch {
		if err := b.Publish(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

// Subscribe registers a handler for an event type
func (b *Bus) Subscribe(eventType string, handler ports.EventHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)
	return nil
}

// Unsubscribe removes a handler
func (b *Bus) Unsubscribe(eventType string, handler ports.EventHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	subscribed := b.handlers[eventType]
	for i, h := range subscribed {
		if h == handler {
			b.handlers[eventType] = append(subscribed[:i], subscribed[i+1:]...)
			break
		}
	}
	return nil
}
