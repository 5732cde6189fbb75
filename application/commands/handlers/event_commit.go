// Package handlers contains the write-side use case orchestration: load the
// aggregate, mutate it through its own methods, persist, then move the
// pending events through the outbox.
package handlers

import (
	"context"
	"time"

	"go.uber.org/zap"

	"tutormatch-backend/application/ports"
	"tutormatch-backend/domain/events"
)

const (
	publishMaxAttempts = 3
	publishBaseBackoff = 100 * time.Millisecond
)

// eventSource is the slice of aggregate behavior the committer needs
type eventSource interface {
	GetUncommittedEvents() []events.DomainEvent
	MarkEventsAsCommitted()
}

// eventCommitter moves pending aggregate events into the outbox and attempts
// an immediate publish. The outbox row is the source of truth: a failed
// publish marks the row for the relay instead of failing the command.
type eventCommitter struct {
	eventStore ports.EventStore
	publisher  ports.EventPublisher
	logger     *zap.Logger
}

func newEventCommitter(eventStore ports.EventStore, publisher ports.EventPublisher, logger *zap.Logger) *eventCommitter {
	return &eventCommitter{
		eventStore: eventStore,
		publisher:  publisher,
		logger:     logger,
	}
}

// Commit appends the pending events of every source to the outbox, tries to
// publish them, and drains the sources. The aggregate state change has
// already been persisted by the caller, so publish failures are downgraded
// to outbox bookkeeping rather than returned.
func (c *eventCommitter) Commit(ctx context.Context, sources ...eventSource) error {
	var pending []events.DomainEvent
	for _, source := range sources {
		pending = append(pending, source.GetUncommittedEvents()...)
	}
	if len(pending) == 0 {
		return nil
	}

	if err := c.eventStore.Append(ctx, pending); err != nil {
		return err
	}

	for _, event := range pending {
		c.publishWithRetry(ctx, event)
	}

	for _, source := range sources {
		source.MarkEventsAsCommitted()
	}
	return nil
}

func (c *eventCommitter) publishWithRetry(ctx context.Context, event events.DomainEvent) {
	var lastErr error

	for attempt := 1; attempt <= publishMaxAttempts; attempt++ {
		if lastErr = c.publisher.Publish(ctx, event); lastErr == nil {
			if err := c.eventStore.MarkPublished(ctx, event.GetEventID()); err != nil {
				c.logger.Warn("failed to mark event published",
					zap.String("event_type", event.GetEventType()),
					zap.Error(err))
			}
			return
		}

		if attempt < publishMaxAttempts {
			backoff := publishBaseBackoff << (attempt - 1)
			select {
			case <-ctx.Done():
				lastErr = ctx.Err()
				attempt = publishMaxAttempts
			case <-time.After(backoff):
			}
		}
	}

	// The relay picks the row up later; the command itself has succeeded.
	// The in-process retries count as one attempt against the relay's
	// budget so the row is not dead-lettered before the relay tries it.
	c.logger.Warn("event publish exhausted retries, left for relay",
		zap.String("event_type", event.GetEventType()),
		zap.String("aggregate_id", event.GetAggregateID()),
		zap.Error(lastErr))

	if err := c.eventStore.MarkFailed(ctx, event.GetEventID(), 1, lastErr.Error()); err != nil {
		c.logger.Error("failed to mark event failed",
			zap.String("event_type", event.GetEventType()),
			zap.Error(err))
	}
}
