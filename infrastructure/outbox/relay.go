// Package outbox runs the background relay that republishes stored domain
// events the command path failed to deliver. The relay is storage-agnostic;
// any ports.EventStore works underneath it.
package outbox

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"tutormatch-backend/application/ports"
	"tutormatch-backend/domain/events"
	"tutormatch-backend/pkg/observability"
)

const (
	defaultBatchSize   = 50
	defaultInterval    = 5 * time.Second
	defaultMaxAttempts = 3

	lockResource = "outbox-relay"
	lockDuration = 30 * time.Second
)

// UnlockFunc releases a held lock
type UnlockFunc func(ctx context.Context) error

// Locker guards a relay tick so only one instance drains the outbox.
// A failed acquire means another instance is running; the tick is skipped.
type Locker interface {
	Acquire(ctx context.Context, resource, owner string, duration time.Duration) (UnlockFunc, error)
}

// Relay polls the event store for pending rows and pushes them through the
// publisher. Rows past the attempt budget stay failed for the dead-letter
// listing rather than being retried forever.
type Relay struct {
	eventStore ports.EventStore
	publisher  ports.EventPublisher
	locker     Locker
	metrics    *observability.Metrics
	logger     *zap.Logger

	owner       string
	batchSize   int
	interval    time.Duration
	maxAttempts int

	stopChan    chan struct{}
	stoppedChan chan struct{}
}

// Option configures a Relay
type Option func(*Relay)

// WithBatchSize sets how many rows a tick drains
func WithBatchSize(n int) Option {
	return func(r *Relay) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

// WithInterval sets the polling interval
func WithInterval(d time.Duration) Option {
	return func(r *Relay) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithMaxAttempts sets the per-row attempt budget
func WithMaxAttempts(n int) Option {
	return func(r *Relay) {
		if n > 0 {
			r.maxAttempts = n
		}
	}
}

// WithMetrics reports batch outcomes to CloudWatch
func WithMetrics(metrics *observability.Metrics) Option {
	return func(r *Relay) {
		r.metrics = metrics
	}
}

// WithLocker makes ticks mutually exclusive across relay instances
func WithLocker(locker Locker, owner string) Option {
	return func(r *Relay) {
		r.locker = locker
		r.owner = owner
	}
}

// NewRelay creates a new Relay
func NewRelay(eventStore ports.EventStore, publisher ports.EventPublisher, logger *zap.Logger, opts ...Option) *Relay {
	r := &Relay{
		eventStore:  eventStore,
		publisher:   publisher,
		logger:      logger,
		batchSize:   defaultBatchSize,
		interval:    defaultInterval,
		maxAttempts: defaultMaxAttempts,
		stopChan:    make(chan struct{}),
		stoppedChan: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start begins polling in a background goroutine
func (r *Relay) Start(ctx context.Context) {
	r.logger.Info("starting outbox relay",
		zap.Int("batch_size", r.batchSize),
		zap.Duration("interval", r.interval))
	go r.loop(ctx)
}

// Stop signals the loop and waits for the current tick to finish
func (r *Relay) Stop() {
	r.logger.Info("stopping outbox relay")
	close(r.stopChan)
	<-r.stoppedChan
	r.logger.Info("outbox relay stopped")
}

func (r *Relay) loop(ctx context.Context) {
	defer close(r.stoppedChan)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("context cancelled, stopping outbox relay")
			return
		case <-r.stopChan:
			return
		case <-ticker.C:
			if err := r.tick(ctx); err != nil {
				r.logger.Error("outbox tick failed", zap.Error(err))
			}
		}
	}
}

// tick drains one batch of pending rows
func (r *Relay) tick(ctx context.Context) error {
	if r.locker != nil {
		unlock, err := r.locker.Acquire(ctx, lockResource, r.owner, lockDuration)
		if err != nil {
			r.logger.Debug("relay lock unavailable, skipping tick", zap.Error(err))
			return nil
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				r.logger.Warn("failed to release relay lock", zap.Error(err))
			}
		}()
	}

	rows, err := r.eventStore.LoadPending(ctx, r.batchSize)
	if err != nil {
		return fmt.Errorf("load pending events: %w", err)
	}
	if len(rows) == 0 {
		return nil
	}

	r.logger.Debug("processing outbox batch", zap.Int("event_count", len(rows)))

	published := 0
	skipped := 0
	failed := 0
	for _, row := range rows {
		switch r.relayRow(ctx, row) {
		case rowPublished:
			published++
		case rowSkipped:
			skipped++
		default:
			failed++
		}
	}

	if r.metrics != nil {
		r.metrics.RecordOutboxBatch(ctx, published, failed)
	}
	r.logger.Info("outbox batch done",
		zap.Int("published", published),
		zap.Int("skipped", skipped),
		zap.Int("failed", failed))
	return nil
}

type rowOutcome int

const (
	rowPublished rowOutcome = iota
	rowSkipped
	rowFailed
)

func (r *Relay) relayRow(ctx context.Context, row ports.StoredEvent) rowOutcome {
	if row.PublishAttempts >= r.maxAttempts {
		// written before dead-lettering existed; retire it so it stops
		// occupying batch slots
		r.markDead(ctx, row.EventID, "publish attempt budget exhausted")
		return rowSkipped
	}

	event, err := events.Decode(row.EventType, row.Payload)
	if err != nil {
		r.logger.Error("undecodable outbox row",
			zap.String("event_id", row.EventID),
			zap.String("event_type", row.EventType),
			zap.Error(err))
		if r.metrics != nil {
			r.metrics.RecordError(ctx, "outbox_undecodable_row")
		}
		r.recordFailure(ctx, row, err)
		return rowFailed
	}

	if err := r.publisher.Publish(ctx, event); err != nil {
		r.logger.Warn("relay publish failed",
			zap.String("event_id", row.EventID),
			zap.String("event_type", row.EventType),
			zap.Int("attempts", row.PublishAttempts+1),
			zap.Error(err))
		r.recordFailure(ctx, row, err)
		return rowFailed
	}

	if err := r.eventStore.MarkPublished(ctx, row.EventID); err != nil {
		r.logger.Error("failed to mark event published",
			zap.String("event_id", row.EventID),
			zap.Error(err))
		return rowFailed
	}
	return rowPublished
}

// recordFailure counts one more attempt against the row; the attempt that
// exhausts the budget dead-letters it instead of leaving it retryable
func (r *Relay) recordFailure(ctx context.Context, row ports.StoredEvent, cause error) {
	if row.PublishAttempts+1 >= r.maxAttempts {
		r.markDead(ctx, row.EventID, cause.Error())
		return
	}
	if err := r.eventStore.MarkFailed(ctx, row.EventID, 1, cause.Error()); err != nil {
		r.logger.Error("failed to mark event failed", zap.Error(err))
	}
}

func (r *Relay) markDead(ctx context.Context, eventID string, lastError string) {
	if err := r.eventStore.MarkDead(ctx, eventID, lastError); err != nil {
		r.logger.Error("failed to mark event dead", zap.Error(err))
	}
}
