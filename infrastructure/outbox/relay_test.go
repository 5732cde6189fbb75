package outbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tutormatch-backend/application/ports"
	"tutormatch-backend/domain/core/valueobjects"
	"tutormatch-backend/domain/events"
	"tutormatch-backend/infrastructure/persistence/memory"
)

// stubPublisher fails the first failures publishes, then succeeds
type stubPublisher struct {
	failures  int
	published []events.DomainEvent
}

func (p *stubPublisher) Publish(ctx context.Context, event events.DomainEvent) error {
	if p.failures > 0 {
		p.failures--
		return errors.New("bus unavailable")
	}
	p.published = append(p.published, event)
	return nil
}

func (p *stubPublisher) PublishBatch(ctx context.Context, batch []events.DomainEvent) error {
	for _, event := range batch {
		if err := p.Publish(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

// stubLocker always refuses the lock
type stubLocker struct {
	acquireCalls int
}

func (l *stubLocker) Acquire(ctx context.Context, resource, owner string, duration time.Duration) (UnlockFunc, error) {
	l.acquireCalls++
	return nil, errors.New("lock held elsewhere")
}

func appendRequestCreated(t *testing.T, store *memory.EventStore) events.DomainEvent {
	t.Helper()

	event := events.NewMatchingRequestCreated(
		valueobjects.NewRequestID(), valueobjects.NewUserID(), "math", time.Now())
	require.NoError(t, store.Append(context.Background(), []events.DomainEvent{event}))
	return event
}

func TestRelay_PublishesPendingRows(t *testing.T) {
	ctx := context.Background()
	store := memory.NewEventStore()
	publisher := &stubPublisher{}
	event := appendRequestCreated(t, store)

	relay := NewRelay(store, publisher, zap.NewNop())
	require.NoError(t, relay.tick(ctx))

	require.Len(t, publisher.published, 1)
	assert.Equal(t, event.GetEventID(), publisher.published[0].GetEventID())

	rows, err := store.LoadPending(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestRelay_FailedPublishStaysInOutbox(t *testing.T) {
	ctx := context.Background()
	store := memory.NewEventStore()
	publisher := &stubPublisher{failures: 1}
	appendRequestCreated(t, store)

	relay := NewRelay(store, publisher, zap.NewNop())
	require.NoError(t, relay.tick(ctx))

	rows, err := store.LoadPending(ctx, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, ports.PublishStatusFailed, rows[0].PublishStatus)
	assert.Equal(t, 1, rows[0].PublishAttempts)

	// The next tick retries and succeeds
	require.NoError(t, relay.tick(ctx))
	rows, err = store.LoadPending(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Len(t, publisher.published, 1)
}

func TestRelay_DeadLetterAfterAttemptBudget(t *testing.T) {
	ctx := context.Background()
	store := memory.NewEventStore()
	publisher := &stubPublisher{failures: 100}
	event := appendRequestCreated(t, store)

	relay := NewRelay(store, publisher, zap.NewNop(), WithMaxAttempts(3))
	for i := 0; i < 5; i++ {
		require.NoError(t, relay.tick(ctx))
	}

	// Three real attempts, then the row is dead and leaves the pending set
	rows, err := store.LoadPending(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Empty(t, publisher.published)

	stored, err := store.LoadByAggregate(ctx, event.GetAggregateID())
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, ports.PublishStatusDead, stored[0].PublishStatus)
	assert.Equal(t, 3, stored[0].PublishAttempts)
	assert.NotEmpty(t, stored[0].LastError)
}

func TestRelay_DeadRowsDoNotStarveNewerEvents(t *testing.T) {
	ctx := context.Background()
	store := memory.NewEventStore()
	publisher := &stubPublisher{failures: 100}

	// Drive two rows past the attempt budget while the publisher is down
	appendRequestCreated(t, store)
	appendRequestCreated(t, store)
	relay := NewRelay(store, publisher, zap.NewNop(), WithMaxAttempts(3), WithBatchSize(2))
	for i := 0; i < 3; i++ {
		require.NoError(t, relay.tick(ctx))
	}

	// A fresh row appended afterwards must still get through even though
	// the retired rows alone could fill a batch
	fresh := appendRequestCreated(t, store)
	publisher.failures = 0
	require.NoError(t, relay.tick(ctx))

	require.Len(t, publisher.published, 1)
	assert.Equal(t, fresh.GetEventID(), publisher.published[0].GetEventID())

	rows, err := store.LoadPending(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestRelay_SkipsTickWithoutLock(t *testing.T) {
	ctx := context.Background()
	store := memory.NewEventStore()
	publisher := &stubPublisher{}
	appendRequestCreated(t, store)

	locker := &stubLocker{}
	relay := NewRelay(store, publisher, zap.NewNop(), WithLocker(locker, "test-owner"))
	require.NoError(t, relay.tick(ctx))

	assert.Equal(t, 1, locker.acquireCalls)
	assert.Empty(t, publisher.published)

	rows, err := store.LoadPending(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestRelay_UndecodableRowMarkedFailed(t *testing.T) {
	ctx := context.Background()
	store := memory.NewEventStore()
	publisher := &stubPublisher{}

	event := appendRequestCreated(t, store)
	require.NoError(t, store.MarkFailed(ctx, event.GetEventID(), 0, ""))

	// Sabotage the type so Decode cannot resolve it
	rows, err := store.LoadPending(ctx, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	relay := NewRelay(store, publisher, zap.NewNop())

	outcome := relay.relayRow(ctx, ports.StoredEvent{
		EventID:   event.GetEventID(),
		EventType: "matching.unknown_type",
		Payload:   rows[0].Payload,
	})
	assert.Equal(t, rowFailed, outcome)
	assert.Empty(t, publisher.published)
}

func TestRelay_StartStop(t *testing.T) {
	store := memory.NewEventStore()
	publisher := &stubPublisher{}
	appendRequestCreated(t, store)

	relay := NewRelay(store, publisher, zap.NewNop(), WithInterval(5*time.Millisecond))
	relay.Start(context.Background())

	require.Eventually(t, func() bool {
		rows, err := store.LoadPending(context.Background(), 0)
		return err == nil && len(rows) == 0
	}, time.Second, 5*time.Millisecond)

	relay.Stop()
	assert.Len(t, publisher.published, 1)
}
