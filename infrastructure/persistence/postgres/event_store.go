package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"tutormatch-backend/application/ports"
	"tutormatch-backend/domain/events"
	pkgerrors "tutormatch-backend/pkg/errors"
)

const eventColumns = "event_id, aggregate_id, event_type, payload, occurred_at, version, publish_status, publish_attempts, last_error"

// EventStore implements the outbox on PostgreSQL. One table holds every
// row; the partial index on publish_status keeps the relay's pending query
// cheap as the table grows.
type EventStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewEventStore creates a new EventStore
func NewEventStore(pool *pgxpool.Pool, logger *zap.Logger) *EventStore {
	return &EventStore{pool: pool, logger: logger}
}

// Append persists domain events as pending outbox rows. Conflicting event
// IDs are ignored so a re-run of the same commit does not duplicate rows.
func (s *EventStore) Append(ctx context.Context, domainEvents []events.DomainEvent) error {
	if len(domainEvents) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	query := `
		INSERT INTO outbox_events (event_id, aggregate_id, event_type, payload, occurred_at, version, publish_status)
		VALUES ($1, $2, $3, $4, $5, $6, 'pending')
		ON CONFLICT (event_id) DO NOTHING`

	for _, event := range domainEvents {
		payload, err := json.Marshal(event)
		if err != nil {
			return pkgerrors.Wrap(err, "marshal event payload")
		}
		batch.Queue(query,
			event.GetEventID(), event.GetAggregateID(), event.GetEventType(),
			payload, event.GetTimestamp(), event.GetVersion())
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range domainEvents {
		if _, err := results.Exec(); err != nil {
			return pkgerrors.NewDatabaseError("append event", err)
		}
	}

	s.logger.Debug("events appended", zap.Int("count", len(domainEvents)))
	return nil
}

// LoadByAggregate retrieves all stored events for an aggregate in
// timestamp order
func (s *EventStore) LoadByAggregate(ctx context.Context, aggregateID string) ([]ports.StoredEvent, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM outbox_events WHERE aggregate_id = $1 ORDER BY occurred_at, event_id", eventColumns)

	rows, err := s.pool.Query(ctx, query, aggregateID)
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("load events", err)
	}
	defer rows.Close()

	return collectStoredEvents(rows)
}

// LoadPending retrieves up to limit unpublished rows, oldest first. Failed
// rows come back too so the relay retries them; dead rows do not.
func (s *EventStore) LoadPending(ctx context.Context, limit int) ([]ports.StoredEvent, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM outbox_events WHERE publish_status IN ('pending', 'failed') ORDER BY occurred_at, event_id", eventColumns)
	args := []any{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("load pending events", err)
	}
	defer rows.Close()

	return collectStoredEvents(rows)
}

// MarkPublished records a successful publish for a row
func (s *EventStore) MarkPublished(ctx context.Context, eventID string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE outbox_events
		SET publish_status = 'published', publish_attempts = publish_attempts + 1, last_error = NULL
		WHERE event_id = $1`, eventID)
	if err != nil {
		return pkgerrors.NewDatabaseError("mark event published", err)
	}
	if tag.RowsAffected() == 0 {
		return pkgerrors.NewNotFoundError(fmt.Sprintf("event %s", eventID))
	}
	return nil
}

// MarkFailed records a failed attempt and the error text
func (s *EventStore) MarkFailed(ctx context.Context, eventID string, attempts int, lastError string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE outbox_events
		SET publish_status = 'failed', publish_attempts = publish_attempts + $2, last_error = $3
		WHERE event_id = $1`, eventID, attempts, lastError)
	if err != nil {
		return pkgerrors.NewDatabaseError("mark event failed", err)
	}
	if tag.RowsAffected() == 0 {
		return pkgerrors.NewNotFoundError(fmt.Sprintf("event %s", eventID))
	}

	s.logger.Warn("event marked failed",
		zap.String("event_id", eventID),
		zap.Int("attempts", attempts),
		zap.String("error", lastError))
	return nil
}

// MarkDead records a final failed attempt and retires the row from
// LoadPending
func (s *EventStore) MarkDead(ctx context.Context, eventID string, lastError string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE outbox_events
		SET publish_status = 'dead', publish_attempts = publish_attempts + 1, last_error = $2
		WHERE event_id = $1`, eventID, lastError)
	if err != nil {
		return pkgerrors.NewDatabaseError("mark event dead", err)
	}
	if tag.RowsAffected() == 0 {
		return pkgerrors.NewNotFoundError(fmt.Sprintf("event %s", eventID))
	}

	s.logger.Error("event dead-lettered",
		zap.String("event_id", eventID),
		zap.String("error", lastError))
	return nil
}

func collectStoredEvents(rows pgx.Rows) ([]ports.StoredEvent, error) {
	var stored []ports.StoredEvent
	for rows.Next() {
		var (
			row       ports.StoredEvent
			status    string
			lastError *string
		)
		err := rows.Scan(&row.EventID, &row.AggregateID, &row.EventType, &row.Payload,
			&row.Timestamp, &row.Version, &status, &row.PublishAttempts, &lastError)
		if err != nil {
			return nil, pkgerrors.NewDatabaseError("scan event row", err)
		}
		row.PublishStatus = ports.PublishStatus(status)
		if lastError != nil {
			row.LastError = *lastError
		}
		stored = append(stored, row)
	}
	if err := rows.Err(); err != nil {
		return nil, pkgerrors.NewDatabaseError("scan event rows", err)
	}
	return stored, nil
}
