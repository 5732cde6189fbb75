package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"tutormatch-backend/application/ports"
	"tutormatch-backend/domain/events"
	pkgerrors "tutormatch-backend/pkg/errors"
)

// EventStore is the in-memory ports.EventStore. Rows keep insertion order
// so LoadPending replays oldest first.
type EventStore struct {
	mu    sync.RWMutex
	rows  map[string]*ports.StoredEvent
	order []string
}

// NewEventStore creates an empty in-memory event store
func NewEventStore() *EventStore {
	return &EventStore{rows: make(map[string]*ports.StoredEvent)}
}

// Append persists domain events as pending outbox rows
func (s *EventStore) Append(ctx context.Context, pending []events.DomainEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, event := range pending {
		payload, err := json.Marshal(event)
		if err != nil {
			return pkgerrors.Wrap(err, fmt.Sprintf("marshal event %s", event.GetEventType()))
		}

		row := &ports.StoredEvent{
			EventID:       event.GetEventID(),
			AggregateID:   event.GetAggregateID(),
			EventType:     event.GetEventType(),
			Payload:       payload,
			Timestamp:     event.GetTimestamp(),
			Version:       event.GetVersion(),
			PublishStatus: ports.PublishStatusPending,
		}
		if _, exists := s.rows[row.EventID]; !exists {
			s.order = append(s.order, row.EventID)
		}
		s.rows[row.EventID] = row
	}
	return nil
}

// LoadByAggregate retrieves all stored events for an aggregate, oldest first
func (s *EventStore) LoadByAggregate(ctx context.Context, aggregateID string) ([]ports.StoredEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []ports.StoredEvent
	for _, id := range s.order {
		if row := s.rows[id]; row.AggregateID == aggregateID {
			result = append(result, *row)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Timestamp.Before(result[j].Timestamp)
	})
	return result, nil
}

// LoadPending retrieves up to limit rows still awaiting publish
func (s *EventStore) LoadPending(ctx context.Context, limit int) ([]ports.StoredEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []ports.StoredEvent
	for _, id := range s.order {
		row := s.rows[id]
		if row.PublishStatus != ports.PublishStatusPending && row.PublishStatus != ports.PublishStatusFailed {
			continue
		}
		result = append(result, *row)
		if limit > 0 && len(result) >= limit {
			break
		}
	}
	return result, nil
}

// MarkPublished records a successful publish for a row
func (s *EventStore) MarkPublished(ctx context.Context, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, exists := s.rows[eventID]
	if !exists {
		return pkgerrors.NewNotFoundError(fmt.Sprintf("event %s", eventID))
	}
	row.PublishStatus = ports.PublishStatusPublished
	row.LastError = ""
	return nil
}

// MarkFailed records a failed attempt and the error text
func (s *EventStore) MarkFailed(ctx context.Context, eventID string, attempts int, lastError string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, exists := s.rows[eventID]
	if !exists {
		return pkgerrors.NewNotFoundError(fmt.Sprintf("event %s", eventID))
	}
	row.PublishStatus = ports.PublishStatusFailed
	row.PublishAttempts += attempts
	row.LastError = lastError
	return nil
}

// MarkDead records a final failed attempt and retires the row from
// LoadPending
func (s *EventStore) MarkDead(ctx context.Context, eventID string, lastError string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, exists := s.rows[eventID]
	if !exists {
		return pkgerrors.NewNotFoundError(fmt.Sprintf("event %s", eventID))
	}
	row.PublishStatus = ports.PublishStatusDead
	row.PublishAttempts++
	row.LastError = lastError
	return nil
}
