package dynamodb

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"tutormatch-backend/application/ports"
	"tutormatch-backend/domain/events"
	pkgerrors "tutormatch-backend/pkg/errors"
)

// EventStore implements the outbox on DynamoDB. Rows live under the
// aggregate's EVENTS# partition in timestamp order; GSI1 keys rows by publish
// status so the relay can load pending work, and GSI2 keys rows by event ID
// so publish bookkeeping can find a row without knowing its aggregate.
type EventStore struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

// NewEventStore creates a new EventStore
func NewEventStore(client *dynamodb.Client, tableName string, logger *zap.Logger) *EventStore {
	return &EventStore{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// eventItem is the DynamoDB item structure for an outbox row
type eventItem struct {
	PK              string `dynamodbav:"PK"`     // EVENTS#<aggregate_id>
	SK              string `dynamodbav:"SK"`     // EVENT#<timestamp>#<event_id>
	GSI1PK          string `dynamodbav:"GSI1PK"` // PUBLISH#<status>
	GSI1SK          string `dynamodbav:"GSI1SK"` // <timestamp>
	GSI2PK          string `dynamodbav:"GSI2PK"` // EVENTID#<event_id>
	GSI2SK          string `dynamodbav:"GSI2SK"` // METADATA
	EntityType      string `dynamodbav:"EntityType"`
	EventID         string `dynamodbav:"EventID"`
	AggregateID     string `dynamodbav:"AggregateID"`
	EventType       string `dynamodbav:"EventType"`
	Payload         string `dynamodbav:"Payload"`
	Timestamp       string `dynamodbav:"Timestamp"`
	Version         int    `dynamodbav:"Version"`
	PublishStatus   string `dynamodbav:"PublishStatus"`
	PublishAttempts int    `dynamodbav:"PublishAttempts"`
	LastError       string `dynamodbav:"LastError,omitempty"`
}

func eventSK(timestamp time.Time, eventID string) string {
	return fmt.Sprintf("EVENT#%s#%s", timestamp.Format(time.RFC3339Nano), eventID)
}

// Append persists domain events as pending outbox rows. The event ID keys
// each row, so re-appending an already stored event overwrites it in place
// rather than duplicating it.
func (s *EventStore) Append(ctx context.Context, domainEvents []events.DomainEvent) error {
	for _, event := range domainEvents {
		payload, err := json.Marshal(event)
		if err != nil {
			return pkgerrors.Wrap(err, "marshal event payload")
		}

		timestamp := event.GetTimestamp()
		item := eventItem{
			PK:            eventsPK(event.GetAggregateID()),
			SK:            eventSK(timestamp, event.GetEventID()),
			GSI1PK:        publishGSI1PK(string(ports.PublishStatusPending)),
			GSI1SK:        timestamp.Format(time.RFC3339Nano),
			GSI2PK:        eventIDGSI2PK(event.GetEventID()),
			GSI2SK:        skMetadata,
			EntityType:    entityEvent,
			EventID:       event.GetEventID(),
			AggregateID:   event.GetAggregateID(),
			EventType:     event.GetEventType(),
			Payload:       string(payload),
			Timestamp:     timestamp.Format(time.RFC3339Nano),
			Version:       event.GetVersion(),
			PublishStatus: string(ports.PublishStatusPending),
		}

		av, err := attributevalue.MarshalMap(item)
		if err != nil {
			return pkgerrors.Wrap(err, "marshal event item")
		}

		_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
			TableName: aws.String(s.tableName),
			Item:      av,
		})
		if err != nil {
			return pkgerrors.NewDatabaseError("append event", err)
		}

		s.logger.Debug("event appended",
			zap.String("event_id", event.GetEventID()),
			zap.String("event_type", event.GetEventType()),
			zap.String("aggregate_id", event.GetAggregateID()))
	}
	return nil
}

// LoadByAggregate retrieves all stored events for an aggregate in
// timestamp order
func (s *EventStore) LoadByAggregate(ctx context.Context, aggregateID string) ([]ports.StoredEvent, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     &types.AttributeValueMemberS{Value: eventsPK(aggregateID)},
			":prefix": &types.AttributeValueMemberS{Value: "EVENT#"},
		},
	}

	var stored []ports.StoredEvent
	for {
		result, err := s.client.Query(ctx, input)
		if err != nil {
			return nil, pkgerrors.NewDatabaseError("load events", err)
		}
		for _, raw := range result.Items {
			row, err := unmarshalStoredEvent(raw)
			if err != nil {
				return nil, err
			}
			stored = append(stored, row)
		}
		if result.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}
	return stored, nil
}

// LoadPending retrieves up to limit rows still awaiting publish, oldest
// first. Failed rows are included so the relay retries them; dead rows sit
// in their own GSI1 partition and are never queried here.
func (s *EventStore) LoadPending(ctx context.Context, limit int) ([]ports.StoredEvent, error) {
	var stored []ports.StoredEvent
	for _, status := range []ports.PublishStatus{ports.PublishStatusPending, ports.PublishStatusFailed} {
		remaining := 0
		if limit > 0 {
			remaining = limit - len(stored)
			if remaining <= 0 {
				break
			}
		}
		rows, err := s.loadByStatus(ctx, status, remaining)
		if err != nil {
			return nil, err
		}
		stored = append(stored, rows...)
	}
	return stored, nil
}

// loadByStatus queries GSI1 for rows in the given status; limit 0 loads all
func (s *EventStore) loadByStatus(ctx context.Context, status ports.PublishStatus, limit int) ([]ports.StoredEvent, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		IndexName:              aws.String(indexGSI1),
		KeyConditionExpression: aws.String("GSI1PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: publishGSI1PK(string(status))},
		},
	}
	if limit > 0 {
		input.Limit = aws.Int32(int32(limit))
	}

	var stored []ports.StoredEvent
	for {
		result, err := s.client.Query(ctx, input)
		if err != nil {
			return nil, pkgerrors.NewDatabaseError("load pending events", err)
		}
		for _, raw := range result.Items {
			row, err := unmarshalStoredEvent(raw)
			if err != nil {
				return nil, err
			}
			stored = append(stored, row)
		}
		if result.LastEvaluatedKey == nil || (limit > 0 && len(stored) >= limit) {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}
	if limit > 0 && len(stored) > limit {
		stored = stored[:limit]
	}
	return stored, nil
}

// MarkPublished records a successful publish for a row
func (s *EventStore) MarkPublished(ctx context.Context, eventID string) error {
	key, attempts, err := s.findRowKey(ctx, eventID)
	if err != nil {
		return err
	}

	_, err = s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(s.tableName),
		Key:              key,
		UpdateExpression: aws.String("SET GSI1PK = :gsi1pk, PublishStatus = :status, PublishAttempts = :attempts REMOVE LastError"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":gsi1pk":   &types.AttributeValueMemberS{Value: publishGSI1PK(string(ports.PublishStatusPublished))},
			":status":   &types.AttributeValueMemberS{Value: string(ports.PublishStatusPublished)},
			":attempts": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", attempts+1)},
		},
	})
	if err != nil {
		return pkgerrors.NewDatabaseError("mark event published", err)
	}
	return nil
}

// MarkFailed records a failed attempt and the error text
func (s *EventStore) MarkFailed(ctx context.Context, eventID string, attempts int, lastError string) error {
	key, _, err := s.findRowKey(ctx, eventID)
	if err != nil {
		return err
	}

	_, err = s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(s.tableName),
		Key:              key,
		UpdateExpression: aws.String("SET GSI1PK = :gsi1pk, PublishStatus = :status, PublishAttempts = PublishAttempts + :attempts, LastError = :err"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":gsi1pk":   &types.AttributeValueMemberS{Value: publishGSI1PK(string(ports.PublishStatusFailed))},
			":status":   &types.AttributeValueMemberS{Value: string(ports.PublishStatusFailed)},
			":attempts": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", attempts)},
			":err":      &types.AttributeValueMemberS{Value: lastError},
		},
	})
	if err != nil {
		return pkgerrors.NewDatabaseError("mark event failed", err)
	}

	s.logger.Warn("event marked failed",
		zap.String("event_id", eventID),
		zap.Int("attempts", attempts),
		zap.String("error", lastError))
	return nil
}

// MarkDead records a final failed attempt and moves the row into the dead
// GSI1 partition so LoadPending never sees it again
func (s *EventStore) MarkDead(ctx context.Context, eventID string, lastError string) error {
	key, _, err := s.findRowKey(ctx, eventID)
	if err != nil {
		return err
	}

	_, err = s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(s.tableName),
		Key:              key,
		UpdateExpression: aws.String("SET GSI1PK = :gsi1pk, PublishStatus = :status, PublishAttempts = PublishAttempts + :one, LastError = :err"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":gsi1pk": &types.AttributeValueMemberS{Value: publishGSI1PK(string(ports.PublishStatusDead))},
			":status": &types.AttributeValueMemberS{Value: string(ports.PublishStatusDead)},
			":one":    &types.AttributeValueMemberN{Value: "1"},
			":err":    &types.AttributeValueMemberS{Value: lastError},
		},
	})
	if err != nil {
		return pkgerrors.NewDatabaseError("mark event dead", err)
	}

	s.logger.Error("event dead-lettered",
		zap.String("event_id", eventID),
		zap.String("error", lastError))
	return nil
}

// findRowKey resolves an event ID to its table key via GSI2
func (s *EventStore) findRowKey(ctx context.Context, eventID string) (map[string]types.AttributeValue, int, error) {
	result, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		IndexName:              aws.String(indexGSI2),
		KeyConditionExpression: aws.String("GSI2PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: eventIDGSI2PK(eventID)},
		},
		Limit: aws.Int32(1),
	})
	if err != nil {
		return nil, 0, pkgerrors.NewDatabaseError("find event row", err)
	}
	if len(result.Items) == 0 {
		return nil, 0, pkgerrors.NewNotFoundError(fmt.Sprintf("event %s", eventID))
	}

	var item eventItem
	if err := attributevalue.UnmarshalMap(result.Items[0], &item); err != nil {
		return nil, 0, pkgerrors.Wrap(err, "unmarshal event row")
	}

	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: item.PK},
		"SK": &types.AttributeValueMemberS{Value: item.SK},
	}, item.PublishAttempts, nil
}

func unmarshalStoredEvent(raw map[string]types.AttributeValue) (ports.StoredEvent, error) {
	var item eventItem
	if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
		return ports.StoredEvent{}, pkgerrors.Wrap(err, "unmarshal event row")
	}

	timestamp, err := time.Parse(time.RFC3339Nano, item.Timestamp)
	if err != nil {
		return ports.StoredEvent{}, pkgerrors.Wrap(err, "stored event timestamp")
	}

	return ports.StoredEvent{
		EventID:         item.EventID,
		AggregateID:     item.AggregateID,
		EventType:       item.EventType,
		Payload:         []byte(item.Payload),
		Timestamp:       timestamp,
		Version:         item.Version,
		PublishStatus:   ports.PublishStatus(item.PublishStatus),
		PublishAttempts: item.PublishAttempts,
		LastError:       item.LastError,
	}, nil
}
