// Package eventbridge publishes domain events to an AWS EventBridge bus.
package eventbridge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"go.uber.org/zap"

	"tutormatch-backend/application/ports"
	"tutormatch-backend/domain/events"
	pkgerrors "tutormatch-backend/pkg/errors"
)

// Publisher implements ports.EventPublisher on AWS EventBridge
type Publisher struct {
	client       *eventbridge.Client
	eventBusName string
	source       string
	logger       *zap.Logger
}

// NewPublisher creates a new EventBridge publisher
func NewPublisher(client *eventbridge.Client, eventBusName string, logger *zap.Logger) ports.EventPublisher {
	return &Publisher{
		client:       client,
		eventBusName: eventBusName,
		source:       events.SourceTutormatch,
		logger:       logger,
	}
}

// Publish sends a single event to EventBridge
func (p *Publisher) Publish(ctx context.Context, event events.DomainEvent) error {
	return p.PublishBatch(ctx, []events.DomainEvent{event})
}

// PublishBatch sends multiple events to EventBridge
func (p *Publisher) PublishBatch(ctx context.Context, domainEvents []events.DomainEvent) error {
	if len(domainEvents) == 0 {
		return nil
	}

	// EventBridge limits to 10 events per PutEvents call
	const batchSize = 10

	for i := 0; i < len(domainEvents); i += batchSize {
		end := i + batchSize
		if end > len(domainEvents) {
			end = len(domainEvents)
		}
		if err := p.putEvents(ctx, domainEvents[i:end]); err != nil {
			return err
		}
	}
	return nil
}

// batchEntry keeps a request entry paired with the event it was built from
// so failure reporting names the right event even when marshalling skipped
// some of the batch
type batchEntry struct {
	entry types.PutEventsRequestEntry
	event events.DomainEvent
}

// buildBatch marshals each event into a request entry, skipping events that
// do not marshal
func (p *Publisher) buildBatch(domainEvents []events.DomainEvent) []batchEntry {
	batch := make([]batchEntry, 0, len(domainEvents))

	for _, event := range domainEvents {
		detail, err := json.Marshal(event)
		if err != nil {
			p.logger.Error("failed to marshal event",
				zap.String("event_type", event.GetEventType()),
				zap.Error(err))
			continue
		}

		batch = append(batch, batchEntry{
			entry: types.PutEventsRequestEntry{
				EventBusName: aws.String(p.eventBusName),
				Source:       aws.String(p.source),
				DetailType:   aws.String(event.GetEventType()),
				Detail:       aws.String(string(detail)),
				Time:         aws.Time(event.GetTimestamp()),
				Resources: []string{
					fmt.Sprintf("arn:aws:tutormatch::%s", event.GetAggregateID()),
				},
			},
			event: event,
		})
	}
	return batch
}

func (p *Publisher) putEvents(ctx context.Context, domainEvents []events.DomainEvent) error {
	batch := p.buildBatch(domainEvents)
	if len(batch) == 0 {
		return nil
	}

	entries := make([]types.PutEventsRequestEntry, len(batch))
	for i, b := range batch {
		entries[i] = b.entry
	}

	result, err := p.client.PutEvents(ctx, &eventbridge.PutEventsInput{Entries: entries})
	if err != nil {
		return pkgerrors.NewPublishError("batch", err)
	}

	if result.FailedEntryCount > 0 {
		// result.Entries is index-aligned with the request entries
		for i, entry := range result.Entries {
			if entry.ErrorCode != nil {
				p.logger.Error("event rejected by EventBridge",
					zap.String("event_id", batch[i].event.GetEventID()),
					zap.String("event_type", batch[i].event.GetEventType()),
					zap.String("error_code", aws.ToString(entry.ErrorCode)),
					zap.String("error_message", aws.ToString(entry.ErrorMessage)))
			}
		}
		return pkgerrors.NewPublishError("batch",
			fmt.Errorf("%d of %d events failed to publish", result.FailedEntryCount, len(entries)))
	}

	p.logger.Debug("events published",
		zap.Int("count", len(entries)),
		zap.String("event_bus", p.eventBusName))
	return nil
}
