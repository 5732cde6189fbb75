package eventbridge

import (
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tutormatch-backend/domain/core/valueobjects"
	"tutormatch-backend/domain/events"
)

// unencodableEvent refuses JSON marshalling
type unencodableEvent struct {
	events.BaseEvent
}

func (unencodableEvent) MarshalJSON() ([]byte, error) {
	return nil, errors.New("not encodable")
}

func TestPublisher_BuildBatchKeepsEntriesPairedToEvents(t *testing.T) {
	publisher := &Publisher{
		eventBusName: "test-bus",
		source:       events.SourceTutormatch,
		logger:       zap.NewNop(),
	}

	first := events.NewUserCreated(valueobjects.NewUserID(), "ada@example.com", "Ada", "student", time.Now())
	broken := unencodableEvent{}
	third := events.NewMatchingRequestCreated(valueobjects.NewRequestID(), valueobjects.NewUserID(), "math", time.Now())

	batch := publisher.buildBatch([]events.DomainEvent{first, broken, third})

	// The broken event drops out and the survivors stay aligned with their
	// entries, so a rejected entry at index 1 names the third event
	require.Len(t, batch, 2)
	assert.Equal(t, first.GetEventID(), batch[0].event.GetEventID())
	assert.Equal(t, first.GetEventType(), aws.ToString(batch[0].entry.DetailType))
	assert.Equal(t, third.GetEventID(), batch[1].event.GetEventID())
	assert.Equal(t, third.GetEventType(), aws.ToString(batch[1].entry.DetailType))
}

func TestPublisher_BuildBatchEmptyWhenNothingMarshals(t *testing.T) {
	publisher := &Publisher{
		eventBusName: "test-bus",
		source:       events.SourceTutormatch,
		logger:       zap.NewNop(),
	}

	batch := publisher.buildBatch([]events.DomainEvent{unencodableEvent{}})
	assert.Empty(t, batch)
}
