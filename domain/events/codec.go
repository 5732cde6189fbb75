package events

import (
	"encoding/json"
	"fmt"
)

// Decode rebuilds a concrete domain event from its stored JSON payload.
// The outbox relay uses this to republish rows written by an earlier
// process.
func Decode(eventType string, payload []byte) (DomainEvent, error) {
	var (
		event DomainEvent
		err   error
	)

	switch eventType {
	case EventUserCreated:
		event, err = decodeInto[UserCreated](payload)
	case EventUserUpdated:
		event, err = decodeInto[UserUpdated](payload)
	case EventUserStatusChanged:
		event, err = decodeInto[UserStatusChanged](payload)
	case EventUserRoleChanged:
		event, err = decodeInto[UserRoleChanged](payload)
	case EventUserAccountLocked:
		event, err = decodeInto[UserAccountLocked](payload)
	case EventTutorCreated:
		event, err = decodeInto[TutorCreated](payload)
	case EventTutorUpdated:
		event, err = decodeInto[TutorUpdated](payload)
	case EventTutorSessionCompleted:
		event, err = decodeInto[TutorSessionCompleted](payload)
	case EventTutorTierChanged:
		event, err = decodeInto[TutorTierChanged](payload)
	case EventTutorStatusChanged:
		event, err = decodeInto[TutorStatusChanged](payload)
	case EventMatchingRequestCreated:
		event, err = decodeInto[MatchingRequestCreated](payload)
	case EventMatchingTutorAssigned:
		event, err = decodeInto[MatchingTutorAssigned](payload)
	case EventMatchingRequestConfirmed:
		event, err = decodeInto[MatchingRequestConfirmed](payload)
	case EventMatchingRequestCancelled:
		event, err = decodeInto[MatchingRequestCancelled](payload)
	case EventMatchingRequestExpired:
		event, err = decodeInto[MatchingRequestExpired](payload)
	default:
		return nil, fmt.Errorf("unknown event type %q", eventType)
	}

	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", eventType, err)
	}
	return event, nil
}

func decodeInto[E DomainEvent](payload []byte) (DomainEvent, error) {
	var event E
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, err
	}
	return event, nil
}
