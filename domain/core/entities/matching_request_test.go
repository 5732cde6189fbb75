package entities_test

import (
	"testing"
	"time"

	"tutormatch-backend/domain/config"
	"tutormatch-backend/domain/core/entities"
	"tutormatch-backend/domain/core/valueobjects"
	domainevents "tutormatch-backend/domain/events"
	pkgerrors "tutormatch-backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestRequest(t *testing.T) *entities.MatchingRequest {
	t.Helper()

	request, err := entities.NewMatchingRequest(entities.MatchingRequestProps{
		StudentID:     valueobjects.NewUserID(),
		Subject:       "mathematics",
		BudgetPerHour: 40,
		Schedule:      "weekday evenings",
	}, nil)
	require.NoError(t, err)
	request.MarkEventsAsCommitted()

	return request
}

func TestMatchingRequest_Creation(t *testing.T) {
	request, err := entities.NewMatchingRequest(entities.MatchingRequestProps{
		StudentID:     valueobjects.NewUserID(),
		Subject:       "physics",
		BudgetPerHour: 30,
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, entities.RequestStatusPending, request.Status())
	assert.True(t, request.TutorID().IsZero())
	assert.True(t, request.IsOpen())

	queued := request.GetUncommittedEvents()
	require.Len(t, queued, 1)
	assert.Equal(t, domainevents.EventMatchingRequestCreated, queued[0].GetEventType())
}

func TestMatchingRequest_CreationReportsEveryViolatedField(t *testing.T) {
	_, err := entities.NewMatchingRequest(entities.MatchingRequestProps{}, nil)

	require.Error(t, err)
	appErr := pkgerrors.GetAppError(err)
	require.NotNil(t, appErr)

	fields := make([]string, 0, len(appErr.Violations))
	for _, v := range appErr.Violations {
		fields = append(fields, v.Field)
	}
	assert.ElementsMatch(t, []string{"studentId", "subject", "budgetPerHour"}, fields)
}

func TestMatchingRequest_AssignTutor(t *testing.T) {
	request := createTestRequest(t)
	tutorID := valueobjects.NewTutorID()

	require.NoError(t, request.AssignTutor(tutorID))

	assert.Equal(t, entities.RequestStatusMatched, request.Status())
	assert.True(t, request.TutorID().Equals(tutorID))

	queued := request.GetUncommittedEvents()
	require.Len(t, queued, 1)
	assert.Equal(t, domainevents.EventMatchingTutorAssigned, queued[0].GetEventType())
}

func TestMatchingRequest_AssignTutorRejectsZeroID(t *testing.T) {
	request := createTestRequest(t)

	err := request.AssignTutor(valueobjects.TutorID{})
	require.Error(t, err)
	assert.Equal(t, entities.RequestStatusPending, request.Status())
}

func TestMatchingRequest_ConfirmRequiresMatched(t *testing.T) {
	request := createTestRequest(t)

	err := request.Confirm()
	require.Error(t, err)
	assert.True(t, pkgerrors.IsInvalidTransition(err))
	assert.Equal(t, entities.RequestStatusPending, request.Status())

	require.NoError(t, request.AssignTutor(valueobjects.NewTutorID()))
	require.NoError(t, request.Confirm())
	assert.Equal(t, entities.RequestStatusConfirmed, request.Status())
	assert.False(t, request.IsOpen())
}

func TestMatchingRequest_CancelFromPendingAndMatched(t *testing.T) {
	pending := createTestRequest(t)
	require.NoError(t, pending.Cancel("changed my mind"))
	assert.Equal(t, entities.RequestStatusCancelled, pending.Status())

	matched := createTestRequest(t)
	require.NoError(t, matched.AssignTutor(valueobjects.NewTutorID()))
	matched.MarkEventsAsCommitted()
	require.NoError(t, matched.Cancel("tutor unavailable"))

	queued := matched.GetUncommittedEvents()
	require.Len(t, queued, 1)
	cancelled, ok := queued[0].(domainevents.MatchingRequestCancelled)
	require.True(t, ok)
	assert.Equal(t, "tutor unavailable", cancelled.Reason)
}

func TestMatchingRequest_CancelConfirmedIsRejected(t *testing.T) {
	request := createTestRequest(t)
	require.NoError(t, request.AssignTutor(valueobjects.NewTutorID()))
	require.NoError(t, request.Confirm())

	err := request.Cancel("too late")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsInvalidTransition(err))
	assert.Equal(t, entities.RequestStatusConfirmed, request.Status())
}

func TestMatchingRequest_ExpireOnlyFromPending(t *testing.T) {
	pending := createTestRequest(t)
	require.NoError(t, pending.Expire())
	assert.Equal(t, entities.RequestStatusExpired, pending.Status())

	matched := createTestRequest(t)
	require.NoError(t, matched.AssignTutor(valueobjects.NewTutorID()))
	err := matched.Expire()
	require.Error(t, err)
	assert.Equal(t, entities.RequestStatusMatched, matched.Status())
}

func TestMatchingRequest_ExpiresAtUsesPolicyTTL(t *testing.T) {
	request := createTestRequest(t)
	policy := config.DefaultPolicyConfig()

	expected := request.CreatedAt().Add(policy.RequestTTL)
	assert.True(t, request.ExpiresAt(policy).Equal(expected))
	assert.True(t, request.ExpiresAt(policy).After(time.Now()))
}
