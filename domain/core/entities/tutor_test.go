package entities_test

import (
	"testing"

	"tutormatch-backend/domain/core/entities"
	"tutormatch-backend/domain/core/valueobjects"
	domainevents "tutormatch-backend/domain/events"
	pkgerrors "tutormatch-backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestTutor(t *testing.T) *entities.Tutor {
	t.Helper()

	tutor, err := entities.NewTutor(entities.TutorProps{
		UserID:     valueobjects.NewUserID(),
		Subjects:   []string{"mathematics", "physics"},
		HourlyRate: 45,
		Bio:        "Ten years of teaching experience.",
	}, nil)
	require.NoError(t, err)

	return tutor
}

func createActiveTutor(t *testing.T) *entities.Tutor {
	t.Helper()

	tutor := createTestTutor(t)
	require.NoError(t, tutor.TransitionTo(entities.TutorStatusActive))
	tutor.MarkEventsAsCommitted()

	return tutor
}

func TestTutor_Creation(t *testing.T) {
	tutor := createTestTutor(t)

	assert.False(t, tutor.ID().IsZero())
	assert.Equal(t, entities.TutorStatusPending, tutor.Status())
	assert.True(t, tutor.Tier().Equals(valueobjects.TierStandard))
	assert.Zero(t, tutor.CompletedSessions())

	queued := tutor.GetUncommittedEvents()
	require.Len(t, queued, 1)
	assert.Equal(t, domainevents.EventTutorCreated, queued[0].GetEventType())
}

func TestTutor_CreationReportsEveryViolatedField(t *testing.T) {
	_, err := entities.NewTutor(entities.TutorProps{
		Subjects:   nil,
		HourlyRate: 0,
	}, nil)

	require.Error(t, err)
	appErr := pkgerrors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.ErrorTypeValidation, appErr.Type)

	fields := make([]string, 0, len(appErr.Violations))
	for _, v := range appErr.Violations {
		fields = append(fields, v.Field)
	}
	assert.ElementsMatch(t, []string{"userId", "subjects", "hourlyRate"}, fields)
}

func TestTutor_SubjectsAccessorReturnsCopy(t *testing.T) {
	tutor := createTestTutor(t)

	subjects := tutor.Subjects()
	subjects[0] = "mutated"

	assert.Equal(t, []string{"mathematics", "physics"}, tutor.Subjects())
}

func TestTutor_UpdateProfileNoopEmitsNoEvent(t *testing.T) {
	tutor := createActiveTutor(t)

	rate := 45.0
	err := tutor.UpdateProfile(entities.TutorUpdate{HourlyRate: &rate}, "actor-1", nil)

	require.NoError(t, err)
	assert.Empty(t, tutor.GetUncommittedEvents())
}

func TestTutor_UpdateProfileRecordsChangeSet(t *testing.T) {
	tutor := createActiveTutor(t)

	rate := 60.0
	bio := "Updated bio."
	err := tutor.UpdateProfile(entities.TutorUpdate{HourlyRate: &rate, Bio: &bio}, "actor-1", nil)
	require.NoError(t, err)

	queued := tutor.GetUncommittedEvents()
	require.Len(t, queued, 1)

	updated, ok := queued[0].(domainevents.TutorUpdated)
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"hourlyRate", "bio"}, updated.ChangedFields)
}

func TestTutor_RecordSessionCompletedRequiresActive(t *testing.T) {
	tutor := createTestTutor(t)

	err := tutor.RecordSessionCompleted()
	require.Error(t, err)
	assert.Zero(t, tutor.CompletedSessions())
}

func TestTutor_RecordSessionCompleted(t *testing.T) {
	tutor := createActiveTutor(t)

	require.NoError(t, tutor.RecordSessionCompleted())
	require.NoError(t, tutor.RecordSessionCompleted())

	assert.Equal(t, 2, tutor.CompletedSessions())
	queued := tutor.GetUncommittedEvents()
	require.Len(t, queued, 2)
	assert.Equal(t, domainevents.EventTutorSessionCompleted, queued[0].GetEventType())
}

func TestTutor_CancellationRatio(t *testing.T) {
	tutor := createActiveTutor(t)
	assert.Zero(t, tutor.CancellationRatio())

	require.NoError(t, tutor.RecordSessionCompleted())
	require.NoError(t, tutor.RecordSessionCompleted())
	require.NoError(t, tutor.RecordSessionCompleted())
	require.NoError(t, tutor.RecordCancellation())

	assert.InDelta(t, 0.25, tutor.CancellationRatio(), 1e-9)
}

func TestTutor_SetReputationScoreBounds(t *testing.T) {
	tutor := createActiveTutor(t)

	assert.Error(t, tutor.SetReputationScore(-1))
	assert.Error(t, tutor.SetReputationScore(101))
	require.NoError(t, tutor.SetReputationScore(88))
	assert.Equal(t, 88, tutor.ReputationScore())
}

func TestTutor_ApplyTierEmitsOnlyOnChange(t *testing.T) {
	tutor := createActiveTutor(t)

	tutor.ApplyTier(valueobjects.TierStandard)
	assert.Empty(t, tutor.GetUncommittedEvents())

	tutor.ApplyTier(valueobjects.TierPremium)
	queued := tutor.GetUncommittedEvents()
	require.Len(t, queued, 1)

	changed, ok := queued[0].(domainevents.TutorTierChanged)
	require.True(t, ok)
	assert.Equal(t, valueobjects.TierStandard.String(), changed.From)
	assert.Equal(t, valueobjects.TierPremium.String(), changed.To)
	assert.True(t, tutor.Tier().Equals(valueobjects.TierPremium))
}

func TestTutor_RetiredIsTerminal(t *testing.T) {
	tutor := createActiveTutor(t)
	require.NoError(t, tutor.TransitionTo(entities.TutorStatusRetired))

	for _, target := range []entities.TutorStatus{
		entities.TutorStatusPending,
		entities.TutorStatusActive,
		entities.TutorStatusSuspended,
	} {
		err := tutor.TransitionTo(target)
		assert.True(t, pkgerrors.IsInvalidTransition(err), "expected %s to be rejected", target)
		assert.Equal(t, entities.TutorStatusRetired, tutor.Status())
	}
}
