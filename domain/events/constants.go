package events

// SourceTutormatch is the EventBridge source attached to every published event
const SourceTutormatch = "tutormatch.backend"

// Event type names. Detail types on the bus match these exactly.
const (
	EventUserCreated       = "user.created"
	EventUserUpdated       = "user.updated"
	EventUserStatusChanged = "user.status_changed"
	EventUserRoleChanged   = "user.role_changed"
	EventUserAccountLocked = "user.account_locked"

	EventTutorCreated          = "tutor.created"
	EventTutorUpdated          = "tutor.updated"
	EventTutorSessionCompleted = "tutor.session_completed"
	EventTutorTierChanged      = "tutor.tier_changed"
	EventTutorStatusChanged    = "tutor.status_changed"

	EventMatchingRequestCreated   = "matching.request_created"
	EventMatchingTutorAssigned    = "matching.tutor_assigned"
	EventMatchingRequestConfirmed = "matching.request_confirmed"
	EventMatchingRequestCancelled = "matching.request_cancelled"
	EventMatchingRequestExpired   = "matching.request_expired"
)
