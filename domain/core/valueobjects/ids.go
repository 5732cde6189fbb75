package valueobjects

import (
	"errors"

	"github.com/google/uuid"
)

// UserID is a value object representing a unique user identifier.
// Value objects are immutable and have no identity beyond their value.
type UserID struct {
	value string
}

// NewUserID creates a new random UserID
func NewUserID() UserID {
	return UserID{value: uuid.New().String()}
}

// NewUserIDFromString creates a UserID from an existing string
func NewUserIDFromString(id string) (UserID, error) {
	if err := checkID(id, "user ID"); err != nil {
		return UserID{}, err
	}
	return UserID{value: id}, nil
}

// String returns the string representation of the UserID
func (id UserID) String() string {
	return id.value
}

// Equals checks if two UserIDs are equal
func (id UserID) Equals(other UserID) bool {
	return id.value == other.value
}

// IsZero checks if the UserID is the zero value
func (id UserID) IsZero() bool {
	return id.value == ""
}

// MarshalJSON implements json.Marshaler
func (id UserID) MarshalJSON() ([]byte, error) {
	return marshalID(id.value)
}

// UnmarshalJSON implements json.Unmarshaler
func (id *UserID) UnmarshalJSON(data []byte) error {
	return unmarshalID(data, &id.value)
}

// TutorID is a value object representing a unique tutor identifier
type TutorID struct {
	value string
}

// NewTutorID creates a new random TutorID
func NewTutorID() TutorID {
	return TutorID{value: uuid.New().String()}
}

// NewTutorIDFromString creates a TutorID from an existing string
func NewTutorIDFromString(id string) (TutorID, error) {
	if err := checkID(id, "tutor ID"); err != nil {
		return TutorID{}, err
	}
	return TutorID{value: id}, nil
}

// String returns the string representation of the TutorID
func (id TutorID) String() string {
	return id.value
}

// Equals checks if two TutorIDs are equal
func (id TutorID) Equals(other TutorID) bool {
	return id.value == other.value
}

// IsZero checks if the TutorID is the zero value
func (id TutorID) IsZero() bool {
	return id.value == ""
}

// MarshalJSON implements json.Marshaler
func (id TutorID) MarshalJSON() ([]byte, error) {
	return marshalID(id.value)
}

// UnmarshalJSON implements json.Unmarshaler
func (id *TutorID) UnmarshalJSON(data []byte) error {
	return unmarshalID(data, &id.value)
}

// RequestID is a value object representing a unique matching request identifier
type RequestID struct {
	value string
}

// NewRequestID creates a new random RequestID
func NewRequestID() RequestID {
	return RequestID{value: uuid.New().String()}
}

// NewRequestIDFromString creates a RequestID from an existing string
func NewRequestIDFromString(id string) (RequestID, error) {
	if err := checkID(id, "request ID"); err != nil {
		return RequestID{}, err
	}
	return RequestID{value: id}, nil
}

// String returns the string representation of the RequestID
func (id RequestID) String() string {
	return id.value
}

// Equals checks if two RequestIDs are equal
func (id RequestID) Equals(other RequestID) bool {
	return id.value == other.value
}

// IsZero checks if the RequestID is the zero value
func (id RequestID) IsZero() bool {
	return id.value == ""
}

// MarshalJSON implements json.Marshaler
func (id RequestID) MarshalJSON() ([]byte, error) {
	return marshalID(id.value)
}

// UnmarshalJSON implements json.Unmarshaler
func (id *RequestID) UnmarshalJSON(data []byte) error {
	return unmarshalID(data, &id.value)
}

func checkID(id, name string) error {
	if id == "" {
		return errors.New(name + " cannot be empty")
	}
	if _, err := uuid.Parse(id); err != nil {
		return errors.New(name + " must be a valid UUID")
	}
	return nil
}

func marshalID(value string) ([]byte, error) {
	return []byte(`"` + value + `"`), nil
}

func unmarshalID(data []byte, value *string) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return errors.New("identifier must be a string")
	}
	*value = string(data[1 : len(data)-1])
	return nil
}
