package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldValidationError_CarriesAllViolations(t *testing.T) {
	var v Violations
	v.Add("email", "must be a valid email")
	v.Add("displayName", "cannot be empty")

	err := v.Err()
	require.Error(t, err)

	appErr := GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, ErrorTypeValidation, appErr.Type)
	assert.Len(t, appErr.Violations, 2)
	assert.Contains(t, err.Error(), "email")
	assert.Contains(t, err.Error(), "displayName")
}

func TestViolations_EmptyReturnsNil(t *testing.T) {
	var v Violations
	assert.True(t, v.Empty())
	assert.NoError(t, v.Err())
}

func TestInvalidTransitionError(t *testing.T) {
	err := NewInvalidTransitionError("user", "deactivated", "active")

	assert.True(t, IsInvalidTransition(err))
	assert.False(t, IsValidation(err))
	assert.Equal(t, "deactivated", GetAppError(err).Details["from"])
	assert.Equal(t, "active", GetAppError(err).Details["to"])
}

func TestWrap_PreservesType(t *testing.T) {
	err := Wrap(NewConflictError("email already registered"), "register user")

	assert.True(t, IsConflict(err))
	assert.Contains(t, err.Error(), "register user")
}

func TestWrap_WrapsUnknownAsInternal(t *testing.T) {
	err := Wrap(errors.New("boom"), "save user")

	appErr := GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, ErrorTypeInternal, appErr.Type)
	assert.ErrorContains(t, appErr.Cause, "boom")
}
