package valueobjects

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEmail_NormalizesCase(t *testing.T) {
	email, err := NewEmail("  Alice@Example.COM ")
	require.NoError(t, err)

	assert.Equal(t, "alice@example.com", email.String())
	assert.Equal(t, "example.com", email.Domain())
}

func TestNewEmail_EqualityIsValueBased(t *testing.T) {
	a, err := NewEmail("bob@example.com")
	require.NoError(t, err)
	b, err := NewEmail("BOB@example.com")
	require.NoError(t, err)

	assert.True(t, a.Equals(b))
}

func TestNewEmail_RejectsMalformed(t *testing.T) {
	cases := []string{"", "   ", "plainstring", "@example.com", "user@", "user@nodot", "user@.com", "user@domain."}

	for _, raw := range cases {
		_, err := NewEmail(raw)
		assert.Error(t, err, "expected %q to be rejected", raw)
	}
}

func TestRole_Parse(t *testing.T) {
	role, err := ParseRole("tutor")
	require.NoError(t, err)
	assert.True(t, role.Equals(RoleTutor))
	assert.False(t, role.IsAdmin())

	admin, err := ParseRole("admin")
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin())

	_, err = ParseRole("superuser")
	assert.Error(t, err)
}
