package valueobjects

import "fmt"

// Role is a value object representing what a user can do on the platform
type Role struct {
	value string
}

var (
	RoleStudent = Role{value: "student"}
	RoleTutor   = Role{value: "tutor"}
	RoleAdmin   = Role{value: "admin"}
)

// ParseRole creates a Role from a raw string
func ParseRole(raw string) (Role, error) {
	switch raw {
	case RoleStudent.value:
		return RoleStudent, nil
	case RoleTutor.value:
		return RoleTutor, nil
	case RoleAdmin.value:
		return RoleAdmin, nil
	default:
		return Role{}, fmt.Errorf("unknown role: %q", raw)
	}
}

// String returns the role name
func (r Role) String() string {
	return r.value
}

// Equals checks if two Roles are equal
func (r Role) Equals(other Role) bool {
	return r.value == other.value
}

// IsZero checks if the Role is the zero value
func (r Role) IsZero() bool {
	return r.value == ""
}

// IsAdmin reports whether this is the administrative role. Admin role
// changes only happen through the out-of-band administrative path.
func (r Role) IsAdmin() bool {
	return r.value == RoleAdmin.value
}

// MarshalJSON implements json.Marshaler
func (r Role) MarshalJSON() ([]byte, error) {
	return []byte(`"` + r.value + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (r *Role) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("role must be a string")
	}
	parsed, err := ParseRole(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
