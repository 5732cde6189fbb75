package valueobjects

import (
	"errors"
	"strings"
)

// Email is a value object wrapping a case-normalized email address.
// Construction validates the address; two Emails are equal iff their
// normalized values are equal.
type Email struct {
	value string
}

// NewEmail creates an Email from a raw string, trimming whitespace and
// lowercasing before validation.
func NewEmail(raw string) (Email, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if normalized == "" {
		return Email{}, errors.New("email cannot be empty")
	}
	if !isValidEmail(normalized) {
		return Email{}, errors.New("email is malformed")
	}
	return Email{value: normalized}, nil
}

// String returns the normalized email address
func (e Email) String() string {
	return e.value
}

// Equals checks if two Emails are equal
func (e Email) Equals(other Email) bool {
	return e.value == other.value
}

// IsZero checks if the Email is the zero value
func (e Email) IsZero() bool {
	return e.value == ""
}

// Domain returns the part after the '@'
func (e Email) Domain() string {
	at := strings.LastIndex(e.value, "@")
	if at < 0 {
		return ""
	}
	return e.value[at+1:]
}

// MarshalJSON implements json.Marshaler
func (e Email) MarshalJSON() ([]byte, error) {
	return []byte(`"` + e.value + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (e *Email) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return errors.New("email must be a string")
	}
	parsed, err := NewEmail(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}

// isValidEmail checks the minimal local@domain.tld shape. Full RFC 5322
// validation is left to the mail provider at delivery time.
func isValidEmail(s string) bool {
	at := strings.LastIndex(s, "@")
	if at <= 0 || at == len(s)-1 {
		return false
	}
	local, domain := s[:at], s[at+1:]
	if strings.ContainsAny(local, " \t") || strings.ContainsAny(domain, " \t") {
		return false
	}
	dot := strings.LastIndex(domain, ".")
	if dot <= 0 || dot == len(domain)-1 {
		return false
	}
	return true
}
