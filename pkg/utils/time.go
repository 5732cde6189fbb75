package utils

import "time"

// FormatRFC3339 formats a time in RFC3339 format
func FormatRFC3339(t time.Time) string {
	return t.Format(time.RFC3339)
}

// WholeDaysBetween returns the number of complete 24-hour periods between
// from and to. Partial days are floored, never rounded up.
func WholeDaysBetween(from, to time.Time) int {
	if to.Before(from) {
		return 0
	}
	return int(to.Sub(from) / (24 * time.Hour))
}
