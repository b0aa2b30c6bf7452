package timeutil

import (
	"fmt"
	"time"
)

// RFC3339Micros is RFC 3339 UTC with fixed microsecond precision.
// Use this format for log timestamps where higher precision is needed.
const RFC3339Micros = "2006-01-02T15:04:05.000000Z"

// LocalDateTime is an ISO 8601 local date-time without a zone designator.
// Fractional seconds carry millisecond precision with trailing zeros trimmed,
// and are omitted entirely on a whole second: "2024-01-01T00:00:00",
// "2024-01-01T00:00:00.5", "2024-01-01T00:00:00.123".
const LocalDateTime = "2006-01-02T15:04:05.999"

// FormatLocal renders t in the process-local zone using LocalDateTime.
func FormatLocal(t time.Time) string {
	return t.Local().Format(LocalDateTime)
}

// ParseLocal parses a LocalDateTime string in the process-local zone.
// Fractions of any length are accepted.
func ParseLocal(s string) (time.Time, error) {
	t, err := time.ParseInLocation(LocalDateTime, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse local date-time %q: %w", s, err)
	}
	return t, nil
}
