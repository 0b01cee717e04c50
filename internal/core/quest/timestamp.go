package quest

import (
	"strings"
	"time"
)

// TimestampLayout is the provider's wire format: RFC 3339 with a numeric
// offset and up to microsecond precision, trailing zeros trimmed.
const TimestampLayout = "2006-01-02T15:04:05.999999-07:00"

// ParseTimestamp parses a provider timestamp and normalizes it to UTC.
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// FormatTimestamp renders t in the provider's wire format.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

func formatOptionalTimestamp(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := FormatTimestamp(*t)
	return &s
}
