package timeutil

import (
	"time"
)

// Common layouts
const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04:05"
	DisplayLayout  = "January 2, 2006"
)

// Now returns the current time in UTC, truncated to milliseconds so values
// survive a round trip through the document store unchanged.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// StartOfDay returns midnight UTC of the calendar day of t
func StartOfDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate accepts a bare calendar date or an RFC 3339 timestamp
func ParseDate(value string) (time.Time, error) {
	if t, err := time.Parse(DateLayout, value); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339Nano, value)
}

// FormatDisplay formats a date the way invoices print it
func FormatDisplay(t time.Time) string {
	return t.UTC().Format(DisplayLayout)
}
