package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"fixwala-backend/internal/timeutil"
)

// Date is a calendar date accepted as "2006-01-02" or a full RFC 3339
// timestamp. It is normalised to midnight UTC.
type Date struct {
	t time.Time
}

// NewDate truncates t to its calendar day
func NewDate(t time.Time) Date {
	return Date{t: timeutil.StartOfDay(t)}
}

// Time returns the underlying instant
func (d Date) Time() time.Time { return d.t }

// IsZero reports whether the date was never set
func (d Date) IsZero() bool { return d.t.IsZero() }

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.t.Format(timeutil.DateLayout))
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	t, err := timeutil.ParseDate(s)
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", s, err)
	}
	*d = NewDate(t)
	return nil
}

// Timestamp accepts the same inputs as Date but keeps the time of day
type Timestamp struct {
	t time.Time
}

func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{t: t.UTC()}
}

func (ts Timestamp) Time() time.Time { return ts.t }

func (ts Timestamp) IsZero() bool { return ts.t.IsZero() }

func (ts Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(ts.t.Format(time.RFC3339Nano))
}

func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*ts = Timestamp{}
		return nil
	}
	t, err := timeutil.ParseDate(s)
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", s, err)
	}
	*ts = Timestamp{t: t.UTC().Truncate(time.Millisecond)}
	return nil
}
