package model

import (
	"fmt"
	"time"
)

// TimestampFormat is the second-resolution wire format for created/updated
// fields.
const TimestampFormat = "2006-01-02T15:04:05"

// Timestamp is a second-resolution UTC timestamp. It marshals without a
// timezone suffix, matching the API's created/updated fields.
type Timestamp time.Time

// NewTimestamp truncates t to whole seconds in UTC.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp(t.UTC().Truncate(time.Second))
}

// Time returns the underlying time.Time.
func (t Timestamp) Time() time.Time {
	return time.Time(t)
}

// Equal reports whether two timestamps denote the same second.
func (t Timestamp) Equal(o Timestamp) bool {
	return t.Time().Equal(o.Time())
}

// After reports whether t is strictly later than o.
func (t Timestamp) After(o Timestamp) bool {
	return t.Time().After(o.Time())
}

// String formats the timestamp in the wire format.
func (t Timestamp) String() string {
	return t.Time().Format(TimestampFormat)
}

// MarshalJSON encodes the timestamp as a quoted TimestampFormat string.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

// UnmarshalJSON decodes a quoted TimestampFormat string.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return fmt.Errorf("invalid timestamp %s", s)
	}
	parsed, err := time.Parse(TimestampFormat, s[1:len(s)-1])
	if err != nil {
		return err
	}
	*t = Timestamp(parsed)
	return nil
}

// NextUpdated picks the updated timestamp for a mutation at wall-clock time
// now. The result is always strictly later than prev, advancing by one
// logical second when the clock has not visibly moved. This keeps updated
// monotonic even when two mutations land within the same second.
func NextUpdated(prev Timestamp, now time.Time) Timestamp {
	next := NewTimestamp(now)
	if !next.After(prev) {
		next = Timestamp(prev.Time().Add(time.Second))
	}
	return next
}
