package ledger

import (
	"fmt"
	"time"
)

// =============================================================================
// TIMESTAMP - Moment of recording, or an explicit backdated calendar date
// =============================================================================

// Snapshot/date layouts. A movement recorded "now" keeps the minute; a
// backdated movement carries only the calendar date.
const (
	LayoutDate     = "02/01/2006"
	LayoutDateTime = "02/01/2006 - 15:04"
)

// Timestamp is either the moment a movement was recorded (minute
// granularity) or an explicitly supplied calendar date (DateOnly).
type Timestamp struct {
	Time     time.Time
	DateOnly bool
}

// Now returns the current moment at minute granularity.
func Now() Timestamp {
	return Timestamp{Time: time.Now().Truncate(time.Minute)}
}

// OnDate returns a date-only timestamp for an explicit calendar date.
func OnDate(year int, month time.Month, day int) Timestamp {
	return Timestamp{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC), DateOnly: true}
}

// ParseDate parses a strict DD/MM/YYYY calendar date.
func ParseDate(s string) (Timestamp, error) {
	t, err := time.Parse(LayoutDate, s)
	if err != nil {
		return Timestamp{}, &DateError{Input: s}
	}
	return Timestamp{Time: t, DateOnly: true}, nil
}

// ParseTimestamp parses either snapshot layout. Used when loading snapshots.
func ParseTimestamp(s string) (Timestamp, error) {
	if t, err := time.Parse(LayoutDateTime, s); err == nil {
		return Timestamp{Time: t}, nil
	}
	if t, err := time.Parse(LayoutDate, s); err == nil {
		return Timestamp{Time: t, DateOnly: true}, nil
	}
	return Timestamp{}, &DateError{Input: s}
}

func (ts Timestamp) String() string {
	if ts.DateOnly {
		return ts.Time.Format(LayoutDate)
	}
	return ts.Time.Format(LayoutDateTime)
}

// Equal compares at the granularity actually stored.
func (ts Timestamp) Equal(other Timestamp) bool {
	return ts.String() == other.String()
}

func (ts Timestamp) IsZero() bool { return ts.Time.IsZero() }

// MarshalJSON writes the snapshot layout ("DD/MM/YYYY" or
// "DD/MM/YYYY - HH:MM") so every snapshot backend persists the same form.
func (ts Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%q", ts.String())), nil
}

// UnmarshalJSON accepts either snapshot layout.
func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return &DateError{Input: string(data)}
	}
	parsed, err := ParseTimestamp(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*ts = parsed
	return nil
}
