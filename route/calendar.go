package route

import (
	"time"
)

// =============================================================================
// DAY - Calendar date, no time-of-day (visits are scheduled per day)
// =============================================================================

type Day struct {
	Time time.Time
}

// Constructors
func NewDay(year int, month time.Month, day int) Day {
	return Day{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDay parses a YYYY-MM-DD date.
func ParseDay(s string) (Day, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Day{}, err
	}
	return Day{Time: t}, nil
}

// Today is for callers at the edge (main, scheduler). The engine itself
// always takes "now" as an explicit parameter.
func Today() Day {
	now := time.Now()
	return NewDay(now.Year(), now.Month(), now.Day())
}

// Comparison
func (d Day) Before(other Day) bool        { return d.normalize().Before(other.normalize()) }
func (d Day) Equal(other Day) bool         { return d.normalize().Equal(other.normalize()) }
func (d Day) After(other Day) bool         { return d.normalize().After(other.normalize()) }
func (d Day) BeforeOrEqual(other Day) bool { return d.Before(other) || d.Equal(other) }
func (d Day) AfterOrEqual(other Day) bool  { return d.After(other) || d.Equal(other) }

func (d Day) normalize() time.Time {
	return time.Date(d.Time.Year(), d.Time.Month(), d.Time.Day(), 0, 0, 0, 0, time.UTC)
}

// Arithmetic
func (d Day) AddDays(n int) Day  { return Day{Time: d.normalize().AddDate(0, 0, n)} }
func (d Day) AddWeeks(n int) Day { return d.AddDays(7 * n) }

// Properties
func (d Day) IsZero() bool   { return d.Time.IsZero() }
func (d Day) String() string { return d.normalize().Format("2006-01-02") }

// Weekday returns the operational (Monday-first) weekday.
func (d Day) Weekday() Weekday {
	switch d.Time.Weekday() {
	case time.Monday:
		return Monday
	case time.Tuesday:
		return Tuesday
	case time.Wednesday:
		return Wednesday
	case time.Thursday:
		return Thursday
	case time.Friday:
		return Friday
	case time.Saturday:
		return Saturday
	default:
		return Sunday
	}
}

// DaysBetween returns the whole-day distance from a to b (negative if b < a).
func DaysBetween(a, b Day) int {
	return int(b.normalize().Sub(a.normalize()).Hours() / 24)
}

// =============================================================================
// WEEK PARITY - The biweekly alternation anchor
// =============================================================================
//
// Biweekly tracks are partitioned by week parity counted from a fixed origin:
// the Monday of ISO week 1 of 2001 (2001-01-01), which is defined ODD. The
// anchor is a process-wide constant, never "today", so expanding the same
// assignment on different days always yields the same dates. Counting whole
// weeks from the anchor (rather than taking each year's ISO week number)
// keeps the alternation strict across 53-week years.

var parityEpoch = NewDay(2001, time.January, 1) // Monday, ISO week 1, ODD

// WeekIndex returns the number of whole weeks between the parity anchor and
// the week containing d.
func (d Day) WeekIndex() int {
	days := DaysBetween(parityEpoch, d.StartOfWeek())
	if days >= 0 {
		return days / 7
	}
	return -((-days + 6) / 7)
}

// IsOddWeek reports whether d falls in an odd-parity week. Week index 0 is
// the anchor week and is ODD.
func (d Day) IsOddWeek() bool {
	idx := d.WeekIndex()
	if idx < 0 {
		idx = -idx
	}
	return idx%2 == 0
}

// StartOfWeek returns the Monday of the week containing d.
func (d Day) StartOfWeek() Day {
	return d.AddDays(-int(d.Weekday()))
}
