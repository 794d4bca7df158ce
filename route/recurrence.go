/*
recurrence.go - Pure frequency expansion over a date range

PURPOSE:
  The single source of truth for which calendar dates an assignment
  produces. Everything downstream (generator, reconciliation of future
  plans) derives its dates from Expand; nothing else computes dates.

CONTRACT:
  Expand(weekday, frequency, from, to) returns the sorted, inclusive list
  of matching dates. It is pure and deterministic: no clock, no store, no
  hidden state. An inverted range returns nil rather than an error. An
  invalid enum value is a caller bug, not a runtime condition - the
  exhaustive switch panics on values outside the closed set.

PARITY:
  Biweekly tracks filter the weekly dates by the fixed week-parity anchor
  in calendar.go. For any range, ODD and EVEN partition WEEKLY: their
  union is the weekly expansion and they never overlap.

SEE ALSO:
  - calendar.go: Day arithmetic and the parity anchor
  - generator.go: Materializes the expanded dates into visit plans
*/
package route

import "fmt"

// Expand returns every date in [from, to] on which the given assignment
// recurrence falls. Results are in ascending order.
func Expand(weekday Weekday, frequency Frequency, from, to Day) []Day {
	if !weekday.Valid() {
		panic(fmt.Sprintf("route.Expand: %v", fmt.Errorf("%w: %d", ErrInvalidWeekday, int(weekday))))
	}
	if to.Before(from) {
		return nil
	}

	// First occurrence of the weekday on or after from.
	offset := (int(weekday) - int(from.Weekday()) + 7) % 7
	first := from.AddDays(offset)

	var dates []Day
	for d := first; d.BeforeOrEqual(to); d = d.AddWeeks(1) {
		if matches(frequency, d) {
			dates = append(dates, d)
		}
	}
	return dates
}

// matches applies the frequency filter to a single candidate date whose
// weekday already matches.
func matches(frequency Frequency, d Day) bool {
	switch frequency {
	case Weekly:
		return true
	case BiweeklyOdd:
		return d.IsOddWeek()
	case BiweeklyEven:
		return !d.IsOddWeek()
	default:
		panic(fmt.Sprintf("route.Expand: %v", fmt.Errorf("%w: %d", ErrInvalidFrequency, int(frequency))))
	}
}
