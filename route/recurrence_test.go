package route_test

import (
	"testing"
	"time"

	"github.com/fieldops/route-engine/route"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func day(year int, month time.Month, d int) route.Day {
	return route.NewDay(year, month, d)
}

func dateStrings(days []route.Day) []string {
	out := make([]string, len(days))
	for i, d := range days {
		out[i] = d.String()
	}
	return out
}

func assertDates(t *testing.T, got []route.Day, want ...string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d dates %v, want %d %v", len(got), dateStrings(got), len(want), want)
	}
	for i, w := range want {
		if got[i].String() != w {
			t.Errorf("date[%d] = %s, want %s", i, got[i], w)
		}
	}
}

// =============================================================================
// WEEKLY EXPANSION TESTS
// =============================================================================

func TestExpand_Weekly_FourWeekHorizon(t *testing.T) {
	// GIVEN: A weekly Tuesday assignment and a four-week window from Mon 2024-01-01
	// WHEN: Expanding the recurrence
	// THEN: Every Tuesday in the window appears, in ascending order

	got := route.Expand(route.Tuesday, route.Weekly,
		day(2024, time.January, 1), day(2024, time.January, 28))

	assertDates(t, got, "2024-01-02", "2024-01-09", "2024-01-16", "2024-01-23")
}

func TestExpand_Weekly_StartsOnMatchingWeekday(t *testing.T) {
	// GIVEN: A window whose first day is the assignment's weekday
	// WHEN: Expanding
	// THEN: The first day itself is included

	got := route.Expand(route.Monday, route.Weekly,
		day(2024, time.January, 1), day(2024, time.January, 15))

	assertDates(t, got, "2024-01-01", "2024-01-08", "2024-01-15")
}

func TestExpand_Weekly_WindowShorterThanWeek(t *testing.T) {
	// GIVEN: A three-day window not containing the target weekday
	// WHEN: Expanding a Friday assignment over Mon-Wed
	// THEN: No dates are produced

	got := route.Expand(route.Friday, route.Weekly,
		day(2024, time.January, 1), day(2024, time.January, 3))

	if len(got) != 0 {
		t.Errorf("expected empty expansion, got %v", dateStrings(got))
	}
}

func TestExpand_InvertedRange(t *testing.T) {
	// GIVEN: to before from
	// WHEN: Expanding
	// THEN: nil, not a panic or an error

	got := route.Expand(route.Monday, route.Weekly,
		day(2024, time.February, 1), day(2024, time.January, 1))

	if got != nil {
		t.Errorf("expected nil for inverted range, got %v", dateStrings(got))
	}
}

func TestExpand_SingleDayRange(t *testing.T) {
	// GIVEN: from == to on the target weekday
	// WHEN: Expanding
	// THEN: Exactly that one date

	d := day(2024, time.January, 2) // Tuesday
	got := route.Expand(route.Tuesday, route.Weekly, d, d)
	assertDates(t, got, "2024-01-02")
}

// =============================================================================
// BIWEEKLY PARITY TESTS
// =============================================================================

func TestExpand_BiweeklyOdd_SkipsEvenWeeks(t *testing.T) {
	// GIVEN: A biweekly-odd Tuesday assignment over January 2024
	// WHEN: Expanding
	// THEN: Only the odd-week Tuesdays (Jan 2, 16, 30) appear

	got := route.Expand(route.Tuesday, route.BiweeklyOdd,
		day(2024, time.January, 1), day(2024, time.January, 31))

	assertDates(t, got, "2024-01-02", "2024-01-16", "2024-01-30")
}

func TestExpand_BiweeklyEven_SkipsOddWeeks(t *testing.T) {
	got := route.Expand(route.Tuesday, route.BiweeklyEven,
		day(2024, time.January, 1), day(2024, time.January, 31))

	assertDates(t, got, "2024-01-09", "2024-01-23")
}

func TestExpand_ParityTracksPartitionWeekly(t *testing.T) {
	// GIVEN: The same weekday and window for all three tracks
	// WHEN: Expanding WEEKLY, BIWEEKLY_ODD, and BIWEEKLY_EVEN
	// THEN: The two biweekly tracks partition the weekly set exactly

	from := day(2024, time.March, 1)
	to := day(2024, time.May, 31)

	weekly := route.Expand(route.Thursday, route.Weekly, from, to)
	oddSet := route.Expand(route.Thursday, route.BiweeklyOdd, from, to)
	evenSet := route.Expand(route.Thursday, route.BiweeklyEven, from, to)

	if len(oddSet)+len(evenSet) != len(weekly) {
		t.Fatalf("partition sizes: %d + %d != %d", len(oddSet), len(evenSet), len(weekly))
	}

	seen := make(map[string]bool)
	for _, d := range oddSet {
		seen[d.String()] = true
	}
	for _, d := range evenSet {
		if seen[d.String()] {
			t.Errorf("date %s appears in both biweekly tracks", d)
		}
		seen[d.String()] = true
	}
	for _, d := range weekly {
		if !seen[d.String()] {
			t.Errorf("weekly date %s missing from the biweekly union", d)
		}
	}
}

func TestExpand_ParityStableAcrossYearBoundary(t *testing.T) {
	// GIVEN: A biweekly track spanning the 2024/2025 year boundary
	// WHEN: Expanding across the boundary in one window versus two windows
	// THEN: The alternation never produces two consecutive weeks

	got := route.Expand(route.Monday, route.BiweeklyOdd,
		day(2024, time.December, 1), day(2025, time.January, 31))

	for i := 1; i < len(got); i++ {
		if gap := route.DaysBetween(got[i-1], got[i]); gap != 14 {
			t.Errorf("gap between %s and %s = %d days, want 14", got[i-1], got[i], gap)
		}
	}
}

func TestExpand_DeterministicRegardlessOfWindowStart(t *testing.T) {
	// GIVEN: Two windows with different starts covering a shared stretch
	// WHEN: Expanding the same biweekly assignment in both
	// THEN: The shared stretch yields identical dates (anchor is fixed, not
	//       relative to the window)

	a := route.Expand(route.Wednesday, route.BiweeklyEven,
		day(2024, time.January, 1), day(2024, time.February, 29))
	b := route.Expand(route.Wednesday, route.BiweeklyEven,
		day(2024, time.January, 20), day(2024, time.February, 29))

	shared := make(map[string]bool)
	for _, d := range b {
		shared[d.String()] = true
	}
	for _, d := range a {
		if d.AfterOrEqual(day(2024, time.January, 20)) && !shared[d.String()] {
			t.Errorf("date %s missing when the window starts later", d)
		}
	}
}

func TestExpand_InvalidWeekdayPanics(t *testing.T) {
	// GIVEN: A weekday value outside the closed enum
	// WHEN: Expanding
	// THEN: Panic (caller bug, not a runtime condition)

	defer func() {
		if recover() == nil {
			t.Error("expected panic for invalid weekday")
		}
	}()
	route.Expand(route.Weekday(42), route.Weekly,
		day(2024, time.January, 1), day(2024, time.January, 31))
}
