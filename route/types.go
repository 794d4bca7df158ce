/*
Package route provides the territory visit-scheduling engine.

PURPOSE:
  This package turns a static weekly route (which customer a sales
  representative sees on which weekday, at what recurrence) into a concrete,
  dated calendar of visit plans over a rolling horizon, and keeps that
  calendar consistent as the route is edited.

KEY CONCEPTS IN THIS FILE (types.go):
  - RouteAssignment: (rep, customer, weekday) → frequency, the static rule
  - VisitPlan: one concrete dated visit generated from an assignment
  - Weekday/Frequency: closed enumerations with exhaustive matching
  - Rep/Customer/Plan IDs: type-safe identifiers

DESIGN PRINCIPLES:
  1. History is immutable: COMPLETED/CANCELLED plans are never touched
  2. Natural keys: plans are unique on (rep, customer, date), so every
     operation is idempotent and safe to retry
  3. Type safety: weekday and frequency are tagged enums, not strings
  4. Determinism: "now" is always an explicit parameter, never wall clock

SEE ALSO:
  - recurrence.go: Frequency expansion over a date range
  - reconcile.go: Desired-vs-persisted assignment diffing
  - generator.go: Visit plan materialization
  - controller.go: The full save cycle
*/
package route

import (
	"fmt"

	"github.com/google/uuid"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type RepID string
type CustomerID string
type PlanID string

// NewPlanID mints a unique id for a generated visit plan.
func NewPlanID() PlanID { return PlanID(uuid.New().String()) }

// =============================================================================
// WEEKDAY - Closed enumeration, Monday-first operational calendar
// =============================================================================

type Weekday int

const (
	Monday Weekday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var weekdayNames = [...]string{"MON", "TUE", "WED", "THU", "FRI", "SAT", "SUN"}

func (w Weekday) Valid() bool { return w >= Monday && w <= Sunday }

func (w Weekday) String() string {
	if !w.Valid() {
		return fmt.Sprintf("Weekday(%d)", int(w))
	}
	return weekdayNames[w]
}

// ParseWeekday maps the storage/API label back to the enum.
func ParseWeekday(s string) (Weekday, error) {
	for i, name := range weekdayNames {
		if s == name {
			return Weekday(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidWeekday, s)
}

// =============================================================================
// FREQUENCY - Recurrence rule attached to an assignment
// =============================================================================

type Frequency int

const (
	// Weekly visits the customer every week on the assigned weekday.
	Weekly Frequency = iota

	// BiweeklyOdd visits only in odd-parity weeks, BiweeklyEven only in
	// even-parity weeks. Parity is anchored to a fixed process-wide origin
	// (see calendar.go), so the two tracks partition the weekly schedule.
	BiweeklyOdd
	BiweeklyEven
)

var frequencyNames = [...]string{"WEEKLY", "BIWEEKLY_ODD", "BIWEEKLY_EVEN"}

func (f Frequency) Valid() bool { return f >= Weekly && f <= BiweeklyEven }

func (f Frequency) String() string {
	if !f.Valid() {
		return fmt.Sprintf("Frequency(%d)", int(f))
	}
	return frequencyNames[f]
}

func ParseFrequency(s string) (Frequency, error) {
	for i, name := range frequencyNames {
		if s == name {
			return Frequency(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidFrequency, s)
}

// =============================================================================
// ROUTE ASSIGNMENT - The static weekly rule
// =============================================================================

// RouteAssignment says: this rep visits this customer on this weekday, at
// this recurrence. At most one assignment exists per (rep, customer, weekday);
// the same customer may appear on several weekdays as distinct assignments.
type RouteAssignment struct {
	ID         string
	RepID      RepID
	CustomerID CustomerID
	Weekday    Weekday
	Frequency  Frequency
}

// AssignmentKey is the identity of an assignment within one rep's route.
type AssignmentKey struct {
	CustomerID CustomerID
	Weekday    Weekday
}

func (a RouteAssignment) Key() AssignmentKey {
	return AssignmentKey{CustomerID: a.CustomerID, Weekday: a.Weekday}
}

// Validate checks the enum fields. Identity resolution is the store's job.
func (a RouteAssignment) Validate() error {
	if a.CustomerID == "" {
		return ErrUnknownCustomer
	}
	if !a.Weekday.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidWeekday, int(a.Weekday))
	}
	if !a.Frequency.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidFrequency, int(a.Frequency))
	}
	return nil
}

// =============================================================================
// VISIT PLAN - One concrete dated visit
// =============================================================================

type VisitStatus string

const (
	StatusPlanned   VisitStatus = "PLANNED"
	StatusCompleted VisitStatus = "COMPLETED"
	StatusCancelled VisitStatus = "CANCELLED"
)

// VisitPlan is the unit actually tracked in the field. PLANNED rows belong to
// the engine; COMPLETED/CANCELLED rows are historical fact and immutable here.
type VisitPlan struct {
	ID            PlanID
	RepID         RepID
	CustomerID    CustomerID
	ScheduledDate Day
	Status        VisitStatus
	LinkedOrderID string // set by the order-taking collaborator after the fact
}

// Mutable reports whether the scheduling engine may still delete this row.
func (p VisitPlan) Mutable() bool { return p.Status == StatusPlanned }

// =============================================================================
// OPERATION RESULTS
// =============================================================================

// OperationError records one skipped or failed item in a save.
type OperationError struct {
	Context string `json:"context"` // e.g. "assignment C1/TUE", "insert 2024-01-09"
	Reason  string `json:"reason"`
}

// SaveResult is the aggregate outcome of one SaveRoute call. Callers must
// inspect Errors: a save with failures still completes for the other rows.
type SaveResult struct {
	DeletedAssignments int
	CreatedAssignments int
	MaterializedVisits int
	SkippedVisits      int
	Errors             []OperationError
}

// MaterializeResult is the outcome of one Materialize pass.
type MaterializeResult struct {
	Created int
	Skipped int
	Errors  []OperationError
}
