/*
errors.go - Centralized error types for the scheduling engine

PURPOSE:
  All engine errors in one place. Stores translate database-level failures
  (unique index hits, missing foreign keys) into these so callers can use
  errors.Is/As without knowing which store implementation is behind them.

ERROR CATEGORIES:
  1. Input errors   - invalid weekday/frequency, duplicate route rows
  2. Identity errors - unknown rep/customer
  3. Plan errors    - duplicate (rep, customer, date), immutable history

SEE ALSO:
  - store.go: Interfaces whose implementations return these
  - controller.go: Maps these into per-row OperationErrors
*/
package route

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidWeekday is returned for a weekday outside Monday..Sunday.
	ErrInvalidWeekday = errors.New("invalid weekday")

	// ErrInvalidFrequency is returned for an unknown frequency code.
	ErrInvalidFrequency = errors.New("invalid frequency code")

	// ErrDuplicateRouteRow is returned when a desired route lists the same
	// (customer, weekday) pair twice in one edit session.
	ErrDuplicateRouteRow = errors.New("duplicate (customer, weekday) in desired route")

	// ErrUnknownRepresentative is returned when the rep id cannot be resolved.
	ErrUnknownRepresentative = errors.New("unknown representative")

	// ErrUnknownCustomer is returned when a customer id cannot be resolved.
	ErrUnknownCustomer = errors.New("unknown customer")

	// ErrDuplicateVisitPlan is returned on an insert for a
	// (rep, customer, date) triple that already has a row. This is expected
	// behavior for re-materialization and is counted as a skip.
	ErrDuplicateVisitPlan = errors.New("visit plan already exists for this date")

	// ErrPlanImmutable is returned when something tries to modify a
	// COMPLETED or CANCELLED visit plan through the engine.
	ErrPlanImmutable = errors.New("visit plan is historical and immutable")

	// ErrAssignmentNotFound is returned when a referenced assignment
	// does not exist.
	ErrAssignmentNotFound = errors.New("route assignment not found")

	// ErrPlanNotFound is returned when a referenced visit plan does not exist.
	ErrPlanNotFound = errors.New("visit plan not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// UnknownCustomerError identifies the offending row in a bulk edit.
type UnknownCustomerError struct {
	RepID      RepID
	CustomerID CustomerID
	Weekday    Weekday
}

func (e *UnknownCustomerError) Error() string {
	return fmt.Sprintf("unknown customer %s on %s for rep %s", e.CustomerID, e.Weekday, e.RepID)
}

func (e *UnknownCustomerError) Unwrap() error { return ErrUnknownCustomer }

// DuplicatePlanError reports which triple collided on insert.
type DuplicatePlanError struct {
	RepID      RepID
	CustomerID CustomerID
	Date       Day
}

func (e *DuplicatePlanError) Error() string {
	return fmt.Sprintf("visit plan already exists: %s/%s on %s", e.RepID, e.CustomerID, e.Date)
}

func (e *DuplicatePlanError) Unwrap() error { return ErrDuplicateVisitPlan }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidWeekday) ||
		errors.Is(err, ErrInvalidFrequency) ||
		errors.Is(err, ErrDuplicateRouteRow) ||
		errors.Is(err, ErrPlanImmutable)
}

// IsNotFound returns true if the error indicates a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrUnknownRepresentative) ||
		errors.Is(err, ErrUnknownCustomer) ||
		errors.Is(err, ErrAssignmentNotFound) ||
		errors.Is(err, ErrPlanNotFound)
}
