/*
store.go - Persistence interfaces consumed by the engine

PURPOSE:
  Defines the boundary between the scheduling logic and the database.
  The engine owns route assignments and PLANNED visit plans; everything
  else (representatives, customers, orders) belongs to collaborators and
  is reached only through the IdentityResolver.

KEY INTERFACES:
  AssignmentStore:  (rep, customer, weekday) → frequency rows
  PlanStore:        dated visit plan rows with history protection
  Store:            both of the above, one backend
  TxStore:          Store plus an atomic transaction boundary
  IdentityResolver: existence checks for external entities

HISTORY PROTECTION:
  PlanStore delete operations only ever remove PLANNED rows. There is no
  API that deletes or rewrites a COMPLETED/CANCELLED plan; implementations
  enforce this in their WHERE clauses, not just by caller discipline.

IMPLEMENTATIONS:
  - store/sqlite: production store (SQLite, WAL mode)
  - route/store: in-memory store for tests and dev

SEE ALSO:
  - controller.go: Runs the save cycle inside TxStore.WithTx
  - generator.go: Uses PlanStore's idempotent insert
*/
package route

import "context"

// =============================================================================
// ASSIGNMENT STORE
// =============================================================================

// AssignmentStore persists the static route. Mutation must flow through the
// Controller so visit plans stay consistent with the route.
type AssignmentStore interface {
	// ListAssignments returns a rep's full route, ordered by weekday then
	// customer id.
	ListAssignments(ctx context.Context, repID RepID) ([]RouteAssignment, error)

	// SaveAssignment upserts on the (rep, customer, weekday) natural key.
	SaveAssignment(ctx context.Context, a RouteAssignment) error

	// DeleteAssignment removes one assignment. Missing rows are not an error.
	DeleteAssignment(ctx context.Context, repID RepID, key AssignmentKey) error
}

// =============================================================================
// PLAN STORE
// =============================================================================

// PlanStore persists visit plans.
type PlanStore interface {
	// InsertPlan adds a PLANNED row. If any row already exists for the
	// (rep, customer, date) triple - whatever its status - it returns
	// ErrDuplicateVisitPlan and changes nothing.
	InsertPlan(ctx context.Context, p VisitPlan) error

	// ListPlans returns a rep's plans with scheduled date in [from, to],
	// ordered by date then customer id.
	ListPlans(ctx context.Context, repID RepID, from, to Day) ([]VisitPlan, error)

	// ListPlannedByAssignment returns the still-PLANNED rows produced by one
	// assignment, dated on or after the given day.
	ListPlannedByAssignment(ctx context.Context, repID RepID, key AssignmentKey, onOrAfter Day) ([]VisitPlan, error)

	// DeletePlannedByAssignment removes PLANNED rows for one assignment dated
	// on or after the given day. COMPLETED/CANCELLED rows and rows before the
	// cutoff are untouched. Returns the number of rows removed.
	DeletePlannedByAssignment(ctx context.Context, repID RepID, key AssignmentKey, onOrAfter Day) (int, error)

	// DeletePlannedOnDates removes PLANNED rows for one (rep, customer) pair
	// on exactly the given dates. Returns the number of rows removed.
	DeletePlannedOnDates(ctx context.Context, repID RepID, customerID CustomerID, dates []Day) (int, error)

	// SetPlanStatus transitions a plan to COMPLETED or CANCELLED, recording
	// an optional linked order id. Transitioning an already-final plan
	// returns ErrPlanImmutable.
	SetPlanStatus(ctx context.Context, id PlanID, status VisitStatus, linkedOrderID string) error
}

// =============================================================================
// COMBINED + TRANSACTIONAL STORE
// =============================================================================

// Store is a single backend holding both assignments and plans.
type Store interface {
	AssignmentStore
	PlanStore
}

// TxStore wraps Store with an atomic transaction boundary. The Controller
// applies the reconciliation delta inside WithTx so a concurrent save for the
// same rep can never observe a half-applied delta.
type TxStore interface {
	Store

	// WithTx executes fn atomically: rolled back if fn errors, committed
	// otherwise.
	WithTx(ctx context.Context, fn func(Store) error) error
}

// =============================================================================
// IDENTITY RESOLVER - External entities, referenced only
// =============================================================================

// IdentityResolver answers whether rep/customer ids exist. Representative
// and customer records are owned by collaborators; the engine only needs
// existence checks to reject stale ids per row.
type IdentityResolver interface {
	RepExists(ctx context.Context, id RepID) (bool, error)
	CustomerExists(ctx context.Context, id CustomerID) (bool, error)
}
