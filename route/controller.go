/*
controller.go - The full route-save cycle

PURPOSE:
  Orchestrates one SaveRoute call: validate the edit session, compute the
  reconciliation delta, apply it atomically, then re-materialize the
  horizon. A save is a single linear pass with no long-running state.

SAVE CYCLE:
  1. Resolve the rep; reject the whole call if unknown.
  2. Validate desired rows (enums, duplicates, customer identity);
     invalid rows are reported per row and skipped, the rest proceed.
  3. Reconcile desired vs persisted.
  4. Inside one store transaction: remove deleted assignments and their
     future PLANNED plans, upsert created/changed assignments.
  5. Materialize the full active set over [now, now + horizon].
  6. Return aggregate counts; every skipped or failed item is in Errors.

ATOMICITY:
  Step 4 runs in TxStore.WithTx so a concurrent save for the same rep
  cannot observe a half-applied delta. Materialization runs after the
  commit; if it is cut short, every insert is keyed by natural identity,
  so retrying the same save converges without duplication.

HORIZON:
  The horizon starts at the caller-supplied "now" (never wall clock) and
  spans HorizonWeeks whole weeks, end inclusive. Extending the horizon as
  real time advances is the top-up scheduler's job (api/scheduler.go);
  this core only guarantees Materialize is safe to call repeatedly.

SEE ALSO:
  - reconcile.go: Delta computation and the frequency-change policy
  - generator.go: Materialization
*/
package route

import (
	"context"
	"errors"
	"fmt"
)

// =============================================================================
// CONTROLLER
// =============================================================================

const DefaultHorizonWeeks = 4

type Controller struct {
	Store      TxStore
	Resolver   IdentityResolver
	Reconciler *Reconciler
	Generator  *Generator

	// HorizonWeeks is the rolling window kept materialized ahead of time.
	// Zero means DefaultHorizonWeeks.
	HorizonWeeks int
}

func NewController(store TxStore, resolver IdentityResolver) *Controller {
	return &Controller{
		Store:        store,
		Resolver:     resolver,
		Reconciler:   &Reconciler{Policy: FrequencyChangeReset},
		Generator:    NewGenerator(store),
		HorizonWeeks: DefaultHorizonWeeks,
	}
}

// HorizonEnd returns the inclusive end of the horizon starting at now: the
// window spans exactly HorizonWeeks whole weeks.
func (c *Controller) HorizonEnd(now Day) Day {
	weeks := c.HorizonWeeks
	if weeks <= 0 {
		weeks = DefaultHorizonWeeks
	}
	return now.AddDays(weeks*7 - 1)
}

// SaveRoute applies one edit session for a rep. The desired set is the
// complete intended route: anything persisted but absent from it is removed.
func (c *Controller) SaveRoute(ctx context.Context, repID RepID, desired []RouteAssignment, now Day) (*SaveResult, error) {
	ok, err := c.Resolver.RepExists(ctx, repID)
	if err != nil {
		return nil, fmt.Errorf("resolving rep %s: %w", repID, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRepresentative, repID)
	}

	result := &SaveResult{}
	accepted := c.validateRows(ctx, repID, desired, result)

	persisted, err := c.Store.ListAssignments(ctx, repID)
	if err != nil {
		return nil, fmt.Errorf("loading route for %s: %w", repID, err)
	}

	delta := c.Reconciler.Reconcile(persisted, accepted)

	if !delta.Empty() {
		if err := c.applyDelta(ctx, repID, delta, now, result); err != nil {
			return nil, err
		}
	}

	active, err := c.Store.ListAssignments(ctx, repID)
	if err != nil {
		return nil, fmt.Errorf("reloading route for %s: %w", repID, err)
	}

	mat, err := c.Generator.Materialize(ctx, repID, active, now, c.HorizonEnd(now))
	if mat != nil {
		result.MaterializedVisits = mat.Created
		result.SkippedVisits = mat.Skipped
		result.Errors = append(result.Errors, mat.Errors...)
	}
	if err != nil {
		return result, err
	}
	return result, nil
}

// Materialize re-runs plan generation for a rep's current route without
// editing it. This is what the horizon top-up calls with a shifted window.
func (c *Controller) Materialize(ctx context.Context, repID RepID, now Day) (*MaterializeResult, error) {
	active, err := c.Store.ListAssignments(ctx, repID)
	if err != nil {
		return nil, fmt.Errorf("loading route for %s: %w", repID, err)
	}
	return c.Generator.Materialize(ctx, repID, active, now, c.HorizonEnd(now))
}

// validateRows filters the edit session down to valid, resolvable,
// deduplicated assignments. Rejected rows land in result.Errors.
func (c *Controller) validateRows(ctx context.Context, repID RepID, desired []RouteAssignment, result *SaveResult) []RouteAssignment {
	seen := make(map[AssignmentKey]bool, len(desired))
	accepted := make([]RouteAssignment, 0, len(desired))

	for _, a := range desired {
		a.RepID = repID
		rowCtx := fmt.Sprintf("assignment %s/%s", a.CustomerID, a.Weekday)

		if err := a.Validate(); err != nil {
			result.Errors = append(result.Errors, OperationError{Context: rowCtx, Reason: err.Error()})
			continue
		}
		if seen[a.Key()] {
			result.Errors = append(result.Errors, OperationError{Context: rowCtx, Reason: ErrDuplicateRouteRow.Error()})
			continue
		}

		ok, err := c.Resolver.CustomerExists(ctx, a.CustomerID)
		if err != nil {
			result.Errors = append(result.Errors, OperationError{Context: rowCtx, Reason: err.Error()})
			continue
		}
		if !ok {
			ucErr := &UnknownCustomerError{RepID: repID, CustomerID: a.CustomerID, Weekday: a.Weekday}
			result.Errors = append(result.Errors, OperationError{Context: rowCtx, Reason: ucErr.Error()})
			continue
		}

		seen[a.Key()] = true
		accepted = append(accepted, a)
	}
	return accepted
}

// applyDelta writes the reconciliation delta in one transaction: assignment
// deletes drop their future PLANNED plans, creates/changes are upserted.
// Plans dated before now, or already COMPLETED/CANCELLED, stay untouched.
func (c *Controller) applyDelta(ctx context.Context, repID RepID, delta Delta, now Day, result *SaveResult) error {
	horizonEnd := c.HorizonEnd(now)

	return c.Store.WithTx(ctx, func(s Store) error {
		for _, a := range delta.ToDelete {
			if err := s.DeleteAssignment(ctx, repID, a.Key()); err != nil {
				return fmt.Errorf("deleting assignment %s/%s: %w", a.CustomerID, a.Weekday, err)
			}
			if _, err := s.DeletePlannedByAssignment(ctx, repID, a.Key(), now); err != nil {
				return fmt.Errorf("deleting plans for %s/%s: %w", a.CustomerID, a.Weekday, err)
			}
			result.DeletedAssignments++
		}

		for _, a := range delta.ToCreate {
			if err := s.SaveAssignment(ctx, a); err != nil {
				return fmt.Errorf("saving assignment %s/%s: %w", a.CustomerID, a.Weekday, err)
			}
			result.CreatedAssignments++
		}

		for _, a := range delta.ToChange {
			if err := c.applyFrequencyChange(ctx, s, a, now, horizonEnd); err != nil {
				return err
			}
			result.CreatedAssignments++
		}
		return nil
	})
}

// applyFrequencyChange handles FrequencyChangePreserve: the assignment is
// updated in place and only the future PLANNED rows that the new cadence no
// longer produces are removed.
func (c *Controller) applyFrequencyChange(ctx context.Context, s Store, a RouteAssignment, now, horizonEnd Day) error {
	if err := s.SaveAssignment(ctx, a); err != nil {
		return fmt.Errorf("updating assignment %s/%s: %w", a.CustomerID, a.Weekday, err)
	}

	keep := make(map[string]bool)
	for _, d := range Expand(a.Weekday, a.Frequency, now, horizonEnd) {
		keep[d.String()] = true
	}

	planned, err := s.ListPlannedByAssignment(ctx, a.RepID, a.Key(), now)
	if err != nil {
		return fmt.Errorf("listing plans for %s/%s: %w", a.CustomerID, a.Weekday, err)
	}

	var stale []Day
	for _, p := range planned {
		if !keep[p.ScheduledDate.String()] {
			stale = append(stale, p.ScheduledDate)
		}
	}
	if len(stale) == 0 {
		return nil
	}
	if _, err := s.DeletePlannedOnDates(ctx, a.RepID, a.CustomerID, stale); err != nil {
		return fmt.Errorf("pruning plans for %s/%s: %w", a.CustomerID, a.Weekday, err)
	}
	return nil
}

// ListPlans is the engine's output query for calendar/report collaborators.
func (c *Controller) ListPlans(ctx context.Context, repID RepID, from, to Day) ([]VisitPlan, error) {
	if ok, err := c.Resolver.RepExists(ctx, repID); err != nil {
		return nil, err
	} else if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRepresentative, repID)
	}
	return c.Store.ListPlans(ctx, repID, from, to)
}

// CompleteVisit and CancelVisit are the execution collaborator's surface.
// They transition a PLANNED row to its terminal status.
func (c *Controller) CompleteVisit(ctx context.Context, id PlanID, linkedOrderID string) error {
	return c.setStatus(ctx, id, StatusCompleted, linkedOrderID)
}

func (c *Controller) CancelVisit(ctx context.Context, id PlanID) error {
	return c.setStatus(ctx, id, StatusCancelled, "")
}

func (c *Controller) setStatus(ctx context.Context, id PlanID, status VisitStatus, linkedOrderID string) error {
	err := c.Store.SetPlanStatus(ctx, id, status, linkedOrderID)
	if err != nil && !errors.Is(err, ErrPlanNotFound) && !errors.Is(err, ErrPlanImmutable) {
		return fmt.Errorf("updating plan %s: %w", id, err)
	}
	return err
}
