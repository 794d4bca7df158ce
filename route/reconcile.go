/*
reconcile.go - Desired-vs-persisted route diffing

PURPOSE:
  Given the desired assignment set from an edit session and the currently
  persisted set for one rep, compute the minimal add/remove delta. The
  desired and persisted sets are plain finite sets keyed by
  (customer, weekday); the diff is direct set difference, no shared state.

FREQUENCY CHANGES:
  A frequency change on an existing (customer, weekday) pair has two
  defensible treatments, so the choice is an explicit named policy:

  FrequencyChangeReset (default, matches observed production behavior):
    the pair appears in both ToDelete and ToCreate - future PLANNED rows
    are dropped and regenerated on the new cadence.

  FrequencyChangePreserve:
    the pair appears only in ToCreate (as an upsert); the controller then
    deletes only the future PLANNED rows whose dates fall outside the new
    expansion, keeping continuity for dates both cadences share.

GUARANTEE:
  Reconciliation itself never touches visit plans; it only computes the
  delta. Plan deletion happens in the controller, and only for PLANNED
  rows on or after "now".

SEE ALSO:
  - controller.go: Applies the delta transactionally
*/
package route

import "sort"

// =============================================================================
// FREQUENCY CHANGE POLICY
// =============================================================================

type FrequencyChangePolicy int

const (
	// FrequencyChangeReset treats a frequency edit as delete-then-recreate.
	// The biweekly parity anchor is fixed and global, so "reset" here only
	// means the plan rows are regenerated, not that parity shifts.
	FrequencyChangeReset FrequencyChangePolicy = iota

	// FrequencyChangePreserve keeps future PLANNED rows whose dates survive
	// the new cadence.
	FrequencyChangePreserve
)

// =============================================================================
// RECONCILER
// =============================================================================

// Delta is the minimal change set moving the persisted route to the desired
// one. ToChange is only populated under FrequencyChangePreserve.
type Delta struct {
	// ToCreate holds desired assignments absent from the persisted set, or
	// (under Reset) present with a different frequency.
	ToCreate []RouteAssignment

	// ToDelete holds persisted assignments absent from the desired set, or
	// (under Reset) replaced by a frequency change.
	ToDelete []RouteAssignment

	// ToChange holds frequency edits kept in place under Preserve: the
	// assignment carries the new frequency.
	ToChange []RouteAssignment
}

func (d Delta) Empty() bool {
	return len(d.ToCreate) == 0 && len(d.ToDelete) == 0 && len(d.ToChange) == 0
}

type Reconciler struct {
	Policy FrequencyChangePolicy
}

// Reconcile diffs the two sets by (customer, weekday) key. Both inputs must
// already be valid and deduplicated; the controller guarantees that.
func (r *Reconciler) Reconcile(persisted, desired []RouteAssignment) Delta {
	persistedByKey := make(map[AssignmentKey]RouteAssignment, len(persisted))
	for _, a := range persisted {
		persistedByKey[a.Key()] = a
	}
	desiredByKey := make(map[AssignmentKey]RouteAssignment, len(desired))
	for _, a := range desired {
		desiredByKey[a.Key()] = a
	}

	var delta Delta

	for _, a := range desired {
		existing, ok := persistedByKey[a.Key()]
		switch {
		case !ok:
			delta.ToCreate = append(delta.ToCreate, a)
		case existing.Frequency != a.Frequency:
			if r.Policy == FrequencyChangePreserve {
				delta.ToChange = append(delta.ToChange, a)
			} else {
				delta.ToDelete = append(delta.ToDelete, existing)
				delta.ToCreate = append(delta.ToCreate, a)
			}
		}
	}

	for _, a := range persisted {
		if _, ok := desiredByKey[a.Key()]; !ok {
			delta.ToDelete = append(delta.ToDelete, a)
		}
	}

	sortAssignments(delta.ToCreate)
	sortAssignments(delta.ToDelete)
	sortAssignments(delta.ToChange)
	return delta
}

// sortAssignments orders by weekday then customer so delta application and
// error reporting are deterministic.
func sortAssignments(as []RouteAssignment) {
	sort.Slice(as, func(i, j int) bool {
		if as[i].Weekday != as[j].Weekday {
			return as[i].Weekday < as[j].Weekday
		}
		return as[i].CustomerID < as[j].CustomerID
	})
}
