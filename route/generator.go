/*
generator.go - Idempotent visit plan materialization

PURPOSE:
  Expands each active assignment over the horizon and inserts one PLANNED
  visit plan per date that doesn't already have a row. Safe to call any
  number of times with the same inputs: re-runs only produce skips.

BATCHING:
  Assignments are grouped by (weekday, frequency) so each group expands
  its date pattern once. Grouping is purely an efficiency measure - the
  dates per assignment are exactly what Expand would return for it alone.

CONCURRENCY:
  Groups are dispatched as parallel insert batches, bounded by a weighted
  semaphore. Materialize does not return until every batch has finished;
  there are no fire-and-forget sub-steps.

FAILURE HANDLING:
  A failed insert (stale customer id, transient store error) is recorded
  against that one date and materialization continues. Duplicate rows are
  skips, not errors.

SEE ALSO:
  - recurrence.go: The sole source of truth for dates
  - controller.go: Runs Materialize as the last step of a save
*/
package route

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/semaphore"
)

// =============================================================================
// GENERATOR
// =============================================================================

const defaultMaxParallelBatches = 4

type Generator struct {
	Plans PlanStore

	// MaxParallel bounds concurrent insert batches. Zero means the default.
	MaxParallel int64
}

func NewGenerator(plans PlanStore) *Generator {
	return &Generator{Plans: plans, MaxParallel: defaultMaxParallelBatches}
}

// patternKey groups assignments that share one expansion.
type patternKey struct {
	Weekday   Weekday
	Frequency Frequency
}

// Materialize expands every assignment over [from, to] and inserts the
// missing PLANNED rows for repID. All assignments must belong to repID.
func (g *Generator) Materialize(ctx context.Context, repID RepID, assignments []RouteAssignment, from, to Day) (*MaterializeResult, error) {
	groups := make(map[patternKey][]RouteAssignment)
	for _, a := range assignments {
		k := patternKey{Weekday: a.Weekday, Frequency: a.Frequency}
		groups[k] = append(groups[k], a)
	}

	limit := g.MaxParallel
	if limit <= 0 {
		limit = defaultMaxParallelBatches
	}
	sem := semaphore.NewWeighted(limit)

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		result MaterializeResult
	)

	for k, group := range groups {
		dates := Expand(k.Weekday, k.Frequency, from, to)
		if len(dates) == 0 {
			continue
		}

		if err := sem.Acquire(ctx, 1); err != nil {
			// Context cancelled mid-save. Everything already inserted is
			// keyed by natural identity, so a retry converges.
			wg.Wait()
			return &result, err
		}

		wg.Add(1)
		go func(group []RouteAssignment, dates []Day) {
			defer wg.Done()
			defer sem.Release(1)

			batch := g.insertBatch(ctx, repID, group, dates)

			mu.Lock()
			result.Created += batch.Created
			result.Skipped += batch.Skipped
			result.Errors = append(result.Errors, batch.Errors...)
			mu.Unlock()
		}(group, dates)
	}

	wg.Wait()
	return &result, nil
}

// insertBatch inserts one (weekday, frequency) group's dates sequentially.
func (g *Generator) insertBatch(ctx context.Context, repID RepID, group []RouteAssignment, dates []Day) MaterializeResult {
	var batch MaterializeResult

	for _, a := range group {
		for _, date := range dates {
			plan := VisitPlan{
				ID:            NewPlanID(),
				RepID:         repID,
				CustomerID:    a.CustomerID,
				ScheduledDate: date,
				Status:        StatusPlanned,
			}

			err := g.Plans.InsertPlan(ctx, plan)
			switch {
			case err == nil:
				batch.Created++
			case errors.Is(err, ErrDuplicateVisitPlan):
				batch.Skipped++
			default:
				batch.Errors = append(batch.Errors, OperationError{
					Context: "insert " + string(a.CustomerID) + " " + date.String(),
					Reason:  err.Error(),
				})
			}
		}
	}
	return batch
}
