/*
Package report computes territory coverage summaries from visit plans.

PURPOSE:
  Turns the raw visit-plan calendar into the numbers field managers track:
  how many visits were planned, how many happened, how many fell through,
  per rep and per customer, over an arbitrary date range.

PRECISION:
  Rates are computed with decimal.Decimal rather than float64 so a
  33-visit month doesn't report 0.30303030303030304 coverage. Values are
  rounded to four decimal places.

SEE ALSO:
  - route/store.go: PlanStore, the only input this package reads
*/
package report

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/fieldops/route-engine/route"
)

// =============================================================================
// COVERAGE SUMMARY
// =============================================================================

// Coverage summarizes one rep's visit execution over a period.
type Coverage struct {
	RepID route.RepID
	From  route.Day
	To    route.Day

	Planned   int // still PLANNED (not yet executed)
	Completed int
	Cancelled int
	Total     int

	// CompletionRate = completed / total, CancellationRate = cancelled / total.
	// Zero when the period has no visits at all.
	CompletionRate   decimal.Decimal
	CancellationRate decimal.Decimal

	Customers []CustomerCoverage
}

// CustomerCoverage is the per-customer breakdown.
type CustomerCoverage struct {
	CustomerID     route.CustomerID
	Planned        int
	Completed      int
	Cancelled      int
	CompletionRate decimal.Decimal
}

// =============================================================================
// CALCULATOR
// =============================================================================

const ratePlaces = 4

type Calculator struct {
	Plans route.PlanStore
}

func NewCalculator(plans route.PlanStore) *Calculator {
	return &Calculator{Plans: plans}
}

// Coverage computes the summary for one rep over [from, to].
func (c *Calculator) Coverage(ctx context.Context, repID route.RepID, from, to route.Day) (*Coverage, error) {
	plans, err := c.Plans.ListPlans(ctx, repID, from, to)
	if err != nil {
		return nil, err
	}

	cov := &Coverage{
		RepID:            repID,
		From:             from,
		To:               to,
		CompletionRate:   decimal.Zero,
		CancellationRate: decimal.Zero,
	}

	byCustomer := make(map[route.CustomerID]*CustomerCoverage)
	for _, p := range plans {
		cc := byCustomer[p.CustomerID]
		if cc == nil {
			cc = &CustomerCoverage{CustomerID: p.CustomerID}
			byCustomer[p.CustomerID] = cc
		}

		switch p.Status {
		case route.StatusPlanned:
			cov.Planned++
			cc.Planned++
		case route.StatusCompleted:
			cov.Completed++
			cc.Completed++
		case route.StatusCancelled:
			cov.Cancelled++
			cc.Cancelled++
		}
		cov.Total++
	}

	if cov.Total > 0 {
		total := decimal.NewFromInt(int64(cov.Total))
		cov.CompletionRate = decimal.NewFromInt(int64(cov.Completed)).Div(total).Round(ratePlaces)
		cov.CancellationRate = decimal.NewFromInt(int64(cov.Cancelled)).Div(total).Round(ratePlaces)
	}

	for _, cc := range byCustomer {
		cc.CompletionRate = rate(cc.Completed, cc.Planned+cc.Completed+cc.Cancelled)
		cov.Customers = append(cov.Customers, *cc)
	}
	sort.Slice(cov.Customers, func(i, j int) bool {
		return cov.Customers[i].CustomerID < cov.Customers[j].CustomerID
	})

	return cov, nil
}

func rate(part, total int) decimal.Decimal {
	if total == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(part)).Div(decimal.NewFromInt(int64(total))).Round(ratePlaces)
}
