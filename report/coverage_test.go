package report_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldops/route-engine/report"
	"github.com/fieldops/route-engine/route"
	"github.com/fieldops/route-engine/route/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func seedPlan(t *testing.T, mem *store.Memory, customer string, day int, status route.VisitStatus) {
	t.Helper()
	p := route.VisitPlan{
		ID:            route.NewPlanID(),
		RepID:         "rep-1",
		CustomerID:    route.CustomerID(customer),
		ScheduledDate: route.NewDay(2024, time.January, day),
		Status:        route.StatusPlanned,
	}
	require.NoError(t, mem.InsertPlan(context.Background(), p))
	if status != route.StatusPlanned {
		require.NoError(t, mem.SetPlanStatus(context.Background(), p.ID, status, ""))
	}
}

func january() (route.Day, route.Day) {
	return route.NewDay(2024, time.January, 1), route.NewDay(2024, time.January, 31)
}

// =============================================================================
// COVERAGE TESTS
// =============================================================================

func TestCoverage_EmptyPeriod(t *testing.T) {
	mem := store.NewMemory()
	calc := report.NewCalculator(mem)
	from, to := january()

	cov, err := calc.Coverage(context.Background(), "rep-1", from, to)
	require.NoError(t, err)

	assert.Equal(t, 0, cov.Total)
	assert.True(t, cov.CompletionRate.IsZero())
	assert.True(t, cov.CancellationRate.IsZero())
	assert.Empty(t, cov.Customers)
}

func TestCoverage_CountsByStatus(t *testing.T) {
	mem := store.NewMemory()
	seedPlan(t, mem, "C1", 2, route.StatusCompleted)
	seedPlan(t, mem, "C1", 9, route.StatusCompleted)
	seedPlan(t, mem, "C1", 16, route.StatusCancelled)
	seedPlan(t, mem, "C1", 23, route.StatusPlanned)

	calc := report.NewCalculator(mem)
	from, to := january()

	cov, err := calc.Coverage(context.Background(), "rep-1", from, to)
	require.NoError(t, err)

	assert.Equal(t, 4, cov.Total)
	assert.Equal(t, 2, cov.Completed)
	assert.Equal(t, 1, cov.Cancelled)
	assert.Equal(t, 1, cov.Planned)

	// Exact decimal rates, no float drift
	assert.Equal(t, "0.5", cov.CompletionRate.String())
	assert.Equal(t, "0.25", cov.CancellationRate.String())
}

func TestCoverage_RepeatingDecimalRounded(t *testing.T) {
	// 1 completed out of 3 must come out as 0.3333, not a float artifact.
	mem := store.NewMemory()
	seedPlan(t, mem, "C1", 2, route.StatusCompleted)
	seedPlan(t, mem, "C1", 9, route.StatusPlanned)
	seedPlan(t, mem, "C1", 16, route.StatusPlanned)

	calc := report.NewCalculator(mem)
	from, to := january()

	cov, err := calc.Coverage(context.Background(), "rep-1", from, to)
	require.NoError(t, err)
	assert.Equal(t, "0.3333", cov.CompletionRate.String())
}

func TestCoverage_PerCustomerBreakdown(t *testing.T) {
	mem := store.NewMemory()
	seedPlan(t, mem, "C2", 3, route.StatusCompleted)
	seedPlan(t, mem, "C1", 2, route.StatusCompleted)
	seedPlan(t, mem, "C1", 9, route.StatusCancelled)

	calc := report.NewCalculator(mem)
	from, to := january()

	cov, err := calc.Coverage(context.Background(), "rep-1", from, to)
	require.NoError(t, err)
	require.Len(t, cov.Customers, 2)

	// Sorted by customer id
	assert.Equal(t, route.CustomerID("C1"), cov.Customers[0].CustomerID)
	assert.Equal(t, "0.5", cov.Customers[0].CompletionRate.String())
	assert.Equal(t, route.CustomerID("C2"), cov.Customers[1].CustomerID)
	assert.Equal(t, "1", cov.Customers[1].CompletionRate.String())
}

func TestCoverage_RangeExcludesOutsidePlans(t *testing.T) {
	mem := store.NewMemory()
	seedPlan(t, mem, "C1", 2, route.StatusCompleted)

	p := route.VisitPlan{
		ID:            route.NewPlanID(),
		RepID:         "rep-1",
		CustomerID:    "C1",
		ScheduledDate: route.NewDay(2024, time.February, 6),
		Status:        route.StatusPlanned,
	}
	require.NoError(t, mem.InsertPlan(context.Background(), p))

	calc := report.NewCalculator(mem)
	from, to := january()

	cov, err := calc.Coverage(context.Background(), "rep-1", from, to)
	require.NoError(t, err)
	assert.Equal(t, 1, cov.Total)
}
