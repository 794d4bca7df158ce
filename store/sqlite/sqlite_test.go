package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldops/route-engine/route"
	"github.com/fieldops/route-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testAssignment(customer string, w route.Weekday, f route.Frequency) route.RouteAssignment {
	return route.RouteAssignment{
		RepID:      "rep-1",
		CustomerID: route.CustomerID(customer),
		Weekday:    w,
		Frequency:  f,
	}
}

func testPlan(customer string, year int, month time.Month, day int) route.VisitPlan {
	return route.VisitPlan{
		ID:            route.NewPlanID(),
		RepID:         "rep-1",
		CustomerID:    route.CustomerID(customer),
		ScheduledDate: route.NewDay(year, month, day),
		Status:        route.StatusPlanned,
	}
}

// =============================================================================
// ASSIGNMENT STORE TESTS
// =============================================================================

func TestSQLite_SaveAndListAssignments(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveAssignment(ctx, testAssignment("C2", route.Friday, route.BiweeklyOdd)))
	require.NoError(t, store.SaveAssignment(ctx, testAssignment("C1", route.Tuesday, route.Weekly)))

	got, err := store.ListAssignments(ctx, "rep-1")
	require.NoError(t, err)
	require.Len(t, got, 2)

	// Ordered by weekday then customer
	assert.Equal(t, route.CustomerID("C1"), got[0].CustomerID)
	assert.Equal(t, route.Tuesday, got[0].Weekday)
	assert.Equal(t, route.CustomerID("C2"), got[1].CustomerID)
	assert.Equal(t, route.BiweeklyOdd, got[1].Frequency)
}

func TestSQLite_SaveAssignment_UpsertsFrequency(t *testing.T) {
	// Saving the same (rep, customer, weekday) twice updates the frequency
	// in place instead of violating the unique index.
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveAssignment(ctx, testAssignment("C1", route.Tuesday, route.Weekly)))
	require.NoError(t, store.SaveAssignment(ctx, testAssignment("C1", route.Tuesday, route.BiweeklyEven)))

	got, err := store.ListAssignments(ctx, "rep-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, route.BiweeklyEven, got[0].Frequency)
}

func TestSQLite_DeleteAssignment(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	a := testAssignment("C1", route.Tuesday, route.Weekly)
	require.NoError(t, store.SaveAssignment(ctx, a))
	require.NoError(t, store.DeleteAssignment(ctx, "rep-1", a.Key()))

	got, err := store.ListAssignments(ctx, "rep-1")
	require.NoError(t, err)
	assert.Empty(t, got)

	// Deleting again is not an error
	require.NoError(t, store.DeleteAssignment(ctx, "rep-1", a.Key()))
}

func TestSQLite_AssignmentsScopedByRep(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	a := testAssignment("C1", route.Tuesday, route.Weekly)
	require.NoError(t, store.SaveAssignment(ctx, a))

	b := a
	b.RepID = "rep-2"
	require.NoError(t, store.SaveAssignment(ctx, b))

	got, err := store.ListAssignments(ctx, "rep-2")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, route.RepID("rep-2"), got[0].RepID)
}

// =============================================================================
// PLAN STORE TESTS
// =============================================================================

func TestSQLite_InsertPlan_DuplicateDateRejected(t *testing.T) {
	// The unique index on (rep, customer, date) turns a duplicate insert
	// into route.ErrDuplicateVisitPlan, which the generator counts as a skip.
	store := newTestStore(t)
	ctx := context.Background()

	p := testPlan("C1", 2024, time.January, 2)
	require.NoError(t, store.InsertPlan(ctx, p))

	dup := testPlan("C1", 2024, time.January, 2)
	err := store.InsertPlan(ctx, dup)
	require.Error(t, err)
	assert.True(t, errors.Is(err, route.ErrDuplicateVisitPlan))

	var dupErr *route.DuplicatePlanError
	require.True(t, errors.As(err, &dupErr))
	assert.Equal(t, "2024-01-02", dupErr.Date.String())
}

func TestSQLite_ListPlans_RangeInclusive(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.InsertPlan(ctx, testPlan("C1", 2024, time.January, 2)))
	require.NoError(t, store.InsertPlan(ctx, testPlan("C1", 2024, time.January, 9)))
	require.NoError(t, store.InsertPlan(ctx, testPlan("C1", 2024, time.January, 16)))

	got, err := store.ListPlans(ctx, "rep-1",
		route.NewDay(2024, time.January, 2), route.NewDay(2024, time.January, 9))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "2024-01-02", got[0].ScheduledDate.String())
	assert.Equal(t, "2024-01-09", got[1].ScheduledDate.String())
}

func TestSQLite_DeletePlannedByAssignment_PreservesHistory(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	done := testPlan("C1", 2024, time.January, 2)
	require.NoError(t, store.InsertPlan(ctx, done))
	require.NoError(t, store.InsertPlan(ctx, testPlan("C1", 2024, time.January, 9)))
	require.NoError(t, store.InsertPlan(ctx, testPlan("C1", 2024, time.January, 16)))

	require.NoError(t, store.SetPlanStatus(ctx, done.ID, route.StatusCompleted, "order-1"))

	key := route.AssignmentKey{CustomerID: "C1", Weekday: route.Tuesday}
	n, err := store.DeletePlannedByAssignment(ctx, "rep-1", key, route.NewDay(2024, time.January, 1))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	remaining, err := store.ListPlans(ctx, "rep-1",
		route.NewDay(2024, time.January, 1), route.NewDay(2024, time.January, 31))
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, route.StatusCompleted, remaining[0].Status)
	assert.Equal(t, "order-1", remaining[0].LinkedOrderID)
}

func TestSQLite_DeletePlannedByAssignment_OnlyOnOrAfterCutoff(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.InsertPlan(ctx, testPlan("C1", 2024, time.January, 2)))
	require.NoError(t, store.InsertPlan(ctx, testPlan("C1", 2024, time.January, 9)))

	key := route.AssignmentKey{CustomerID: "C1", Weekday: route.Tuesday}
	n, err := store.DeletePlannedByAssignment(ctx, "rep-1", key, route.NewDay(2024, time.January, 5))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	remaining, err := store.ListPlans(ctx, "rep-1",
		route.NewDay(2024, time.January, 1), route.NewDay(2024, time.January, 31))
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "2024-01-02", remaining[0].ScheduledDate.String())
}

func TestSQLite_DeletePlannedOnDates(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.InsertPlan(ctx, testPlan("C1", 2024, time.January, 2)))
	require.NoError(t, store.InsertPlan(ctx, testPlan("C1", 2024, time.January, 9)))
	require.NoError(t, store.InsertPlan(ctx, testPlan("C1", 2024, time.January, 16)))

	n, err := store.DeletePlannedOnDates(ctx, "rep-1", "C1", []route.Day{
		route.NewDay(2024, time.January, 9),
		route.NewDay(2024, time.January, 16),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	remaining, err := store.ListPlans(ctx, "rep-1",
		route.NewDay(2024, time.January, 1), route.NewDay(2024, time.January, 31))
	require.NoError(t, err)
	require.Len(t, remaining, 1)
}

func TestSQLite_SetPlanStatus_Errors(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.SetPlanStatus(ctx, "missing", route.StatusCancelled, "")
	assert.True(t, errors.Is(err, route.ErrPlanNotFound))

	p := testPlan("C1", 2024, time.January, 2)
	require.NoError(t, store.InsertPlan(ctx, p))
	require.NoError(t, store.SetPlanStatus(ctx, p.ID, route.StatusCompleted, ""))

	err = store.SetPlanStatus(ctx, p.ID, route.StatusCancelled, "")
	assert.True(t, errors.Is(err, route.ErrPlanImmutable))
}

// =============================================================================
// TRANSACTION TESTS
// =============================================================================

func TestSQLite_WithTx_RollsBackOnError(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := store.WithTx(ctx, func(s route.Store) error {
		if err := s.SaveAssignment(ctx, testAssignment("C1", route.Tuesday, route.Weekly)); err != nil {
			return err
		}
		if err := s.InsertPlan(ctx, testPlan("C1", 2024, time.January, 2)); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	assignments, err := store.ListAssignments(ctx, "rep-1")
	require.NoError(t, err)
	assert.Empty(t, assignments)

	plans, err := store.ListPlans(ctx, "rep-1",
		route.NewDay(2024, time.January, 1), route.NewDay(2024, time.January, 31))
	require.NoError(t, err)
	assert.Empty(t, plans)
}

func TestSQLite_WithTx_CommitsOnSuccess(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.WithTx(ctx, func(s route.Store) error {
		return s.SaveAssignment(ctx, testAssignment("C1", route.Tuesday, route.Weekly))
	})
	require.NoError(t, err)

	assignments, err := store.ListAssignments(ctx, "rep-1")
	require.NoError(t, err)
	assert.Len(t, assignments, 1)
}

// =============================================================================
// IDENTITY TESTS
// =============================================================================

func TestSQLite_IdentityResolver(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveRepresentative(ctx, sqlite.Representative{ID: "rep-1", Name: "Dana", Territory: "North"}))
	require.NoError(t, store.SaveCustomer(ctx, sqlite.Customer{ID: "C1", Name: "Central Pharmacy", City: "Leiden"}))

	ok, err := store.RepExists(ctx, "rep-1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.RepExists(ctx, "ghost")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = store.CustomerExists(ctx, "C1")
	require.NoError(t, err)
	assert.True(t, ok)

	rep, err := store.GetRepresentative(ctx, "rep-1")
	require.NoError(t, err)
	require.NotNil(t, rep)
	assert.Equal(t, "North", rep.Territory)

	missing, err := store.GetRepresentative(ctx, "ghost")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

// =============================================================================
// END-TO-END: CONTROLLER ON SQLITE
// =============================================================================

func TestSQLite_FullSaveCycle(t *testing.T) {
	// The same save cycle the API runs, against the real schema: unique
	// indexes enforce the one-visit-per-day invariant instead of app code.
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveRepresentative(ctx, sqlite.Representative{ID: "rep-1", Name: "Dana"}))
	require.NoError(t, store.SaveCustomer(ctx, sqlite.Customer{ID: "C1", Name: "Central Pharmacy"}))

	ctrl := route.NewController(store, store)
	now := route.NewDay(2024, time.January, 1)

	result, err := ctrl.SaveRoute(ctx, "rep-1", []route.RouteAssignment{
		{CustomerID: "C1", Weekday: route.Tuesday, Frequency: route.Weekly},
	}, now)
	require.NoError(t, err)
	assert.Equal(t, 1, result.CreatedAssignments)
	assert.Equal(t, 4, result.MaterializedVisits)
	assert.Empty(t, result.Errors)

	// Idempotent re-save
	result, err = ctrl.SaveRoute(ctx, "rep-1", []route.RouteAssignment{
		{CustomerID: "C1", Weekday: route.Tuesday, Frequency: route.Weekly},
	}, now)
	require.NoError(t, err)
	assert.Equal(t, 0, result.CreatedAssignments)
	assert.Equal(t, 0, result.MaterializedVisits)
	assert.Equal(t, 4, result.SkippedVisits)
}
