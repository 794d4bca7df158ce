// Package store provides Store implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/fieldops/route-engine/route"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu          sync.RWMutex
	assignments map[route.RepID]map[route.AssignmentKey]route.RouteAssignment
	plans       map[planKey]route.VisitPlan
	plansByID   map[route.PlanID]planKey
	reps        map[route.RepID]bool
	customers   map[route.CustomerID]bool
}

type planKey struct {
	RepID      route.RepID
	CustomerID route.CustomerID
	Date       string // YYYY-MM-DD
}

func NewMemory() *Memory {
	return &Memory{
		assignments: make(map[route.RepID]map[route.AssignmentKey]route.RouteAssignment),
		plans:       make(map[planKey]route.VisitPlan),
		plansByID:   make(map[route.PlanID]planKey),
		reps:        make(map[route.RepID]bool),
		customers:   make(map[route.CustomerID]bool),
	}
}

// =============================================================================
// IDENTITY RESOLVER
// =============================================================================

// RegisterRep and RegisterCustomer seed the resolver for tests/dev.
func (m *Memory) RegisterRep(id route.RepID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reps[id] = true
}

func (m *Memory) RegisterCustomer(id route.CustomerID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.customers[id] = true
}

func (m *Memory) RepExists(_ context.Context, id route.RepID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.reps[id], nil
}

func (m *Memory) CustomerExists(_ context.Context, id route.CustomerID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.customers[id], nil
}

// =============================================================================
// ASSIGNMENT STORE
// =============================================================================

func (m *Memory) ListAssignments(_ context.Context, repID route.RepID) ([]route.RouteAssignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []route.RouteAssignment
	for _, a := range m.assignments[repID] {
		result = append(result, a)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Weekday != result[j].Weekday {
			return result[i].Weekday < result[j].Weekday
		}
		return result[i].CustomerID < result[j].CustomerID
	})
	return result, nil
}

func (m *Memory) SaveAssignment(_ context.Context, a route.RouteAssignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveAssignmentLocked(a)
	return nil
}

func (m *Memory) saveAssignmentLocked(a route.RouteAssignment) {
	byKey := m.assignments[a.RepID]
	if byKey == nil {
		byKey = make(map[route.AssignmentKey]route.RouteAssignment)
		m.assignments[a.RepID] = byKey
	}
	// Upsert on natural key: keep the existing row id if there is one.
	if existing, ok := byKey[a.Key()]; ok && a.ID == "" {
		a.ID = existing.ID
	}
	byKey[a.Key()] = a
}

func (m *Memory) DeleteAssignment(_ context.Context, repID route.RepID, key route.AssignmentKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.assignments[repID], key)
	return nil
}

// =============================================================================
// PLAN STORE
// =============================================================================

func (m *Memory) InsertPlan(_ context.Context, p route.VisitPlan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertPlanLocked(p)
}

func (m *Memory) insertPlanLocked(p route.VisitPlan) error {
	k := planKey{RepID: p.RepID, CustomerID: p.CustomerID, Date: p.ScheduledDate.String()}
	if _, ok := m.plans[k]; ok {
		return &route.DuplicatePlanError{RepID: p.RepID, CustomerID: p.CustomerID, Date: p.ScheduledDate}
	}
	m.plans[k] = p
	m.plansByID[p.ID] = k
	return nil
}

func (m *Memory) ListPlans(_ context.Context, repID route.RepID, from, to route.Day) ([]route.VisitPlan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []route.VisitPlan
	for _, p := range m.plans {
		if p.RepID == repID && from.BeforeOrEqual(p.ScheduledDate) && p.ScheduledDate.BeforeOrEqual(to) {
			result = append(result, p)
		}
	}
	sortPlans(result)
	return result, nil
}

func (m *Memory) ListPlannedByAssignment(_ context.Context, repID route.RepID, key route.AssignmentKey, onOrAfter route.Day) ([]route.VisitPlan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []route.VisitPlan
	for _, p := range m.plans {
		if p.RepID == repID && p.CustomerID == key.CustomerID &&
			p.ScheduledDate.Weekday() == key.Weekday &&
			p.ScheduledDate.AfterOrEqual(onOrAfter) &&
			p.Status == route.StatusPlanned {
			result = append(result, p)
		}
	}
	sortPlans(result)
	return result, nil
}

func (m *Memory) DeletePlannedByAssignment(_ context.Context, repID route.RepID, key route.AssignmentKey, onOrAfter route.Day) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	deleted := 0
	for k, p := range m.plans {
		if p.RepID == repID && p.CustomerID == key.CustomerID &&
			p.ScheduledDate.Weekday() == key.Weekday &&
			p.ScheduledDate.AfterOrEqual(onOrAfter) &&
			p.Status == route.StatusPlanned {
			delete(m.plans, k)
			delete(m.plansByID, p.ID)
			deleted++
		}
	}
	return deleted, nil
}

func (m *Memory) DeletePlannedOnDates(_ context.Context, repID route.RepID, customerID route.CustomerID, dates []route.Day) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	deleted := 0
	for _, d := range dates {
		k := planKey{RepID: repID, CustomerID: customerID, Date: d.String()}
		if p, ok := m.plans[k]; ok && p.Status == route.StatusPlanned {
			delete(m.plans, k)
			delete(m.plansByID, p.ID)
			deleted++
		}
	}
	return deleted, nil
}

func (m *Memory) SetPlanStatus(_ context.Context, id route.PlanID, status route.VisitStatus, linkedOrderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k, ok := m.plansByID[id]
	if !ok {
		return route.ErrPlanNotFound
	}
	p := m.plans[k]
	if !p.Mutable() {
		return route.ErrPlanImmutable
	}
	p.Status = status
	if linkedOrderID != "" {
		p.LinkedOrderID = linkedOrderID
	}
	m.plans[k] = p
	return nil
}

func sortPlans(ps []route.VisitPlan) {
	sort.Slice(ps, func(i, j int) bool {
		if !ps[i].ScheduledDate.Equal(ps[j].ScheduledDate) {
			return ps[i].ScheduledDate.Before(ps[j].ScheduledDate)
		}
		return ps[i].CustomerID < ps[j].CustomerID
	})
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// TxMemory wraps Memory with transaction support, simulated with a
// snapshot + rollback on error.
type TxMemory struct {
	*Memory
	txMu sync.Mutex
}

func NewTxMemory() *TxMemory {
	return &TxMemory{Memory: NewMemory()}
}

func (tm *TxMemory) WithTx(ctx context.Context, fn func(route.Store) error) error {
	tm.txMu.Lock()
	defer tm.txMu.Unlock()

	snapshot := tm.snapshot()
	if err := fn(tm.Memory); err != nil {
		tm.restore(snapshot)
		return err
	}
	return nil
}

func (tm *TxMemory) snapshot() memorySnapshot {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	assignCopy := make(map[route.RepID]map[route.AssignmentKey]route.RouteAssignment, len(tm.assignments))
	for rep, byKey := range tm.assignments {
		inner := make(map[route.AssignmentKey]route.RouteAssignment, len(byKey))
		for k, v := range byKey {
			inner[k] = v
		}
		assignCopy[rep] = inner
	}
	plansCopy := make(map[planKey]route.VisitPlan, len(tm.plans))
	for k, v := range tm.plans {
		plansCopy[k] = v
	}
	byIDCopy := make(map[route.PlanID]planKey, len(tm.plansByID))
	for k, v := range tm.plansByID {
		byIDCopy[k] = v
	}
	return memorySnapshot{assignments: assignCopy, plans: plansCopy, plansByID: byIDCopy}
}

func (tm *TxMemory) restore(s memorySnapshot) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.assignments = s.assignments
	tm.plans = s.plans
	tm.plansByID = s.plansByID
}

type memorySnapshot struct {
	assignments map[route.RepID]map[route.AssignmentKey]route.RouteAssignment
	plans       map[planKey]route.VisitPlan
	plansByID   map[route.PlanID]planKey
}
