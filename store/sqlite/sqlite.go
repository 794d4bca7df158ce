/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements route.TxStore and route.IdentityResolver using SQLite. The
  same patterns apply to PostgreSQL - only minor SQL dialect differences.

INTERFACES IMPLEMENTED:
  route.AssignmentStore:  Static weekly route rows
  route.PlanStore:        Dated visit plan rows
  route.TxStore:          Atomic save cycle
  route.IdentityResolver: Representative/customer existence checks

KEY TABLES:
  representatives:   Rep records (owned by a collaborator, mirrored here)
  customers:         Customer records (same)
  route_assignments: (rep, customer, weekday) → frequency
  visit_plans:       One row per concrete scheduled visit

INVARIANT ENFORCEMENT:
  Both engine invariants live in the schema, not just in code:
  - idx_unique_assignment: one assignment per (rep, customer, weekday)
  - idx_unique_visit_date: one plan per (rep, customer, scheduled_date)
  Plan deletes carry "status = 'PLANNED'" in their WHERE clause, so
  COMPLETED/CANCELLED history cannot be removed through this store.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging): multiple readers don't
  block, single writer at a time, better crash recovery.

USAGE:
  store, err := sqlite.New("./data/routes.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()
  ctrl := route.NewController(store, store)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - route/store.go: Interface definitions
  - route/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/fieldops/route-engine/route"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Representatives (field sales force)
	CREATE TABLE IF NOT EXISTS representatives (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		territory TEXT,
		created_at TEXT NOT NULL
	);

	-- Customers (pharmacies, clinics, wholesalers)
	CREATE TABLE IF NOT EXISTS customers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		city TEXT,
		created_at TEXT NOT NULL
	);

	-- Route assignments (the static weekly route)
	CREATE TABLE IF NOT EXISTS route_assignments (
		id TEXT PRIMARY KEY,
		rep_id TEXT NOT NULL,
		customer_id TEXT NOT NULL,
		weekday TEXT NOT NULL,
		frequency TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	-- CRITICAL: at most one assignment per (rep, customer, weekday)
	CREATE UNIQUE INDEX IF NOT EXISTS idx_unique_assignment
		ON route_assignments(rep_id, customer_id, weekday);
	CREATE INDEX IF NOT EXISTS idx_assignments_rep
		ON route_assignments(rep_id);

	-- Visit plans (concrete dated visits)
	CREATE TABLE IF NOT EXISTS visit_plans (
		id TEXT PRIMARY KEY,
		rep_id TEXT NOT NULL,
		customer_id TEXT NOT NULL,
		scheduled_date TEXT NOT NULL,
		weekday TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'PLANNED',
		linked_order_id TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- CRITICAL: one plan per (rep, customer, date), any status.
	-- Materialization relies on this index for idempotent inserts.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_unique_visit_date
		ON visit_plans(rep_id, customer_id, scheduled_date);

	-- Calendar queries (hot path)
	CREATE INDEX IF NOT EXISTS idx_plans_rep_date
		ON visit_plans(rep_id, scheduled_date);

	-- Assignment-scoped deletes and status filtering
	CREATE INDEX IF NOT EXISTS idx_plans_rep_customer_weekday
		ON visit_plans(rep_id, customer_id, weekday, status);
	`

	_, err := s.db.Exec(schema)
	return err
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// ASSIGNMENT STORE (route.AssignmentStore interface)
// =============================================================================

// ListAssignments returns a rep's full route.
func (s *Store) ListAssignments(ctx context.Context, repID route.RepID) ([]route.RouteAssignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listAssignments(ctx, s.db, repID)
}

func listAssignments(ctx context.Context, q queryer, repID route.RepID) ([]route.RouteAssignment, error) {
	query := `
		SELECT id, rep_id, customer_id, weekday, frequency
		FROM route_assignments
		WHERE rep_id = ?
		ORDER BY
			CASE weekday
				WHEN 'MON' THEN 0 WHEN 'TUE' THEN 1 WHEN 'WED' THEN 2
				WHEN 'THU' THEN 3 WHEN 'FRI' THEN 4 WHEN 'SAT' THEN 5
				ELSE 6
			END, customer_id
	`

	rows, err := q.QueryContext(ctx, query, repID)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignments: %w", err)
	}
	defer rows.Close()

	var assignments []route.RouteAssignment
	for rows.Next() {
		var (
			a                  route.RouteAssignment
			weekday, frequency string
		)
		if err := rows.Scan(&a.ID, &a.RepID, &a.CustomerID, &weekday, &frequency); err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		if a.Weekday, err = route.ParseWeekday(weekday); err != nil {
			return nil, err
		}
		if a.Frequency, err = route.ParseFrequency(frequency); err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}

// SaveAssignment upserts on the (rep, customer, weekday) natural key.
func (s *Store) SaveAssignment(ctx context.Context, a route.RouteAssignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveAssignment(ctx, s.db, a)
}

func saveAssignment(ctx context.Context, q queryer, a route.RouteAssignment) error {
	if a.ID == "" {
		a.ID = fmt.Sprintf("ra-%s-%s-%s", a.RepID, a.CustomerID, a.Weekday)
	}

	query := `
		INSERT INTO route_assignments (id, rep_id, customer_id, weekday, frequency, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(rep_id, customer_id, weekday) DO UPDATE SET
			frequency = excluded.frequency
	`

	_, err := q.ExecContext(ctx, query,
		a.ID, a.RepID, a.CustomerID,
		a.Weekday.String(), a.Frequency.String(),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save assignment: %w", err)
	}
	return nil
}

// DeleteAssignment removes one assignment. Missing rows are not an error.
func (s *Store) DeleteAssignment(ctx context.Context, repID route.RepID, key route.AssignmentKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteAssignment(ctx, s.db, repID, key)
}

func deleteAssignment(ctx context.Context, q queryer, repID route.RepID, key route.AssignmentKey) error {
	_, err := q.ExecContext(ctx,
		"DELETE FROM route_assignments WHERE rep_id = ? AND customer_id = ? AND weekday = ?",
		repID, key.CustomerID, key.Weekday.String(),
	)
	return err
}

// =============================================================================
// PLAN STORE (route.PlanStore interface)
// =============================================================================

// InsertPlan adds a PLANNED row; duplicates on the natural key are reported
// as route.ErrDuplicateVisitPlan for the generator to count as skips.
func (s *Store) InsertPlan(ctx context.Context, p route.VisitPlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertPlan(ctx, s.db, p)
}

func insertPlan(ctx context.Context, q queryer, p route.VisitPlan) error {
	now := time.Now().UTC().Format(time.RFC3339)
	query := `
		INSERT INTO visit_plans
		(id, rep_id, customer_id, scheduled_date, weekday, status, linked_order_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := q.ExecContext(ctx, query,
		p.ID, p.RepID, p.CustomerID,
		p.ScheduledDate.String(), p.ScheduledDate.Weekday().String(),
		string(p.Status), nullString(p.LinkedOrderID), now, now,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return &route.DuplicatePlanError{RepID: p.RepID, CustomerID: p.CustomerID, Date: p.ScheduledDate}
		}
		return fmt.Errorf("failed to insert visit plan: %w", err)
	}
	return nil
}

// ListPlans returns a rep's plans in [from, to].
func (s *Store) ListPlans(ctx context.Context, repID route.RepID, from, to route.Day) ([]route.VisitPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listPlans(ctx, s.db, repID, from, to)
}

func listPlans(ctx context.Context, q queryer, repID route.RepID, from, to route.Day) ([]route.VisitPlan, error) {
	query := `
		SELECT id, rep_id, customer_id, scheduled_date, status, linked_order_id
		FROM visit_plans
		WHERE rep_id = ? AND scheduled_date >= ? AND scheduled_date <= ?
		ORDER BY scheduled_date ASC, customer_id ASC
	`
	return queryPlans(ctx, q, query, repID, from.String(), to.String())
}

// ListPlannedByAssignment returns future PLANNED rows for one assignment.
func (s *Store) ListPlannedByAssignment(ctx context.Context, repID route.RepID, key route.AssignmentKey, onOrAfter route.Day) ([]route.VisitPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listPlannedByAssignment(ctx, s.db, repID, key, onOrAfter)
}

func listPlannedByAssignment(ctx context.Context, q queryer, repID route.RepID, key route.AssignmentKey, onOrAfter route.Day) ([]route.VisitPlan, error) {
	query := `
		SELECT id, rep_id, customer_id, scheduled_date, status, linked_order_id
		FROM visit_plans
		WHERE rep_id = ? AND customer_id = ? AND weekday = ?
		  AND status = 'PLANNED' AND scheduled_date >= ?
		ORDER BY scheduled_date ASC, customer_id ASC
	`

	return queryPlans(ctx, q, query, repID, key.CustomerID, key.Weekday.String(), onOrAfter.String())
}

// DeletePlannedByAssignment removes still-PLANNED future rows for one
// assignment. History stays untouched via the status filter.
func (s *Store) DeletePlannedByAssignment(ctx context.Context, repID route.RepID, key route.AssignmentKey, onOrAfter route.Day) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deletePlannedByAssignment(ctx, s.db, repID, key, onOrAfter)
}

func deletePlannedByAssignment(ctx context.Context, q queryer, repID route.RepID, key route.AssignmentKey, onOrAfter route.Day) (int, error) {
	res, err := q.ExecContext(ctx, `
		DELETE FROM visit_plans
		WHERE rep_id = ? AND customer_id = ? AND weekday = ?
		  AND status = 'PLANNED' AND scheduled_date >= ?
	`, repID, key.CustomerID, key.Weekday.String(), onOrAfter.String())
	if err != nil {
		return 0, fmt.Errorf("failed to delete visit plans: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// DeletePlannedOnDates removes PLANNED rows on exactly the given dates.
func (s *Store) DeletePlannedOnDates(ctx context.Context, repID route.RepID, customerID route.CustomerID, dates []route.Day) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deletePlannedOnDates(ctx, s.db, repID, customerID, dates)
}

func deletePlannedOnDates(ctx context.Context, q queryer, repID route.RepID, customerID route.CustomerID, dates []route.Day) (int, error) {
	if len(dates) == 0 {
		return 0, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(dates)), ",")

	args := []any{repID, customerID}
	for _, d := range dates {
		args = append(args, d.String())
	}

	res, err := q.ExecContext(ctx, fmt.Sprintf(`
		DELETE FROM visit_plans
		WHERE rep_id = ? AND customer_id = ? AND status = 'PLANNED'
		  AND scheduled_date IN (%s)
	`, placeholders), args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete visit plans: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// SetPlanStatus transitions a PLANNED row to COMPLETED/CANCELLED.
func (s *Store) SetPlanStatus(ctx context.Context, id route.PlanID, status route.VisitStatus, linkedOrderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return setPlanStatus(ctx, s.db, id, status, linkedOrderID)
}

func setPlanStatus(ctx context.Context, q queryer, id route.PlanID, status route.VisitStatus, linkedOrderID string) error {
	res, err := q.ExecContext(ctx, `
		UPDATE visit_plans
		SET status = ?,
		    linked_order_id = COALESCE(NULLIF(?, ''), linked_order_id),
		    updated_at = ?
		WHERE id = ? AND status = 'PLANNED'
	`, string(status), linkedOrderID, time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("failed to update visit plan: %w", err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		// Missing row vs immutable row: look it up to report the right error.
		var existing string
		err := q.QueryRowContext(ctx, "SELECT status FROM visit_plans WHERE id = ?", id).Scan(&existing)
		if err == sql.ErrNoRows {
			return route.ErrPlanNotFound
		}
		if err != nil {
			return err
		}
		return route.ErrPlanImmutable
	}
	return nil
}

func queryPlans(ctx context.Context, q queryer, query string, args ...any) ([]route.VisitPlan, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query visit plans: %w", err)
	}
	defer rows.Close()

	var plans []route.VisitPlan
	for rows.Next() {
		var (
			p             route.VisitPlan
			scheduledDate string
			status        string
			linkedOrderID sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.RepID, &p.CustomerID, &scheduledDate, &status, &linkedOrderID); err != nil {
			return nil, fmt.Errorf("failed to scan visit plan: %w", err)
		}
		if p.ScheduledDate, err = route.ParseDay(scheduledDate); err != nil {
			return nil, fmt.Errorf("failed to parse scheduled date: %w", err)
		}
		p.Status = route.VisitStatus(status)
		p.LinkedOrderID = linkedOrderID.String
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

// =============================================================================
// TRANSACTIONAL STORE (route.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(route.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) ListAssignments(ctx context.Context, repID route.RepID) ([]route.RouteAssignment, error) {
	return listAssignments(ctx, ts.tx, repID)
}

func (ts *txStore) SaveAssignment(ctx context.Context, a route.RouteAssignment) error {
	return saveAssignment(ctx, ts.tx, a)
}

func (ts *txStore) DeleteAssignment(ctx context.Context, repID route.RepID, key route.AssignmentKey) error {
	return deleteAssignment(ctx, ts.tx, repID, key)
}

func (ts *txStore) InsertPlan(ctx context.Context, p route.VisitPlan) error {
	return insertPlan(ctx, ts.tx, p)
}

func (ts *txStore) ListPlans(ctx context.Context, repID route.RepID, from, to route.Day) ([]route.VisitPlan, error) {
	return listPlans(ctx, ts.tx, repID, from, to)
}

func (ts *txStore) ListPlannedByAssignment(ctx context.Context, repID route.RepID, key route.AssignmentKey, onOrAfter route.Day) ([]route.VisitPlan, error) {
	return listPlannedByAssignment(ctx, ts.tx, repID, key, onOrAfter)
}

func (ts *txStore) DeletePlannedByAssignment(ctx context.Context, repID route.RepID, key route.AssignmentKey, onOrAfter route.Day) (int, error) {
	return deletePlannedByAssignment(ctx, ts.tx, repID, key, onOrAfter)
}

func (ts *txStore) DeletePlannedOnDates(ctx context.Context, repID route.RepID, customerID route.CustomerID, dates []route.Day) (int, error) {
	return deletePlannedOnDates(ctx, ts.tx, repID, customerID, dates)
}

func (ts *txStore) SetPlanStatus(ctx context.Context, id route.PlanID, status route.VisitStatus, linkedOrderID string) error {
	return setPlanStatus(ctx, ts.tx, id, status, linkedOrderID)
}

// =============================================================================
// REPRESENTATIVE STORE
// =============================================================================

// Representative mirrors the collaborator-owned rep record.
type Representative struct {
	ID        string
	Name      string
	Territory string
	CreatedAt time.Time
}

// SaveRepresentative saves a representative.
func (s *Store) SaveRepresentative(ctx context.Context, r Representative) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO representatives (id, name, territory, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			territory = excluded.territory
	`

	_, err := s.db.ExecContext(ctx, query,
		r.ID, r.Name, r.Territory,
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// GetRepresentative retrieves a representative by ID. Returns nil if missing.
func (s *Store) GetRepresentative(ctx context.Context, id string) (*Representative, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var r Representative
	var territory sql.NullString
	var createdAt string

	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, territory, created_at FROM representatives WHERE id = ?",
		id,
	).Scan(&r.ID, &r.Name, &territory, &createdAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	r.Territory = territory.String
	r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &r, nil
}

// ListRepresentatives returns all representatives.
func (s *Store) ListRepresentatives(ctx context.Context) ([]Representative, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, territory, created_at FROM representatives ORDER BY name",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reps []Representative
	for rows.Next() {
		var r Representative
		var territory sql.NullString
		var createdAt string
		if err := rows.Scan(&r.ID, &r.Name, &territory, &createdAt); err != nil {
			return nil, err
		}
		r.Territory = territory.String
		r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		reps = append(reps, r)
	}
	return reps, rows.Err()
}

// =============================================================================
// CUSTOMER STORE
// =============================================================================

// Customer mirrors the collaborator-owned customer record.
type Customer struct {
	ID        string
	Name      string
	City      string
	CreatedAt time.Time
}

// SaveCustomer saves a customer.
func (s *Store) SaveCustomer(ctx context.Context, c Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO customers (id, name, city, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			city = excluded.city
	`

	_, err := s.db.ExecContext(ctx, query,
		c.ID, c.Name, c.City,
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// ListCustomers returns all customers.
func (s *Store) ListCustomers(ctx context.Context) ([]Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, city, created_at FROM customers ORDER BY name",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var customers []Customer
	for rows.Next() {
		var c Customer
		var city sql.NullString
		var createdAt string
		if err := rows.Scan(&c.ID, &c.Name, &city, &createdAt); err != nil {
			return nil, err
		}
		c.City = city.String
		c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

// =============================================================================
// IDENTITY RESOLVER (route.IdentityResolver interface)
// =============================================================================

// RepExists checks whether a representative record exists.
func (s *Store) RepExists(ctx context.Context, id route.RepID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM representatives WHERE id = ?", id,
	).Scan(&count)
	return count > 0, err
}

// CustomerExists checks whether a customer record exists.
func (s *Store) CustomerExists(ctx context.Context, id route.CustomerID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM customers WHERE id = ?", id,
	).Scan(&count)
	return count > 0, err
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"visit_plans", "route_assignments", "customers", "representatives"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}
