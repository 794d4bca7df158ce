/*
handlers.go - HTTP API handlers for the visit-scheduling engine

PURPOSE:
  Exposes the scheduling engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to the route
  controller and coverage calculator.

ENDPOINTS:
  Representatives:
    GET    /api/reps                   List representatives
    POST   /api/reps                   Create representative
    GET    /api/reps/{id}              Get representative
    GET    /api/reps/{id}/route        Current route assignments
    PUT    /api/reps/{id}/route        Save an edit session (full route)
    GET    /api/reps/{id}/visits       Visit plans in a date range
    GET    /api/reps/{id}/coverage     Coverage summary for a range

  Customers:
    GET    /api/customers              List customers
    POST   /api/customers              Create customer

  Visits (execution collaborator surface):
    POST   /api/visits/{id}/complete   Mark visit completed, link order
    POST   /api/visits/{id}/cancel     Mark visit cancelled

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Unknown rep/customer/plan
  - 409: Immutable history conflict
  - 500: Internal errors
  A route save with per-row failures is still a 200: the response carries
  the error list and callers must inspect it.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fieldops/route-engine/report"
	"github.com/fieldops/route-engine/route"
	"github.com/fieldops/route-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store      *sqlite.Store
	Controller *route.Controller
	Coverage   *report.Calculator
}

// NewHandler creates a new handler with the given store.
func NewHandler(store *sqlite.Store) *Handler {
	return &Handler{
		Store:      store,
		Controller: route.NewController(store, store),
		Coverage:   report.NewCalculator(store),
	}
}

// =============================================================================
// REPRESENTATIVE HANDLERS
// =============================================================================

// ListRepresentatives returns all representatives.
func (h *Handler) ListRepresentatives(w http.ResponseWriter, r *http.Request) {
	reps, err := h.Store.ListRepresentatives(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list representatives", err)
		return
	}

	dtos := make([]RepresentativeDTO, len(reps))
	for i, rep := range reps {
		dtos[i] = toRepresentativeDTO(rep)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateRepresentative creates a representative.
func (h *Handler) CreateRepresentative(w http.ResponseWriter, r *http.Request) {
	var req CreateRepresentativeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "id and name are required", nil)
		return
	}

	rep := sqlite.Representative{ID: req.ID, Name: req.Name, Territory: req.Territory}
	if err := h.Store.SaveRepresentative(r.Context(), rep); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create representative", err)
		return
	}
	writeJSON(w, http.StatusCreated, toRepresentativeDTO(rep))
}

// GetRepresentative returns one representative.
func (h *Handler) GetRepresentative(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rep, err := h.Store.GetRepresentative(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get representative", err)
		return
	}
	if rep == nil {
		writeError(w, http.StatusNotFound, "Representative not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toRepresentativeDTO(*rep))
}

// =============================================================================
// CUSTOMER HANDLERS
// =============================================================================

// ListCustomers returns all customers.
func (h *Handler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.Store.ListCustomers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list customers", err)
		return
	}

	dtos := make([]CustomerDTO, len(customers))
	for i, c := range customers {
		dtos[i] = toCustomerDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateCustomer creates a customer.
func (h *Handler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req CreateCustomerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "id and name are required", nil)
		return
	}

	customer := sqlite.Customer{ID: req.ID, Name: req.Name, City: req.City}
	if err := h.Store.SaveCustomer(r.Context(), customer); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create customer", err)
		return
	}
	writeJSON(w, http.StatusCreated, toCustomerDTO(customer))
}

// =============================================================================
// ROUTE HANDLERS
// =============================================================================

// GetRoute returns a rep's current route assignments.
// GET /api/reps/{id}/route
func (h *Handler) GetRoute(w http.ResponseWriter, r *http.Request) {
	repID := route.RepID(chi.URLParam(r, "id"))

	assignments, err := h.Store.ListAssignments(r.Context(), repID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load route", err)
		return
	}
	writeJSON(w, http.StatusOK, toAssignmentDTOs(assignments))
}

// SaveRoute applies a full route edit session for a rep.
// PUT /api/reps/{id}/route
func (h *Handler) SaveRoute(w http.ResponseWriter, r *http.Request) {
	repID := route.RepID(chi.URLParam(r, "id"))

	var req SaveRouteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	now := route.Today()
	if req.AsOf != "" {
		var err error
		if now, err = route.ParseDay(req.AsOf); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid as_of date (use YYYY-MM-DD)", err)
			return
		}
	}

	// Rows with unparseable labels go straight into the error list; valid
	// rows still proceed, matching the bulk-import contract.
	desired := make([]route.RouteAssignment, 0, len(req.Route))
	var rowErrors []route.OperationError
	for _, dto := range req.Route {
		a, err := fromAssignmentDTO(repID, dto)
		if err != nil {
			rowErrors = append(rowErrors, route.OperationError{
				Context: fmt.Sprintf("assignment %s/%s", dto.CustomerID, dto.Weekday),
				Reason:  err.Error(),
			})
			continue
		}
		desired = append(desired, a)
	}

	result, err := h.Controller.SaveRoute(r.Context(), repID, desired, now)
	if err != nil {
		if errors.Is(err, route.ErrUnknownRepresentative) {
			writeError(w, http.StatusNotFound, "Representative not found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to save route", err)
		return
	}

	writeJSON(w, http.StatusOK, SaveRouteResponse{
		DeletedAssignments: result.DeletedAssignments,
		CreatedAssignments: result.CreatedAssignments,
		MaterializedVisits: result.MaterializedVisits,
		SkippedVisits:      result.SkippedVisits,
		Errors:             append(rowErrors, result.Errors...),
	})
}

func fromAssignmentDTO(repID route.RepID, dto AssignmentDTO) (route.RouteAssignment, error) {
	weekday, err := route.ParseWeekday(dto.Weekday)
	if err != nil {
		return route.RouteAssignment{}, err
	}
	frequency, err := route.ParseFrequency(dto.Frequency)
	if err != nil {
		return route.RouteAssignment{}, err
	}
	return route.RouteAssignment{
		RepID:      repID,
		CustomerID: route.CustomerID(dto.CustomerID),
		Weekday:    weekday,
		Frequency:  frequency,
	}, nil
}

// =============================================================================
// VISIT PLAN HANDLERS
// =============================================================================

// ListVisits returns a rep's visit plans in a date range.
// GET /api/reps/{id}/visits?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *Handler) ListVisits(w http.ResponseWriter, r *http.Request) {
	repID := route.RepID(chi.URLParam(r, "id"))

	from, to, err := dateRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date range", err)
		return
	}

	plans, err := h.Controller.ListPlans(r.Context(), repID, from, to)
	if err != nil {
		if errors.Is(err, route.ErrUnknownRepresentative) {
			writeError(w, http.StatusNotFound, "Representative not found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to list visits", err)
		return
	}
	writeJSON(w, http.StatusOK, toVisitPlanDTOs(plans))
}

// CompleteVisit marks a visit completed.
// POST /api/visits/{id}/complete
func (h *Handler) CompleteVisit(w http.ResponseWriter, r *http.Request) {
	id := route.PlanID(chi.URLParam(r, "id"))

	var req CompleteVisitRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}

	if err := h.Controller.CompleteVisit(r.Context(), id, req.LinkedOrderID); err != nil {
		writeVisitUpdateError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(route.StatusCompleted)})
}

// CancelVisit marks a visit cancelled.
// POST /api/visits/{id}/cancel
func (h *Handler) CancelVisit(w http.ResponseWriter, r *http.Request) {
	id := route.PlanID(chi.URLParam(r, "id"))

	if err := h.Controller.CancelVisit(r.Context(), id); err != nil {
		writeVisitUpdateError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(route.StatusCancelled)})
}

func writeVisitUpdateError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, route.ErrPlanNotFound):
		writeError(w, http.StatusNotFound, "Visit plan not found", err)
	case errors.Is(err, route.ErrPlanImmutable):
		writeError(w, http.StatusConflict, "Visit plan is already finalized", err)
	default:
		writeError(w, http.StatusInternalServerError, "Failed to update visit plan", err)
	}
}

// =============================================================================
// COVERAGE HANDLERS
// =============================================================================

// GetCoverage returns a rep's coverage summary.
// GET /api/reps/{id}/coverage?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *Handler) GetCoverage(w http.ResponseWriter, r *http.Request) {
	repID := route.RepID(chi.URLParam(r, "id"))

	from, to, err := dateRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date range", err)
		return
	}

	cov, err := h.Coverage.Coverage(r.Context(), repID, from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute coverage", err)
		return
	}
	writeJSON(w, http.StatusOK, toCoverageDTO(cov))
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// ResetDatabase clears all data (dev only).
// POST /api/admin/reset
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// =============================================================================
// HELPERS
// =============================================================================

// dateRange parses the from/to query parameters. Both are required.
func dateRange(r *http.Request) (route.Day, route.Day, error) {
	from, err := route.ParseDay(r.URL.Query().Get("from"))
	if err != nil {
		return route.Day{}, route.Day{}, fmt.Errorf("from: %w", err)
	}
	to, err := route.ParseDay(r.URL.Query().Get("to"))
	if err != nil {
		return route.Day{}, route.Day{}, fmt.Errorf("to: %w", err)
	}
	return from, to, nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
