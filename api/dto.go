/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Weekday/frequency labels are validated in handlers when mapping DTOs
  into route enums; DTOs themselves are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"github.com/fieldops/route-engine/report"
	"github.com/fieldops/route-engine/route"
	"github.com/fieldops/route-engine/store/sqlite"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// RepresentativeDTO represents a sales rep in API responses.
type RepresentativeDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Territory string `json:"territory,omitempty"`
}

// CreateRepresentativeRequest is the request to create a rep.
type CreateRepresentativeRequest struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Territory string `json:"territory,omitempty"`
}

// CustomerDTO represents a customer in API responses.
type CustomerDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	City string `json:"city,omitempty"`
}

// CreateCustomerRequest is the request to create a customer.
type CreateCustomerRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	City string `json:"city,omitempty"`
}

// AssignmentDTO is one row of a rep's route.
type AssignmentDTO struct {
	CustomerID string `json:"customer_id"`
	Weekday    string `json:"weekday"`   // MON..SUN
	Frequency  string `json:"frequency"` // WEEKLY, BIWEEKLY_ODD, BIWEEKLY_EVEN
}

// SaveRouteRequest is a full edit session: the complete desired route for
// one rep. Assignments persisted but absent from Route are removed.
type SaveRouteRequest struct {
	Route []AssignmentDTO `json:"route"`

	// AsOf is the save's "now" (YYYY-MM-DD). Empty means today.
	AsOf string `json:"as_of,omitempty"`
}

// SaveRouteResponse mirrors route.SaveResult.
type SaveRouteResponse struct {
	DeletedAssignments int                    `json:"deleted_assignments"`
	CreatedAssignments int                    `json:"created_assignments"`
	MaterializedVisits int                    `json:"materialized_visits"`
	SkippedVisits      int                    `json:"skipped_visits"`
	Errors             []route.OperationError `json:"errors"`
}

// VisitPlanDTO represents one scheduled visit.
type VisitPlanDTO struct {
	ID            string `json:"id"`
	RepID         string `json:"rep_id"`
	CustomerID    string `json:"customer_id"`
	ScheduledDate string `json:"scheduled_date"`
	Weekday       string `json:"weekday"`
	Status        string `json:"status"`
	LinkedOrderID string `json:"linked_order_id,omitempty"`
}

// CompleteVisitRequest marks a visit done, optionally linking the order
// taken during it.
type CompleteVisitRequest struct {
	LinkedOrderID string `json:"linked_order_id,omitempty"`
}

// CoverageDTO represents a rep's coverage summary.
type CoverageDTO struct {
	RepID            string                `json:"rep_id"`
	From             string                `json:"from"`
	To               string                `json:"to"`
	Planned          int                   `json:"planned"`
	Completed        int                   `json:"completed"`
	Cancelled        int                   `json:"cancelled"`
	Total            int                   `json:"total"`
	CompletionRate   string                `json:"completion_rate"`
	CancellationRate string                `json:"cancellation_rate"`
	Customers        []CustomerCoverageDTO `json:"customers"`
}

// CustomerCoverageDTO is the per-customer breakdown.
type CustomerCoverageDTO struct {
	CustomerID     string `json:"customer_id"`
	Planned        int    `json:"planned"`
	Completed      int    `json:"completed"`
	Cancelled      int    `json:"cancelled"`
	CompletionRate string `json:"completion_rate"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toAssignmentDTO(a route.RouteAssignment) AssignmentDTO {
	return AssignmentDTO{
		CustomerID: string(a.CustomerID),
		Weekday:    a.Weekday.String(),
		Frequency:  a.Frequency.String(),
	}
}

func toAssignmentDTOs(as []route.RouteAssignment) []AssignmentDTO {
	dtos := make([]AssignmentDTO, len(as))
	for i, a := range as {
		dtos[i] = toAssignmentDTO(a)
	}
	return dtos
}

func toVisitPlanDTO(p route.VisitPlan) VisitPlanDTO {
	return VisitPlanDTO{
		ID:            string(p.ID),
		RepID:         string(p.RepID),
		CustomerID:    string(p.CustomerID),
		ScheduledDate: p.ScheduledDate.String(),
		Weekday:       p.ScheduledDate.Weekday().String(),
		Status:        string(p.Status),
		LinkedOrderID: p.LinkedOrderID,
	}
}

func toVisitPlanDTOs(ps []route.VisitPlan) []VisitPlanDTO {
	dtos := make([]VisitPlanDTO, len(ps))
	for i, p := range ps {
		dtos[i] = toVisitPlanDTO(p)
	}
	return dtos
}

func toCoverageDTO(c *report.Coverage) CoverageDTO {
	dto := CoverageDTO{
		RepID:            string(c.RepID),
		From:             c.From.String(),
		To:               c.To.String(),
		Planned:          c.Planned,
		Completed:        c.Completed,
		Cancelled:        c.Cancelled,
		Total:            c.Total,
		CompletionRate:   c.CompletionRate.String(),
		CancellationRate: c.CancellationRate.String(),
		Customers:        make([]CustomerCoverageDTO, len(c.Customers)),
	}
	for i, cc := range c.Customers {
		dto.Customers[i] = CustomerCoverageDTO{
			CustomerID:     string(cc.CustomerID),
			Planned:        cc.Planned,
			Completed:      cc.Completed,
			Cancelled:      cc.Cancelled,
			CompletionRate: cc.CompletionRate.String(),
		}
	}
	return dto
}

func toRepresentativeDTO(r sqlite.Representative) RepresentativeDTO {
	return RepresentativeDTO{ID: r.ID, Name: r.Name, Territory: r.Territory}
}

func toCustomerDTO(c sqlite.Customer) CustomerDTO {
	return CustomerDTO{ID: c.ID, Name: c.Name, City: c.City}
}
