// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import (
	"time"

	"pharmaledger/internal/core/apperror"
	"pharmaledger/internal/core/id"
	"pharmaledger/internal/core/security"
	"pharmaledger/internal/domain"
)

// DateLayout is the wire format of calendar dates (expiry, expected delivery).
const DateLayout = "2006-01-02"

// --- Listing ---

// ListQuery contains the paging and search parameters shared by list endpoints.
type ListQuery struct {
	Search   string `form:"search"`
	OrderBy  string `form:"orderBy"`
	DateFrom string `form:"dateFrom" binding:"omitempty,datetime=2006-01-02"`
	DateTo   string `form:"dateTo" binding:"omitempty,datetime=2006-01-02"`
	Limit    int    `form:"limit" binding:"omitempty,min=1,max=500"`
	Offset   int    `form:"offset" binding:"omitempty,min=0"`
}

// ToFilter converts the query to a domain filter. defaultOrder applies when
// the client sends no orderBy; an empty value leaves the repository default.
func (q ListQuery) ToFilter(defaultOrder string) domain.ListFilter {
	f := domain.ListFilter{
		Search:  q.Search,
		OrderBy: q.OrderBy,
		Limit:   q.Limit,
		Offset:  q.Offset,
	}
	if f.OrderBy == "" {
		f.OrderBy = defaultOrder
	}
	f.DateFrom = parseDatePtr(q.DateFrom)
	if to := parseDatePtr(q.DateTo); to != nil {
		// dateTo is inclusive on the wire, exclusive in the filter.
		next := to.AddDate(0, 0, 1)
		f.DateTo = &next
	}
	f.Normalize()
	return f
}

// --- Shared request parts ---

// ApproverRequest names the staff member authorizing an elevated operation.
// Omit it to approve as the caller.
type ApproverRequest struct {
	UserID string `json:"userId"`
	PIN    string `json:"pin" binding:"omitempty,numeric,min=4,max=12"`
}

func (r *ApproverRequest) ToApprover() security.Approver {
	if r == nil {
		return security.Approver{}
	}
	return security.Approver{UserID: r.UserID, PIN: r.PIN}
}

// --- Responses ---

// IDResponse for create operations.
type IDResponse struct {
	ID string `json:"id"`
}

// NewIDResponse creates ID response.
func NewIDResponse(i id.ID) IDResponse {
	return IDResponse{ID: i.String()}
}

// SuccessResponse for operations without data.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// ErrorResponse for error details.
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// ItemsResponse wraps an unpaginated collection.
type ItemsResponse[T any] struct {
	Items []T `json:"items"`
}

// --- Parsing helpers ---

// ParseID parses a path or query identifier.
func ParseID(field, raw string) (id.ID, error) {
	v, err := id.Parse(raw)
	if err != nil {
		return id.Nil(), apperror.NewValidation("invalid "+field).WithDetail("field", field)
	}
	return v, nil
}

// ParseOptionalID parses an optional identifier; empty means nil.
func ParseOptionalID(field, raw string) (*id.ID, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := ParseID(field, raw)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// mustID parses an identifier that passed the uuid binding rule.
func mustID(raw string) id.ID {
	v, _ := id.Parse(raw)
	return v
}

func optionalID(raw string) *id.ID {
	if raw == "" {
		return nil
	}
	v := mustID(raw)
	return &v
}

// parseDate parses a value that passed the datetime binding rule.
func parseDate(raw string) time.Time {
	t, _ := time.Parse(DateLayout, raw)
	return t
}

func parseDatePtr(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	t := parseDate(raw)
	return &t
}
