// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import (
	"stockflow/internal/core/apperror"
	"stockflow/internal/core/id"
	"stockflow/internal/domain"
)

// --- Listing ---

// ListQuery holds the common list parameters.
type ListQuery struct {
	Limit          int    `form:"limit" binding:"omitempty,min=1,max=500"`
	Offset         int    `form:"offset" binding:"omitempty,min=0"`
	OrderBy        string `form:"order_by"`
	IncludeDeleted bool   `form:"include_deleted"`
	// DeletedOnly is the trash view
	DeletedOnly bool `form:"deleted_only"`
}

// Filter converts the query to a domain filter.
func (q ListQuery) Filter() domain.ListFilter {
	f := domain.ListFilter{
		IncludeDeleted: q.IncludeDeleted,
		DeletedOnly:    q.DeletedOnly,
		OrderBy:        q.OrderBy,
		Limit:          q.Limit,
		Offset:         q.Offset,
	}
	f.Normalize()
	return f
}

// --- Bulk ---

// BulkRequest names the documents a bulk operation applies to.
type BulkRequest struct {
	IDs []id.ID `json:"ids" binding:"required,min=1"`
}

// --- Lifecycle responses ---

type DeletedResponse struct {
	Deleted bool `json:"deleted"`
}

type RestoredResponse struct {
	Restored bool `json:"restored"`
}

// --- Helpers ---

// ParseOptionalID parses an optional id query value.
func ParseOptionalID(field, value string) (*id.ID, error) {
	if value == "" {
		return nil, nil
	}
	parsed, err := id.Parse(value)
	if err != nil {
		return nil, apperror.NewValidation("invalid " + field + " format").WithDetail("field", field)
	}
	return &parsed, nil
}
