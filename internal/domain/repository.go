// Package domain holds types shared by the stock, document and journal packages.
package domain

// ListFilter contains common filtering options for list operations.
type ListFilter struct {
	// IncludeDeleted adds soft-deleted rows to the result
	IncludeDeleted bool

	// DeletedOnly restricts the result to soft-deleted rows (trash view)
	DeletedOnly bool

	// OrderBy is a column name, "-" prefix for descending (e.g. "-date")
	OrderBy string

	Limit  int
	Offset int
}

const (
	DefaultLimit = 25
	MaxLimit     = 500
)

// Normalize clamps pagination to sane bounds.
func (f *ListFilter) Normalize() {
	if f.Limit <= 0 {
		f.Limit = DefaultLimit
	}
	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	if f.DeletedOnly {
		f.IncludeDeleted = true
	}
}

// ListResult contains paginated results.
type ListResult[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}
