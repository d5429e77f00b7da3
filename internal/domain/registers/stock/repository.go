package stock

import (
	"context"

	"stockflow/internal/core/id"
	"stockflow/internal/domain"
)

// Repository persists stock records. Every Lock* method must take an
// exclusive row lock held until the enclosing transaction ends, and must
// return an apperror NotFound when nothing matches.
type Repository interface {
	// LockByID locks a record by id, soft-deleted or not.
	LockByID(ctx context.Context, stockID id.ID) (*Record, error)

	// LockByKey locks the live record matching key exactly.
	LockByKey(ctx context.Context, key Key) (*Record, error)

	// LockAnyForProduct locks the oldest live record of the product.
	LockAnyForProduct(ctx context.Context, productID id.ID) (*Record, error)

	// Create inserts a new record. A concurrent insert of the same key
	// surfaces as an apperror Conflict.
	Create(ctx context.Context, rec *Record) error

	// Update persists quantity, unit cost and audit fields.
	Update(ctx context.Context, rec *Record) error

	// GetByID reads without locking.
	GetByID(ctx context.Context, stockID id.ID) (*Record, error)

	// List returns records matching the filter.
	List(ctx context.Context, filter ListFilter) (domain.ListResult[Record], error)
}

// ListFilter narrows List.
type ListFilter struct {
	domain.ListFilter

	ProductID *id.ID
	StoreID   *id.ID
	BatchID   *id.ID
	// NonZero hides empty records.
	NonZero bool
}
