package sale_return

import (
	"context"

	"stockflow/internal/core/id"
	"stockflow/internal/domain/documents"
	"stockflow/internal/domain/documents/sale"
)

// Repository persists sale returns with their lines.
type Repository interface {
	documents.Repository[*SaleReturn]
}

// Sales loads the sale a return refers to.
type Sales interface {
	Get(ctx context.Context, docID id.ID, includeDeleted bool) (*sale.Sale, error)
}
