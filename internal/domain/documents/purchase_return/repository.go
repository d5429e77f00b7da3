package purchase_return

import (
	"context"

	"stockflow/internal/core/id"
	"stockflow/internal/domain/documents"
	"stockflow/internal/domain/documents/purchase"
)

// Repository persists purchase returns with their lines.
type Repository interface {
	documents.Repository[*PurchaseReturn]
}

// Purchases loads the purchase a return refers to.
type Purchases interface {
	Get(ctx context.Context, docID id.ID, includeDeleted bool) (*purchase.Purchase, error)
}
