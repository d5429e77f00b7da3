package purchase

import "stockflow/internal/domain/documents"

// Repository persists purchases with their lines.
type Repository interface {
	documents.Repository[*Purchase]
}
