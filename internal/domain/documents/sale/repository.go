package sale

import "stockflow/internal/domain/documents"

// Repository persists sales with their lines.
type Repository interface {
	documents.Repository[*Sale]
}
