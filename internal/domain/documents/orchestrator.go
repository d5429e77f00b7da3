package documents

import (
	"context"

	"stockflow/internal/core/id"
	"stockflow/internal/domain"
)

// Orchestrator is the lifecycle every document kind exposes. C and U are
// the kind's create and update inputs.
type Orchestrator[D Document, C any, U any] interface {
	Create(ctx context.Context, in C) (D, error)
	Update(ctx context.Context, docID id.ID, in U) (D, error)
	Get(ctx context.Context, docID id.ID, includeDeleted bool) (D, error)
	List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[D], error)

	SoftDelete(ctx context.Context, docID id.ID) error
	Restore(ctx context.Context, docID id.ID) error
	HardDelete(ctx context.Context, docID id.ID) error

	SoftDeleteMany(ctx context.Context, ids []id.ID) (*BulkResult, error)
	RestoreMany(ctx context.Context, ids []id.ID) (*BulkResult, error)
	HardDeleteMany(ctx context.Context, ids []id.ID) (*BulkResult, error)
}
