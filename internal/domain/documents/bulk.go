package documents

import (
	"context"
	"errors"

	"stockflow/internal/core/apperror"
	"stockflow/internal/core/id"
	"stockflow/pkg/logger"
)

// MaxBulkIDs caps one bulk request.
const MaxBulkIDs = 500

// BulkFailure is the outcome of one id that did not succeed.
type BulkFailure struct {
	ID      id.ID  `json:"id"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// BulkResult reports per-id outcomes. An id appears in exactly one list.
type BulkResult struct {
	Succeeded []id.ID       `json:"succeeded"`
	Failed    []BulkFailure `json:"failed"`
}

// SoftDeleteMany soft-deletes each id in its own transaction.
func (l *Lifecycle[D]) SoftDeleteMany(ctx context.Context, ids []id.ID) (*BulkResult, error) {
	return runBulk(ctx, "soft_delete", ids, l.SoftDelete)
}

// RestoreMany restores each id in its own transaction.
func (l *Lifecycle[D]) RestoreMany(ctx context.Context, ids []id.ID) (*BulkResult, error) {
	return runBulk(ctx, "restore", ids, l.Restore)
}

// HardDeleteMany hard-deletes each id in its own transaction.
func (l *Lifecycle[D]) HardDeleteMany(ctx context.Context, ids []id.ID) (*BulkResult, error) {
	return runBulk(ctx, "hard_delete", ids, l.HardDelete)
}

// runBulk applies op to every distinct id. A failing id never affects the
// others; only a cancelled context stops the loop early, and the ids not
// reached are reported as failed.
func runBulk(ctx context.Context, op string, ids []id.ID, fn func(context.Context, id.ID) error) (*BulkResult, error) {
	if len(ids) == 0 {
		return nil, apperror.NewValidation("ids cannot be empty").WithDetail("field", "ids")
	}
	if len(ids) > MaxBulkIDs {
		return nil, apperror.NewValidation("too many ids").
			WithDetail("field", "ids").
			WithDetail("max", MaxBulkIDs)
	}

	res := &BulkResult{
		Succeeded: make([]id.ID, 0, len(ids)),
		Failed:    make([]BulkFailure, 0),
	}
	seen := make(map[id.ID]struct{}, len(ids))

	for _, docID := range ids {
		if _, dup := seen[docID]; dup {
			continue
		}
		seen[docID] = struct{}{}

		if err := ctx.Err(); err != nil {
			res.Failed = append(res.Failed, failure(docID, err))
			continue
		}
		if err := fn(ctx, docID); err != nil {
			res.Failed = append(res.Failed, failure(docID, err))
			continue
		}
		res.Succeeded = append(res.Succeeded, docID)
	}

	logger.Info(ctx, "bulk operation finished",
		"op", op,
		"requested", len(ids),
		"succeeded", len(res.Succeeded),
		"failed", len(res.Failed),
	)
	return res, nil
}

func failure(docID id.ID, err error) BulkFailure {
	if appErr, ok := apperror.AsAppError(err); ok {
		return BulkFailure{ID: docID, Code: appErr.Code, Message: appErr.Message}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return BulkFailure{ID: docID, Code: apperror.CodeInternal, Message: err.Error()}
	}
	return BulkFailure{ID: docID, Code: apperror.CodeInternal, Message: "Internal server error"}
}
