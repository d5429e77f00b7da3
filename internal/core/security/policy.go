// Package security holds the posting guard applied to every document mutation.
package security

import (
	"context"
	"time"

	"stockflow/internal/core/apperror"
)

// PostingPolicy decides whether a document dated docDate may still change
// stock. It is consulted for the old and the new date of every mutation.
type PostingPolicy interface {
	CanModify(ctx context.Context, docDate time.Time) error
}

// ClosedPeriodPolicy forbids changes to documents dated on or before closedUntil.
type ClosedPeriodPolicy struct {
	closedUntil time.Time
}

// NewClosedPeriodPolicy creates a policy closing every day up to and including closedUntil.
func NewClosedPeriodPolicy(closedUntil time.Time) *ClosedPeriodPolicy {
	y, m, d := closedUntil.Date()
	return &ClosedPeriodPolicy{closedUntil: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

func (p *ClosedPeriodPolicy) CanModify(_ context.Context, docDate time.Time) error {
	if docDate.Before(p.closedUntil.AddDate(0, 0, 1)) {
		return apperror.NewPeriodClosed(p.closedUntil.Format(time.DateOnly))
	}
	return nil
}

// ClosedUntil returns the last closed day.
func (p *ClosedPeriodPolicy) ClosedUntil() time.Time {
	return p.closedUntil
}

// OpenPolicy allows all operations.
type OpenPolicy struct{}

func (OpenPolicy) CanModify(context.Context, time.Time) error { return nil }
