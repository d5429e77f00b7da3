// Package entity provides the audit and soft-delete fields shared by
// documents, line items and stock records.
package entity

import (
	"context"
	"time"

	appctx "stockflow/internal/core/context"
	"stockflow/internal/core/id"
)

// Validatable is implemented by entities that check their own invariants
// without database access.
type Validatable interface {
	Validate(ctx context.Context) error
}

// Base contains identity, audit and soft-delete fields.
type Base struct {
	ID        id.ID      `db:"id" json:"id"`
	CreatedAt time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time  `db:"updated_at" json:"updatedAt"`
	CreatedBy *string    `db:"created_by" json:"createdBy,omitempty"`
	UpdatedBy *string    `db:"updated_by" json:"updatedBy,omitempty"`
	DeletedAt *time.Time `db:"deleted_at" json:"deletedAt,omitempty"`
}

// NewBase creates a Base with a fresh id and timestamps.
func NewBase() Base {
	now := time.Now().UTC()
	return Base{
		ID:        id.New(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// StampCreated records the acting user from ctx as creator.
func (b *Base) StampCreated(ctx context.Context) {
	actor := appctx.ActorPtr(ctx)
	b.CreatedBy = actor
	b.UpdatedBy = actor
}

// StampUpdated refreshes UpdatedAt and records the acting user from ctx.
func (b *Base) StampUpdated(ctx context.Context) {
	b.UpdatedAt = time.Now().UTC()
	b.UpdatedBy = appctx.ActorPtr(ctx)
}

// IsDeleted reports whether the row is soft-deleted.
func (b *Base) IsDeleted() bool {
	return b.DeletedAt != nil
}

// MarkDeleted sets the soft-delete timestamp.
func (b *Base) MarkDeleted(at time.Time) {
	t := at.UTC()
	b.DeletedAt = &t
}

// Recover clears the soft-delete timestamp.
func (b *Base) Recover() {
	b.DeletedAt = nil
}
