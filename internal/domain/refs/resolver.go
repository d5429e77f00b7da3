// Package refs checks that ids supplied on documents point at existing
// entities of the expected type.
package refs

import (
	"context"

	"stockflow/internal/core/id"
)

// Kind names a referenced entity type.
type Kind string

const (
	Supplier      Kind = "supplier"
	Customer      Kind = "customer"
	Store         Kind = "store"
	Employee      Kind = "employee"
	PaymentMethod Kind = "payment_method"
	Product       Kind = "product"
	Batch         Kind = "batch"
)

// Resolver fails with an apperror InvalidReference when a reference does
// not resolve. Infrastructure failures are returned as-is.
type Resolver interface {
	// Require checks that a live entity of kind exists with the given id.
	Require(ctx context.Context, kind Kind, ref id.ID) error

	// RequireBatch checks that the batch exists and belongs to productID.
	RequireBatch(ctx context.Context, batchID, productID id.ID) error
}

// RequireOptional is Require for optional references; nil passes.
func RequireOptional(ctx context.Context, r Resolver, kind Kind, ref *id.ID) error {
	if ref == nil {
		return nil
	}
	return r.Require(ctx, kind, *ref)
}
