// Package stock is the inventory ledger: quantity on hand per
// (product, batch, store) and the engine that mutates it.
package stock

import (
	"context"

	"stockflow/internal/core/apperror"
	"stockflow/internal/core/entity"
	"stockflow/internal/core/id"
	"stockflow/internal/core/types"
)

// Status of a stock record.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Record is quantity on hand for one key. Quantity never drops below zero
// in a committed state.
type Record struct {
	entity.Base

	ProductID id.ID       `db:"product_id" json:"productId"`
	BatchID   *id.ID      `db:"batch_id" json:"batchId,omitempty"`
	StoreID   *id.ID      `db:"store_id" json:"storeId,omitempty"`
	Quantity  int64       `db:"quantity" json:"quantity"`
	UnitCost  types.Money `db:"unit_cost" json:"unitCost"`
	Status    Status      `db:"status" json:"status"`
}

// Key identifies the record a line item maps to. Nil batch or store means
// "no batch" / "no store", not "any".
type Key struct {
	ProductID id.ID
	BatchID   *id.ID
	StoreID   *id.ID
}

// Key returns the record's grouping key.
func (r *Record) Key() Key {
	return Key{ProductID: r.ProductID, BatchID: r.BatchID, StoreID: r.StoreID}
}

// Validate implements entity.Validatable.
func (r *Record) Validate(_ context.Context) error {
	if id.IsNil(r.ProductID) {
		return apperror.NewValidation("stock record requires a product").
			WithDetail("field", "productId")
	}
	if r.Quantity < 0 {
		return apperror.NewValidation("stock quantity cannot be negative").
			WithDetail("stock_id", r.ID.String()).
			WithDetail("quantity", r.Quantity)
	}
	if r.UnitCost.IsNegative() {
		return apperror.NewValidation("unit cost cannot be negative").
			WithDetail("field", "unitCost")
	}
	return nil
}

// LookupPolicy controls how a delta without an explicit stock id finds its record.
type LookupPolicy int

const (
	// LookupExact matches product, batch and store, absent values matching NULL.
	LookupExact LookupPolicy = iota
	// LookupAnyForProduct tries the exact key, then any live record of the product.
	LookupAnyForProduct
)

func (p LookupPolicy) String() string {
	switch p {
	case LookupExact:
		return "exact"
	case LookupAnyForProduct:
		return "any_for_product"
	default:
		return "unknown"
	}
}

// Delta is one signed quantity change requested by a document line.
type Delta struct {
	ProductID id.ID
	BatchID   *id.ID
	StoreID   *id.ID
	// StockID pins the record; lookup by key is skipped when set.
	StockID *id.ID
	// Quantity is positive for inbound, negative for outbound.
	Quantity int64
	// UnitCost is stored on created records and refreshed by inbound deltas.
	UnitCost *types.Money
	Policy   LookupPolicy
}

// Key returns the lookup key of the delta.
func (d Delta) Key() Key {
	return Key{ProductID: d.ProductID, BatchID: d.BatchID, StoreID: d.StoreID}
}
