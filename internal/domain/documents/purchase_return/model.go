// Package purchase_return provides the PurchaseReturn document: goods sent
// back to the supplier of an earlier purchase. Lines leave stock.
package purchase_return

import (
	"stockflow/internal/core/id"
	"stockflow/internal/domain/documents"
)

// PurchaseReturn returns goods of a purchase to its supplier.
type PurchaseReturn struct {
	documents.Header

	PurchaseID id.ID `db:"purchase_id" json:"purchaseId"`
	// SupplierID is copied from the purchase.
	SupplierID id.ID `db:"supplier_id" json:"supplierId"`

	Lines []documents.Line `db:"-" json:"items"`
}

// New creates an empty purchase return dated now.
func New() *PurchaseReturn {
	return &PurchaseReturn{
		Header: documents.NewHeader(),
		Lines:  make([]documents.Line, 0),
	}
}

func (r *PurchaseReturn) GetHeader() *documents.Header { return &r.Header }
func (r *PurchaseReturn) GetLines() []documents.Line { return r.Lines }
func (r *PurchaseReturn) SetLines(lines []documents.Line) { r.Lines = lines }

// CreateInput is the request to create a purchase return.
type CreateInput struct {
	documents.HeaderInput
	PurchaseID id.ID                 `json:"purchaseId" validate:"required"`
	Items      []documents.LineInput `json:"items" validate:"required,min=1,dive"`
}

// UpdateInput is a partial update of a purchase return.
type UpdateInput struct {
	documents.HeaderInput
	Version    *int                  `json:"version,omitempty"`
	PurchaseID *id.ID                `json:"purchaseId,omitempty"`
	Items      []documents.LineInput `json:"items,omitempty" validate:"omitempty,min=1,dive"`
}

var _ documents.Document = (*PurchaseReturn)(nil)
