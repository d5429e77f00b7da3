// Package purchase provides the Purchase document: goods received from a
// supplier. Every line is an inbound stock delta.
package purchase

import (
	"context"

	"stockflow/internal/core/apperror"
	"stockflow/internal/core/id"
	"stockflow/internal/domain/documents"
)

// Purchase is a goods receipt from a supplier.
type Purchase struct {
	documents.Header

	SupplierID id.ID `db:"supplier_id" json:"supplierId"`

	// Table part
	Lines []documents.Line `db:"-" json:"items"`
}

// New creates an empty purchase dated now.
func New() *Purchase {
	return &Purchase{
		Header: documents.NewHeader(),
		Lines:  make([]documents.Line, 0),
	}
}

func (p *Purchase) GetHeader() *documents.Header { return &p.Header }
func (p *Purchase) GetLines() []documents.Line { return p.Lines }
func (p *Purchase) SetLines(lines []documents.Line) { p.Lines = lines }

// Validate implements entity.Validatable.
func (p *Purchase) Validate(ctx context.Context) error {
	if err := p.Header.Validate(ctx); err != nil {
		return err
	}
	if id.IsNil(p.SupplierID) {
		return apperror.NewValidation("supplier is required").
			WithDetail("field", "supplierId")
	}
	return nil
}

// CreateInput is the request to create a purchase.
type CreateInput struct {
	documents.HeaderInput
	SupplierID id.ID                 `json:"supplierId" validate:"required"`
	Items      []documents.LineInput `json:"items" validate:"required,min=1,dive"`
}

// UpdateInput is a partial update; nil fields are left unchanged and a nil
// Items keeps the current lines.
type UpdateInput struct {
	documents.HeaderInput
	Version    *int                  `json:"version,omitempty"`
	SupplierID *id.ID                `json:"supplierId,omitempty"`
	Items      []documents.LineInput `json:"items,omitempty" validate:"omitempty,min=1,dive"`
}

var _ documents.Document = (*Purchase)(nil)
