// Package sale_return provides the SaleReturn document: goods a customer
// brings back from an earlier sale. Lines re-enter stock.
package sale_return

import (
	"stockflow/internal/core/id"
	"stockflow/internal/domain/documents"
)

// SaleReturn takes goods of a sale back into stock.
type SaleReturn struct {
	documents.Header

	SaleID id.ID `db:"sale_id" json:"saleId"`
	// CustomerID is copied from the sale.
	CustomerID *id.ID `db:"customer_id" json:"customerId,omitempty"`

	Lines []documents.Line `db:"-" json:"items"`
}

// New creates an empty sale return dated now.
func New() *SaleReturn {
	return &SaleReturn{
		Header: documents.NewHeader(),
		Lines:  make([]documents.Line, 0),
	}
}

func (r *SaleReturn) GetHeader() *documents.Header { return &r.Header }
func (r *SaleReturn) GetLines() []documents.Line { return r.Lines }
func (r *SaleReturn) SetLines(lines []documents.Line) { r.Lines = lines }

// CreateInput is the request to create a sale return.
type CreateInput struct {
	documents.HeaderInput
	SaleID id.ID                 `json:"saleId" validate:"required"`
	Items  []documents.LineInput `json:"items" validate:"required,min=1,dive"`
}

// UpdateInput is a partial update of a sale return.
type UpdateInput struct {
	documents.HeaderInput
	Version *int                  `json:"version,omitempty"`
	SaleID  *id.ID                `json:"saleId,omitempty"`
	Items   []documents.LineInput `json:"items,omitempty" validate:"omitempty,min=1,dive"`
}

var _ documents.Document = (*SaleReturn)(nil)
