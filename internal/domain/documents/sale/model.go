// Package sale provides the Sale document. Every line is an outbound stock
// delta; a sale can never drive a stock record below zero.
package sale

import (
	"stockflow/internal/core/id"
	"stockflow/internal/domain/documents"
)

// Sale is goods sold to an optional customer.
type Sale struct {
	documents.Header

	CustomerID    *id.ID  `db:"customer_id" json:"customerId,omitempty"`
	InvoiceNumber *string `db:"invoice_number" json:"invoiceNumber,omitempty"`

	Lines []documents.Line `db:"-" json:"items"`
}

// New creates an empty sale dated now.
func New() *Sale {
	return &Sale{
		Header: documents.NewHeader(),
		Lines:  make([]documents.Line, 0),
	}
}

func (s *Sale) GetHeader() *documents.Header { return &s.Header }
func (s *Sale) GetLines() []documents.Line { return s.Lines }
func (s *Sale) SetLines(lines []documents.Line) { s.Lines = lines }

// CreateInput is the request to create a sale.
type CreateInput struct {
	documents.HeaderInput
	CustomerID    *id.ID                `json:"customerId,omitempty"`
	InvoiceNumber *string               `json:"invoiceNumber,omitempty" validate:"omitempty,max=64"`
	Items         []documents.LineInput `json:"items" validate:"required,min=1,dive"`
}

// UpdateInput is a partial update of a sale.
type UpdateInput struct {
	documents.HeaderInput
	Version       *int                  `json:"version,omitempty"`
	CustomerID    *id.ID                `json:"customerId,omitempty"`
	InvoiceNumber *string               `json:"invoiceNumber,omitempty" validate:"omitempty,max=64"`
	Items         []documents.LineInput `json:"items,omitempty" validate:"omitempty,min=1,dive"`
}

var _ documents.Document = (*Sale)(nil)
