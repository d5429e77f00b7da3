// Package documents holds what Purchase, Sale, PurchaseReturn and SaleReturn
// share: the header and line types, their inputs, and the lifecycle that
// keeps line items and stock records consistent.
package documents

import (
	"context"
	"time"

	"stockflow/internal/core/apperror"
	"stockflow/internal/core/entity"
	"stockflow/internal/core/id"
	"stockflow/internal/core/types"
	"stockflow/internal/domain/journal"
)

// Kind identifies a document type. It doubles as the journal reference
// type, the audit entity type and the outbox aggregate type.
type Kind string

const (
	KindPurchase       Kind = "purchase"
	KindSale           Kind = "sale"
	KindPurchaseReturn Kind = "purchase_return"
	KindSaleReturn     Kind = "sale_return"
)

// Direction is the sign a document applies to stock.
type Direction int64

const (
	Inbound  Direction = 1
	Outbound Direction = -1
)

func (d Direction) String() string {
	if d == Inbound {
		return "inbound"
	}
	return "outbound"
}

// Status of a document.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Header is embedded by every document kind.
type Header struct {
	entity.Base

	Number          string      `db:"number" json:"number"`
	Date            time.Time   `db:"date" json:"date"`
	SubTotal        types.Money `db:"sub_total" json:"subTotal"`
	Discount        types.Money `db:"discount" json:"discount"`
	TaxAmount       types.Money `db:"tax_amount" json:"taxAmount"`
	ExtraCharge     types.Money `db:"extra_charge" json:"extraCharge"`
	TotalAmount     types.Money `db:"total_amount" json:"totalAmount"`
	DueAmount       types.Money `db:"due_amount" json:"dueAmount"`
	Status          Status      `db:"status" json:"status"`
	Notes           *string     `db:"notes" json:"notes,omitempty"`
	StoreID         *id.ID      `db:"store_id" json:"storeId,omitempty"`
	EmployeeID      *id.ID      `db:"employee_id" json:"employeeId,omitempty"`
	PaymentMethodID *id.ID      `db:"payment_method_id" json:"paymentMethodId,omitempty"`
	Version         int         `db:"version" json:"version"`
}

// NewHeader creates a header dated now with a fresh id.
func NewHeader() Header {
	return Header{
		Base:    entity.NewBase(),
		Date:    time.Now().UTC(),
		Status:  StatusCompleted,
		Version: 1,
	}
}

// Validate implements entity.Validatable.
func (h *Header) Validate(_ context.Context) error {
	if h.Date.IsZero() {
		return apperror.NewValidation("date is required").WithDetail("field", "date")
	}
	money := map[string]types.Money{
		"subTotal":    h.SubTotal,
		"discount":    h.Discount,
		"taxAmount":   h.TaxAmount,
		"extraCharge": h.ExtraCharge,
		"totalAmount": h.TotalAmount,
		"dueAmount":   h.DueAmount,
	}
	for field, v := range money {
		if v.IsNegative() {
			return apperror.NewValidation(field+" cannot be negative").WithDetail("field", field)
		}
	}
	switch h.Status {
	case StatusDraft, StatusCompleted, StatusCancelled:
	default:
		return apperror.NewValidation("unknown status").WithDetail("status", string(h.Status))
	}
	return nil
}

// Amounts exposes the header figures to journal mappings.
func (h *Header) Amounts() journal.Amounts {
	return journal.Amounts{
		Total:    h.TotalAmount,
		SubTotal: h.SubTotal,
		Discount: h.Discount,
		Tax:      h.TaxAmount,
		Extra:    h.ExtraCharge,
		Due:      h.DueAmount,
	}
}

// Line is one product line of a document.
type Line struct {
	entity.Base

	DocumentID id.ID       `db:"document_id" json:"documentId"`
	LineNo     int         `db:"line_no" json:"lineNo"`
	ProductID  id.ID       `db:"product_id" json:"productId"`
	BatchID    *id.ID      `db:"batch_id" json:"batchId,omitempty"`
	Quantity   int64       `db:"quantity" json:"quantity"`
	UnitPrice  types.Money `db:"unit_price" json:"unitPrice"`
	TotalPrice types.Money `db:"total_price" json:"totalPrice"`
	// StockID is the record this line mutated.
	StockID *id.ID `db:"stock_id" json:"stockId,omitempty"`
}

// Document is implemented by the pointer type of every document kind.
type Document interface {
	GetHeader() *Header
	GetLines() []Line
	SetLines(lines []Line)
}

// Event is published to the outbox for every committed lifecycle step.
type Event struct {
	AggregateType string
	AggregateID   id.ID
	EventType     string
	Payload       any
}

// EventPublisher writes events inside the caller's transaction.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}
