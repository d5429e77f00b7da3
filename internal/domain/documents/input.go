package documents

import (
	"time"

	"stockflow/internal/core/apperror"
	"stockflow/internal/core/id"
	"stockflow/internal/core/types"
)

// HeaderInput carries the header fields shared by all kinds. Nil means
// "not supplied": defaults on create, unchanged on update.
type HeaderInput struct {
	Number          *string      `json:"number,omitempty" validate:"omitempty,max=64"`
	Date            *time.Time   `json:"date,omitempty"`
	SubTotal        *types.Money `json:"subTotal,omitempty"`
	Discount        *types.Money `json:"discount,omitempty"`
	TaxAmount       *types.Money `json:"taxAmount,omitempty"`
	ExtraCharge     *types.Money `json:"extraCharge,omitempty"`
	TotalAmount     *types.Money `json:"totalAmount,omitempty"`
	DueAmount       *types.Money `json:"dueAmount,omitempty"`
	Status          *Status      `json:"status,omitempty" validate:"omitempty,oneof=draft completed cancelled"`
	Notes           *string      `json:"notes,omitempty" validate:"omitempty,max=2000"`
	StoreID         *id.ID       `json:"storeId,omitempty"`
	EmployeeID      *id.ID       `json:"employeeId,omitempty"`
	PaymentMethodID *id.ID       `json:"paymentMethodId,omitempty"`
}

// LineInput is one requested line.
type LineInput struct {
	ProductID id.ID  `json:"productId" validate:"required"`
	BatchID   *id.ID `json:"batchId,omitempty"`
	// StockID pins the stock record to mutate.
	StockID    *id.ID       `json:"stockId,omitempty"`
	Quantity   int64        `json:"quantity" validate:"gt=0"`
	UnitPrice  types.Money  `json:"unitPrice"`
	TotalPrice *types.Money `json:"totalPrice,omitempty"`
}

// Total is the explicit total or quantity x unit price.
func (in LineInput) Total() types.Money {
	if in.TotalPrice != nil {
		return *in.TotalPrice
	}
	return types.LineTotal(in.Quantity, in.UnitPrice)
}

// CheckLines validates line values validator tags cannot express.
func CheckLines(lines []LineInput) error {
	for i, in := range lines {
		if id.IsNil(in.ProductID) {
			return apperror.NewValidation("product is required").WithDetail("line", i)
		}
		if in.Quantity <= 0 {
			return apperror.NewValidation("quantity must be positive").WithDetail("line", i)
		}
		if in.UnitPrice.IsNegative() {
			return apperror.NewValidation("unit price cannot be negative").WithDetail("line", i)
		}
		if in.TotalPrice != nil && in.TotalPrice.IsNegative() {
			return apperror.NewValidation("total price cannot be negative").WithDetail("line", i)
		}
	}
	return nil
}

// applyTo copies supplied fields onto h.
func (in HeaderInput) applyTo(h *Header) {
	if in.Number != nil {
		h.Number = *in.Number
	}
	if in.Date != nil {
		h.Date = in.Date.UTC()
	}
	setMoney(&h.SubTotal, in.SubTotal)
	setMoney(&h.Discount, in.Discount)
	setMoney(&h.TaxAmount, in.TaxAmount)
	setMoney(&h.ExtraCharge, in.ExtraCharge)
	setMoney(&h.TotalAmount, in.TotalAmount)
	setMoney(&h.DueAmount, in.DueAmount)
	if in.Status != nil {
		h.Status = *in.Status
	}
	if in.Notes != nil {
		h.Notes = in.Notes
	}
	if in.StoreID != nil {
		h.StoreID = in.StoreID
	}
	if in.EmployeeID != nil {
		h.EmployeeID = in.EmployeeID
	}
	if in.PaymentMethodID != nil {
		h.PaymentMethodID = in.PaymentMethodID
	}
}

// deriveTotals fills SubTotal and TotalAmount from the lines when the
// caller did not supply them.
func (in HeaderInput) deriveTotals(h *Header, lines []LineInput) {
	if in.SubTotal == nil {
		sum := types.Zero()
		for _, l := range lines {
			sum = sum.Add(l.Total())
		}
		h.SubTotal = sum
	}
	if in.TotalAmount == nil {
		h.TotalAmount = h.SubTotal.Sub(h.Discount).Add(h.TaxAmount).Add(h.ExtraCharge)
	}
}

// recomputeTotal refreshes TotalAmount after a header-only update changed
// one of its components. The stored SubTotal stands in for the lines.
func (in HeaderInput) recomputeTotal(h *Header) {
	if in.TotalAmount != nil {
		return
	}
	if in.SubTotal == nil && in.Discount == nil && in.TaxAmount == nil && in.ExtraCharge == nil {
		return
	}
	h.TotalAmount = h.SubTotal.Sub(h.Discount).Add(h.TaxAmount).Add(h.ExtraCharge)
}

func setMoney(dst *types.Money, src *types.Money) {
	if src != nil {
		*dst = *src
	}
}

// linesToInputs rebuilds inputs from persisted lines so an update without
// items re-applies the current set. With keepStock the inputs stay pinned to
// the same stock records; without it they are looked up again by key.
func linesToInputs(lines []Line, keepStock bool) []LineInput {
	out := make([]LineInput, 0, len(lines))
	for _, l := range lines {
		total := l.TotalPrice
		in := LineInput{
			ProductID:  l.ProductID,
			BatchID:    l.BatchID,
			Quantity:   l.Quantity,
			UnitPrice:  l.UnitPrice,
			TotalPrice: &total,
		}
		if keepStock {
			in.StockID = l.StockID
		}
		out = append(out, in)
	}
	return out
}
