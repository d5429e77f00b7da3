// Package journal derives double-entry postings from documents and appends
// them to the accounting ledger inside the document's transaction.
package journal

import (
	"time"

	"stockflow/internal/core/apperror"
	"stockflow/internal/core/id"
	"stockflow/internal/core/types"
)

// Action is the document lifecycle step that produced a posting.
type Action string

const (
	ActionCreate  Action = "create"
	ActionUpdate  Action = "update"
	ActionDelete  Action = "delete"
	ActionRestore Action = "restore"
)

// Payload is what a mapping function derives from a document.
type Payload struct {
	Date            time.Time   `json:"date"`
	RefType         string      `json:"refType"`
	RefID           id.ID       `json:"refId"`
	DebitAccountID  id.ID       `json:"debitAccountId"`
	CreditAccountID id.ID       `json:"creditAccountId"`
	Amount          types.Money `json:"amount"`
	Description     string      `json:"description"`
}

// Validate checks the payload before it is written.
func (p Payload) Validate() error {
	if id.IsNil(p.DebitAccountID) {
		return apperror.NewValidation("journal posting requires a debit account").
			WithDetail("ref_type", p.RefType)
	}
	if id.IsNil(p.CreditAccountID) {
		return apperror.NewValidation("journal posting requires a credit account").
			WithDetail("ref_type", p.RefType)
	}
	if p.DebitAccountID == p.CreditAccountID {
		return apperror.NewValidation("debit and credit accounts must differ").
			WithDetail("account_id", p.DebitAccountID.String())
	}
	if p.Amount.IsNegative() {
		return apperror.NewValidation("journal amount cannot be negative").
			WithDetail("amount", p.Amount.String())
	}
	if id.IsNil(p.RefID) || p.RefType == "" {
		return apperror.NewValidation("journal posting requires a reference")
	}
	return nil
}

// Swapped returns the payload with debit and credit exchanged.
func (p Payload) Swapped() Payload {
	p.DebitAccountID, p.CreditAccountID = p.CreditAccountID, p.DebitAccountID
	return p
}

// Posting is one row of the append-only journal.
type Posting struct {
	ID              id.ID       `db:"id" json:"id"`
	Date            time.Time   `db:"date" json:"date"`
	RefType         string      `db:"ref_type" json:"refType"`
	RefID           id.ID       `db:"ref_id" json:"refId"`
	DebitAccountID  id.ID       `db:"debit_account_id" json:"debitAccountId"`
	CreditAccountID id.ID       `db:"credit_account_id" json:"creditAccountId"`
	Amount          types.Money `db:"amount" json:"amount"`
	Description     string      `db:"description" json:"description"`
	Action          Action      `db:"action" json:"action"`
	Reversal        bool        `db:"reversal" json:"reversal"`
	CreatedAt       time.Time   `db:"created_at" json:"createdAt"`
	CreatedBy       *string     `db:"created_by" json:"createdBy,omitempty"`
}

// Amounts are the header figures a mapping may draw on.
type Amounts struct {
	Total    types.Money
	SubTotal types.Money
	Discount types.Money
	Tax      types.Money
	Extra    types.Money
	Due      types.Money
}

// Mapper derives a posting payload from a saved document. It must not
// touch the database.
type Mapper[D any] func(doc D) (Payload, error)

// Accounts are the ledger accounts the built-in mappings post to.
type Accounts struct {
	Inventory    id.ID
	Payables     id.ID
	Receivables  id.ID
	Revenue      id.ID
	SalesReturns id.ID
}
