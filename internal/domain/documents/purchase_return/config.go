package purchase_return

import (
	"stockflow/internal/domain/documents"
	"stockflow/internal/domain/journal"
	"stockflow/internal/domain/registers/stock"
)

const (
	NumberPrefix = "PRT"

	// Direction: returned goods leave stock, so a return can fail with
	// insufficient stock like a sale.
	Direction = documents.Outbound

	// Lookup falls back to any record of the product when the exact key
	// has none.
	Lookup = stock.LookupAnyForProduct
)

// JournalMapping posts Dr payables / Cr inventory.
func JournalMapping(acc journal.Accounts, expr *journal.AmountExpr) journal.Mapper[*PurchaseReturn] {
	return documents.JournalMapping[*PurchaseReturn](documents.KindPurchaseReturn, acc.Payables, acc.Inventory, expr)
}
