package purchase

import (
	"stockflow/internal/domain/documents"
	"stockflow/internal/domain/journal"
	"stockflow/internal/domain/registers/stock"
)

const (
	// NumberPrefix produces PUR-2026-00001.
	NumberPrefix = "PUR"

	// Direction: purchased goods enter stock.
	Direction = documents.Inbound

	// Lookup matches the exact (product, batch, store) key.
	Lookup = stock.LookupExact
)

// JournalMapping posts Dr inventory / Cr payables.
func JournalMapping(acc journal.Accounts, expr *journal.AmountExpr) journal.Mapper[*Purchase] {
	return documents.JournalMapping[*Purchase](documents.KindPurchase, acc.Inventory, acc.Payables, expr)
}
