package sale_return

import (
	"stockflow/internal/domain/documents"
	"stockflow/internal/domain/journal"
	"stockflow/internal/domain/registers/stock"
)

const (
	NumberPrefix = "SRT"
	Direction    = documents.Inbound
	Lookup       = stock.LookupAnyForProduct
)

// JournalMapping posts Dr sales returns / Cr receivables.
func JournalMapping(acc journal.Accounts, expr *journal.AmountExpr) journal.Mapper[*SaleReturn] {
	return documents.JournalMapping[*SaleReturn](documents.KindSaleReturn, acc.SalesReturns, acc.Receivables, expr)
}
