package sale

import (
	"stockflow/internal/domain/documents"
	"stockflow/internal/domain/journal"
	"stockflow/internal/domain/registers/stock"
)

const (
	NumberPrefix = "SAL"
	Direction    = documents.Outbound
	Lookup       = stock.LookupExact
)

// JournalMapping posts Dr receivables / Cr revenue.
func JournalMapping(acc journal.Accounts, expr *journal.AmountExpr) journal.Mapper[*Sale] {
	return documents.JournalMapping[*Sale](documents.KindSale, acc.Receivables, acc.Revenue, expr)
}
