package documents

import (
	"fmt"

	"stockflow/internal/core/id"
	"stockflow/internal/domain/journal"
)

// JournalMapping builds the mapper every kind uses: a single debit/credit
// pair whose amount is expr evaluated over the header figures (the total
// when expr is nil).
func JournalMapping[D Document](kind Kind, debit, credit id.ID, expr *journal.AmountExpr) journal.Mapper[D] {
	return func(doc D) (journal.Payload, error) {
		h := doc.GetHeader()
		amount, err := expr.Resolve(h.Amounts())
		if err != nil {
			return journal.Payload{}, err
		}
		return journal.Payload{
			Date:            h.Date,
			RefType:         string(kind),
			RefID:           h.ID,
			DebitAccountID:  debit,
			CreditAccountID: credit,
			Amount:          amount,
			Description:     describe(kind, h),
		}, nil
	}
}

func describe(kind Kind, h *Header) string {
	if h.Number == "" {
		return string(kind)
	}
	return fmt.Sprintf("%s %s", kind, h.Number)
}
