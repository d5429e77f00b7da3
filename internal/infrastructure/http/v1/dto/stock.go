package dto

import (
	"stockflow/internal/domain/journal"
	"stockflow/internal/domain/registers/stock"
)

// StockQuery filters GET /stock.
type StockQuery struct {
	ListQuery
	ProductID string `form:"product_id"`
	StoreID   string `form:"store_id"`
	BatchID   string `form:"batch_id"`
	NonZero   bool   `form:"non_zero"`
}

// Filter converts the query to a stock filter.
func (q StockQuery) Filter() (stock.ListFilter, error) {
	f := stock.ListFilter{ListFilter: q.ListQuery.Filter(), NonZero: q.NonZero}

	var err error
	if f.ProductID, err = ParseOptionalID("product_id", q.ProductID); err != nil {
		return f, err
	}
	if f.StoreID, err = ParseOptionalID("store_id", q.StoreID); err != nil {
		return f, err
	}
	if f.BatchID, err = ParseOptionalID("batch_id", q.BatchID); err != nil {
		return f, err
	}
	return f, nil
}

// JournalQuery filters GET /journal.
type JournalQuery struct {
	RefType string `form:"ref_type"`
	RefID   string `form:"ref_id"`
	Limit   int    `form:"limit" binding:"omitempty,min=1,max=1000"`
}

// Filter converts the query to a journal filter.
func (q JournalQuery) Filter() (journal.Filter, error) {
	refID, err := ParseOptionalID("ref_id", q.RefID)
	if err != nil {
		return journal.Filter{}, err
	}
	return journal.Filter{RefType: q.RefType, RefID: refID, Limit: q.Limit}, nil
}

// JournalResponse wraps journal postings.
type JournalResponse struct {
	Items []journal.Posting `json:"items"`
}
