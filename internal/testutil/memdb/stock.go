package memdb

import (
	"context"

	"stockflow/internal/core/apperror"
	"stockflow/internal/core/entity"
	"stockflow/internal/core/id"
	"stockflow/internal/core/types"
	"stockflow/internal/domain"
	"stockflow/internal/domain/registers/stock"
)

// StockRepo implements stock.Repository.
type StockRepo struct {
	db *DB
}

// Stock returns the stock repository.
func (db *DB) Stock() *StockRepo {
	return &StockRepo{db: db}
}

// Seed inserts a live record and returns it.
func (r *StockRepo) Seed(productID id.ID, batchID, storeID *id.ID, qty int64) stock.Record {
	rec := stock.Record{
		Base:      entity.NewBase(),
		ProductID: productID,
		BatchID:   batchID,
		StoreID:   storeID,
		Quantity:  qty,
		UnitCost:  types.Zero(),
		Status:    stock.StatusActive,
	}
	_ = r.db.view(context.Background(), func(s *state) error {
		s.stock[rec.ID] = rec
		s.stockOrder = append(s.stockOrder, rec.ID)
		return nil
	})
	return rec
}

// Quantity returns the quantity of stockID, or -1 when it does not exist.
func (r *StockRepo) Quantity(stockID id.ID) int64 {
	qty := int64(-1)
	_ = r.db.view(context.Background(), func(s *state) error {
		if rec, ok := s.stock[stockID]; ok {
			qty = rec.Quantity
		}
		return nil
	})
	return qty
}

// Records returns every record of productID in creation order.
func (r *StockRepo) Records(productID id.ID) []stock.Record {
	var out []stock.Record
	_ = r.db.view(context.Background(), func(s *state) error {
		for _, sid := range s.stockOrder {
			if rec := s.stock[sid]; rec.ProductID == productID {
				out = append(out, rec)
			}
		}
		return nil
	})
	return out
}

func (r *StockRepo) LockByID(ctx context.Context, stockID id.ID) (*stock.Record, error) {
	return r.GetByID(ctx, stockID)
}

func (r *StockRepo) LockByKey(ctx context.Context, key stock.Key) (*stock.Record, error) {
	return r.find(ctx, func(rec stock.Record) bool {
		return rec.ProductID == key.ProductID &&
			id.EqualPtr(rec.BatchID, key.BatchID) &&
			id.EqualPtr(rec.StoreID, key.StoreID)
	})
}

func (r *StockRepo) LockAnyForProduct(ctx context.Context, productID id.ID) (*stock.Record, error) {
	return r.find(ctx, func(rec stock.Record) bool {
		return rec.ProductID == productID
	})
}

func (r *StockRepo) find(ctx context.Context, match func(stock.Record) bool) (*stock.Record, error) {
	var found *stock.Record
	err := r.db.view(ctx, func(s *state) error {
		for _, sid := range s.stockOrder {
			rec := s.stock[sid]
			if rec.DeletedAt == nil && match(rec) {
				found = &rec
				return nil
			}
		}
		return apperror.NewNotFound("stock", nil)
	})
	return found, err
}

func (r *StockRepo) Create(ctx context.Context, rec *stock.Record) error {
	return r.db.view(ctx, func(s *state) error {
		for _, existing := range s.stock {
			if existing.DeletedAt == nil && existing.Key() == rec.Key() {
				return apperror.NewConflict("stock record already exists").
					WithDetail("product_id", rec.ProductID.String())
			}
		}
		s.stock[rec.ID] = *rec
		s.stockOrder = append(s.stockOrder, rec.ID)
		return nil
	})
}

func (r *StockRepo) Update(ctx context.Context, rec *stock.Record) error {
	return r.db.view(ctx, func(s *state) error {
		if _, ok := s.stock[rec.ID]; !ok {
			return apperror.NewNotFound("stock", rec.ID)
		}
		if rec.Quantity < 0 {
			// Mirrors CHECK (quantity >= 0).
			return apperror.NewInternal(nil).WithDetail("constraint", "stock_quantity_check")
		}
		s.stock[rec.ID] = *rec
		return nil
	})
}

func (r *StockRepo) GetByID(ctx context.Context, stockID id.ID) (*stock.Record, error) {
	var found *stock.Record
	err := r.db.view(ctx, func(s *state) error {
		rec, ok := s.stock[stockID]
		if !ok {
			return apperror.NewNotFound("stock", stockID)
		}
		found = &rec
		return nil
	})
	return found, err
}

func (r *StockRepo) List(ctx context.Context, filter stock.ListFilter) (domain.ListResult[stock.Record], error) {
	filter.Normalize()
	res := domain.ListResult[stock.Record]{Items: []stock.Record{}, Limit: filter.Limit, Offset: filter.Offset}
	err := r.db.view(ctx, func(s *state) error {
		var matched []stock.Record
		for _, sid := range s.stockOrder {
			rec := s.stock[sid]
			switch {
			case filter.DeletedOnly && rec.DeletedAt == nil:
				continue
			case !filter.IncludeDeleted && rec.DeletedAt != nil:
				continue
			case filter.ProductID != nil && rec.ProductID != *filter.ProductID:
				continue
			case filter.StoreID != nil && !id.EqualPtr(rec.StoreID, filter.StoreID):
				continue
			case filter.BatchID != nil && !id.EqualPtr(rec.BatchID, filter.BatchID):
				continue
			case filter.NonZero && rec.Quantity == 0:
				continue
			}
			matched = append(matched, rec)
		}
		res.TotalCount = int64(len(matched))
		res.Items = append(res.Items, page(matched, filter.Offset, filter.Limit)...)
		return nil
	})
	return res, err
}

func page[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

var _ stock.Repository = (*StockRepo)(nil)
