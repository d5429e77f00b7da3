package stock

import (
	"context"
	"fmt"

	"stockflow/internal/core/apperror"
	"stockflow/internal/core/entity"
	"stockflow/internal/core/id"
	"stockflow/internal/core/types"
	"stockflow/internal/domain"
	"stockflow/pkg/logger"
)

// Service is the stock mutation engine. All methods must run inside the
// caller's transaction; the row locks they take are released on commit or
// rollback of that transaction.
type Service struct {
	repo Repository
}

// NewService creates the stock mutation engine.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// ApplyDelta resolves the record a delta targets, locks it and applies the
// signed quantity. Inbound deltas create a missing record; outbound deltas
// never do. A result below zero fails with InsufficientStock and leaves the
// record untouched.
func (s *Service) ApplyDelta(ctx context.Context, d Delta) (*Record, error) {
	if d.Quantity == 0 {
		return nil, apperror.NewValidation("stock delta cannot be zero").
			WithDetail("product_id", d.ProductID.String())
	}
	if id.IsNil(d.ProductID) {
		return nil, apperror.NewValidation("stock delta requires a product")
	}

	rec, err := s.locate(ctx, d)
	if err != nil {
		return nil, err
	}

	if rec == nil {
		if d.Quantity < 0 {
			return nil, apperror.NewInvalidStock(d.ProductID.String()).
				WithDetail("batch_id", id.String(d.BatchID)).
				WithDetail("store_id", id.String(d.StoreID))
		}
		return s.create(ctx, d)
	}

	if rec.ProductID != d.ProductID {
		return nil, apperror.NewInvalidReference("stock", rec.ID.String(), "stock/product mismatch").
			WithDetail("stock_product_id", rec.ProductID.String()).
			WithDetail("product_id", d.ProductID.String())
	}
	if d.StockID != nil && d.StoreID != nil && !id.EqualPtr(rec.StoreID, d.StoreID) {
		return nil, apperror.NewInvalidReference("stock", rec.ID.String(), "stock/store mismatch").
			WithDetail("stock_store_id", id.String(rec.StoreID)).
			WithDetail("store_id", id.String(d.StoreID))
	}

	next := rec.Quantity + d.Quantity
	if next < 0 {
		return nil, apperror.NewInsufficientStock(d.ProductID.String(), rec.ID.String(), -d.Quantity, rec.Quantity)
	}

	rec.Quantity = next
	if d.Quantity > 0 && d.UnitCost != nil {
		rec.UnitCost = *d.UnitCost
	}
	rec.StampUpdated(ctx)

	if err := s.repo.Update(ctx, rec); err != nil {
		return nil, fmt.Errorf("update stock %s: %w", rec.ID, err)
	}

	logger.Debug(ctx, "stock delta applied",
		"stock_id", rec.ID,
		"product_id", rec.ProductID,
		"delta", d.Quantity,
		"quantity", rec.Quantity,
	)
	return rec, nil
}

// Reverse undoes a delta previously applied to stockID. Reversal returns the
// record to a state that was valid before, so a result below zero means the
// ledger was already inconsistent: the quantity is clamped at zero and the
// shortfall is logged rather than failing the caller. A missing record is
// logged and skipped.
func (s *Service) Reverse(ctx context.Context, stockID id.ID, applied int64) (*Record, error) {
	rec, err := s.repo.LockByID(ctx, stockID)
	if err != nil {
		if apperror.IsNotFound(err) {
			logger.Warn(ctx, "stock reversal skipped: record missing",
				"stock_id", stockID,
				"applied", applied,
			)
			return nil, nil
		}
		return nil, fmt.Errorf("lock stock %s: %w", stockID, err)
	}

	next := rec.Quantity - applied
	if next < 0 {
		logger.Warn(ctx, "stock reversal clamped at zero",
			"stock_id", rec.ID,
			"product_id", rec.ProductID,
			"quantity", rec.Quantity,
			"reversal", -applied,
			"shortfall", -next,
		)
		next = 0
	}

	rec.Quantity = next
	rec.StampUpdated(ctx)
	if err := s.repo.Update(ctx, rec); err != nil {
		return nil, fmt.Errorf("update stock %s: %w", rec.ID, err)
	}
	return rec, nil
}

// Reapply applies a previously reversed delta again, as restore does. Unlike
// Reverse it is strict: the record must exist and must cover the delta.
func (s *Service) Reapply(ctx context.Context, stockID id.ID, applied int64) (*Record, error) {
	return s.adjust(ctx, stockID, applied, "missing stock row on restore")
}

// Unapply undoes a delta previously applied to stockID, as an update does
// before re-running its lines. Unlike Reverse it never clamps: reversing an
// inbound line whose goods were consumed since fails with InsufficientStock.
func (s *Service) Unapply(ctx context.Context, stockID id.ID, applied int64) (*Record, error) {
	return s.adjust(ctx, stockID, -applied, "missing stock row on update")
}

func (s *Service) adjust(ctx context.Context, stockID id.ID, delta int64, missing string) (*Record, error) {
	rec, err := s.repo.LockByID(ctx, stockID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewInvalidReference("stock", stockID.String(), missing)
		}
		return nil, fmt.Errorf("lock stock %s: %w", stockID, err)
	}

	next := rec.Quantity + delta
	if next < 0 {
		return nil, apperror.NewInsufficientStock(rec.ProductID.String(), rec.ID.String(), -delta, rec.Quantity)
	}

	rec.Quantity = next
	rec.StampUpdated(ctx)
	if err := s.repo.Update(ctx, rec); err != nil {
		return nil, fmt.Errorf("update stock %s: %w", rec.ID, err)
	}
	return rec, nil
}

// Get returns a record without locking it.
func (s *Service) Get(ctx context.Context, stockID id.ID) (*Record, error) {
	return s.repo.GetByID(ctx, stockID)
}

// List returns records matching filter.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[Record], error) {
	filter.Normalize()
	return s.repo.List(ctx, filter)
}

// locate returns the locked target record, or nil when a key lookup found nothing.
func (s *Service) locate(ctx context.Context, d Delta) (*Record, error) {
	if d.StockID != nil {
		rec, err := s.repo.LockByID(ctx, *d.StockID)
		if err != nil {
			if apperror.IsNotFound(err) {
				return nil, apperror.NewInvalidReference("stock", d.StockID.String(), "invalid stock")
			}
			return nil, fmt.Errorf("lock stock %s: %w", *d.StockID, err)
		}
		return rec, nil
	}

	rec, err := s.repo.LockByKey(ctx, d.Key())
	if err == nil {
		return rec, nil
	}
	if !apperror.IsNotFound(err) {
		return nil, fmt.Errorf("lock stock by key: %w", err)
	}

	if d.Policy != LookupAnyForProduct {
		return nil, nil
	}

	rec, err = s.repo.LockAnyForProduct(ctx, d.ProductID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("lock stock by product: %w", err)
	}
	return rec, nil
}

func (s *Service) create(ctx context.Context, d Delta) (*Record, error) {
	rec := &Record{
		Base:      entity.NewBase(),
		ProductID: d.ProductID,
		BatchID:   d.BatchID,
		StoreID:   d.StoreID,
		Quantity:  d.Quantity,
		UnitCost:  types.MoneyOr(d.UnitCost, types.Zero()),
		Status:    StatusActive,
	}
	rec.StampCreated(ctx)

	if err := rec.Validate(ctx); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("create stock: %w", err)
	}

	logger.Info(ctx, "stock record created",
		"stock_id", rec.ID,
		"product_id", rec.ProductID,
		"quantity", rec.Quantity,
		"policy", d.Policy.String(),
	)
	return rec, nil
}
