// Package register_repo stores the stock ledger.
package register_repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stockflow/internal/core/apperror"
	"stockflow/internal/core/id"
	"stockflow/internal/domain"
	"stockflow/internal/domain/registers/stock"
	"stockflow/internal/infrastructure/storage/postgres"
)

const stockTable = "stock_records"

var stockColumns = postgres.Columns[stock.Record]()

// StockRepo implements stock.Repository. Lock queries must run inside a
// transaction opened by the TxManager; outside one the lock is released
// as soon as the statement ends.
type StockRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewStockRepo creates the stock ledger repository.
func NewStockRepo(txm *postgres.TxManager) *StockRepo {
	return &StockRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

var _ stock.Repository = (*StockRepo)(nil)

func (r *StockRepo) selectRecords() squirrel.SelectBuilder {
	return r.builder.Select(stockColumns...).From(stockTable)
}

// nullable compares column with v, turning a nil v into IS NULL.
func nullable(column string, v *id.ID) squirrel.Sqlizer {
	if v == nil {
		return squirrel.Eq{column: nil}
	}
	return squirrel.Eq{column: *v}
}

func (r *StockRepo) lockByIDQuery(stockID id.ID) squirrel.SelectBuilder {
	return r.selectRecords().
		Where(squirrel.Eq{"id": stockID}).
		Suffix("FOR UPDATE")
}

func (r *StockRepo) lockByKeyQuery(key stock.Key) squirrel.SelectBuilder {
	return r.selectRecords().
		Where(squirrel.Eq{"product_id": key.ProductID}).
		Where(nullable("batch_id", key.BatchID)).
		Where(nullable("store_id", key.StoreID)).
		Where(squirrel.Eq{"deleted_at": nil}).
		Limit(1).
		Suffix("FOR UPDATE")
}

func (r *StockRepo) lockAnyQuery(productID id.ID) squirrel.SelectBuilder {
	return r.selectRecords().
		Where(squirrel.Eq{"product_id": productID}).
		Where(squirrel.Eq{"deleted_at": nil}).
		OrderBy("created_at", "id").
		Limit(1).
		Suffix("FOR UPDATE")
}

// LockByID locks a record by id, soft-deleted or not.
func (r *StockRepo) LockByID(ctx context.Context, stockID id.ID) (*stock.Record, error) {
	return r.getOne(ctx, r.lockByIDQuery(stockID), stockID)
}

// LockByKey locks the live record matching key, NULL batch and store
// matching absent values.
func (r *StockRepo) LockByKey(ctx context.Context, key stock.Key) (*stock.Record, error) {
	return r.getOne(ctx, r.lockByKeyQuery(key), key.ProductID)
}

// LockAnyForProduct locks the oldest live record of the product.
func (r *StockRepo) LockAnyForProduct(ctx context.Context, productID id.ID) (*stock.Record, error) {
	return r.getOne(ctx, r.lockAnyQuery(productID), productID)
}

// GetByID reads a record without locking it.
func (r *StockRepo) GetByID(ctx context.Context, stockID id.ID) (*stock.Record, error) {
	return r.getOne(ctx, r.selectRecords().Where(squirrel.Eq{"id": stockID}), stockID)
}

func (r *StockRepo) getOne(ctx context.Context, q squirrel.SelectBuilder, ref id.ID) (*stock.Record, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build stock query: %w", err)
	}

	var rec stock.Record
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &rec, sql, args...); err != nil {
		if postgres.IsNoRows(err) {
			return nil, apperror.NewNotFound("stock", ref)
		}
		return nil, fmt.Errorf("get stock: %w", err)
	}
	return &rec, nil
}

// Create inserts a record. The partial unique index on the live key turns
// a concurrent insert of the same key into a Conflict.
func (r *StockRepo) Create(ctx context.Context, rec *stock.Record) error {
	sql, args, err := r.builder.Insert(stockTable).
		SetMap(postgres.StructToMap(rec)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return postgres.MapError(err)
	}
	return nil
}

// Update writes quantity, cost, status and audit fields.
func (r *StockRepo) Update(ctx context.Context, rec *stock.Record) error {
	sql, args, err := r.builder.Update(stockTable).
		Set("quantity", rec.Quantity).
		Set("unit_cost", rec.UnitCost).
		Set("status", rec.Status).
		Set("updated_at", rec.UpdatedAt).
		Set("updated_by", rec.UpdatedBy).
		Where(squirrel.Eq{"id": rec.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return postgres.MapError(err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("stock", rec.ID)
	}
	return nil
}

func (r *StockRepo) listWhere(filter stock.ListFilter) squirrel.And {
	where := squirrel.And{}
	if !filter.IncludeDeleted {
		where = append(where, squirrel.Eq{"deleted_at": nil})
	}
	if filter.DeletedOnly {
		where = append(where, squirrel.NotEq{"deleted_at": nil})
	}
	if filter.ProductID != nil {
		where = append(where, squirrel.Eq{"product_id": *filter.ProductID})
	}
	if filter.StoreID != nil {
		where = append(where, squirrel.Eq{"store_id": *filter.StoreID})
	}
	if filter.BatchID != nil {
		where = append(where, squirrel.Eq{"batch_id": *filter.BatchID})
	}
	if filter.NonZero {
		where = append(where, squirrel.Gt{"quantity": 0})
	}
	return where
}

// List returns a page of records ordered by creation.
func (r *StockRepo) List(ctx context.Context, filter stock.ListFilter) (domain.ListResult[stock.Record], error) {
	filter.Normalize()
	res := domain.ListResult[stock.Record]{Items: []stock.Record{}, Limit: filter.Limit, Offset: filter.Offset}
	where := r.listWhere(filter)
	q := r.txm.GetQuerier(ctx)

	countSQL, countArgs, err := r.builder.Select("COUNT(*)").From(stockTable).Where(where).ToSql()
	if err != nil {
		return res, fmt.Errorf("build count: %w", err)
	}
	if err := q.QueryRow(ctx, countSQL, countArgs...).Scan(&res.TotalCount); err != nil {
		return res, fmt.Errorf("count stock: %w", err)
	}

	sql, args, err := r.selectRecords().
		Where(where).
		OrderBy(orderBy(filter.OrderBy)).
		Limit(uint64(filter.Limit)).
		Offset(uint64(filter.Offset)).
		ToSql()
	if err != nil {
		return res, fmt.Errorf("build list: %w", err)
	}
	if err := pgxscan.Select(ctx, q, &res.Items, sql, args...); err != nil {
		return res, fmt.Errorf("list stock: %w", err)
	}
	return res, nil
}

var sortable = map[string]bool{
	"created_at": true,
	"quantity":   true,
	"product_id": true,
	"unit_cost":  true,
}

// orderBy turns "-quantity" into "quantity DESC"; unknown columns fall
// back to creation order.
func orderBy(raw string) string {
	desc := strings.HasPrefix(raw, "-")
	col := strings.TrimPrefix(raw, "-")
	if !sortable[col] {
		return "created_at, id"
	}
	if desc {
		return col + " DESC, id"
	}
	return col + ", id"
}
