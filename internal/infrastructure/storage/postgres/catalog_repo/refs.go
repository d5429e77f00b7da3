// Package catalog_repo resolves references from documents to catalog
// entities (suppliers, customers, stores, products, batches).
package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stockflow/internal/core/apperror"
	"stockflow/internal/core/id"
	"stockflow/internal/domain/refs"
	"stockflow/internal/infrastructure/storage/postgres"
)

// Tables maps each reference kind to its catalog table.
var Tables = map[refs.Kind]string{
	refs.Supplier:      "cat_suppliers",
	refs.Customer:      "cat_customers",
	refs.Store:         "cat_stores",
	refs.Employee:      "cat_employees",
	refs.PaymentMethod: "cat_payment_methods",
	refs.Product:       "cat_products",
	refs.Batch:         "cat_batches",
}

// Resolver implements refs.Resolver. A soft-deleted catalog row does not
// resolve.
type Resolver struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewResolver creates the resolver.
func NewResolver(txm *postgres.TxManager) *Resolver {
	return &Resolver{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

var _ refs.Resolver = (*Resolver)(nil)

func (r *Resolver) existsQuery(kind refs.Kind, ref id.ID) (string, []any, error) {
	table, ok := Tables[kind]
	if !ok {
		return "", nil, fmt.Errorf("unknown reference kind %q", kind)
	}
	inner, args, err := squirrel.Select("1").
		From(table).
		Where(squirrel.Eq{"id": ref}).
		Where(squirrel.Eq{"deleted_at": nil}).
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("build %s lookup: %w", kind, err)
	}
	sql, err := squirrel.Dollar.ReplacePlaceholders("SELECT EXISTS(" + inner + ")")
	return sql, args, err
}

// Require checks that a live entity of kind exists.
func (r *Resolver) Require(ctx context.Context, kind refs.Kind, ref id.ID) error {
	sql, args, err := r.existsQuery(kind, ref)
	if err != nil {
		return err
	}

	var found bool
	if err := r.txm.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&found); err != nil {
		return fmt.Errorf("resolve %s: %w", kind, err)
	}
	if !found {
		return apperror.NewInvalidReference(string(kind), ref.String(), "")
	}
	return nil
}

// RequireBatch checks that the batch exists and belongs to productID.
func (r *Resolver) RequireBatch(ctx context.Context, batchID, productID id.ID) error {
	sql, args, err := r.builder.Select("product_id").
		From(Tables[refs.Batch]).
		Where(squirrel.Eq{"id": batchID}).
		Where(squirrel.Eq{"deleted_at": nil}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build batch query: %w", err)
	}

	var owner id.ID
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &owner, sql, args...); err != nil {
		if postgres.IsNoRows(err) {
			return apperror.NewInvalidReference("batch", batchID.String(), "")
		}
		return fmt.Errorf("resolve batch: %w", err)
	}
	if owner != productID {
		return apperror.NewInvalidReference("batch", batchID.String(), "batch/product mismatch").
			WithDetail("product_id", productID.String())
	}
	return nil
}
