// Package journal_repo stores accounting postings.
package journal_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stockflow/internal/domain/journal"
	"stockflow/internal/infrastructure/storage/postgres"
)

const table = "journal_entries"

var columns = postgres.Columns[journal.Posting]()

// Repo implements journal.Repository. Rows are never updated; reversals
// are new rows.
type Repo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewRepo creates the repository.
func NewRepo(txm *postgres.TxManager) *Repo {
	return &Repo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

var _ journal.Repository = (*Repo)(nil)

// Insert appends a posting.
func (r *Repo) Insert(ctx context.Context, p *journal.Posting) error {
	sql, args, err := r.builder.Insert(table).SetMap(postgres.StructToMap(p)).ToSql()
	if err != nil {
		return fmt.Errorf("build journal insert: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return postgres.MapError(err)
	}
	return nil
}

func (r *Repo) listQuery(filter journal.Filter) squirrel.SelectBuilder {
	q := r.builder.Select(columns...).From(table)
	if filter.RefType != "" {
		q = q.Where(squirrel.Eq{"ref_type": filter.RefType})
	}
	if filter.RefID != nil {
		q = q.Where(squirrel.Eq{"ref_id": *filter.RefID})
	}
	limit := filter.Limit
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	return q.OrderBy("created_at", "id").Limit(uint64(limit))
}

// List returns postings in write order.
func (r *Repo) List(ctx context.Context, filter journal.Filter) ([]journal.Posting, error) {
	sql, args, err := r.listQuery(filter).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build journal query: %w", err)
	}

	out := []journal.Posting{}
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("list journal: %w", err)
	}
	return out, nil
}
