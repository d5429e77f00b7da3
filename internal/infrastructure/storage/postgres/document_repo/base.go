// Package document_repo stores document headers and their line items.
package document_repo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stockflow/internal/core/apperror"
	"stockflow/internal/core/id"
	"stockflow/internal/domain"
	"stockflow/internal/domain/documents"
	"stockflow/internal/infrastructure/storage/postgres"
)

var lineColumns = postgres.Columns[documents.Line]()

// Tables names the header and line tables of one document kind.
type Tables struct {
	Header string
	Lines  string
}

// DocumentRepo implements documents.Repository for one kind. Every kind
// shares the header layout; kind columns come from the db tags of D.
type DocumentRepo[D documents.Document] struct {
	txm     *postgres.TxManager
	tables  Tables
	columns []string
	newDoc  func() D
	builder squirrel.StatementBuilderType
}

// NewDocumentRepo creates a repository over tables. columns are the header
// columns of D, usually postgres.Columns of the document struct.
func NewDocumentRepo[D documents.Document](txm *postgres.TxManager, tables Tables, columns []string, newDoc func() D) *DocumentRepo[D] {
	return &DocumentRepo[D]{
		txm:     txm,
		tables:  tables,
		columns: columns,
		newDoc:  newDoc,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *DocumentRepo[D]) headerValues(doc D) map[string]any {
	data := postgres.StructToMap(doc)
	out := make(map[string]any, len(r.columns))
	for _, col := range r.columns {
		if v, ok := data[col]; ok {
			out[col] = v
		}
	}
	return out
}

// Create inserts the header. Lines are written by SaveLines.
func (r *DocumentRepo[D]) Create(ctx context.Context, doc D) error {
	sql, args, err := r.builder.Insert(r.tables.Header).
		SetMap(r.headerValues(doc)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return postgres.MapError(err)
	}
	return nil
}

func (r *DocumentRepo[D]) updateQuery(doc D) squirrel.UpdateBuilder {
	h := doc.GetHeader()
	set := r.headerValues(doc)
	for _, immutable := range []string{"id", "created_at", "created_by"} {
		delete(set, immutable)
	}
	// The caller bumps Version; the row must still hold the previous one.
	return r.builder.Update(r.tables.Header).
		SetMap(set).
		Where(squirrel.Eq{"id": h.ID}).
		Where(squirrel.Eq{"version": h.Version - 1})
}

// Update rewrites the header.
func (r *DocumentRepo[D]) Update(ctx context.Context, doc D) error {
	sql, args, err := r.updateQuery(doc).ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return postgres.MapError(err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewConcurrentModification(r.tables.Header, doc.GetHeader().ID)
	}
	return nil
}

func (r *DocumentRepo[D]) selectHeaders() squirrel.SelectBuilder {
	return r.builder.Select(r.columns...).From(r.tables.Header)
}

// GetByID loads a document with its lines.
func (r *DocumentRepo[D]) GetByID(ctx context.Context, docID id.ID, includeDeleted bool) (D, error) {
	q := r.selectHeaders().Where(squirrel.Eq{"id": docID})
	if !includeDeleted {
		q = q.Where(squirrel.Eq{"deleted_at": nil})
	}
	return r.getOne(ctx, q, docID)
}

// GetForUpdate locks the header row and loads the document, soft-deleted
// or not.
func (r *DocumentRepo[D]) GetForUpdate(ctx context.Context, docID id.ID) (D, error) {
	return r.getOne(ctx, r.selectHeaders().Where(squirrel.Eq{"id": docID}).Suffix("FOR UPDATE"), docID)
}

func (r *DocumentRepo[D]) getOne(ctx context.Context, q squirrel.SelectBuilder, docID id.ID) (D, error) {
	var zero D
	sql, args, err := q.ToSql()
	if err != nil {
		return zero, fmt.Errorf("build query: %w", err)
	}

	doc := r.newDoc()
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), doc, sql, args...); err != nil {
		if postgres.IsNoRows(err) {
			return zero, apperror.NewNotFound(r.tables.Header, docID)
		}
		return zero, fmt.Errorf("get %s: %w", r.tables.Header, err)
	}

	lines, err := r.loadLines(ctx, []id.ID{docID})
	if err != nil {
		return zero, err
	}
	doc.SetLines(lines[docID])
	return doc, nil
}

func (r *DocumentRepo[D]) listWhere(filter domain.ListFilter) squirrel.Sqlizer {
	switch {
	case filter.DeletedOnly:
		return squirrel.NotEq{"deleted_at": nil}
	case filter.IncludeDeleted:
		return squirrel.Expr("TRUE")
	default:
		return squirrel.Eq{"deleted_at": nil}
	}
}

// List returns a page of documents with their lines.
func (r *DocumentRepo[D]) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[D], error) {
	filter.Normalize()
	res := domain.ListResult[D]{Items: []D{}, Limit: filter.Limit, Offset: filter.Offset}

	order, err := r.orderBy(filter.OrderBy)
	if err != nil {
		return res, err
	}

	q := r.txm.GetQuerier(ctx)
	where := r.listWhere(filter)

	countSQL, countArgs, err := r.builder.Select("COUNT(*)").From(r.tables.Header).Where(where).ToSql()
	if err != nil {
		return res, fmt.Errorf("build count: %w", err)
	}
	if err := q.QueryRow(ctx, countSQL, countArgs...).Scan(&res.TotalCount); err != nil {
		return res, fmt.Errorf("count %s: %w", r.tables.Header, err)
	}

	sql, args, err := r.selectHeaders().
		Where(where).
		OrderBy(order).
		Limit(uint64(filter.Limit)).
		Offset(uint64(filter.Offset)).
		ToSql()
	if err != nil {
		return res, fmt.Errorf("build list: %w", err)
	}

	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return res, fmt.Errorf("list %s: %w", r.tables.Header, err)
	}
	scanner := pgxscan.NewRowScanner(rows)
	ids := make([]id.ID, 0, filter.Limit)
	for rows.Next() {
		doc := r.newDoc()
		if err := scanner.Scan(doc); err != nil {
			rows.Close()
			return res, fmt.Errorf("scan %s: %w", r.tables.Header, err)
		}
		res.Items = append(res.Items, doc)
		ids = append(ids, doc.GetHeader().ID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return res, fmt.Errorf("list %s: %w", r.tables.Header, err)
	}

	lines, err := r.loadLines(ctx, ids)
	if err != nil {
		return res, err
	}
	for _, doc := range res.Items {
		doc.SetLines(lines[doc.GetHeader().ID])
	}
	return res, nil
}

var sortable = map[string]bool{
	"number":       true,
	"date":         true,
	"created_at":   true,
	"updated_at":   true,
	"total_amount": true,
}

func (r *DocumentRepo[D]) orderBy(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "date DESC, id DESC", nil
	}

	direction := "ASC"
	field := strings.TrimPrefix(raw, "+")
	if strings.HasPrefix(raw, "-") {
		direction = "DESC"
		field = strings.TrimPrefix(raw, "-")
	}
	if !sortable[field] {
		return "", apperror.NewValidation("invalid orderBy").WithDetail("orderBy", raw)
	}
	return field + " " + direction + ", id " + direction, nil
}

func (r *DocumentRepo[D]) loadLines(ctx context.Context, docIDs []id.ID) (map[id.ID][]documents.Line, error) {
	out := make(map[id.ID][]documents.Line, len(docIDs))
	if len(docIDs) == 0 {
		return out, nil
	}

	sql, args, err := r.builder.Select(lineColumns...).
		From(r.tables.Lines).
		Where(squirrel.Eq{"document_id": docIDs}).
		OrderBy("document_id", "line_no").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build lines query: %w", err)
	}

	var lines []documents.Line
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("get %s: %w", r.tables.Lines, err)
	}
	for _, l := range lines {
		out[l.DocumentID] = append(out[l.DocumentID], l)
	}
	return out, nil
}

// SaveLines appends lines to the document.
func (r *DocumentRepo[D]) SaveLines(ctx context.Context, docID id.ID, lines []documents.Line) error {
	if len(lines) == 0 {
		return nil
	}

	q := r.builder.Insert(r.tables.Lines).Columns(lineColumns...)
	for _, l := range lines {
		l.DocumentID = docID
		values := postgres.StructToMap(l)
		row := make([]any, len(lineColumns))
		for i, col := range lineColumns {
			row[i] = values[col]
		}
		q = q.Values(row...)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build lines insert: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return postgres.MapError(err)
	}
	return nil
}

// DeleteLines removes every line of the document.
func (r *DocumentRepo[D]) DeleteLines(ctx context.Context, docID id.ID) error {
	sql, args, err := r.builder.Delete(r.tables.Lines).Where(squirrel.Eq{"document_id": docID}).ToSql()
	if err != nil {
		return fmt.Errorf("build lines delete: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("delete %s: %w", r.tables.Lines, err)
	}
	return nil
}

// SoftDelete marks the header and its lines deleted.
func (r *DocumentRepo[D]) SoftDelete(ctx context.Context, docID id.ID, at time.Time, actor *string) error {
	return r.setDeleted(ctx, docID, &at, actor)
}

// Restore clears the deletion mark of the header and its lines.
func (r *DocumentRepo[D]) Restore(ctx context.Context, docID id.ID, actor *string) error {
	return r.setDeleted(ctx, docID, nil, actor)
}

func (r *DocumentRepo[D]) setDeleted(ctx context.Context, docID id.ID, at *time.Time, actor *string) error {
	now := time.Now().UTC()
	q := r.txm.GetQuerier(ctx)

	sql, args, err := r.builder.Update(r.tables.Header).
		Set("deleted_at", at).
		Set("updated_at", now).
		Set("updated_by", actor).
		Where(squirrel.Eq{"id": docID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}
	tag, err := q.Exec(ctx, sql, args...)
	if err != nil {
		return postgres.MapError(err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound(r.tables.Header, docID)
	}

	sql, args, err = r.builder.Update(r.tables.Lines).
		Set("deleted_at", at).
		Set("updated_at", now).
		Where(squirrel.Eq{"document_id": docID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build lines update: %w", err)
	}
	if _, err := q.Exec(ctx, sql, args...); err != nil {
		return postgres.MapError(err)
	}
	return nil
}

// HardDelete removes the lines and then the header.
func (r *DocumentRepo[D]) HardDelete(ctx context.Context, docID id.ID) error {
	if err := r.DeleteLines(ctx, docID); err != nil {
		return err
	}

	sql, args, err := r.builder.Delete(r.tables.Header).Where(squirrel.Eq{"id": docID}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return postgres.MapError(err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound(r.tables.Header, docID)
	}
	return nil
}
