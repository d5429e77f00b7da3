package memdb

import (
	"context"
	"encoding/json"
	"time"

	"stockflow/internal/core/apperror"
	"stockflow/internal/core/id"
	"stockflow/internal/domain"
	"stockflow/internal/domain/documents"
)

// DocStore implements documents.Repository for one kind. Headers are kept
// as JSON so every read returns an independent copy.
type DocStore[D documents.Document] struct {
	db     *DB
	table  string
	newDoc func() D
}

// NewDocStore creates a store for the documents of table.
func NewDocStore[D documents.Document](db *DB, table string, newDoc func() D) *DocStore[D] {
	return &DocStore[D]{db: db, table: table, newDoc: newDoc}
}

func (r *DocStore[D]) Create(ctx context.Context, doc D) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	docID := doc.GetHeader().ID
	return r.db.view(ctx, func(s *state) error {
		rows := s.docs[r.table]
		if rows == nil {
			rows = make(map[id.ID][]byte)
			s.docs[r.table] = rows
		}
		if _, ok := rows[docID]; ok {
			return apperror.NewConflict(r.table + " already exists")
		}
		rows[docID] = raw
		s.docOrder[r.table] = append(s.docOrder[r.table], docID)
		return nil
	})
}

func (r *DocStore[D]) Update(ctx context.Context, doc D) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	docID := doc.GetHeader().ID
	return r.db.view(ctx, func(s *state) error {
		if _, ok := s.docs[r.table][docID]; !ok {
			return apperror.NewNotFound(r.table, docID)
		}
		s.docs[r.table][docID] = raw
		return nil
	})
}

func (r *DocStore[D]) GetByID(ctx context.Context, docID id.ID, includeDeleted bool) (D, error) {
	var out D
	err := r.db.view(ctx, func(s *state) error {
		doc, err := r.load(s, docID)
		if err != nil {
			return err
		}
		if doc.GetHeader().IsDeleted() && !includeDeleted {
			return apperror.NewNotFound(r.table, docID)
		}
		out = doc
		return nil
	})
	return out, err
}

func (r *DocStore[D]) GetForUpdate(ctx context.Context, docID id.ID) (D, error) {
	return r.GetByID(ctx, docID, true)
}

func (r *DocStore[D]) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[D], error) {
	filter.Normalize()
	res := domain.ListResult[D]{Items: []D{}, Limit: filter.Limit, Offset: filter.Offset}
	err := r.db.view(ctx, func(s *state) error {
		var matched []D
		for _, docID := range s.docOrder[r.table] {
			doc, err := r.load(s, docID)
			if err != nil {
				return err
			}
			deleted := doc.GetHeader().IsDeleted()
			if (filter.DeletedOnly && !deleted) || (!filter.IncludeDeleted && deleted) {
				continue
			}
			matched = append(matched, doc)
		}
		res.TotalCount = int64(len(matched))
		res.Items = append(res.Items, page(matched, filter.Offset, filter.Limit)...)
		return nil
	})
	return res, err
}

func (r *DocStore[D]) SaveLines(ctx context.Context, docID id.ID, lines []documents.Line) error {
	return r.db.view(ctx, func(s *state) error {
		s.lines[docID] = append(s.lines[docID], lines...)
		return nil
	})
}

func (r *DocStore[D]) DeleteLines(ctx context.Context, docID id.ID) error {
	return r.db.view(ctx, func(s *state) error {
		delete(s.lines, docID)
		return nil
	})
}

func (r *DocStore[D]) SoftDelete(ctx context.Context, docID id.ID, at time.Time, actor *string) error {
	return r.mutate(ctx, docID, func(h *documents.Header, lines []documents.Line) {
		h.MarkDeleted(at)
		h.UpdatedBy = actor
		for i := range lines {
			lines[i].MarkDeleted(at)
		}
	})
}

func (r *DocStore[D]) Restore(ctx context.Context, docID id.ID, actor *string) error {
	return r.mutate(ctx, docID, func(h *documents.Header, lines []documents.Line) {
		h.Recover()
		h.UpdatedBy = actor
		for i := range lines {
			lines[i].Recover()
		}
	})
}

func (r *DocStore[D]) HardDelete(ctx context.Context, docID id.ID) error {
	return r.db.view(ctx, func(s *state) error {
		if _, ok := s.docs[r.table][docID]; !ok {
			return apperror.NewNotFound(r.table, docID)
		}
		delete(s.docs[r.table], docID)
		delete(s.lines, docID)
		order := s.docOrder[r.table][:0:0]
		for _, other := range s.docOrder[r.table] {
			if other != docID {
				order = append(order, other)
			}
		}
		s.docOrder[r.table] = order
		return nil
	})
}

// mutate rewrites the header and lines of docID in place.
func (r *DocStore[D]) mutate(ctx context.Context, docID id.ID, fn func(h *documents.Header, lines []documents.Line)) error {
	return r.db.view(ctx, func(s *state) error {
		doc, err := r.load(s, docID)
		if err != nil {
			return err
		}
		lines := append([]documents.Line(nil), s.lines[docID]...)
		fn(doc.GetHeader(), lines)

		doc.SetLines(nil)
		raw, err := json.Marshal(doc)
		if err != nil {
			return err
		}
		s.docs[r.table][docID] = raw
		s.lines[docID] = lines
		return nil
	})
}

func (r *DocStore[D]) load(s *state, docID id.ID) (D, error) {
	raw, ok := s.docs[r.table][docID]
	if !ok {
		var zero D
		return zero, apperror.NewNotFound(r.table, docID)
	}
	doc := r.newDoc()
	if err := json.Unmarshal(raw, doc); err != nil {
		var zero D
		return zero, err
	}
	doc.SetLines(append([]documents.Line{}, s.lines[docID]...))
	return doc, nil
}

var _ documents.Repository[documents.Document] = (*DocStore[documents.Document])(nil)
