// Package memdb is an in-memory database for domain tests.
//
// Transactions are serialized by one mutex, so two concurrent documents
// touching the same stock record behave as they would under row locks:
// the second sees the first's committed quantity. A failed transaction
// restores the snapshot taken when it began.
package memdb

import (
	"context"
	"sync"

	"stockflow/internal/core/id"
	"stockflow/internal/core/tx"
	"stockflow/internal/domain/audit"
	"stockflow/internal/domain/documents"
	"stockflow/internal/domain/journal"
	"stockflow/internal/domain/refs"
	"stockflow/internal/domain/registers/stock"
)

type txKey struct{}

// DB holds every table the domain touches.
type DB struct {
	mu sync.Mutex
	st *state
}

type state struct {
	stock      map[id.ID]stock.Record
	stockOrder []id.ID

	docs     map[string]map[id.ID][]byte
	docOrder map[string][]id.ID
	lines    map[id.ID][]documents.Line

	postings []journal.Posting
	events   []documents.Event
	audit    []audit.Entry
	seq      map[string]int64

	refs    map[refs.Kind]map[id.ID]struct{}
	batches map[id.ID]id.ID
}

// New creates an empty database.
func New() *DB {
	return &DB{st: &state{
		stock:    make(map[id.ID]stock.Record),
		docs:     make(map[string]map[id.ID][]byte),
		docOrder: make(map[string][]id.ID),
		lines:    make(map[id.ID][]documents.Line),
		seq:      make(map[string]int64),
		refs:     make(map[refs.Kind]map[id.ID]struct{}),
		batches:  make(map[id.ID]id.ID),
	}}
}

func (s *state) clone() *state {
	c := &state{
		stock:      make(map[id.ID]stock.Record, len(s.stock)),
		stockOrder: append([]id.ID(nil), s.stockOrder...),
		docs:       make(map[string]map[id.ID][]byte, len(s.docs)),
		docOrder:   make(map[string][]id.ID, len(s.docOrder)),
		lines:      make(map[id.ID][]documents.Line, len(s.lines)),
		postings:   append([]journal.Posting(nil), s.postings...),
		events:     append([]documents.Event(nil), s.events...),
		audit:      append([]audit.Entry(nil), s.audit...),
		seq:        make(map[string]int64, len(s.seq)),
		refs:       make(map[refs.Kind]map[id.ID]struct{}, len(s.refs)),
		batches:    make(map[id.ID]id.ID, len(s.batches)),
	}
	for k, v := range s.stock {
		c.stock[k] = v
	}
	for table, rows := range s.docs {
		m := make(map[id.ID][]byte, len(rows))
		for k, v := range rows {
			m[k] = v
		}
		c.docs[table] = m
	}
	for table, order := range s.docOrder {
		c.docOrder[table] = append([]id.ID(nil), order...)
	}
	for k, v := range s.lines {
		c.lines[k] = append([]documents.Line(nil), v...)
	}
	for k, v := range s.seq {
		c.seq[k] = v
	}
	for kind, ids := range s.refs {
		m := make(map[id.ID]struct{}, len(ids))
		for k := range ids {
			m[k] = struct{}{}
		}
		c.refs[kind] = m
	}
	for k, v := range s.batches {
		c.batches[k] = v
	}
	return c
}

// RunInTransaction implements tx.Manager.
func (db *DB) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) == db {
		return fn(ctx)
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	snapshot := db.st.clone()
	defer func() {
		if p := recover(); p != nil {
			db.st = snapshot
			panic(p)
		}
	}()
	if err := fn(context.WithValue(ctx, txKey{}, db)); err != nil {
		db.st = snapshot
		return err
	}
	return nil
}

// view runs fn against the current state, joining the transaction carried
// by ctx or taking the lock for a single statement.
func (db *DB) view(ctx context.Context, fn func(s *state) error) error {
	if ctx.Value(txKey{}) == db {
		return fn(db.st)
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	return fn(db.st)
}

// AddRef registers live entities of kind.
func (db *DB) AddRef(kind refs.Kind, ids ...id.ID) {
	db.mu.Lock()
	defer db.mu.Unlock()
	m, ok := db.st.refs[kind]
	if !ok {
		m = make(map[id.ID]struct{})
		db.st.refs[kind] = m
	}
	for _, ref := range ids {
		m[ref] = struct{}{}
	}
}

// AddBatch registers a batch of productID.
func (db *DB) AddBatch(batchID, productID id.ID) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.st.batches[batchID] = productID
}

// Postings returns every journal posting in insertion order.
func (db *DB) Postings() []journal.Posting {
	db.mu.Lock()
	defer db.mu.Unlock()
	return append([]journal.Posting(nil), db.st.postings...)
}

// Events returns every published event in order.
func (db *DB) Events() []documents.Event {
	db.mu.Lock()
	defer db.mu.Unlock()
	return append([]documents.Event(nil), db.st.events...)
}

// AuditEntries returns every audit entry in order.
func (db *DB) AuditEntries() []audit.Entry {
	db.mu.Lock()
	defer db.mu.Unlock()
	return append([]audit.Entry(nil), db.st.audit...)
}

var _ tx.Manager = (*DB)(nil)
