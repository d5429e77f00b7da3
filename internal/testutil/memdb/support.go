package memdb

import (
	"context"
	"fmt"
	"time"

	"stockflow/internal/core/apperror"
	"stockflow/internal/core/id"
	"stockflow/internal/core/numerator"
	"stockflow/internal/domain/audit"
	"stockflow/internal/domain/documents"
	"stockflow/internal/domain/journal"
	"stockflow/internal/domain/refs"
)

// Resolver implements refs.Resolver over entities registered with AddRef.
type Resolver struct{ db *DB }

// Refs returns the reference resolver.
func (db *DB) Refs() *Resolver { return &Resolver{db: db} }

func (r *Resolver) Require(ctx context.Context, kind refs.Kind, ref id.ID) error {
	return r.db.view(ctx, func(s *state) error {
		if _, ok := s.refs[kind][ref]; !ok {
			return apperror.NewInvalidReference(string(kind), ref.String(), "")
		}
		return nil
	})
}

func (r *Resolver) RequireBatch(ctx context.Context, batchID, productID id.ID) error {
	return r.db.view(ctx, func(s *state) error {
		owner, ok := s.batches[batchID]
		if !ok {
			return apperror.NewInvalidReference("batch", batchID.String(), "")
		}
		if owner != productID {
			return apperror.NewInvalidReference("batch", batchID.String(), "batch/product mismatch").
				WithDetail("product_id", productID.String())
		}
		return nil
	})
}

// JournalRepo implements journal.Repository.
type JournalRepo struct{ db *DB }

// Journal returns the journal repository.
func (db *DB) Journal() *JournalRepo { return &JournalRepo{db: db} }

func (r *JournalRepo) Insert(ctx context.Context, p *journal.Posting) error {
	return r.db.view(ctx, func(s *state) error {
		s.postings = append(s.postings, *p)
		return nil
	})
}

func (r *JournalRepo) List(ctx context.Context, filter journal.Filter) ([]journal.Posting, error) {
	var out []journal.Posting
	err := r.db.view(ctx, func(s *state) error {
		for _, p := range s.postings {
			if filter.RefType != "" && p.RefType != filter.RefType {
				continue
			}
			if filter.RefID != nil && p.RefID != *filter.RefID {
				continue
			}
			out = append(out, p)
			if filter.Limit > 0 && len(out) == filter.Limit {
				break
			}
		}
		return nil
	})
	return out, err
}

// Numerator implements numerator.Generator with per-prefix, per-year counters.
type Numerator struct{ db *DB }

// Numerator returns the number generator.
func (db *DB) Numerator() *Numerator { return &Numerator{db: db} }

func (n *Numerator) GetNextNumber(ctx context.Context, cfg numerator.Config, _ *numerator.Options, period time.Time) (string, error) {
	key := fmt.Sprintf("%s-%d", cfg.Prefix, period.Year())
	var next int64
	err := n.db.view(ctx, func(s *state) error {
		s.seq[key]++
		next = s.seq[key]
		return nil
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%d-%0*d", cfg.Prefix, period.Year(), cfg.PadWidth, next), nil
}

func (n *Numerator) SetNextNumber(ctx context.Context, cfg numerator.Config, period time.Time, value int64) error {
	key := fmt.Sprintf("%s-%d", cfg.Prefix, period.Year())
	return n.db.view(ctx, func(s *state) error {
		s.seq[key] = value - 1
		return nil
	})
}

// Publisher implements documents.EventPublisher.
type Publisher struct{ db *DB }

// Publisher returns the event publisher.
func (db *DB) Publisher() *Publisher { return &Publisher{db: db} }

func (p *Publisher) Publish(ctx context.Context, event documents.Event) error {
	return p.db.view(ctx, func(s *state) error {
		s.events = append(s.events, event)
		return nil
	})
}

// Recorder implements audit.Recorder.
type Recorder struct{ db *DB }

// Recorder returns the audit recorder.
func (db *DB) Recorder() *Recorder { return &Recorder{db: db} }

func (r *Recorder) Record(ctx context.Context, entry audit.Entry) error {
	return r.db.view(ctx, func(s *state) error {
		s.audit = append(s.audit, entry)
		return nil
	})
}

var (
	_ refs.Resolver            = (*Resolver)(nil)
	_ journal.Repository       = (*JournalRepo)(nil)
	_ numerator.Generator      = (*Numerator)(nil)
	_ documents.EventPublisher = (*Publisher)(nil)
	_ audit.Recorder           = (*Recorder)(nil)
)
