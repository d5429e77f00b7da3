package documents

import (
	"context"
	"fmt"
	"time"

	"stockflow/internal/core/apperror"
	appctx "stockflow/internal/core/context"
	"stockflow/internal/core/entity"
	"stockflow/internal/core/id"
	"stockflow/internal/core/numerator"
	"stockflow/internal/core/security"
	"stockflow/internal/core/tx"
	"stockflow/internal/domain"
	"stockflow/internal/domain/audit"
	"stockflow/internal/domain/journal"
	"stockflow/internal/domain/refs"
	"stockflow/internal/domain/registers/stock"
	"stockflow/pkg/logger"
)

// Repository persists one document kind. Reads return the document with
// all of its lines.
type Repository[D Document] interface {
	// Create inserts the header.
	Create(ctx context.Context, doc D) error
	// Update writes the header.
	Update(ctx context.Context, doc D) error
	// GetByID reads a document; soft-deleted ones only when includeDeleted.
	GetByID(ctx context.Context, docID id.ID, includeDeleted bool) (D, error)
	// GetForUpdate locks the header row, soft-deleted or not.
	GetForUpdate(ctx context.Context, docID id.ID) (D, error)
	List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[D], error)

	// SaveLines inserts lines for docID.
	SaveLines(ctx context.Context, docID id.ID, lines []Line) error
	// DeleteLines physically removes every line of docID.
	DeleteLines(ctx context.Context, docID id.ID) error

	// SoftDelete stamps deleted_at on the header and its lines.
	SoftDelete(ctx context.Context, docID id.ID, at time.Time, actor *string) error
	// Restore clears deleted_at on the header and its lines.
	Restore(ctx context.Context, docID id.ID, actor *string) error
	// HardDelete removes lines and header.
	HardDelete(ctx context.Context, docID id.ID) error
}

// Definition is what differs between document kinds.
type Definition[D Document] struct {
	Kind      Kind
	Direction Direction
	Lookup    stock.LookupPolicy
	// NumberPrefix feeds the numerator, e.g. "PUR".
	NumberPrefix string
	// ResolveRefs checks kind-specific references (counterparty, parent
	// document) and may copy fields from them. Runs inside the transaction.
	ResolveRefs func(ctx context.Context, doc D) error
	// Prepare runs after numbering, right before the header is written.
	Prepare func(doc D)
	// Journal derives the posting for the document. Nil disables posting.
	Journal journal.Mapper[D]
}

// Deps are the collaborators shared by every kind.
type Deps struct {
	TxManager tx.Manager
	Stock     *stock.Service
	Refs      refs.Resolver
	// Optional collaborators; nil disables the concern.
	Poster    *journal.Poster
	Numerator numerator.Generator
	Events    EventPublisher
	Audit     audit.Recorder
	Policy    security.PostingPolicy
}

// Lifecycle runs create, update, soft-delete, restore and hard-delete for
// one document kind. Each call is one transaction: any failure rolls back
// the header, the lines, every stock delta and the journal posting.
type Lifecycle[D Document] struct {
	def  Definition[D]
	repo Repository[D]
	deps Deps
}

// NewLifecycle wires a document kind to the shared collaborators.
func NewLifecycle[D Document](def Definition[D], repo Repository[D], deps Deps) *Lifecycle[D] {
	if deps.Policy == nil {
		deps.Policy = security.OpenPolicy{}
	}
	if deps.Audit == nil {
		deps.Audit = audit.Nop{}
	}
	return &Lifecycle[D]{def: def, repo: repo, deps: deps}
}

// Kind returns the document kind served.
func (l *Lifecycle[D]) Kind() Kind {
	return l.def.Kind
}

// Create persists doc with the given header fields and lines. Kind-specific
// fields must already be set on doc.
func (l *Lifecycle[D]) Create(ctx context.Context, doc D, in HeaderInput, lines []LineInput) (D, error) {
	var zero D
	if len(lines) == 0 {
		return zero, apperror.NewValidation("at least one item is required").WithDetail("field", "items")
	}
	if err := CheckLines(lines); err != nil {
		return zero, err
	}

	h := doc.GetHeader()
	in.applyTo(h)
	in.deriveTotals(h, lines)
	if err := h.Validate(ctx); err != nil {
		return zero, err
	}

	err := l.deps.TxManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := l.deps.Policy.CanModify(ctx, h.Date); err != nil {
			return err
		}
		if err := l.resolveRefs(ctx, doc); err != nil {
			return err
		}
		if err := l.assignNumber(ctx, h); err != nil {
			return err
		}
		l.prepare(doc)

		h.StampCreated(ctx)
		if err := l.repo.Create(ctx, doc); err != nil {
			return fmt.Errorf("create %s: %w", l.def.Kind, err)
		}

		items, err := l.applyLines(ctx, doc, lines)
		if err != nil {
			return err
		}
		doc.SetLines(items)

		if err := l.post(ctx, doc, journal.ActionCreate); err != nil {
			return err
		}
		return l.record(ctx, doc, audit.ActionCreate, "created")
	})
	if err != nil {
		return zero, err
	}

	logger.Info(ctx, string(l.def.Kind)+" created",
		"id", h.ID,
		"number", h.Number,
		"lines", len(lines),
	)
	return l.repo.GetByID(ctx, h.ID, false)
}

// UpdateRequest describes an update.
type UpdateRequest[D Document] struct {
	Header HeaderInput
	// Version enables the optimistic check when non-nil.
	Version *int
	// Items replaces the line set; nil keeps the current set.
	Items []LineInput
	// Apply sets kind-specific fields on the loaded document.
	Apply func(doc D) error
}

// Update replaces the document's lines and header fields. Reversal of the
// old lines is strict: an update cannot lower a record below zero, so an
// inbound document whose goods were consumed can only be raised or kept.
// Stock-raising steps run before stock-lowering ones so an unchanged line
// set always nets out.
func (l *Lifecycle[D]) Update(ctx context.Context, docID id.ID, req UpdateRequest[D]) (D, error) {
	var zero D
	if req.Items != nil {
		if len(req.Items) == 0 {
			return zero, apperror.NewValidation("items cannot be empty").WithDetail("field", "items")
		}
		if err := CheckLines(req.Items); err != nil {
			return zero, err
		}
	}

	err := l.deps.TxManager.RunInTransaction(ctx, func(ctx context.Context) error {
		doc, err := l.repo.GetForUpdate(ctx, docID)
		if err != nil {
			return err
		}
		h := doc.GetHeader()
		if h.IsDeleted() {
			return apperror.NewNotFound(string(l.def.Kind), docID)
		}
		if req.Version != nil && *req.Version != h.Version {
			return apperror.NewConcurrentModification(string(l.def.Kind), docID).
				WithDetail("expected_version", *req.Version).
				WithDetail("actual_version", h.Version)
		}
		if err := l.deps.Policy.CanModify(ctx, h.Date); err != nil {
			return err
		}

		previous, err := l.payload(doc)
		if err != nil {
			return err
		}
		oldLines := doc.GetLines()
		oldStore := h.StoreID

		if l.def.Direction == Outbound {
			if err := l.reverseLines(ctx, oldLines, true); err != nil {
				return err
			}
		}
		if err := l.repo.DeleteLines(ctx, docID); err != nil {
			return fmt.Errorf("delete %s lines: %w", l.def.Kind, err)
		}

		req.Header.applyTo(h)

		lines := req.Items
		if lines == nil {
			// Records are keyed by store, so a moved document re-resolves them.
			lines = linesToInputs(oldLines, id.EqualPtr(oldStore, h.StoreID))
			req.Header.recomputeTotal(h)
		} else {
			req.Header.deriveTotals(h, lines)
		}
		if req.Apply != nil {
			if err := req.Apply(doc); err != nil {
				return err
			}
		}
		if err := h.Validate(ctx); err != nil {
			return err
		}
		if err := l.deps.Policy.CanModify(ctx, h.Date); err != nil {
			return err
		}
		if err := l.resolveRefs(ctx, doc); err != nil {
			return err
		}

		l.prepare(doc)
		h.Version++
		h.StampUpdated(ctx)
		if err := l.repo.Update(ctx, doc); err != nil {
			return fmt.Errorf("update %s: %w", l.def.Kind, err)
		}

		items, err := l.applyLines(ctx, doc, lines)
		if err != nil {
			return err
		}
		doc.SetLines(items)
		if l.def.Direction == Inbound {
			if err := l.reverseLines(ctx, oldLines, true); err != nil {
				return err
			}
		}

		if previous != nil {
			if _, err := l.deps.Poster.Reverse(ctx, *previous, journal.ActionUpdate); err != nil {
				return err
			}
		}
		if err := l.post(ctx, doc, journal.ActionUpdate); err != nil {
			return err
		}
		return l.record(ctx, doc, audit.ActionUpdate, "updated")
	})
	if err != nil {
		return zero, err
	}

	logger.Info(ctx, string(l.def.Kind)+" updated", "id", docID)
	return l.repo.GetByID(ctx, docID, false)
}

// SoftDelete reverses every line's stock effect and marks the document and
// its lines deleted.
func (l *Lifecycle[D]) SoftDelete(ctx context.Context, docID id.ID) error {
	err := l.deps.TxManager.RunInTransaction(ctx, func(ctx context.Context) error {
		doc, err := l.repo.GetForUpdate(ctx, docID)
		if err != nil {
			return err
		}
		h := doc.GetHeader()
		if h.IsDeleted() {
			return apperror.NewConflict(fmt.Sprintf("%s is already deleted", l.def.Kind)).
				WithDetail("id", docID.String())
		}
		if err := l.deps.Policy.CanModify(ctx, h.Date); err != nil {
			return err
		}

		if err := l.reverseLines(ctx, doc.GetLines(), false); err != nil {
			return err
		}

		now := time.Now().UTC()
		if err := l.repo.SoftDelete(ctx, docID, now, appctx.ActorPtr(ctx)); err != nil {
			return fmt.Errorf("soft delete %s: %w", l.def.Kind, err)
		}
		h.MarkDeleted(now)

		if err := l.unpost(ctx, doc, journal.ActionDelete); err != nil {
			return err
		}
		return l.record(ctx, doc, audit.ActionSoftDelete, "deleted")
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, string(l.def.Kind)+" soft-deleted", "id", docID)
	return nil
}

// Restore re-applies every line's stock effect and clears the deletion mark.
// References are checked again, so a return whose parent is gone stays
// deleted. It fails with InsufficientStock when the stock was consumed since
// the soft delete.
func (l *Lifecycle[D]) Restore(ctx context.Context, docID id.ID) error {
	err := l.deps.TxManager.RunInTransaction(ctx, func(ctx context.Context) error {
		doc, err := l.repo.GetForUpdate(ctx, docID)
		if err != nil {
			return err
		}
		h := doc.GetHeader()
		if !h.IsDeleted() {
			return apperror.NewConflict(fmt.Sprintf("%s is not deleted", l.def.Kind)).
				WithDetail("id", docID.String())
		}
		if err := l.deps.Policy.CanModify(ctx, h.Date); err != nil {
			return err
		}
		if err := l.resolveRefs(ctx, doc); err != nil {
			return err
		}

		for _, line := range doc.GetLines() {
			if line.StockID == nil {
				continue
			}
			if _, err := l.deps.Stock.Reapply(ctx, *line.StockID, l.signed(line.Quantity)); err != nil {
				return err
			}
		}

		if err := l.repo.Restore(ctx, docID, appctx.ActorPtr(ctx)); err != nil {
			return fmt.Errorf("restore %s: %w", l.def.Kind, err)
		}
		h.Recover()

		if err := l.post(ctx, doc, journal.ActionRestore); err != nil {
			return err
		}
		return l.record(ctx, doc, audit.ActionRestore, "restored")
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, string(l.def.Kind)+" restored", "id", docID)
	return nil
}

// HardDelete physically removes the document. Stock effects are reversed
// first unless a soft delete already reversed them.
func (l *Lifecycle[D]) HardDelete(ctx context.Context, docID id.ID) error {
	err := l.deps.TxManager.RunInTransaction(ctx, func(ctx context.Context) error {
		doc, err := l.repo.GetForUpdate(ctx, docID)
		if err != nil {
			return err
		}
		h := doc.GetHeader()
		if err := l.deps.Policy.CanModify(ctx, h.Date); err != nil {
			return err
		}

		if !h.IsDeleted() {
			if err := l.reverseLines(ctx, doc.GetLines(), false); err != nil {
				return err
			}
			if err := l.unpost(ctx, doc, journal.ActionDelete); err != nil {
				return err
			}
		}

		if err := l.record(ctx, doc, audit.ActionHardDelete, "purged"); err != nil {
			return err
		}
		if err := l.repo.HardDelete(ctx, docID); err != nil {
			return fmt.Errorf("hard delete %s: %w", l.def.Kind, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, string(l.def.Kind)+" hard-deleted", "id", docID)
	return nil
}

// Get returns a live document, or a soft-deleted one when includeDeleted.
func (l *Lifecycle[D]) Get(ctx context.Context, docID id.ID, includeDeleted bool) (D, error) {
	return l.repo.GetByID(ctx, docID, includeDeleted)
}

// List returns a page of documents.
func (l *Lifecycle[D]) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[D], error) {
	filter.Normalize()
	return l.repo.List(ctx, filter)
}

// applyLines runs the stock engine for every input and persists the lines.
func (l *Lifecycle[D]) applyLines(ctx context.Context, doc D, inputs []LineInput) ([]Line, error) {
	h := doc.GetHeader()
	lines := make([]Line, 0, len(inputs))

	for i, in := range inputs {
		if err := l.deps.Refs.Require(ctx, refs.Product, in.ProductID); err != nil {
			return nil, err
		}
		if in.BatchID != nil {
			if err := l.deps.Refs.RequireBatch(ctx, *in.BatchID, in.ProductID); err != nil {
				return nil, err
			}
		}

		delta := stock.Delta{
			ProductID: in.ProductID,
			BatchID:   in.BatchID,
			StoreID:   h.StoreID,
			StockID:   in.StockID,
			Quantity:  l.signed(in.Quantity),
			Policy:    l.def.Lookup,
		}
		if l.def.Direction == Inbound {
			cost := in.UnitPrice
			delta.UnitCost = &cost
		}

		rec, err := l.deps.Stock.ApplyDelta(ctx, delta)
		if err != nil {
			if appErr, ok := apperror.AsAppError(err); ok {
				appErr.WithDetail("line", i)
			}
			return nil, err
		}

		line := Line{
			Base:       entity.NewBase(),
			DocumentID: h.ID,
			LineNo:     i + 1,
			ProductID:  in.ProductID,
			BatchID:    in.BatchID,
			Quantity:   in.Quantity,
			UnitPrice:  in.UnitPrice,
			TotalPrice: in.Total(),
			StockID:    &rec.ID,
		}
		line.StampCreated(ctx)
		lines = append(lines, line)
	}

	if err := l.repo.SaveLines(ctx, h.ID, lines); err != nil {
		return nil, fmt.Errorf("save %s lines: %w", l.def.Kind, err)
	}
	return lines, nil
}

// reverseLines undoes the stock effect of lines. Strict reversal fails on a
// missing record or a result below zero; otherwise the engine clamps.
func (l *Lifecycle[D]) reverseLines(ctx context.Context, lines []Line, strict bool) error {
	for _, line := range lines {
		if line.StockID == nil {
			continue
		}
		reverse := l.deps.Stock.Reverse
		if strict {
			reverse = l.deps.Stock.Unapply
		}
		if _, err := reverse(ctx, *line.StockID, l.signed(line.Quantity)); err != nil {
			return err
		}
	}
	return nil
}

func (l *Lifecycle[D]) signed(qty int64) int64 {
	return int64(l.def.Direction) * qty
}

func (l *Lifecycle[D]) resolveRefs(ctx context.Context, doc D) error {
	h := doc.GetHeader()
	if err := refs.RequireOptional(ctx, l.deps.Refs, refs.Store, h.StoreID); err != nil {
		return err
	}
	if err := refs.RequireOptional(ctx, l.deps.Refs, refs.Employee, h.EmployeeID); err != nil {
		return err
	}
	if err := refs.RequireOptional(ctx, l.deps.Refs, refs.PaymentMethod, h.PaymentMethodID); err != nil {
		return err
	}
	if l.def.ResolveRefs != nil {
		return l.def.ResolveRefs(ctx, doc)
	}
	return nil
}

func (l *Lifecycle[D]) prepare(doc D) {
	if l.def.Prepare != nil {
		l.def.Prepare(doc)
	}
}

func (l *Lifecycle[D]) assignNumber(ctx context.Context, h *Header) error {
	if h.Number != "" || l.deps.Numerator == nil {
		return nil
	}
	cfg := numerator.DefaultConfig(l.def.NumberPrefix)
	number, err := l.deps.Numerator.GetNextNumber(ctx, cfg, nil, h.Date)
	if err != nil {
		return fmt.Errorf("generate %s number: %w", l.def.Kind, err)
	}
	h.Number = number
	return nil
}

// payload derives the journal payload, or nil when posting is disabled.
func (l *Lifecycle[D]) payload(doc D) (*journal.Payload, error) {
	if l.deps.Poster == nil || l.def.Journal == nil {
		return nil, nil
	}
	p, err := l.def.Journal(doc)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (l *Lifecycle[D]) post(ctx context.Context, doc D, action journal.Action) error {
	p, err := l.payload(doc)
	if err != nil || p == nil {
		return err
	}
	_, err = l.deps.Poster.Post(ctx, *p, action)
	return err
}

func (l *Lifecycle[D]) unpost(ctx context.Context, doc D, action journal.Action) error {
	p, err := l.payload(doc)
	if err != nil || p == nil {
		return err
	}
	_, err = l.deps.Poster.Reverse(ctx, *p, action)
	return err
}

// record writes the audit entry and the outbox event for a lifecycle step.
func (l *Lifecycle[D]) record(ctx context.Context, doc D, action audit.Action, event string) error {
	h := doc.GetHeader()
	if err := l.deps.Audit.Record(ctx, audit.Entry{
		EntityType: string(l.def.Kind),
		EntityID:   h.ID,
		Action:     action,
		Snapshot:   doc,
		At:         time.Now().UTC(),
	}); err != nil {
		return fmt.Errorf("audit %s: %w", l.def.Kind, err)
	}

	if l.deps.Events == nil {
		return nil
	}
	if err := l.deps.Events.Publish(ctx, Event{
		AggregateType: string(l.def.Kind),
		AggregateID:   h.ID,
		EventType:     string(l.def.Kind) + "." + event,
		Payload:       doc,
	}); err != nil {
		return fmt.Errorf("publish %s event: %w", l.def.Kind, err)
	}
	return nil
}
