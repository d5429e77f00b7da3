package sale

import (
	"context"

	"stockflow/internal/core/id"
	"stockflow/internal/domain/documents"
	"stockflow/internal/domain/journal"
	"stockflow/internal/domain/refs"
	"stockflow/pkg/validate"
)

// Service provides business operations for sales.
type Service struct {
	*documents.Lifecycle[*Sale]
	refs refs.Resolver
}

// NewService creates the sale service.
func NewService(repo Repository, deps documents.Deps, mapping journal.Mapper[*Sale]) *Service {
	s := &Service{refs: deps.Refs}
	s.Lifecycle = documents.NewLifecycle(documents.Definition[*Sale]{
		Kind:         documents.KindSale,
		Direction:    Direction,
		Lookup:       Lookup,
		NumberPrefix: NumberPrefix,
		ResolveRefs:  s.resolveRefs,
		Prepare:      defaultInvoiceNumber,
		Journal:      mapping,
	}, repo, deps)
	return s
}

// Create validates in and creates the sale, taking every line out of stock.
// The whole sale fails when any line exceeds the quantity on hand.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Sale, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	doc := New()
	doc.CustomerID = in.CustomerID
	doc.InvoiceNumber = in.InvoiceNumber
	return s.Lifecycle.Create(ctx, doc, in.HeaderInput, in.Items)
}

// Update replaces the sale's header fields and lines.
func (s *Service) Update(ctx context.Context, docID id.ID, in UpdateInput) (*Sale, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	return s.Lifecycle.Update(ctx, docID, documents.UpdateRequest[*Sale]{
		Header:  in.HeaderInput,
		Version: in.Version,
		Items:   in.Items,
		Apply: func(doc *Sale) error {
			if in.CustomerID != nil {
				doc.CustomerID = in.CustomerID
			}
			if in.InvoiceNumber != nil {
				doc.InvoiceNumber = in.InvoiceNumber
			}
			return nil
		},
	})
}

func (s *Service) resolveRefs(ctx context.Context, doc *Sale) error {
	return refs.RequireOptional(ctx, s.refs, refs.Customer, doc.CustomerID)
}

// defaultInvoiceNumber uses the document number when no invoice number was given.
func defaultInvoiceNumber(doc *Sale) {
	if (doc.InvoiceNumber == nil || *doc.InvoiceNumber == "") && doc.Number != "" {
		number := doc.Number
		doc.InvoiceNumber = &number
	}
}

var _ documents.Orchestrator[*Sale, CreateInput, UpdateInput] = (*Service)(nil)
