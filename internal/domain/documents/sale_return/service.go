package sale_return

import (
	"context"

	"stockflow/internal/core/apperror"
	"stockflow/internal/core/id"
	"stockflow/internal/domain/documents"
	"stockflow/internal/domain/journal"
	"stockflow/pkg/validate"
)

// Service provides business operations for sale returns.
type Service struct {
	*documents.Lifecycle[*SaleReturn]
	sales Sales
}

// NewService creates the sale return service.
func NewService(repo Repository, sales Sales, deps documents.Deps, mapping journal.Mapper[*SaleReturn]) *Service {
	s := &Service{sales: sales}
	s.Lifecycle = documents.NewLifecycle(documents.Definition[*SaleReturn]{
		Kind:         documents.KindSaleReturn,
		Direction:    Direction,
		Lookup:       Lookup,
		NumberPrefix: NumberPrefix,
		ResolveRefs:  s.resolveRefs,
		Journal:      mapping,
	}, repo, deps)
	return s
}

// Create validates in and creates the return against a live sale.
func (s *Service) Create(ctx context.Context, in CreateInput) (*SaleReturn, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	doc := New()
	doc.SaleID = in.SaleID
	return s.Lifecycle.Create(ctx, doc, in.HeaderInput, in.Items)
}

// Update replaces the return's header fields and lines.
func (s *Service) Update(ctx context.Context, docID id.ID, in UpdateInput) (*SaleReturn, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	return s.Lifecycle.Update(ctx, docID, documents.UpdateRequest[*SaleReturn]{
		Header:  in.HeaderInput,
		Version: in.Version,
		Items:   in.Items,
		Apply: func(doc *SaleReturn) error {
			if in.SaleID != nil {
				doc.SaleID = *in.SaleID
			}
			return nil
		},
	})
}

func (s *Service) resolveRefs(ctx context.Context, doc *SaleReturn) error {
	parent, err := s.sales.Get(ctx, doc.SaleID, false)
	if err != nil {
		if apperror.IsNotFound(err) {
			return apperror.NewInvalidReference("sale", doc.SaleID.String(), "invalid sale")
		}
		return err
	}
	doc.CustomerID = parent.CustomerID
	return nil
}

var _ documents.Orchestrator[*SaleReturn, CreateInput, UpdateInput] = (*Service)(nil)
