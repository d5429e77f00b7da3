package purchase

import (
	"context"

	"stockflow/internal/core/id"
	"stockflow/internal/domain/documents"
	"stockflow/internal/domain/journal"
	"stockflow/internal/domain/refs"
	"stockflow/pkg/validate"
)

// Service provides business operations for purchases.
type Service struct {
	*documents.Lifecycle[*Purchase]
	refs refs.Resolver
}

// NewService creates the purchase service. A nil mapping disables journal
// posting for purchases.
func NewService(repo Repository, deps documents.Deps, mapping journal.Mapper[*Purchase]) *Service {
	s := &Service{refs: deps.Refs}
	s.Lifecycle = documents.NewLifecycle(documents.Definition[*Purchase]{
		Kind:         documents.KindPurchase,
		Direction:    Direction,
		Lookup:       Lookup,
		NumberPrefix: NumberPrefix,
		ResolveRefs:  s.resolveRefs,
		Journal:      mapping,
	}, repo, deps)
	return s
}

// Create validates in and creates the purchase, adding every line to stock.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Purchase, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	doc := New()
	doc.SupplierID = in.SupplierID
	return s.Lifecycle.Create(ctx, doc, in.HeaderInput, in.Items)
}

// Update replaces the purchase's header fields and lines.
func (s *Service) Update(ctx context.Context, docID id.ID, in UpdateInput) (*Purchase, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	return s.Lifecycle.Update(ctx, docID, documents.UpdateRequest[*Purchase]{
		Header:  in.HeaderInput,
		Version: in.Version,
		Items:   in.Items,
		Apply: func(doc *Purchase) error {
			if in.SupplierID != nil {
				doc.SupplierID = *in.SupplierID
			}
			return doc.Validate(ctx)
		},
	})
}

func (s *Service) resolveRefs(ctx context.Context, doc *Purchase) error {
	return s.refs.Require(ctx, refs.Supplier, doc.SupplierID)
}

var _ documents.Orchestrator[*Purchase, CreateInput, UpdateInput] = (*Service)(nil)
