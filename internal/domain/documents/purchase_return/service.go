package purchase_return

import (
	"context"

	"stockflow/internal/core/apperror"
	"stockflow/internal/core/id"
	"stockflow/internal/domain/documents"
	"stockflow/internal/domain/journal"
	"stockflow/pkg/validate"
)

// Service provides business operations for purchase returns.
type Service struct {
	*documents.Lifecycle[*PurchaseReturn]
	purchases Purchases
}

// NewService creates the purchase return service.
func NewService(repo Repository, purchases Purchases, deps documents.Deps, mapping journal.Mapper[*PurchaseReturn]) *Service {
	s := &Service{purchases: purchases}
	s.Lifecycle = documents.NewLifecycle(documents.Definition[*PurchaseReturn]{
		Kind:         documents.KindPurchaseReturn,
		Direction:    Direction,
		Lookup:       Lookup,
		NumberPrefix: NumberPrefix,
		ResolveRefs:  s.resolveRefs,
		Journal:      mapping,
	}, repo, deps)
	return s
}

// Create validates in and creates the return against a live purchase.
func (s *Service) Create(ctx context.Context, in CreateInput) (*PurchaseReturn, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	doc := New()
	doc.PurchaseID = in.PurchaseID
	return s.Lifecycle.Create(ctx, doc, in.HeaderInput, in.Items)
}

// Update replaces the return's header fields and lines.
func (s *Service) Update(ctx context.Context, docID id.ID, in UpdateInput) (*PurchaseReturn, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	return s.Lifecycle.Update(ctx, docID, documents.UpdateRequest[*PurchaseReturn]{
		Header:  in.HeaderInput,
		Version: in.Version,
		Items:   in.Items,
		Apply: func(doc *PurchaseReturn) error {
			if in.PurchaseID != nil {
				doc.PurchaseID = *in.PurchaseID
			}
			return nil
		},
	})
}

// resolveRefs checks the parent purchase and copies its supplier.
func (s *Service) resolveRefs(ctx context.Context, doc *PurchaseReturn) error {
	parent, err := s.purchases.Get(ctx, doc.PurchaseID, false)
	if err != nil {
		if apperror.IsNotFound(err) {
			return apperror.NewInvalidReference("purchase", doc.PurchaseID.String(), "invalid purchase")
		}
		return err
	}
	doc.SupplierID = parent.SupplierID
	return nil
}

var _ documents.Orchestrator[*PurchaseReturn, CreateInput, UpdateInput] = (*Service)(nil)
