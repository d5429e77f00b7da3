package documents_test

import (
	"context"
	"testing"

	"stockflow/internal/core/id"
	"stockflow/internal/core/security"
	"stockflow/internal/core/types"
	"stockflow/internal/domain/documents"
	"stockflow/internal/domain/documents/purchase"
	"stockflow/internal/domain/documents/purchase_return"
	"stockflow/internal/domain/documents/sale"
	"stockflow/internal/domain/documents/sale_return"
	"stockflow/internal/domain/journal"
	"stockflow/internal/domain/refs"
	"stockflow/internal/domain/registers/stock"
	"stockflow/internal/testutil/memdb"
)

type env struct {
	db       *memdb.DB
	accounts journal.Accounts

	purchases       *purchase.Service
	sales           *sale.Service
	purchaseReturns *purchase_return.Service
	saleReturns     *sale_return.Service

	supplier id.ID
	customer id.ID
}

type envOption func(*envConfig)

type envConfig struct {
	saleMapping journal.Mapper[*sale.Sale]
	policy      security.PostingPolicy
}

func withSaleMapping(m journal.Mapper[*sale.Sale]) envOption {
	return func(c *envConfig) { c.saleMapping = m }
}

func withPolicy(p security.PostingPolicy) envOption {
	return func(c *envConfig) { c.policy = p }
}

func newEnv(t *testing.T, opts ...envOption) *env {
	t.Helper()

	e := &env{
		db: memdb.New(),
		accounts: journal.Accounts{
			Inventory:    id.New(),
			Payables:     id.New(),
			Receivables:  id.New(),
			Revenue:      id.New(),
			SalesReturns: id.New(),
		},
		supplier: id.New(),
		customer: id.New(),
	}
	e.db.AddRef(refs.Supplier, e.supplier)
	e.db.AddRef(refs.Customer, e.customer)

	cfg := &envConfig{saleMapping: sale.JournalMapping(e.accounts, nil)}
	for _, opt := range opts {
		opt(cfg)
	}

	deps := documents.Deps{
		TxManager: e.db,
		Stock:     stock.NewService(e.db.Stock()),
		Refs:      e.db.Refs(),
		Poster:    journal.NewPoster(e.db.Journal()),
		Numerator: e.db.Numerator(),
		Events:    e.db.Publisher(),
		Audit:     e.db.Recorder(),
		Policy:    cfg.policy,
	}

	e.purchases = purchase.NewService(
		memdb.NewDocStore(e.db, "purchases", purchase.New), deps,
		purchase.JournalMapping(e.accounts, nil))
	e.sales = sale.NewService(
		memdb.NewDocStore(e.db, "sales", sale.New), deps,
		cfg.saleMapping)
	e.purchaseReturns = purchase_return.NewService(
		memdb.NewDocStore(e.db, "purchase_returns", purchase_return.New), e.purchases, deps,
		purchase_return.JournalMapping(e.accounts, nil))
	e.saleReturns = sale_return.NewService(
		memdb.NewDocStore(e.db, "sale_returns", sale_return.New), e.sales, deps,
		sale_return.JournalMapping(e.accounts, nil))
	return e
}

// product registers a new product.
func (e *env) product() id.ID {
	p := id.New()
	e.db.AddRef(refs.Product, p)
	return p
}

func (e *env) qty(stockID id.ID) int64 {
	return e.db.Stock().Quantity(stockID)
}

func line(product id.ID, qty int64, price string) documents.LineInput {
	return documents.LineInput{ProductID: product, Quantity: qty, UnitPrice: types.MustMoney(price)}
}

func (e *env) buy(t *testing.T, items ...documents.LineInput) *purchase.Purchase {
	t.Helper()
	doc, err := e.purchases.Create(context.Background(), purchase.CreateInput{
		SupplierID: e.supplier,
		Items:      items,
	})
	if err != nil {
		t.Fatalf("create purchase: %v", err)
	}
	return doc
}

func (e *env) sell(items ...documents.LineInput) (*sale.Sale, error) {
	return e.sales.Create(context.Background(), sale.CreateInput{
		CustomerID: &e.customer,
		Items:      items,
	})
}
