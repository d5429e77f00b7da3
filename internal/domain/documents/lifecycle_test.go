package documents_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockflow/internal/core/apperror"
	appctx "stockflow/internal/core/context"
	"stockflow/internal/core/id"
	"stockflow/internal/core/security"
	"stockflow/internal/core/types"
	"stockflow/internal/domain"
	"stockflow/internal/domain/documents"
	"stockflow/internal/domain/documents/purchase"
	"stockflow/internal/domain/documents/purchase_return"
	"stockflow/internal/domain/documents/sale"
	"stockflow/internal/domain/documents/sale_return"
	"stockflow/internal/domain/journal"
	"stockflow/internal/domain/refs"
)

func TestWidgetScenario(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	widget := e.product()

	p := e.buy(t, line(widget, 10, "2.00"))
	require.Len(t, p.Lines, 1)
	stockID := *p.Lines[0].StockID
	assert.Equal(t, int64(10), e.qty(stockID))

	in := line(widget, 4, "5.00")
	in.StockID = &stockID
	s, err := e.sell(in)
	require.NoError(t, err)
	assert.Equal(t, int64(6), e.qty(stockID))
	assert.True(t, s.TotalAmount.Equal(types.MustMoney("20.00")), "total %s", s.TotalAmount)

	require.NoError(t, e.sales.SoftDelete(ctx, s.ID))
	assert.Equal(t, int64(10), e.qty(stockID))

	// The purchase was never soft-deleted, so hard delete reverses it first.
	require.NoError(t, e.purchases.HardDelete(ctx, p.ID))
	assert.Equal(t, int64(0), e.qty(stockID))

	_, err = e.purchases.Get(ctx, p.ID, true)
	assert.True(t, apperror.IsNotFound(err))
}

func TestSale_RoundTrip(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	product := e.product()
	stockID := *e.buy(t, line(product, 9, "1.00")).Lines[0].StockID

	s, err := e.sell(line(product, 4, "3.00"))
	require.NoError(t, err)
	assert.Equal(t, int64(5), e.qty(stockID))
	assert.Equal(t, stockID, *s.Lines[0].StockID)

	require.NoError(t, e.sales.SoftDelete(ctx, s.ID))
	assert.Equal(t, int64(9), e.qty(stockID))

	deleted, err := e.sales.Get(ctx, s.ID, true)
	require.NoError(t, err)
	assert.True(t, deleted.IsDeleted())
	for _, l := range deleted.Lines {
		assert.NotNil(t, l.DeletedAt, "lines are soft-removed with the header")
	}

	require.NoError(t, e.sales.Restore(ctx, s.ID))
	assert.Equal(t, int64(5), e.qty(stockID))

	restored, err := e.sales.Get(ctx, s.ID, false)
	require.NoError(t, err)
	assert.False(t, restored.IsDeleted())
	for _, l := range restored.Lines {
		assert.Nil(t, l.DeletedAt)
	}
}

func TestSale_ConcurrentCreatesCannotOversell(t *testing.T) {
	e := newEnv(t)
	product := e.product()
	stockID := *e.buy(t, line(product, 15, "1.00")).Lines[0].StockID

	const q = 10
	var (
		wg    sync.WaitGroup
		start = make(chan struct{})
		errs  = make([]error, 2)
	)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = e.sell(line(product, q, "2.00"))
		}(i)
	}
	close(start)
	wg.Wait()

	var ok, insufficient int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case apperror.IsInsufficientStock(err):
			insufficient++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, insufficient)
	assert.Equal(t, int64(5), e.qty(stockID))
}

func TestPurchase_UpdateReplacesLines(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	p1, p2 := e.product(), e.product()

	doc := e.buy(t, line(p1, 5, "1.00"))
	p1Stock := *doc.Lines[0].StockID

	updated, err := e.purchases.Update(ctx, doc.ID, purchase.UpdateInput{
		Items: []documents.LineInput{line(p2, 3, "4.00")},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(0), e.qty(p1Stock), "old line must be fully reversed")
	require.Len(t, updated.Lines, 1)
	assert.Equal(t, p2, updated.Lines[0].ProductID)
	assert.Equal(t, int64(3), e.qty(*updated.Lines[0].StockID))
	assert.Equal(t, 2, updated.Version)
	assert.True(t, updated.SubTotal.Equal(types.MustMoney("12.00")))
}

func TestUpdate_WithoutItemsKeepsLines(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	product := e.product()
	stockID := *e.buy(t, line(product, 8, "1.00")).Lines[0].StockID

	s, err := e.sell(line(product, 3, "2.00"))
	require.NoError(t, err)

	notes := "called ahead"
	updated, err := e.sales.Update(ctx, s.ID, sale.UpdateInput{
		HeaderInput: documents.HeaderInput{Notes: &notes},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5), e.qty(stockID))
	require.Len(t, updated.Lines, 1)
	assert.Equal(t, int64(3), updated.Lines[0].Quantity)
	assert.Equal(t, notes, *updated.Notes)
	assert.True(t, updated.TotalAmount.Equal(s.TotalAmount))
}

func TestPurchase_UpdateAfterPartialSale(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	product := e.product()
	p := e.buy(t, line(product, 10, "1.00"))
	stockID := *p.Lines[0].StockID

	_, err := e.sell(line(product, 4, "2.00"))
	require.NoError(t, err)
	require.Equal(t, int64(6), e.qty(stockID))

	notes := "invoice received"
	updated, err := e.purchases.Update(ctx, p.ID, purchase.UpdateInput{
		HeaderInput: documents.HeaderInput{Notes: &notes},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(6), e.qty(stockID), "unchanged lines must net out")
	assert.Equal(t, stockID, *updated.Lines[0].StockID)

	_, err = e.purchases.Update(ctx, p.ID, purchase.UpdateInput{
		Items: []documents.LineInput{line(product, 3, "1.00")},
	})
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err), "4 of the 10 are already sold")
	assert.Equal(t, int64(6), e.qty(stockID))

	updated, err = e.purchases.Update(ctx, p.ID, purchase.UpdateInput{
		Items: []documents.LineInput{line(product, 12, "1.00")},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(8), e.qty(stockID))
	assert.Equal(t, 3, updated.Version)
}

func TestUpdate_StoreChange(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	product := e.product()
	storeA, storeB := id.New(), id.New()
	e.db.AddRef(refs.Store, storeA, storeB)

	p, err := e.purchases.Create(ctx, purchase.CreateInput{
		HeaderInput: documents.HeaderInput{StoreID: &storeA},
		SupplierID:  e.supplier,
		Items:       []documents.LineInput{line(product, 5, "1.00")},
	})
	require.NoError(t, err)
	atA := *p.Lines[0].StockID

	t.Run("lines follow the new store", func(t *testing.T) {
		updated, err := e.purchases.Update(ctx, p.ID, purchase.UpdateInput{
			HeaderInput: documents.HeaderInput{StoreID: &storeB},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(0), e.qty(atA))

		atB := *updated.Lines[0].StockID
		assert.NotEqual(t, atA, atB)
		assert.Equal(t, int64(5), e.qty(atB))
		for _, rec := range e.db.Stock().Records(product) {
			if rec.ID == atB {
				assert.Equal(t, storeB, *rec.StoreID)
			}
		}
	})

	t.Run("explicit stock of another store", func(t *testing.T) {
		item := line(product, 1, "1.00")
		item.StockID = &atA
		_, err := e.sales.Create(ctx, sale.CreateInput{
			HeaderInput: documents.HeaderInput{StoreID: &storeB},
			CustomerID:  &e.customer,
			Items:       []documents.LineInput{item},
		})
		require.Error(t, err)
		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, "stock/store mismatch", appErr.Message)
	})
}

func TestUpdate_HeaderOnlyRecomputesTotal(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	product := e.product()
	p := e.buy(t, line(product, 2, "2.50"))
	require.True(t, p.TotalAmount.Equal(types.MustMoney("5.00")))

	discount := types.MustMoney("1.00")
	updated, err := e.purchases.Update(ctx, p.ID, purchase.UpdateInput{
		HeaderInput: documents.HeaderInput{Discount: &discount},
	})
	require.NoError(t, err)
	assert.True(t, updated.SubTotal.Equal(types.MustMoney("5.00")), "sub total %s", updated.SubTotal)
	assert.True(t, updated.TotalAmount.Equal(types.MustMoney("4.00")), "total %s", updated.TotalAmount)

	tax := types.MustMoney("0.50")
	updated, err = e.purchases.Update(ctx, p.ID, purchase.UpdateInput{
		HeaderInput: documents.HeaderInput{TaxAmount: &tax},
	})
	require.NoError(t, err)
	assert.True(t, updated.TotalAmount.Equal(types.MustMoney("4.50")), "total %s", updated.TotalAmount)

	notes := "no amounts"
	updated, err = e.purchases.Update(ctx, p.ID, purchase.UpdateInput{
		HeaderInput: documents.HeaderInput{Notes: &notes},
	})
	require.NoError(t, err)
	assert.True(t, updated.TotalAmount.Equal(types.MustMoney("4.50")), "total %s", updated.TotalAmount)
}

func TestUpdate_FailureRollsBack(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	product := e.product()
	stockID := *e.buy(t, line(product, 5, "1.00")).Lines[0].StockID

	s, err := e.sell(line(product, 2, "1.00"))
	require.NoError(t, err)

	_, err = e.sales.Update(ctx, s.ID, sale.UpdateInput{
		Items: []documents.LineInput{line(product, 6, "1.00")},
	})
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err))
	assert.Equal(t, int64(3), e.qty(stockID), "reversal must be rolled back too")

	current, err := e.sales.Get(ctx, s.ID, false)
	require.NoError(t, err)
	require.Len(t, current.Lines, 1)
	assert.Equal(t, int64(2), current.Lines[0].Quantity)
	assert.Equal(t, 1, current.Version)
}

func TestUpdate_Rejections(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	product := e.product()
	e.buy(t, line(product, 5, "1.00"))

	s, err := e.sell(line(product, 1, "1.00"))
	require.NoError(t, err)

	t.Run("empty items", func(t *testing.T) {
		_, err := e.sales.Update(ctx, s.ID, sale.UpdateInput{Items: []documents.LineInput{}})
		assert.True(t, apperror.IsValidation(err))
	})

	t.Run("stale version", func(t *testing.T) {
		stale := 7
		_, err := e.sales.Update(ctx, s.ID, sale.UpdateInput{Version: &stale})
		assert.True(t, apperror.IsConcurrentModification(err))
	})

	t.Run("deleted document", func(t *testing.T) {
		require.NoError(t, e.sales.SoftDelete(ctx, s.ID))
		_, err := e.sales.Update(ctx, s.ID, sale.UpdateInput{})
		assert.True(t, apperror.IsNotFound(err))
	})
}

func TestSoftDeleteAndRestore_StateConflicts(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	product := e.product()
	p := e.buy(t, line(product, 2, "1.00"))

	err := e.purchases.Restore(ctx, p.ID)
	assert.True(t, apperror.IsConflict(err), "restore of a live document")

	require.NoError(t, e.purchases.SoftDelete(ctx, p.ID))
	err = e.purchases.SoftDelete(ctx, p.ID)
	assert.True(t, apperror.IsConflict(err), "second soft delete")

	err = e.purchases.SoftDelete(ctx, id.New())
	assert.True(t, apperror.IsNotFound(err))
}

func TestRestore_FailsWhenStockWasConsumed(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	product := e.product()
	stockID := *e.buy(t, line(product, 4, "1.00")).Lines[0].StockID

	sold, err := e.sell(line(product, 4, "1.00"))
	require.NoError(t, err)
	require.NoError(t, e.sales.SoftDelete(ctx, sold.ID))
	assert.Equal(t, int64(4), e.qty(stockID))

	_, err = e.sell(line(product, 3, "1.00"))
	require.NoError(t, err)

	err = e.sales.Restore(ctx, sold.ID)
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err))

	still, err := e.sales.Get(ctx, sold.ID, true)
	require.NoError(t, err)
	assert.True(t, still.IsDeleted())
	assert.Equal(t, int64(1), e.qty(stockID))
}

func TestRestore_RequiresLiveParent(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	product := e.product()
	stockID := *e.buy(t, line(product, 5, "1.00")).Lines[0].StockID

	s, err := e.sell(line(product, 4, "1.00"))
	require.NoError(t, err)
	r, err := e.saleReturns.Create(ctx, saleReturnInput(s.ID, line(product, 2, "1.00")))
	require.NoError(t, err)

	require.NoError(t, e.saleReturns.SoftDelete(ctx, r.ID))
	require.NoError(t, e.sales.SoftDelete(ctx, s.ID))
	assert.Equal(t, int64(5), e.qty(stockID))

	err = e.saleReturns.Restore(ctx, r.ID)
	require.Error(t, err)
	assert.True(t, apperror.IsInvalidReference(err))
	assert.Equal(t, int64(5), e.qty(stockID))

	still, err := e.saleReturns.Get(ctx, r.ID, true)
	require.NoError(t, err)
	assert.True(t, still.IsDeleted())

	require.NoError(t, e.sales.Restore(ctx, s.ID))
	require.NoError(t, e.saleReturns.Restore(ctx, r.ID))
	assert.Equal(t, int64(3), e.qty(stockID))
}

func TestHardDelete_AfterSoftDeleteDoesNotReverseTwice(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	product := e.product()
	stockID := *e.buy(t, line(product, 10, "1.00")).Lines[0].StockID

	s, err := e.sell(line(product, 4, "1.00"))
	require.NoError(t, err)
	require.NoError(t, e.sales.SoftDelete(ctx, s.ID))
	assert.Equal(t, int64(10), e.qty(stockID))

	require.NoError(t, e.sales.HardDelete(ctx, s.ID))
	assert.Equal(t, int64(10), e.qty(stockID))

	_, err = e.sales.Get(ctx, s.ID, true)
	assert.True(t, apperror.IsNotFound(err))
}

func TestCreate_InvalidReferenceLeavesNothing(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	known := e.product()

	_, err := e.purchases.Create(ctx, purchase.CreateInput{
		SupplierID: e.supplier,
		Items: []documents.LineInput{
			line(known, 5, "1.00"),
			line(id.New(), 1, "1.00"),
		},
	})
	require.Error(t, err)
	assert.True(t, apperror.IsInvalidReference(err))

	assert.Empty(t, e.db.Stock().Records(known), "first line's stock must be rolled back")
	list, err := e.purchases.List(ctx, domain.ListFilter{IncludeDeleted: true})
	require.NoError(t, err)
	assert.Zero(t, list.TotalCount)
	assert.Empty(t, e.db.Events())
	assert.Empty(t, e.db.AuditEntries())
}

func TestCreate_Validation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.purchases.Create(ctx, purchase.CreateInput{SupplierID: e.supplier})
	assert.True(t, apperror.IsValidation(err), "no items")

	_, err = e.purchases.Create(ctx, purchase.CreateInput{
		Items: []documents.LineInput{line(e.product(), 1, "1.00")},
	})
	assert.True(t, apperror.IsValidation(err), "no supplier")

	_, err = e.purchases.Create(ctx, purchase.CreateInput{
		SupplierID: e.supplier,
		Items:      []documents.LineInput{line(e.product(), 0, "1.00")},
	})
	assert.True(t, apperror.IsValidation(err), "zero quantity")

	_, err = e.purchases.Create(ctx, purchase.CreateInput{
		SupplierID: id.New(),
		Items:      []documents.LineInput{line(e.product(), 1, "1.00")},
	})
	assert.True(t, apperror.IsInvalidReference(err), "unknown supplier")
}

func TestCreate_BatchMustBelongToProduct(t *testing.T) {
	e := newEnv(t)
	product, other := e.product(), e.product()
	batch := id.New()
	e.db.AddBatch(batch, other)

	in := line(product, 1, "1.00")
	in.BatchID = &batch
	_, err := e.purchases.Create(context.Background(), purchase.CreateInput{
		SupplierID: e.supplier,
		Items:      []documents.LineInput{in},
	})
	assert.True(t, apperror.IsInvalidReference(err))
}

func TestCreate_NumbersAndStamps(t *testing.T) {
	e := newEnv(t)
	ctx := appctx.WithUserID(context.Background(), "user-42")
	product := e.product()
	year := time.Now().UTC().Year()

	p, err := e.purchases.Create(ctx, purchase.CreateInput{
		SupplierID: e.supplier,
		Items:      []documents.LineInput{line(product, 2, "1.50")},
	})
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("PUR-%d-00001", year), p.Number)
	require.NotNil(t, p.CreatedBy)
	assert.Equal(t, "user-42", *p.CreatedBy)
	assert.True(t, p.Lines[0].TotalPrice.Equal(types.MustMoney("3.00")))

	s, err := e.sales.Create(ctx, sale.CreateInput{Items: []documents.LineInput{line(product, 1, "1.00")}})
	require.NoError(t, err)
	assert.Regexp(t, `^SAL-\d{4}-00001$`, s.Number)
	require.NotNil(t, s.InvoiceNumber)
	assert.Equal(t, s.Number, *s.InvoiceNumber)
}

func TestCreate_HeaderTotals(t *testing.T) {
	e := newEnv(t)
	product := e.product()
	discount := types.MustMoney("1.00")
	tax := types.MustMoney("0.50")

	p, err := e.purchases.Create(context.Background(), purchase.CreateInput{
		HeaderInput: documents.HeaderInput{Discount: &discount, TaxAmount: &tax},
		SupplierID:  e.supplier,
		Items:       []documents.LineInput{line(product, 2, "2.50"), line(product, 1, "1.00")},
	})
	require.NoError(t, err)
	assert.True(t, p.SubTotal.Equal(types.MustMoney("6.00")), "sub total %s", p.SubTotal)
	assert.True(t, p.TotalAmount.Equal(types.MustMoney("5.50")), "total %s", p.TotalAmount)
}

func TestClosedPeriod(t *testing.T) {
	e := newEnv(t, withPolicy(security.NewClosedPeriodPolicy(time.Now().UTC().AddDate(0, 0, -1))))
	product := e.product()

	old := time.Now().UTC().AddDate(0, 0, -2)
	_, err := e.purchases.Create(context.Background(), purchase.CreateInput{
		HeaderInput: documents.HeaderInput{Date: &old},
		SupplierID:  e.supplier,
		Items:       []documents.LineInput{line(product, 1, "1.00")},
	})
	assert.True(t, apperror.HasCode(err, apperror.CodePeriodClosed))

	_, err = e.purchases.Create(context.Background(), purchase.CreateInput{
		SupplierID: e.supplier,
		Items:      []documents.LineInput{line(product, 1, "1.00")},
	})
	assert.NoError(t, err)
}

func TestJournal_FailingMappingRollsBack(t *testing.T) {
	cases := map[string]journal.Mapper[*sale.Sale]{
		"mapping error": func(*sale.Sale) (journal.Payload, error) {
			return journal.Payload{}, errors.New("no revenue account for store")
		},
		"missing account": sale.JournalMapping(journal.Accounts{}, nil),
	}
	for name, mapping := range cases {
		t.Run(name, func(t *testing.T) {
			e := newEnv(t, withSaleMapping(mapping))
			ctx := context.Background()
			product := e.product()
			stockID := *e.buy(t, line(product, 6, "1.00")).Lines[0].StockID
			postings := len(e.db.Postings())

			_, err := e.sell(line(product, 2, "5.00"))
			require.Error(t, err)

			assert.Equal(t, int64(6), e.qty(stockID))
			assert.Len(t, e.db.Postings(), postings)
			list, err := e.sales.List(ctx, domain.ListFilter{IncludeDeleted: true})
			require.NoError(t, err)
			assert.Zero(t, list.TotalCount)
		})
	}
}

func TestJournal_PostingsFollowLifecycle(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	product := e.product()
	e.buy(t, line(product, 10, "1.00"))

	s, err := e.sell(line(product, 2, "5.00"))
	require.NoError(t, err)

	_, err = e.sales.Update(ctx, s.ID, sale.UpdateInput{Items: []documents.LineInput{line(product, 3, "5.00")}})
	require.NoError(t, err)
	require.NoError(t, e.sales.SoftDelete(ctx, s.ID))
	require.NoError(t, e.sales.Restore(ctx, s.ID))

	postings, err := journal.NewPoster(e.db.Journal()).List(ctx, journal.Filter{RefType: string(documents.KindSale), RefID: &s.ID})
	require.NoError(t, err)
	require.Len(t, postings, 5)

	type step struct {
		action   journal.Action
		reversal bool
		amount   string
	}
	want := []step{
		{journal.ActionCreate, false, "10"},
		{journal.ActionUpdate, true, "10"},
		{journal.ActionUpdate, false, "15"},
		{journal.ActionDelete, true, "15"},
		{journal.ActionRestore, false, "15"},
	}
	for i, w := range want {
		p := postings[i]
		assert.Equal(t, w.action, p.Action, "posting %d", i)
		assert.Equal(t, w.reversal, p.Reversal, "posting %d", i)
		assert.True(t, p.Amount.Equal(types.MustMoney(w.amount)), "posting %d amount %s", i, p.Amount)
		if w.reversal {
			assert.Equal(t, e.accounts.Revenue, p.DebitAccountID)
			assert.Equal(t, e.accounts.Receivables, p.CreditAccountID)
		} else {
			assert.Equal(t, e.accounts.Receivables, p.DebitAccountID)
			assert.Equal(t, e.accounts.Revenue, p.CreditAccountID)
		}
	}
}

func TestPurchaseReturn(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	product := e.product()
	p := e.buy(t, line(product, 5, "2.00"))
	stockID := *p.Lines[0].StockID

	t.Run("takes goods out of stock", func(t *testing.T) {
		r, err := e.purchaseReturns.Create(ctx, purchase_return.CreateInput{
			PurchaseID: p.ID,
			Items:      []documents.LineInput{line(product, 2, "2.00")},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(3), e.qty(stockID))
		assert.Equal(t, e.supplier, r.SupplierID)
		assert.Regexp(t, `^PRT-`, r.Number)

		require.NoError(t, e.purchaseReturns.SoftDelete(ctx, r.ID))
		assert.Equal(t, int64(5), e.qty(stockID))
	})

	t.Run("cannot return more than on hand", func(t *testing.T) {
		_, err := e.purchaseReturns.Create(ctx, purchase_return.CreateInput{
			PurchaseID: p.ID,
			Items:      []documents.LineInput{line(product, 6, "2.00")},
		})
		assert.True(t, apperror.IsInsufficientStock(err))
		assert.Equal(t, int64(5), e.qty(stockID))
	})

	t.Run("unknown purchase", func(t *testing.T) {
		_, err := e.purchaseReturns.Create(ctx, purchase_return.CreateInput{
			PurchaseID: id.New(),
			Items:      []documents.LineInput{line(product, 1, "2.00")},
		})
		require.Error(t, err)
		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperror.CodeInvalidReference, appErr.Code)
		assert.Equal(t, "invalid purchase", appErr.Message)
	})
}

func TestSaleReturn(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	product := e.product()
	stockID := *e.buy(t, line(product, 5, "1.00")).Lines[0].StockID

	s, err := e.sell(line(product, 4, "3.00"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), e.qty(stockID))

	r, err := e.saleReturns.Create(ctx, saleReturnInput(s.ID, line(product, 2, "3.00")))
	require.NoError(t, err)
	assert.Equal(t, int64(3), e.qty(stockID))
	require.NotNil(t, r.CustomerID)
	assert.Equal(t, e.customer, *r.CustomerID)

	require.NoError(t, e.saleReturns.HardDelete(ctx, r.ID))
	assert.Equal(t, int64(1), e.qty(stockID))

	require.NoError(t, e.sales.SoftDelete(ctx, s.ID))
	_, err = e.saleReturns.Create(ctx, saleReturnInput(s.ID, line(product, 1, "3.00")))
	assert.True(t, apperror.IsInvalidReference(err), "deleted sale is not a valid parent")
}

func TestBulk(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	product := e.product()
	stockID := *e.buy(t, line(product, 10, "1.00")).Lines[0].StockID

	a, err := e.sell(line(product, 2, "1.00"))
	require.NoError(t, err)
	b, err := e.sell(line(product, 3, "1.00"))
	require.NoError(t, err)
	missing := id.New()

	res, err := e.sales.SoftDeleteMany(ctx, []id.ID{a.ID, missing, b.ID, a.ID})
	require.NoError(t, err)
	assert.ElementsMatch(t, []id.ID{a.ID, b.ID}, res.Succeeded)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, missing, res.Failed[0].ID)
	assert.Equal(t, apperror.CodeNotFound, res.Failed[0].Code)
	assert.Equal(t, int64(10), e.qty(stockID))

	// Consume stock so that only one of the two can come back.
	_, err = e.sell(line(product, 8, "1.00"))
	require.NoError(t, err)

	res, err = e.sales.RestoreMany(ctx, []id.ID{a.ID, b.ID})
	require.NoError(t, err)
	assert.Equal(t, []id.ID{a.ID}, res.Succeeded)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, apperror.CodeInsufficientStock, res.Failed[0].Code)
	assert.Equal(t, int64(0), e.qty(stockID))

	res, err = e.sales.HardDeleteMany(ctx, []id.ID{a.ID, b.ID})
	require.NoError(t, err)
	assert.Len(t, res.Succeeded, 2)
	assert.Equal(t, int64(2), e.qty(stockID), "only the live sale is reversed")

	_, err = e.sales.SoftDeleteMany(ctx, nil)
	assert.True(t, apperror.IsValidation(err))
}

func TestTrashListing(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	product := e.product()

	live := e.buy(t, line(product, 1, "1.00"))
	gone := e.buy(t, line(product, 1, "1.00"))
	require.NoError(t, e.purchases.SoftDelete(ctx, gone.ID))

	res, err := e.purchases.List(ctx, domain.ListFilter{})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, live.ID, res.Items[0].ID)

	res, err = e.purchases.List(ctx, domain.ListFilter{DeletedOnly: true})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, gone.ID, res.Items[0].ID)
}

func TestEventsAndAudit(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	p := e.buy(t, line(e.product(), 1, "1.00"))
	require.NoError(t, e.purchases.SoftDelete(ctx, p.ID))

	events := e.db.Events()
	require.Len(t, events, 2)
	assert.Equal(t, "purchase.created", events[0].EventType)
	assert.Equal(t, "purchase.deleted", events[1].EventType)
	assert.Equal(t, p.ID, events[1].AggregateID)

	entries := e.db.AuditEntries()
	require.Len(t, entries, 2)
	assert.Equal(t, "purchase", entries[1].EntityType)
}

// Random create/update/delete/restore sequences over sales and purchase
// returns never leave a stock record below zero.
func TestNonNegativeInvariant(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))

	products := []id.ID{e.product(), e.product()}
	var purchases []*purchase.Purchase
	for _, p := range products {
		purchases = append(purchases, e.buy(t, line(p, 12, "1.00")))
	}

	type doc struct {
		id   id.ID
		sale bool
	}
	var docs []doc

	for step := 0; step < 300; step++ {
		product := products[rng.Intn(len(products))]
		items := []documents.LineInput{line(product, int64(rng.Intn(6)+1), "1.00")}

		switch op := rng.Intn(6); {
		case op == 0 || len(docs) == 0:
			if rng.Intn(2) == 0 {
				if s, err := e.sell(items...); err == nil {
					docs = append(docs, doc{s.ID, true})
				}
			} else {
				parent := purchases[rng.Intn(len(purchases))]
				in := purchase_return.CreateInput{PurchaseID: parent.ID, Items: items}
				if r, err := e.purchaseReturns.Create(ctx, in); err == nil {
					docs = append(docs, doc{r.ID, false})
				}
			}
		default:
			d := docs[rng.Intn(len(docs))]
			var err error
			switch op {
			case 1:
				if d.sale {
					_, err = e.sales.Update(ctx, d.id, sale.UpdateInput{Items: items})
				} else {
					_, err = e.purchaseReturns.Update(ctx, d.id, purchase_return.UpdateInput{Items: items})
				}
			case 2:
				err = pick(d.sale, e.sales.SoftDelete, e.purchaseReturns.SoftDelete)(ctx, d.id)
			case 3, 4:
				err = pick(d.sale, e.sales.Restore, e.purchaseReturns.Restore)(ctx, d.id)
			case 5:
				err = pick(d.sale, e.sales.HardDelete, e.purchaseReturns.HardDelete)(ctx, d.id)
			}
			if err != nil {
				assertBusinessError(t, err)
			}
		}

		for _, p := range products {
			for _, rec := range e.db.Stock().Records(p) {
				require.GreaterOrEqual(t, rec.Quantity, int64(0), "step %d", step)
			}
		}
	}
}

func saleReturnInput(saleID id.ID, items ...documents.LineInput) sale_return.CreateInput {
	return sale_return.CreateInput{SaleID: saleID, Items: items}
}

func pick(cond bool, a, b func(context.Context, id.ID) error) func(context.Context, id.ID) error {
	if cond {
		return a
	}
	return b
}

func assertBusinessError(t *testing.T, err error) {
	t.Helper()
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok, "unexpected error: %v", err)
	assert.NotEqual(t, apperror.CodeInternal, appErr.Code, "unexpected error: %v", err)
}
