package v1_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockflow/internal/core/id"
	"stockflow/internal/core/types"
	"stockflow/internal/domain"
	"stockflow/internal/domain/auth"
	"stockflow/internal/domain/documents"
	"stockflow/internal/domain/documents/purchase"
	"stockflow/internal/domain/documents/purchase_return"
	"stockflow/internal/domain/documents/sale"
	"stockflow/internal/domain/documents/sale_return"
	"stockflow/internal/domain/journal"
	"stockflow/internal/domain/refs"
	"stockflow/internal/domain/registers/stock"
	v1 "stockflow/internal/infrastructure/http/v1"
	"stockflow/internal/infrastructure/http/v1/middleware"
	"stockflow/internal/testutil/memdb"
	"stockflow/pkg/logger"
)

type api struct {
	t        *testing.T
	db       *memdb.DB
	router   http.Handler
	supplier id.ID
	customer id.ID
	token    string
}

func newAPI(t *testing.T, mutate ...func(*v1.RouterConfig)) *api {
	t.Helper()

	db := memdb.New()
	a := &api{t: t, db: db, supplier: id.New(), customer: id.New()}
	db.AddRef(refs.Supplier, a.supplier)
	db.AddRef(refs.Customer, a.customer)

	accounts := journal.Accounts{
		Inventory:    id.New(),
		Payables:     id.New(),
		Receivables:  id.New(),
		Revenue:      id.New(),
		SalesReturns: id.New(),
	}
	stockSvc := stock.NewService(db.Stock())
	poster := journal.NewPoster(db.Journal())
	deps := documents.Deps{
		TxManager: db,
		Stock:     stockSvc,
		Refs:      db.Refs(),
		Poster:    poster,
		Numerator: db.Numerator(),
		Events:    db.Publisher(),
		Audit:     db.Recorder(),
	}

	purchases := purchase.NewService(memdb.NewDocStore(db, "purchases", purchase.New), deps,
		purchase.JournalMapping(accounts, nil))
	sales := sale.NewService(memdb.NewDocStore(db, "sales", sale.New), deps,
		sale.JournalMapping(accounts, nil))

	cfg := v1.RouterConfig{
		Logger:    logger.NewNop(),
		Version:   "test",
		Purchases: purchases,
		Sales:     sales,
		PurchaseReturns: purchase_return.NewService(
			memdb.NewDocStore(db, "purchase_returns", purchase_return.New), purchases, deps,
			purchase_return.JournalMapping(accounts, nil)),
		SaleReturns: sale_return.NewService(
			memdb.NewDocStore(db, "sale_returns", sale_return.New), sales, deps,
			sale_return.JournalMapping(accounts, nil)),
		Stock:   stockSvc,
		Journal: poster,
	}
	for _, m := range mutate {
		m(&cfg)
	}
	a.router = v1.NewRouter(cfg)
	return a
}

func (a *api) product() id.ID {
	p := id.New()
	a.db.AddRef(refs.Product, p)
	return p
}

func (a *api) do(method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, "/api/v1"+path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (a *api) quantity(stockID id.ID) int64 {
	a.t.Helper()
	w := a.do(http.MethodGet, "/stock/"+stockID.String(), nil)
	require.Equal(a.t, http.StatusOK, w.Code, w.Body.String())
	return decode[stock.Record](a.t, w).Quantity
}

func items(product id.ID, qty int64, price string) []documents.LineInput {
	return []documents.LineInput{{ProductID: product, Quantity: qty, UnitPrice: types.MustMoney(price)}}
}

func TestRouter_WidgetScenario(t *testing.T) {
	a := newAPI(t)
	widget := a.product()

	w := a.do(http.MethodPost, "/purchases", purchase.CreateInput{SupplierID: a.supplier, Items: items(widget, 10, "2.00")})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	p := decode[purchase.Purchase](t, w)
	require.Len(t, p.Lines, 1)
	require.NotNil(t, p.Lines[0].StockID)
	stockID := *p.Lines[0].StockID
	assert.Equal(t, int64(10), a.quantity(stockID))

	w = a.do(http.MethodPost, "/sales", sale.CreateInput{CustomerID: &a.customer, Items: items(widget, 4, "5.00")})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	s := decode[sale.Sale](t, w)
	assert.True(t, s.TotalAmount.Equal(types.MustMoney("20.00")))
	assert.Equal(t, int64(6), a.quantity(stockID))

	w = a.do(http.MethodDelete, "/sales/"+s.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"deleted":true}`, w.Body.String())
	assert.Equal(t, int64(10), a.quantity(stockID))

	w = a.do(http.MethodGet, "/sales/"+s.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = a.do(http.MethodGet, "/sales/"+s.ID.String()+"?include_deleted=true", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = a.do(http.MethodPost, "/sales/"+s.ID.String()+"/restore", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"restored":true}`, w.Body.String())
	assert.Equal(t, int64(6), a.quantity(stockID))

	w = a.do(http.MethodDelete, "/sales/"+s.ID.String()+"/hard", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = a.do(http.MethodDelete, "/purchases/"+p.ID.String()+"/hard", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, int64(0), a.quantity(stockID))

	w = a.do(http.MethodGet, "/journal?ref_type=sale&ref_id="+s.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	postings := decode[struct {
		Items []journal.Posting `json:"items"`
	}](t, w)
	assert.NotEmpty(t, postings.Items)
}

func TestRouter_Errors(t *testing.T) {
	a := newAPI(t)
	widget := a.product()

	a.db.Stock().Seed(widget, nil, nil, 2)

	t.Run("insufficient stock", func(t *testing.T) {
		w := a.do(http.MethodPost, "/sales", sale.CreateInput{Items: items(widget, 3, "1.00")})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		body := decode[middleware.ErrorBody](t, w)
		assert.Equal(t, "INSUFFICIENT_STOCK", body.Code)
		assert.EqualValues(t, 2, body.Details["available"])
		assert.EqualValues(t, 3, body.Details["required"])
	})

	t.Run("no stock record", func(t *testing.T) {
		w := a.do(http.MethodPost, "/sales", sale.CreateInput{Items: items(a.product(), 1, "1.00")})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, "INVALID_REFERENCE", decode[middleware.ErrorBody](t, w).Code)
	})

	t.Run("malformed id", func(t *testing.T) {
		w := a.do(http.MethodGet, "/purchases/not-a-uuid", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "VALIDATION_ERROR", decode[middleware.ErrorBody](t, w).Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/purchases", bytes.NewBufferString("{"))
		w := httptest.NewRecorder()
		a.router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown supplier", func(t *testing.T) {
		w := a.do(http.MethodPost, "/purchases", purchase.CreateInput{SupplierID: id.New(), Items: items(widget, 1, "1.00")})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, "INVALID_REFERENCE", decode[middleware.ErrorBody](t, w).Code)
	})

	t.Run("limit out of range", func(t *testing.T) {
		w := a.do(http.MethodGet, "/purchases?limit=9999", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestRouter_ListAndTrash(t *testing.T) {
	a := newAPI(t)
	widget := a.product()

	var ids []id.ID
	for i := 0; i < 3; i++ {
		w := a.do(http.MethodPost, "/purchases", purchase.CreateInput{SupplierID: a.supplier, Items: items(widget, 1, "1.00")})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		ids = append(ids, decode[purchase.Purchase](t, w).ID)
	}
	require.Equal(t, http.StatusOK, a.do(http.MethodDelete, "/purchases/"+ids[0].String(), nil).Code)

	list := func(query string) domain.ListResult[purchase.Purchase] {
		w := a.do(http.MethodGet, "/purchases"+query, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		return decode[domain.ListResult[purchase.Purchase]](t, w)
	}

	assert.Equal(t, int64(2), list("").TotalCount)
	assert.Equal(t, int64(3), list("?include_deleted=true").TotalCount)
	trash := list("?deleted_only=true")
	require.Len(t, trash.Items, 1)
	assert.Equal(t, ids[0], trash.Items[0].ID)

	paged := list("?limit=1&offset=1")
	assert.Len(t, paged.Items, 1)
	assert.Equal(t, 1, paged.Limit)
}

func TestRouter_Bulk(t *testing.T) {
	a := newAPI(t)
	widget := a.product()

	w := a.do(http.MethodPost, "/purchases", purchase.CreateInput{SupplierID: a.supplier, Items: items(widget, 2, "1.00")})
	require.Equal(t, http.StatusCreated, w.Code)
	p := decode[purchase.Purchase](t, w)
	missing := id.New()

	w = a.do(http.MethodPost, "/purchases/bulk/delete", map[string]any{"ids": []id.ID{p.ID, missing, p.ID}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode[documents.BulkResult](t, w)
	assert.Equal(t, []id.ID{p.ID}, res.Succeeded)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, missing, res.Failed[0].ID)
	assert.Equal(t, "NOT_FOUND", res.Failed[0].Code)

	w = a.do(http.MethodPost, "/purchases/bulk/restore", map[string]any{"ids": []id.ID{p.ID}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[documents.BulkResult](t, w).Succeeded, 1)

	w = a.do(http.MethodPost, "/purchases/bulk/hard-delete", map[string]any{"ids": []id.ID{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_Stock(t *testing.T) {
	a := newAPI(t)
	widget := a.product()
	a.db.Stock().Seed(widget, nil, nil, 0)
	full := a.db.Stock().Seed(a.product(), nil, nil, 3)

	w := a.do(http.MethodGet, "/stock?non_zero=true", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode[domain.ListResult[stock.Record]](t, w)
	require.Len(t, res.Items, 1)
	assert.Equal(t, full.ID, res.Items[0].ID)

	w = a.do(http.MethodGet, "/stock?product_id=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(http.MethodGet, "/stock/"+id.New().String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_Auth(t *testing.T) {
	jwtSvc := auth.NewJWTService(auth.DefaultJWTConfig("secret"))
	a := newAPI(t, func(cfg *v1.RouterConfig) {
		cfg.JWTValidator = jwtSvc
		cfg.RequireAuth = true
	})

	w := a.do(http.MethodGet, "/purchases", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token, _, err := jwtSvc.GenerateAccessToken("clerk-7", "", nil)
	require.NoError(t, err)
	a.token = token

	widget := a.product()
	w = a.do(http.MethodPost, "/purchases", purchase.CreateInput{SupplierID: a.supplier, Items: items(widget, 1, "1.00")})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	p := decode[purchase.Purchase](t, w)
	require.NotNil(t, p.CreatedBy)
	assert.Equal(t, "clerk-7", *p.CreatedBy)
}

func TestRouter_TraceHeaders(t *testing.T) {
	a := newAPI(t)
	w := a.do(http.MethodGet, "/purchases", nil, middleware.HeaderRequestID, "req-42")
	assert.Equal(t, "req-42", w.Header().Get(middleware.HeaderRequestID))
	assert.NotEmpty(t, w.Header().Get(middleware.HeaderTraceID))
}

func TestRouter_DocumentNumbers(t *testing.T) {
	a := newAPI(t)
	widget := a.product()

	var numbers []string
	for i := 0; i < 2; i++ {
		w := a.do(http.MethodPost, "/purchases", purchase.CreateInput{SupplierID: a.supplier, Items: items(widget, 1, "1.00")})
		require.Equal(t, http.StatusCreated, w.Code)
		numbers = append(numbers, decode[purchase.Purchase](t, w).Number)
	}
	prefix := fmt.Sprintf("PUR-%d-", time.Now().UTC().Year())
	assert.Equal(t, prefix+"00001", numbers[0])
	assert.Equal(t, prefix+"00002", numbers[1])
}
