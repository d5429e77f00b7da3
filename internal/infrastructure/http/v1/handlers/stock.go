package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"stockflow/internal/core/id"
	"stockflow/internal/domain"
	"stockflow/internal/domain/journal"
	"stockflow/internal/domain/registers/stock"
	"stockflow/internal/infrastructure/http/v1/dto"
)

// StockReader is the read side of the stock service.
type StockReader interface {
	Get(ctx context.Context, stockID id.ID) (*stock.Record, error)
	List(ctx context.Context, filter stock.ListFilter) (domain.ListResult[stock.Record], error)
}

// StockHandler serves stock records.
type StockHandler struct {
	*BaseHandler
	service StockReader
}

// NewStockHandler creates a new stock handler.
func NewStockHandler(base *BaseHandler, service StockReader) *StockHandler {
	return &StockHandler{BaseHandler: base, service: service}
}

// List handles GET /stock
func (h *StockHandler) List(c *gin.Context) {
	var q dto.StockQuery
	if !h.BindQuery(c, &q) {
		return
	}
	filter, err := q.Filter()
	if err != nil {
		h.Error(c, err)
		return
	}
	res, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, res)
}

// Get handles GET /stock/:id
func (h *StockHandler) Get(c *gin.Context) {
	stockID, ok := h.ParamID(c)
	if !ok {
		return
	}
	rec, err := h.service.Get(c.Request.Context(), stockID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, rec)
}

// RegisterRoutes registers stock routes.
func (h *StockHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
}

// JournalReader lists journal postings.
type JournalReader interface {
	List(ctx context.Context, filter journal.Filter) ([]journal.Posting, error)
}

// JournalHandler serves the posting journal.
type JournalHandler struct {
	*BaseHandler
	poster JournalReader
}

// NewJournalHandler creates a new journal handler.
func NewJournalHandler(base *BaseHandler, poster JournalReader) *JournalHandler {
	return &JournalHandler{BaseHandler: base, poster: poster}
}

// List handles GET /journal?ref_type=&ref_id=
func (h *JournalHandler) List(c *gin.Context) {
	var q dto.JournalQuery
	if !h.BindQuery(c, &q) {
		return
	}
	filter, err := q.Filter()
	if err != nil {
		h.Error(c, err)
		return
	}
	postings, err := h.poster.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	if postings == nil {
		postings = []journal.Posting{}
	}
	h.OK(c, dto.JournalResponse{Items: postings})
}
