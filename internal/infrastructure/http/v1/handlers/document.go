package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"stockflow/internal/core/id"
	"stockflow/internal/domain/documents"
	"stockflow/internal/infrastructure/http/v1/dto"
	"stockflow/internal/infrastructure/storage/postgres"
)

// AuditHistory reads the audit trail of a document.
type AuditHistory interface {
	History(ctx context.Context, entityType string, entityID id.ID, limit int) ([]postgres.AuditRecord, error)
}

// DocumentHandler serves one document kind. C and U are the kind's create
// and update inputs, bound straight from the request body.
type DocumentHandler[D documents.Document, C any, U any] struct {
	*BaseHandler
	service documents.Orchestrator[D, C, U]
	kind    documents.Kind
	audit   AuditHistory
}

// NewDocumentHandler creates a handler. A nil audit disables the history route.
func NewDocumentHandler[D documents.Document, C any, U any](
	base *BaseHandler,
	kind documents.Kind,
	service documents.Orchestrator[D, C, U],
	audit AuditHistory,
) *DocumentHandler[D, C, U] {
	return &DocumentHandler[D, C, U]{
		BaseHandler: base,
		service:     service,
		kind:        kind,
		audit:       audit,
	}
}

// List handles GET /{kind}
func (h *DocumentHandler[D, C, U]) List(c *gin.Context) {
	var q dto.ListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	res, err := h.service.List(c.Request.Context(), q.Filter())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, res)
}

// Get handles GET /{kind}/:id. ?include_deleted=true also returns a
// soft-deleted document.
func (h *DocumentHandler[D, C, U]) Get(c *gin.Context) {
	docID, ok := h.ParamID(c)
	if !ok {
		return
	}
	doc, err := h.service.Get(c.Request.Context(), docID, c.Query("include_deleted") == "true")
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, doc)
}

// Create handles POST /{kind}
func (h *DocumentHandler[D, C, U]) Create(c *gin.Context) {
	var req C
	if !h.BindJSON(c, &req) {
		return
	}
	doc, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, doc)
}

// Update handles PUT /{kind}/:id
func (h *DocumentHandler[D, C, U]) Update(c *gin.Context) {
	docID, ok := h.ParamID(c)
	if !ok {
		return
	}
	var req U
	if !h.BindJSON(c, &req) {
		return
	}
	doc, err := h.service.Update(c.Request.Context(), docID, req)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, doc)
}

// Delete handles DELETE /{kind}/:id
func (h *DocumentHandler[D, C, U]) Delete(c *gin.Context) {
	docID, ok := h.ParamID(c)
	if !ok {
		return
	}
	if err := h.service.SoftDelete(c.Request.Context(), docID); err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.DeletedResponse{Deleted: true})
}

// Restore handles POST /{kind}/:id/restore
func (h *DocumentHandler[D, C, U]) Restore(c *gin.Context) {
	docID, ok := h.ParamID(c)
	if !ok {
		return
	}
	if err := h.service.Restore(c.Request.Context(), docID); err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.RestoredResponse{Restored: true})
}

// HardDelete handles DELETE /{kind}/:id/hard
func (h *DocumentHandler[D, C, U]) HardDelete(c *gin.Context) {
	docID, ok := h.ParamID(c)
	if !ok {
		return
	}
	if err := h.service.HardDelete(c.Request.Context(), docID); err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.DeletedResponse{Deleted: true})
}

// BulkDelete handles POST /{kind}/bulk/delete
func (h *DocumentHandler[D, C, U]) BulkDelete(c *gin.Context) {
	h.bulk(c, h.service.SoftDeleteMany)
}

// BulkRestore handles POST /{kind}/bulk/restore
func (h *DocumentHandler[D, C, U]) BulkRestore(c *gin.Context) {
	h.bulk(c, h.service.RestoreMany)
}

// BulkHardDelete handles POST /{kind}/bulk/hard-delete
func (h *DocumentHandler[D, C, U]) BulkHardDelete(c *gin.Context) {
	h.bulk(c, h.service.HardDeleteMany)
}

func (h *DocumentHandler[D, C, U]) bulk(c *gin.Context, op func(context.Context, []id.ID) (*documents.BulkResult, error)) {
	var req dto.BulkRequest
	if !h.BindJSON(c, &req) {
		return
	}
	res, err := op(c.Request.Context(), req.IDs)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, res)
}

// History handles GET /{kind}/:id/audit
func (h *DocumentHandler[D, C, U]) History(c *gin.Context) {
	docID, ok := h.ParamID(c)
	if !ok {
		return
	}
	var q struct {
		Limit int `form:"limit" binding:"omitempty,min=1,max=500"`
	}
	if !h.BindQuery(c, &q) {
		return
	}
	records, err := h.audit.History(c.Request.Context(), string(h.kind), docID, q.Limit)
	if err != nil {
		h.Error(c, err)
		return
	}
	if records == nil {
		records = []postgres.AuditRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"items": records})
}

// RegisterRoutes mounts the kind's routes on rg.
func (h *DocumentHandler[D, C, U]) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.GET("/:id", h.Get)
	rg.PUT("/:id", h.Update)
	rg.DELETE("/:id", h.Delete)
	rg.POST("/:id/restore", h.Restore)
	rg.DELETE("/:id/hard", h.HardDelete)

	rg.POST("/bulk/delete", h.BulkDelete)
	rg.POST("/bulk/restore", h.BulkRestore)
	rg.POST("/bulk/hard-delete", h.BulkHardDelete)

	if h.audit != nil {
		rg.GET("/:id/audit", h.History)
	}
}
