// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"stockflow/internal/domain/documents"
	"stockflow/internal/domain/documents/purchase"
	"stockflow/internal/domain/documents/purchase_return"
	"stockflow/internal/domain/documents/sale"
	"stockflow/internal/domain/documents/sale_return"
	"stockflow/internal/infrastructure/http/v1/handlers"
	"stockflow/internal/infrastructure/http/v1/middleware"
	"stockflow/pkg/logger"
)

// RouterConfig holds everything the API serves.
type RouterConfig struct {
	Logger  *logger.Logger
	Debug   bool
	Version string

	// DB backs the health probes
	DB handlers.Database

	// JWTValidator enables bearer auth; nil leaves the actor empty
	JWTValidator middleware.JWTValidator
	// RequireAuth rejects requests without a token when a validator is set
	RequireAuth bool

	// Idempotency enables X-Idempotency-Key handling; nil disables it
	Idempotency middleware.IdempotencyStore

	// Audit enables GET /{kind}/:id/audit; nil disables it
	Audit handlers.AuditHistory

	Purchases       documents.Orchestrator[*purchase.Purchase, purchase.CreateInput, purchase.UpdateInput]
	Sales           documents.Orchestrator[*sale.Sale, sale.CreateInput, sale.UpdateInput]
	PurchaseReturns documents.Orchestrator[*purchase_return.PurchaseReturn, purchase_return.CreateInput, purchase_return.UpdateInput]
	SaleReturns     documents.Orchestrator[*sale_return.SaleReturn, sale_return.CreateInput, sale_return.UpdateInput]

	Stock   handlers.StockReader
	Journal handlers.JournalReader
}

type routeRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Default()
	}

	router := gin.New()

	// ErrorHandler wraps Recovery so a recovered panic is still rendered.
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.Recovery())

	base := handlers.NewBaseHandler()

	if cfg.DB != nil {
		handlers.NewHealthHandler(cfg.DB, cfg.Version).RegisterRoutes(router.Group("/health"))
	}

	api := router.Group("/api/v1")
	if cfg.JWTValidator != nil {
		if cfg.RequireAuth {
			api.Use(middleware.Auth(cfg.JWTValidator))
		} else {
			api.Use(middleware.OptionalAuth(cfg.JWTValidator))
		}
	}
	if cfg.Idempotency != nil {
		api.Use(middleware.Idempotency(cfg.Idempotency))
	}

	docs := map[string]routeRegistrar{}
	if cfg.Purchases != nil {
		docs["/purchases"] = handlers.NewDocumentHandler(base, documents.KindPurchase, cfg.Purchases, cfg.Audit)
	}
	if cfg.Sales != nil {
		docs["/sales"] = handlers.NewDocumentHandler(base, documents.KindSale, cfg.Sales, cfg.Audit)
	}
	if cfg.PurchaseReturns != nil {
		docs["/purchase-returns"] = handlers.NewDocumentHandler(base, documents.KindPurchaseReturn, cfg.PurchaseReturns, cfg.Audit)
	}
	if cfg.SaleReturns != nil {
		docs["/sale-returns"] = handlers.NewDocumentHandler(base, documents.KindSaleReturn, cfg.SaleReturns, cfg.Audit)
	}
	for path, h := range docs {
		h.RegisterRoutes(api.Group(path))
	}

	if cfg.Stock != nil {
		handlers.NewStockHandler(base, cfg.Stock).RegisterRoutes(api.Group("/stock"))
	}
	if cfg.Journal != nil {
		api.GET("/journal", handlers.NewJournalHandler(base, cfg.Journal).List)
	}

	return router
}
