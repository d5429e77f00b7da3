// Package main is the entry point for the stockflow API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stockflow/internal/core/id"
	"stockflow/internal/core/security"
	"stockflow/internal/domain/auth"
	"stockflow/internal/domain/documents"
	"stockflow/internal/domain/documents/purchase"
	"stockflow/internal/domain/documents/purchase_return"
	"stockflow/internal/domain/documents/sale"
	"stockflow/internal/domain/documents/sale_return"
	"stockflow/internal/domain/journal"
	"stockflow/internal/domain/registers/stock"
	v1 "stockflow/internal/infrastructure/http/v1"
	"stockflow/internal/infrastructure/numerator"
	"stockflow/internal/infrastructure/storage/postgres"
	"stockflow/internal/infrastructure/storage/postgres/catalog_repo"
	"stockflow/internal/infrastructure/storage/postgres/document_repo"
	"stockflow/internal/infrastructure/storage/postgres/journal_repo"
	"stockflow/internal/infrastructure/storage/postgres/register_repo"
	"stockflow/pkg/logger"
)

const version = "0.1.0"

func main() {
	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()
	logger.SetDefault(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Infow("starting stockflow server", "version", version)

	poolCfg := postgres.DefaultPoolConfig(mustEnv("DATABASE_URL"))
	poolCfg.MaxConns = int32(getEnvInt("DB_MAX_CONNS", int(poolCfg.MaxConns)))
	poolCfg.MinConns = int32(getEnvInt("DB_MIN_CONNS", int(poolCfg.MinConns)))

	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	txm := postgres.NewTxManager(pool)

	auditRecorder, err := postgres.NewAuditRecorder(txm, getEnvInt("AUDIT_COMPRESS_THRESHOLD", postgres.DefaultCompressThreshold))
	if err != nil {
		log.Fatalw("failed to create audit recorder", "error", err)
	}

	poster := journal.NewPoster(journal_repo.NewRepo(txm))
	deps := documents.Deps{
		TxManager: txm,
		Stock:     stock.NewService(register_repo.NewStockRepo(txm)),
		Refs:      catalog_repo.NewResolver(txm),
		Numerator: numerator.New(func(ctx context.Context) numerator.Querier { return txm.GetQuerier(ctx) }, pool),
		Events:    postgres.NewOutboxPublisher(txm),
		Audit:     auditRecorder,
		Policy:    postingPolicy(log),
	}

	mappings, err := loadJournal()
	if err != nil {
		log.Fatalw("invalid journal configuration", "error", err)
	}
	if mappings != nil {
		deps.Poster = poster
		log.Info("journal posting enabled")
	}

	purchases := purchase.NewService(document_repo.NewPurchaseRepo(txm), deps, mappings.purchase())
	sales := sale.NewService(document_repo.NewSaleRepo(txm), deps, mappings.sale())
	purchaseReturns := purchase_return.NewService(document_repo.NewPurchaseReturnRepo(txm), purchases, deps, mappings.purchaseReturn())
	saleReturns := sale_return.NewService(document_repo.NewSaleReturnRepo(txm), sales, deps, mappings.saleReturn())

	cfg := v1.RouterConfig{
		Logger:          log,
		Debug:           getEnv("APP_ENV", "development") == "development",
		Version:         version,
		DB:              pool,
		Idempotency:     postgres.NewIdempotencyStore(txm, getEnvDuration("IDEMPOTENCY_TTL", 24*time.Hour)),
		Audit:           auditRecorder,
		Purchases:       purchases,
		Sales:           sales,
		PurchaseReturns: purchaseReturns,
		SaleReturns:     saleReturns,
		Stock:           deps.Stock,
		Journal:         poster,
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		jwtCfg := auth.DefaultJWTConfig(secret)
		jwtCfg.AccessTokenTTL = getEnvDuration("JWT_ACCESS_TTL", jwtCfg.AccessTokenTTL)
		cfg.JWTValidator = auth.NewJWTService(jwtCfg)
		cfg.RequireAuth = getEnv("AUTH_REQUIRED", "true") == "true"
	} else {
		log.Warn("JWT_SECRET not set, requests are served without an actor")
	}

	srv := &http.Server{
		Addr:         getEnv("HTTP_ADDR", ":8080"),
		Handler:      v1.NewRouter(cfg),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("http server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}

func postingPolicy(log *logger.Logger) security.PostingPolicy {
	raw := os.Getenv("CLOSED_PERIOD_UNTIL")
	if raw == "" {
		return security.OpenPolicy{}
	}
	until, err := time.Parse("2006-01-02", raw)
	if err != nil {
		log.Fatalw("invalid CLOSED_PERIOD_UNTIL, expected YYYY-MM-DD", "value", raw, "error", err)
	}
	log.Infow("closed period policy", "until", raw)
	return security.NewClosedPeriodPolicy(until)
}

// journalConfig holds the accounts and amount expressions of every kind.
// A nil *journalConfig disables posting.
type journalConfig struct {
	accounts journal.Accounts
	amounts  map[documents.Kind]*journal.AmountExpr
}

func loadJournal() (*journalConfig, error) {
	if getEnv("JOURNAL_ENABLED", "false") != "true" {
		return nil, nil
	}

	accountVars := map[string]*id.ID{}
	cfg := &journalConfig{amounts: map[documents.Kind]*journal.AmountExpr{}}
	accountVars["JOURNAL_ACCOUNT_INVENTORY"] = &cfg.accounts.Inventory
	accountVars["JOURNAL_ACCOUNT_PAYABLES"] = &cfg.accounts.Payables
	accountVars["JOURNAL_ACCOUNT_RECEIVABLES"] = &cfg.accounts.Receivables
	accountVars["JOURNAL_ACCOUNT_REVENUE"] = &cfg.accounts.Revenue
	accountVars["JOURNAL_ACCOUNT_SALES_RETURNS"] = &cfg.accounts.SalesReturns
	for key, dst := range accountVars {
		v, err := id.Parse(mustEnv(key))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		*dst = v
	}

	amountVars := map[documents.Kind]string{
		documents.KindPurchase:       "JOURNAL_PURCHASE_AMOUNT",
		documents.KindSale:           "JOURNAL_SALE_AMOUNT",
		documents.KindPurchaseReturn: "JOURNAL_PURCHASE_RETURN_AMOUNT",
		documents.KindSaleReturn:     "JOURNAL_SALE_RETURN_AMOUNT",
	}
	for kind, key := range amountVars {
		src := os.Getenv(key)
		if src == "" {
			continue
		}
		expr, err := journal.CompileAmount(src)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		cfg.amounts[kind] = expr
	}
	return cfg, nil
}

func (c *journalConfig) purchase() journal.Mapper[*purchase.Purchase] {
	if c == nil {
		return nil
	}
	return purchase.JournalMapping(c.accounts, c.amounts[documents.KindPurchase])
}

func (c *journalConfig) sale() journal.Mapper[*sale.Sale] {
	if c == nil {
		return nil
	}
	return sale.JournalMapping(c.accounts, c.amounts[documents.KindSale])
}

func (c *journalConfig) purchaseReturn() journal.Mapper[*purchase_return.PurchaseReturn] {
	if c == nil {
		return nil
	}
	return purchase_return.JournalMapping(c.accounts, c.amounts[documents.KindPurchaseReturn])
}

func (c *journalConfig) saleReturn() journal.Mapper[*sale_return.SaleReturn] {
	if c == nil {
		return nil
	}
	return sale_return.JournalMapping(c.accounts, c.amounts[documents.KindSaleReturn])
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func mustEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		fmt.Printf("required environment variable %s not set\n", key)
		os.Exit(1)
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
