// Package main provides a CLI tool for seeding the catalogs with demo data.
//
// Ids are derived from the entry names, so running the tool twice inserts
// nothing new and prints the same ids.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"stockflow/internal/infrastructure/storage/postgres"
	"stockflow/pkg/logger"
)

const seedActor = "seed"

var seedNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("stockflow/seed"))

type catalogEntry struct {
	table string
	names []string
}

var catalogs = []catalogEntry{
	{table: "cat_suppliers", names: []string{"Acme Wholesale", "Northwind Traders"}},
	{table: "cat_customers", names: []string{"Walk-in Customer", "Contoso Retail"}},
	{table: "cat_stores", names: []string{"Main Store", "Warehouse B"}},
	{table: "cat_employees", names: []string{"Store Clerk"}},
	{table: "cat_payment_methods", names: []string{"Cash", "Card"}},
	{table: "cat_products", names: []string{"Widget", "Gadget", "Sprocket"}},
}

func main() {
	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(dbURL))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	log.Info("connected to database")

	for _, cat := range catalogs {
		for _, name := range cat.names {
			ref := seedID(cat.table, name)
			if err := seedCatalog(ctx, pool, cat.table, ref, name); err != nil {
				log.Fatalw("failed to seed catalog", "table", cat.table, "name", name, "error", err)
			}
			log.Infow("seeded", "table", cat.table, "name", name, "id", ref)
		}
	}

	// One dated and one undated batch per product.
	for _, product := range catalogs[len(catalogs)-1].names {
		productID := seedID("cat_products", product)
		expires := time.Now().UTC().AddDate(1, 0, 0).Truncate(24 * time.Hour)
		for _, b := range []struct {
			name    string
			expires *time.Time
		}{
			{name: product + " lot A", expires: &expires},
			{name: product + " lot B"},
		} {
			ref := seedID("cat_batches", b.name)
			if err := seedBatch(ctx, pool, ref, productID, b.name, b.expires); err != nil {
				log.Fatalw("failed to seed batch", "name", b.name, "error", err)
			}
			log.Infow("seeded", "table", "cat_batches", "name", b.name, "id", ref, "product_id", productID)
		}
	}

	log.Info("seed complete")
}

func seedID(table, name string) uuid.UUID {
	return uuid.NewSHA1(seedNamespace, []byte(table+"/"+name))
}

func seedCatalog(ctx context.Context, pool *postgres.Pool, table string, ref uuid.UUID, name string) error {
	_, err := pool.Exec(ctx, `
		INSERT INTO `+table+` (id, name, created_by, updated_by)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT (id) DO NOTHING
	`, ref, name, seedActor)
	return err
}

func seedBatch(ctx context.Context, pool *postgres.Pool, ref, productID uuid.UUID, name string, expires *time.Time) error {
	_, err := pool.Exec(ctx, `
		INSERT INTO cat_batches (id, name, product_id, expires_on, created_by, updated_by)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (id) DO NOTHING
	`, ref, name, productID, expires, seedActor)
	return err
}
