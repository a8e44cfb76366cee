package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/nxths/storefront/internal/config"
	"github.com/nxths/storefront/internal/db"
)

// Recreate the schema and seed the database with the demo catalog
func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Connect to database
	database, err := db.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(ctx)

	schema, err := os.ReadFile("migrations/001_init.sql")
	if err != nil {
		log.Fatalf("Failed to read schema: %v", err)
	}

	if err := database.Reset(ctx); err != nil {
		log.Fatalf("Failed to reset database: %v", err)
	}

	if err := database.InitSchema(ctx, string(schema)); err != nil {
		log.Fatalf("Failed to apply schema: %v", err)
	}

	if err := database.SeedProducts(ctx); err != nil {
		log.Fatalf("Failed to seed products: %v", err)
	}

	products, err := database.ListProducts(ctx)
	if err != nil {
		log.Fatalf("Failed to list products: %v", err)
	}

	for _, p := range products {
		fmt.Printf("  %d: %s (%s) - %.2f\n", p.ID, p.Name, p.Description, p.Price)
	}
	fmt.Printf("Successfully seeded the database with %d products!\n", len(products))
}
