package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"github.com/nxths/storefront/internal/api"
	"github.com/nxths/storefront/internal/auth"
	"github.com/nxths/storefront/internal/config"
	"github.com/nxths/storefront/internal/db"
	"github.com/nxths/storefront/internal/logger"
	"github.com/nxths/storefront/internal/orders"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// Main entry point: sets up configuration, database, and HTTP server
func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logg := logger.New(cfg.LogLevel)

	// Initialize database connection
	database, err := db.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		logg.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer database.Close(ctx)

	schema, err := os.ReadFile("migrations/001_init.sql")
	if err != nil {
		logg.Fatal().Err(err).Msg("failed to read schema")
	}

	// DB_RESET=true recreates the schema and reseeds the demo catalog
	if cfg.ResetDB {
		if err := database.Reset(ctx); err != nil {
			logg.Fatal().Err(err).Msg("failed to reset database")
		}
	}
	if err := database.InitSchema(ctx, string(schema)); err != nil {
		logg.Fatal().Err(err).Msg("failed to apply schema")
	}
	if cfg.ResetDB {
		if err := database.SeedProducts(ctx); err != nil {
			logg.Fatal().Err(err).Msg("failed to seed products")
		}
	}

	// Initialize services
	authService := auth.NewAuthService(database, []byte(cfg.JWTSecret), cfg.TokenTTL)
	orderService := orders.NewService(database)

	// Initialize API handlers
	handler := api.NewHandler(database, authService, orderService, logg)

	// Set up HTTP router
	r := chi.NewRouter()

	// Enable CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Public endpoints
	r.Post("/api/register", handler.Register)
	r.Post("/api/login", handler.Login)
	r.Get("/api/products", handler.ListProducts)
	r.Get("/api/products/{id}", handler.GetProduct)

	// Protected endpoints (require JWT)
	r.Group(func(r chi.Router) {
		r.Use(handler.JWTAuthMiddleware)
		r.Post("/api/orders", handler.PlaceOrder)
		r.Get("/api/orders", handler.GetUserOrders)
	})

	// Start server
	logg.Info().Str("addr", cfg.Addr).Msg("starting server")
	if err := http.ListenAndServe(cfg.Addr, r); err != nil {
		logg.Fatal().Err(err).Msg("server failed")
	}
}
