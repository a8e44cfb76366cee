package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/nxths/storefront/internal/auth"
	"github.com/nxths/storefront/internal/db"
	"github.com/nxths/storefront/internal/orders"
)

type contextKey string

// userIDKey is the request context key for the authenticated user's ID
const userIDKey contextKey = "user_id"

// Handler contains dependencies for HTTP handlers
type Handler struct {
	DB          *db.DB
	AuthService *auth.AuthService
	Orders      *orders.Service
	Log         zerolog.Logger
}

// NewHandler creates a new handler
func NewHandler(db *db.DB, authService *auth.AuthService, orderService *orders.Service, log zerolog.Logger) *Handler {
	return &Handler{DB: db, AuthService: authService, Orders: orderService, Log: log}
}

// Register handles user registration
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "Invalid request body"}`, http.StatusBadRequest)
		return
	}

	if req.Username == "" || req.Password == "" {
		http.Error(w, `{"error": "Username and password required"}`, http.StatusBadRequest)
		return
	}

	user, err := h.AuthService.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, db.ErrDuplicateUsername) {
			http.Error(w, `{"error": "User already exists"}`, http.StatusBadRequest)
			return
		}
		h.Log.Error().Err(err).Str("username", req.Username).Msg("failed to register user")
		http.Error(w, `{"error": "Failed to register user"}`, http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "User registered",
		"user": map[string]interface{}{
			"id":       user.ID,
			"username": user.Username,
		},
	})
}

// Login handles user login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "Invalid request body"}`, http.StatusBadRequest)
		return
	}

	token, err := h.AuthService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrUnknownUser):
			http.Error(w, `{"error": "Invalid username"}`, http.StatusBadRequest)
		case errors.Is(err, auth.ErrWrongPassword):
			http.Error(w, `{"error": "Invalid password"}`, http.StatusBadRequest)
		default:
			h.Log.Error().Err(err).Str("username", req.Username).Msg("login failed")
			http.Error(w, `{"error": "Failed to log in"}`, http.StatusInternalServerError)
		}
		return
	}

	json.NewEncoder(w).Encode(map[string]string{"token": token})
}

// JWTAuthMiddleware guards protected routes. A missing Authorization header
// is 401; a token that fails verification is 403.
func (h *Handler) JWTAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := r.Header.Get("Authorization")
		if tokenString == "" {
			http.Error(w, `{"error": "Authorization header required"}`, http.StatusUnauthorized)
			return
		}

		// Remove "Bearer " prefix if present
		if len(tokenString) > 7 && tokenString[:7] == "Bearer " {
			tokenString = tokenString[7:]
		}

		identity, err := h.AuthService.VerifyToken(tokenString)
		if err != nil {
			http.Error(w, `{"error": "Invalid or expired token"}`, http.StatusForbidden)
			return
		}

		// Add user_id to context
		ctx := context.WithValue(r.Context(), userIDKey, identity.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ListProducts retrieves the full catalog
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.DB.ListProducts(r.Context())
	if err != nil {
		h.Log.Error().Err(err).Msg("failed to list products")
		http.Error(w, `{"error": "Failed to retrieve products"}`, http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(products)
}

// GetProduct retrieves a single product by ID
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "id")
	id, err := strconv.Atoi(idStr)
	if err != nil {
		http.Error(w, `{"error": "Invalid product ID"}`, http.StatusBadRequest)
		return
	}

	product, err := h.DB.GetProduct(r.Context(), id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			http.Error(w, `{"error": "Product not found"}`, http.StatusNotFound)
			return
		}
		h.Log.Error().Err(err).Int("product_id", id).Msg("failed to get product")
		http.Error(w, `{"error": "Failed to retrieve product"}`, http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(product)
}

// PlaceOrder handles order placement
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(userIDKey).(int)
	if !ok {
		http.Error(w, `{"error": "Unauthorized"}`, http.StatusUnauthorized)
		return
	}

	var req struct {
		Items []orders.RequestedItem `json:"items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "Invalid request body"}`, http.StatusBadRequest)
		return
	}

	order, err := h.Orders.PlaceOrder(r.Context(), userID, req.Items)
	if err != nil {
		h.Log.Error().Err(err).Int("user_id", userID).Msg("failed to place order")
		http.Error(w, `{"error": "Failed to place order"}`, http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"message":  "Order placed",
		"order_id": order.ID,
		"total":    order.Total,
	})
}

// GetUserOrders retrieves the caller's orders with their items
func (h *Handler) GetUserOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(userIDKey).(int)
	if !ok {
		http.Error(w, `{"error": "Unauthorized"}`, http.StatusUnauthorized)
		return
	}

	userOrders, err := h.Orders.ListUserOrders(r.Context(), userID)
	if err != nil {
		h.Log.Error().Err(err).Int("user_id", userID).Msg("failed to list orders")
		http.Error(w, `{"error": "Failed to retrieve orders"}`, http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(userOrders)
}
