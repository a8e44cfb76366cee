package orders

import (
	"context"
	"fmt"

	"github.com/nxths/storefront/internal/db"
	"github.com/nxths/storefront/internal/models"

	"github.com/jackc/pgx/v5"
)

// RequestedItem is one (product, quantity) pair of an incoming order
type RequestedItem struct {
	ProductID int `json:"product_id"`
	Quantity  int `json:"quantity"`
}

// Service implements order placement and order history
type Service struct {
	DB *db.DB
}

// NewService creates a new order service
func NewService(db *db.DB) *Service {
	return &Service{DB: db}
}

// PlaceOrder creates an order for the user from the requested items.
//
// Each item is resolved against the catalog; items referencing an unknown
// product are skipped without error. Resolved items are stored as price
// snapshots (unit price * quantity at placement time) and their prices
// accumulate into the order total. The whole operation runs in a single
// transaction: a storage failure partway rolls back the order entirely,
// so a persisted order is always consistent with its items.
func (s *Service) PlaceOrder(ctx context.Context, userID int, items []RequestedItem) (*models.Order, error) {
	tx, err := s.DB.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	order := &models.Order{UserID: userID}
	err = tx.QueryRow(ctx,
		"INSERT INTO orders (user_id, total) VALUES ($1, 0) RETURNING id, created_at",
		userID).Scan(&order.ID, &order.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	total := 0.0
	for _, item := range items {
		var price float64
		err := tx.QueryRow(ctx, "SELECT price FROM products WHERE id = $1", item.ProductID).Scan(&price)
		if err == pgx.ErrNoRows {
			// Unknown product: the item is skipped, not an error
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to resolve product %d: %w", item.ProductID, err)
		}

		linePrice := price * float64(item.Quantity)
		orderItem := models.OrderItem{
			OrderID:   order.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     linePrice,
		}
		err = tx.QueryRow(ctx,
			"INSERT INTO order_items (order_id, product_id, quantity, price) VALUES ($1, $2, $3, $4) RETURNING id",
			orderItem.OrderID, orderItem.ProductID, orderItem.Quantity, orderItem.Price).Scan(&orderItem.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to create order item: %w", err)
		}

		total += linePrice
		order.Items = append(order.Items, orderItem)
	}

	if _, err := tx.Exec(ctx, "UPDATE orders SET total = $1 WHERE id = $2", total, order.ID); err != nil {
		return nil, fmt.Errorf("failed to update order total: %w", err)
	}
	order.Total = total

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return order, nil
}

// ListUserOrders retrieves all orders for a user, each with its items
func (s *Service) ListUserOrders(ctx context.Context, userID int) ([]models.Order, error) {
	rows, err := s.DB.Pool.Query(ctx,
		"SELECT id, user_id, total, created_at FROM orders WHERE user_id = $1 ORDER BY created_at ASC, id ASC",
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		var order models.Order
		if err := rows.Scan(&order.ID, &order.UserID, &order.Total, &order.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range orders {
		items, err := s.listOrderItems(ctx, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Items = items
	}
	return orders, nil
}

func (s *Service) listOrderItems(ctx context.Context, orderID int) ([]models.OrderItem, error) {
	rows, err := s.DB.Pool.Query(ctx,
		"SELECT id, order_id, product_id, quantity, price FROM order_items WHERE order_id = $1 ORDER BY id ASC",
		orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order items: %w", err)
	}
	defer rows.Close()

	var items []models.OrderItem
	for rows.Next() {
		var item models.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &item.Price); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
