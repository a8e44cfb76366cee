package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/nxths/storefront/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Storage-layer sentinel errors, matched with errors.Is at the API boundary.
var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicateUsername = errors.New("username already taken")
)

// uniqueViolation is the Postgres error code for unique constraint violations
const uniqueViolation = "23505"

// DB wraps a PostgreSQL connection pool
type DB struct {
	Pool *pgxpool.Pool
}

// NewDB initializes a new database connection pool
func NewDB(ctx context.Context, connString string) (*DB, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// Close closes the database connection pool
func (db *DB) Close(ctx context.Context) error {
	db.Pool.Close()
	return nil
}

// InitSchema executes the schema SQL. The migration is written with
// IF NOT EXISTS so this is safe to run on every startup.
func (db *DB) InitSchema(ctx context.Context, schema string) error {
	if _, err := db.Pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// Reset drops all tables so the schema can be recreated from scratch
func (db *DB) Reset(ctx context.Context) error {
	_, err := db.Pool.Exec(ctx, "DROP TABLE IF EXISTS order_items, orders, products, users CASCADE")
	if err != nil {
		return fmt.Errorf("failed to drop tables: %w", err)
	}
	return nil
}

// CreateUser inserts a new user
func (db *DB) CreateUser(ctx context.Context, username, passwordHash string) (*models.User, error) {
	user := &models.User{}
	err := db.Pool.QueryRow(ctx,
		"INSERT INTO users (username, password_hash) VALUES ($1, $2) RETURNING id, username, password_hash, created_at",
		username, passwordHash).Scan(&user.ID, &user.Username, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrDuplicateUsername
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// GetUserByUsername retrieves a user by username
func (db *DB) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	user := &models.User{}
	err := db.Pool.QueryRow(ctx,
		"SELECT id, username, password_hash, created_at FROM users WHERE username = $1",
		username).Scan(&user.ID, &user.Username, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// CreateProduct inserts a new catalog entry
func (db *DB) CreateProduct(ctx context.Context, name, description string, price float64) (*models.Product, error) {
	if price < 0 {
		return nil, fmt.Errorf("price must be non-negative")
	}

	product := &models.Product{}
	err := db.Pool.QueryRow(ctx,
		"INSERT INTO products (name, description, price) VALUES ($1, $2, $3) RETURNING id, name, description, price",
		name, description, price).Scan(&product.ID, &product.Name, &product.Description, &product.Price)
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return product, nil
}

// GetProduct retrieves a product by ID
func (db *DB) GetProduct(ctx context.Context, id int) (*models.Product, error) {
	product := &models.Product{}
	err := db.Pool.QueryRow(ctx,
		"SELECT id, name, description, price FROM products WHERE id = $1",
		id).Scan(&product.ID, &product.Name, &product.Description, &product.Price)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return product, nil
}

// ListProducts retrieves the full catalog
func (db *DB) ListProducts(ctx context.Context) ([]models.Product, error) {
	rows, err := db.Pool.Query(ctx, "SELECT id, name, description, price FROM products ORDER BY id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		var product models.Product
		if err := rows.Scan(&product.ID, &product.Name, &product.Description, &product.Price); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

// SeedProducts inserts the demo catalog if the products table is empty
func (db *DB) SeedProducts(ctx context.Context) error {
	var count int
	if err := db.Pool.QueryRow(ctx, "SELECT COUNT(*) FROM products").Scan(&count); err != nil {
		return fmt.Errorf("failed to count products: %w", err)
	}
	if count > 0 {
		return nil
	}

	_, err := db.Pool.Exec(ctx, `
		INSERT INTO products (name, description, price) VALUES
		('Laptop', 'Powerful laptop', 999.99),
		('Phone', 'Smartphone', 599.99),
		('Headphones', 'Noise cancelling', 199.99)
	`)
	if err != nil {
		return fmt.Errorf("failed to seed products: %w", err)
	}
	return nil
}
