package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/eminaliyev/gift-api/internal/domain/catalog"
)

const (
	listProductsSQL = `SELECT p.id, p.name, p.description, p.category,
		pr.id, pr.value, pr.start_date, pr.end_date
		FROM products p
		LEFT JOIN prices pr ON pr.product_id = p.id
		ORDER BY p.id, pr.start_date`

	getProductSQL = `SELECT p.id, p.name, p.description, p.category,
		pr.id, pr.value, pr.start_date, pr.end_date
		FROM products p
		LEFT JOIN prices pr ON pr.product_id = p.id
		WHERE p.id = $1
		ORDER BY pr.start_date`
)

var _ catalog.Repository = (*ProductRepository)(nil)

// ProductRepository implements catalog.Repository backed by PostgreSQL.
// Products are returned with their full price history so callers can resolve
// the active price at their own evaluation instant.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns the whole catalog ordered by product ID.
func (r *ProductRepository) List(ctx context.Context) ([]catalog.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return collectProducts(rows)
}

// GetByID returns one product with its price list, or catalog.ErrNotFound.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*catalog.Product, error) {
	rows, err := r.pool.Query(ctx, getProductSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}

	products, err := collectProducts(rows)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}
	if len(products) == 0 {
		return nil, catalog.ErrNotFound
	}
	return &products[0], nil
}

// collectProducts folds joined product/price rows into products with price
// lists. Rows must be ordered by product ID.
func collectProducts(rows pgx.Rows) ([]catalog.Product, error) {
	defer rows.Close()

	var products []catalog.Product
	for rows.Next() {
		var (
			p         catalog.Product
			priceID   *string
			value     *decimal.Decimal
			startDate *time.Time
			endDate   *time.Time
		)
		if err := rows.Scan(
			&p.ID, &p.Name, &p.Description, &p.Category,
			&priceID, &value, &startDate, &endDate,
		); err != nil {
			return nil, err
		}

		if len(products) == 0 || products[len(products)-1].ID != p.ID {
			products = append(products, p)
		}
		if priceID != nil {
			last := &products[len(products)-1]
			last.Prices = append(last.Prices, catalog.Price{
				ID:        *priceID,
				Value:     *value,
				StartDate: *startDate,
				EndDate:   endDate,
			})
		}
	}
	return products, rows.Err()
}
