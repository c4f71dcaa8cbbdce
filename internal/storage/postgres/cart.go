package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/eminaliyev/gift-api/internal/domain/cart"
	"github.com/eminaliyev/gift-api/internal/domain/catalog"
)

const (
	listCartSQL = `SELECT ci.product_id, ci.quantity,
		p.name, p.description, p.category,
		pr.id, pr.value, pr.start_date, pr.end_date
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		LEFT JOIN prices pr ON pr.product_id = p.id
		WHERE ci.user_id = $1
		ORDER BY ci.product_id, pr.start_date`

	updateCartQuantitySQL = `UPDATE cart_items SET quantity = $3, updated_at = now()
		WHERE user_id = $1 AND product_id = $2`

	deleteCartItemsSQL = `DELETE FROM cart_items
		WHERE user_id = $1 AND product_id = ANY($2)`
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL.
type CartRepository struct {
	pool *pgxpool.Pool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

// ListByUser returns the user's cart lines joined with product data and the
// product's full price list, in a single query.
func (r *CartRepository) ListByUser(ctx context.Context, userID string) ([]cart.Line, error) {
	rows, err := r.pool.Query(ctx, listCartSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("listing cart for user %q: %w", userID, err)
	}
	defer rows.Close()

	var lines []cart.Line
	for rows.Next() {
		var (
			productID string
			quantity  int
			p         catalog.Product
			priceID   *string
			value     *decimal.Decimal
			startDate *time.Time
			endDate   *time.Time
		)
		if err := rows.Scan(
			&productID, &quantity,
			&p.Name, &p.Description, &p.Category,
			&priceID, &value, &startDate, &endDate,
		); err != nil {
			return nil, err
		}
		p.ID = productID

		if len(lines) == 0 || lines[len(lines)-1].ProductID != productID {
			lines = append(lines, cart.Line{
				ProductID: productID,
				Quantity:  quantity,
				Product:   p,
			})
		}
		if priceID != nil {
			last := &lines[len(lines)-1]
			last.Product.Prices = append(last.Product.Prices, catalog.Price{
				ID:        *priceID,
				Value:     *value,
				StartDate: *startDate,
				EndDate:   endDate,
			})
		}
	}
	return lines, rows.Err()
}

// UpdateQuantity sets the quantity of an existing line.
func (r *CartRepository) UpdateQuantity(ctx context.Context, userID, productID string, quantity int) error {
	_, err := r.pool.Exec(ctx, updateCartQuantitySQL, userID, productID, quantity)
	if err != nil {
		return fmt.Errorf("updating cart quantity for %q: %w", productID, err)
	}
	return nil
}

// InsertMany creates new lines in one batched round trip.
func (r *CartRepository) InsertMany(ctx context.Context, userID string, items []cart.ItemInput) error {
	batch := &pgx.Batch{}
	for _, item := range items {
		batch.Queue(
			`INSERT INTO cart_items (user_id, product_id, quantity) VALUES ($1, $2, $3)`,
			userID, item.ProductID, item.Quantity,
		)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for _, item := range items {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("inserting cart item %q: %w", item.ProductID, err)
		}
	}
	return nil
}

// DeleteMany removes the given products from the user's cart.
func (r *CartRepository) DeleteMany(ctx context.Context, userID string, productIDs []string) error {
	_, err := r.pool.Exec(ctx, deleteCartItemsSQL, userID, productIDs)
	if err != nil {
		return fmt.Errorf("deleting cart items: %w", err)
	}
	return nil
}
