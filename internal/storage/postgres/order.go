package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eminaliyev/gift-api/internal/domain/checkout"
	"github.com/eminaliyev/gift-api/internal/domain/order"
)

const (
	createOrderSQL = `INSERT INTO orders (id, customer_id, total, discount_total, location, note, items, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	getOrderSQL = `SELECT id, customer_id, total, discount_total, location, note, items, created_at
		FROM orders WHERE id = $1`

	listOrdersSQL = `SELECT id, customer_id, total, discount_total, location, note, items, created_at
		FROM orders WHERE customer_id = $1 ORDER BY created_at DESC`

	clearCartSQL = `DELETE FROM cart_items WHERE user_id = $1`

	// Conditional decrement: never goes below zero even under concurrent
	// checkouts racing on the same code. A zero-row update means the code was
	// exhausted in the meantime, which is not an error.
	decrementDiscountSQL = `UPDATE discounts SET remaining = remaining - 1
		WHERE code = $1 AND remaining > 0`
)

// ErrOrderNotFound is returned when a requested order does not exist.
var ErrOrderNotFound = errors.New("order not found")

var (
	_ order.Repository = (*OrderRepository)(nil)
	_ checkout.Store   = (*OrderRepository)(nil)
)

// OrderRepository implements order reads and the checkout transaction,
// backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// CompleteCheckout persists the order snapshot, clears the customer's cart,
// and consumes one discount use when requested — in a single transaction, so
// a charged checkout either fully lands or fully rolls back.
func (r *OrderRepository) CompleteCheckout(ctx context.Context, o *order.Order, discountCode string, decrement bool) error {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshaling order items: %w", err)
	}

	err = pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, createOrderSQL,
			o.ID, o.CustomerID, o.Total, o.DiscountTotal,
			o.Location, o.Note, itemsJSON, o.CreatedAt,
		); err != nil {
			return fmt.Errorf("creating order %q: %w", o.ID, err)
		}

		if _, err := tx.Exec(ctx, clearCartSQL, o.CustomerID); err != nil {
			return fmt.Errorf("clearing cart for %q: %w", o.CustomerID, err)
		}

		if decrement {
			if _, err := tx.Exec(ctx, decrementDiscountSQL, discountCode); err != nil {
				return fmt.Errorf("decrementing discount %q: %w", discountCode, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("completing checkout for order %q: %w", o.ID, err)
	}
	return nil
}

// GetByID returns one order, or ErrOrderNotFound.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	return &o, nil
}

// ListByCustomer returns the customer's orders, newest first.
func (r *OrderRepository) ListByCustomer(ctx context.Context, customerID string) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersSQL, customerID)
	if err != nil {
		return nil, fmt.Errorf("listing orders for %q: %w", customerID, err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o         order.Order
		itemsJSON []byte
	)
	if err := row.Scan(
		&o.ID, &o.CustomerID, &o.Total, &o.DiscountTotal,
		&o.Location, &o.Note, &itemsJSON, &o.CreatedAt,
	); err != nil {
		return o, err
	}
	if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
		return o, fmt.Errorf("unmarshaling order items: %w", err)
	}
	return o, nil
}
