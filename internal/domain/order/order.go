// Package order defines the persisted order snapshot produced by checkout.
package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Order is an immutable record of a completed checkout. Items are copied from
// the cart at checkout time and do not follow later cart or price changes.
type Order struct {
	ID            string
	CustomerID    string
	Total         decimal.Decimal
	DiscountTotal decimal.Decimal
	Location      string
	Note          string
	Items         []Item
	CreatedAt     time.Time
}

// Item is one (productId, quantity) pair snapshotted into an order.
type Item struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// Repository defines read operations for orders. Creation happens through the
// checkout transaction, not here.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Order, error)
	ListByCustomer(ctx context.Context, customerID string) ([]Order, error)
}
