// Package cart holds per-user line items and computes pre- and post-discount
// totals from time-windowed catalog prices.
package cart

import (
	"context"

	"github.com/eminaliyev/gift-api/internal/domain/catalog"
)

// ItemInput is a submitted (productId, quantity) pair.
type ItemInput struct {
	ProductID string
	Quantity  int
}

// Line is a stored cart line joined with its product and full price list, so
// checkout can snapshot order items without a second read.
type Line struct {
	ProductID string
	Quantity  int
	Product   catalog.Product
}

// Repository defines persistence for cart line items. Lines are unique per
// (user, product).
type Repository interface {
	// ListByUser returns the user's lines with product and price data.
	ListByUser(ctx context.Context, userID string) ([]Line, error)
	// UpdateQuantity sets the quantity of an existing line.
	UpdateQuantity(ctx context.Context, userID, productID string, quantity int) error
	// InsertMany creates new lines in one batch.
	InsertMany(ctx context.Context, userID string, items []ItemInput) error
	// DeleteMany removes the given products from the user's cart.
	DeleteMany(ctx context.Context, userID string, productIDs []string) error
}
