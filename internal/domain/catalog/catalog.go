// Package catalog holds the product catalog model and the active-price
// resolution rule shared by cart pricing and checkout.
package catalog

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when a requested product does not exist.
	ErrNotFound = errors.New("product not found")
	// ErrNoActivePrice is returned when a product has no price whose validity
	// window contains the evaluation instant.
	ErrNoActivePrice = errors.New("no active price")
)

// Product is a catalog item together with its full price history.
type Product struct {
	ID          string
	Name        string
	Description string
	Category    string
	Prices      []Price
}

// Price is one entry in a product's price history. EndDate == nil marks an
// open-ended price.
type Price struct {
	ID        string
	Value     decimal.Decimal
	StartDate time.Time
	EndDate   *time.Time
}

// ActiveAt reports whether the price is valid at instant t: either the price
// is open-ended, or t falls strictly inside [StartDate, EndDate].
func (p Price) ActiveAt(t time.Time) bool {
	if p.EndDate == nil {
		return true
	}
	return p.StartDate.Before(t) && p.EndDate.After(t)
}

// ActivePriceAt returns the value of the first price active at instant t.
// When several windows overlap, the first match wins; the schema does not
// enforce uniqueness. Returns ErrNoActivePrice when no window matches.
func ActivePriceAt(prices []Price, t time.Time) (decimal.Decimal, error) {
	for _, p := range prices {
		if p.ActiveAt(t) {
			return p.Value, nil
		}
	}
	return decimal.Zero, ErrNoActivePrice
}

// ActivePriceAt resolves the product's price at instant t.
func (p *Product) ActivePriceAt(t time.Time) (decimal.Decimal, error) {
	price, err := ActivePriceAt(p.Prices, t)
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "product %s", p.ID)
	}
	return price, nil
}

// Repository defines read operations for the product catalog.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
}
