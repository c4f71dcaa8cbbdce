// Package discount implements coupon-code lookup and the type-based total
// arithmetic applied at cart pricing and checkout time.
package discount

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Type enumerates the supported discount strategies.
type Type string

const (
	// TypePercentageTotal reduces the total by value percent.
	TypePercentageTotal Type = "PERCENTAGE_TOTAL"
	// TypeFixedTotal subtracts a fixed amount from the total.
	TypeFixedTotal Type = "FIXED_TOTAL"
)

// ErrNotFound is returned by Repository.FindByCode for unknown codes. The
// evaluator treats it as "no discount", not as a failure.
var ErrNotFound = errors.New("discount not found")

// Discount is a stored discount rule. Limit and Remaining are nil for
// unlimited codes; a Remaining of zero means the code is used up and silently
// stops applying.
type Discount struct {
	Code      string
	Type      Type
	Value     decimal.Decimal
	Limit     *int
	Remaining *int
	StartDate time.Time
	EndDate   *time.Time
}

// WithinWindow reports whether the discount is usable at instant t: it has no
// end date, or t falls strictly between its start and end dates.
func (d *Discount) WithinWindow(t time.Time) bool {
	if d.EndDate == nil {
		return true
	}
	return d.StartDate.Before(t) && d.EndDate.After(t)
}

// Repository provides discount rule lookups. The atomic usage decrement lives
// on the checkout transaction, not here.
type Repository interface {
	FindByCode(ctx context.Context, code string) (*Discount, error)
}
