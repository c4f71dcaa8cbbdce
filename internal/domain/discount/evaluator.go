package discount

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Result is the outcome of evaluating a discount code against a total.
type Result struct {
	// DiscountTotal is the post-discount total. Equal to the input total when
	// nothing applied. A FIXED_TOTAL discount larger than the total drives it
	// negative; that is intentional and not clamped.
	DiscountTotal decimal.Decimal

	// Applied reports whether the rule changed (or at least matched) the total.
	Applied bool

	// ShouldDecrement is true only when the rule applied and carries a usage
	// limit, meaning a successful checkout must consume one use.
	ShouldDecrement bool
}

// Evaluator applies discount codes to pre-discount totals.
type Evaluator struct {
	repo Repository
	now  func() time.Time
}

// NewEvaluator creates an Evaluator backed by the given repository.
func NewEvaluator(repo Repository) *Evaluator {
	return &Evaluator{repo: repo, now: time.Now}
}

// WithNow overrides the evaluator's clock. Test hook.
func (e *Evaluator) WithNow(now func() time.Time) *Evaluator {
	e.now = now
	return e
}

// Apply evaluates code against total. An empty or unknown code, a used-up
// code (remaining == 0), and a code outside its validity window are all
// silent no-ops returning the total unchanged. Only repository failures other
// than ErrNotFound surface as errors.
func (e *Evaluator) Apply(ctx context.Context, total decimal.Decimal, code string) (Result, error) {
	noop := Result{DiscountTotal: total}

	if code == "" {
		return noop, nil
	}

	d, err := e.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return noop, nil
		}
		return noop, errors.Wrap(err, "lookup discount")
	}

	if d.Remaining != nil && *d.Remaining == 0 {
		return noop, nil
	}

	if !d.WithinWindow(e.now()) {
		return noop, nil
	}

	discounted, applied := applyType(d, total)
	return Result{
		DiscountTotal:   discounted,
		Applied:         applied,
		ShouldDecrement: applied && d.Limit != nil,
	}, nil
}

// applyType performs the per-type arithmetic. Unknown types are a
// forward-compatible no-op.
func applyType(d *Discount, total decimal.Decimal) (decimal.Decimal, bool) {
	switch d.Type {
	case TypePercentageTotal:
		return total.Sub(total.Mul(d.Value).Div(hundred)), true
	case TypeFixedTotal:
		return total.Sub(d.Value), true
	default:
		return total, false
	}
}
