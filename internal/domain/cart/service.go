package cart

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/eminaliyev/gift-api/internal/domain/discount"
)

// ErrInvalidQuantity is returned when a submitted line has quantity < 1.
type ErrInvalidQuantity struct {
	ProductID string
}

func (e *ErrInvalidQuantity) Error() string {
	return "quantity must be at least 1 for product " + e.ProductID
}

// Totals is the priced view of a user's cart. Lines are included so checkout
// can snapshot order items from the same read that produced the totals.
type Totals struct {
	Total         decimal.Decimal
	DiscountTotal decimal.Decimal
	Lines         []Line

	// ShouldDecrement mirrors the evaluator: a successful checkout at these
	// totals must consume one use of the discount code.
	ShouldDecrement bool
}

// Service aggregates cart lines into totals and reconciles cart updates.
type Service struct {
	repo      Repository
	evaluator *discount.Evaluator
	now       func() time.Time
}

// NewService creates a cart Service.
func NewService(repo Repository, evaluator *discount.Evaluator) *Service {
	return &Service{repo: repo, evaluator: evaluator, now: time.Now}
}

// WithNow overrides the service's clock. Test hook.
func (s *Service) WithNow(now func() time.Time) *Service {
	s.now = now
	return s
}

// Get returns the user's cart lines with product and price data.
func (s *Service) Get(ctx context.Context, userID string) ([]Line, error) {
	lines, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "list cart")
	}
	return lines, nil
}

// FindTotal prices the user's cart at a single evaluation instant: each line
// contributes quantity times its product's active price, then the discount
// code (possibly empty) is applied to the sum. A line whose product has no
// active price fails the whole call.
func (s *Service) FindTotal(ctx context.Context, userID, discountCode string) (*Totals, error) {
	lines, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "list cart")
	}

	now := s.now()
	total := decimal.Zero
	for i := range lines {
		price, err := lines[i].Product.ActivePriceAt(now)
		if err != nil {
			return nil, err
		}
		total = total.Add(price.Mul(decimal.NewFromInt(int64(lines[i].Quantity))))
	}

	res, err := s.evaluator.Apply(ctx, total, discountCode)
	if err != nil {
		return nil, errors.Wrap(err, "apply discount")
	}

	return &Totals{
		Total:           total,
		DiscountTotal:   res.DiscountTotal,
		Lines:           lines,
		ShouldDecrement: res.ShouldDecrement,
	}, nil
}

// AddToCart reconciles the submitted item list against the stored cart:
// products present in both get the submitted quantity, products only in the
// stored cart are deleted, and products only in the submission are inserted.
// A product listed more than once collapses to its last occurrence. The diff
// keeps writes proportional to the change instead of replacing the whole
// cart. Returns the resulting cart.
func (s *Service) AddToCart(ctx context.Context, userID string, items []ItemInput) ([]Line, error) {
	for _, item := range items {
		if item.Quantity < 1 {
			return nil, &ErrInvalidQuantity{ProductID: item.ProductID}
		}
	}

	existing, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "list cart")
	}

	submitted := make(map[string]ItemInput, len(items))
	for _, item := range items {
		submitted[item.ProductID] = item
	}
	stored := make(map[string]struct{}, len(existing))
	for _, line := range existing {
		stored[line.ProductID] = struct{}{}
	}

	var toDelete []string
	for _, line := range existing {
		item, ok := submitted[line.ProductID]
		if !ok {
			toDelete = append(toDelete, line.ProductID)
			continue
		}
		if item.Quantity != line.Quantity {
			if err := s.repo.UpdateQuantity(ctx, userID, line.ProductID, item.Quantity); err != nil {
				return nil, errors.Wrapf(err, "update quantity for %s", line.ProductID)
			}
		}
	}

	// Insert through the submitted map so a duplicated product queues one row,
	// not a primary key violation.
	queued := make(map[string]struct{}, len(items))
	var toInsert []ItemInput
	for _, item := range items {
		if _, ok := stored[item.ProductID]; ok {
			continue
		}
		if _, ok := queued[item.ProductID]; ok {
			continue
		}
		queued[item.ProductID] = struct{}{}
		toInsert = append(toInsert, submitted[item.ProductID])
	}

	if len(toInsert) > 0 {
		if err := s.repo.InsertMany(ctx, userID, toInsert); err != nil {
			return nil, errors.Wrap(err, "insert cart items")
		}
	}
	if len(toDelete) > 0 {
		if err := s.repo.DeleteMany(ctx, userID, toDelete); err != nil {
			return nil, errors.Wrap(err, "delete cart items")
		}
	}

	lines, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "reload cart")
	}
	return lines, nil
}
