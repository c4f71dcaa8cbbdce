// Package checkout converts a priced cart into a persisted, paid order.
//
// The charge happens outside the database transaction because it cannot be
// rolled back; order creation, cart clearing, and the discount usage
// decrement run inside one transaction committed only after the charge
// succeeds. A persistence failure after a successful charge is the one state
// this service cannot repair: it is surfaced as InconsistentStateError and
// logged for manual reconciliation.
package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/eminaliyev/gift-api/internal/domain/auth"
	"github.com/eminaliyev/gift-api/internal/domain/cart"
	"github.com/eminaliyev/gift-api/internal/domain/order"
)

// State tracks a checkout attempt through its lifecycle. Failures before
// StateCharged end in StateAborted with no side effects; failures after end
// in StateInconsistent and require alerting.
type State string

const (
	StatePending      State = "PENDING"
	StateCharging     State = "CHARGING"
	StateCharged      State = "CHARGED"
	StateDone         State = "DONE"
	StateAborted      State = "ABORTED"
	StateInconsistent State = "INCONSISTENT"
)

// ErrEmptyCart is returned when checkout is attempted with no line items.
var ErrEmptyCart = errors.New("cart is empty")

// PaymentError is a charge rejection from the gateway. The cart is untouched
// and no order exists.
type PaymentError struct {
	Code    string
	Message string
}

func (e *PaymentError) Error() string {
	return fmt.Sprintf("payment failed: %s (%s)", e.Message, e.Code)
}

// InconsistentStateError means the customer was charged but the order could
// not be persisted. It must never be swallowed.
type InconsistentStateError struct {
	ChargeID string
	OrderID  string
	Err      error
}

func (e *InconsistentStateError) Error() string {
	return fmt.Sprintf("charged but order not persisted: charge %s, order %s: %v",
		e.ChargeID, e.OrderID, e.Err)
}

func (e *InconsistentStateError) Unwrap() error { return e.Err }

// ChargeRequest is the payment collaborator input. Amount is in minor
// currency units (e.g. qepiks for AZN).
type ChargeRequest struct {
	BillingProfile string
	AmountMinor    int64
	Currency       string
	IdempotencyKey string
	Metadata       map[string]string
}

// Charge is a successful gateway charge.
type Charge struct {
	ID string
}

// Gateway is the payment collaborator. Implementations return *PaymentError
// for rejected charges and plain errors for transport failures.
type Gateway interface {
	Charge(ctx context.Context, req ChargeRequest) (*Charge, error)
}

// Store persists the transactional tail of a checkout: order creation, cart
// clearing, and (conditionally) one atomic discount usage decrement, all in a
// single database transaction.
type Store interface {
	CompleteCheckout(ctx context.Context, o *order.Order, discountCode string, decrement bool) error
}

// AttemptStore records checkout attempts keyed by idempotency key, so a
// retried request does not charge the customer twice. Implementations are
// external (redis); the service works without one.
type AttemptStore interface {
	Get(ctx context.Context, key string) (*Attempt, error)
	Put(ctx context.Context, key string, attempt Attempt) error
}

// Attempt is the stored state of one checkout attempt.
type Attempt struct {
	State   State  `json:"state"`
	OrderID string `json:"orderId,omitempty"`
}

// Request is the checkout input.
type Request struct {
	Location     string
	Note         string
	DiscountCode string

	// IdempotencyKey deduplicates retried checkouts and is forwarded to the
	// gateway. Generated per attempt when the client does not supply one.
	IdempotencyKey string
}

// Service orchestrates cart pricing, charging, and order persistence.
type Service struct {
	carts    *cart.Service
	gateway  Gateway
	store    Store
	orders   order.Repository
	attempts AttemptStore // nil-safe: replay protection skipped if nil
	currency string
}

// NewService creates a checkout Service. attempts may be nil.
func NewService(
	carts *cart.Service,
	gateway Gateway,
	store Store,
	orders order.Repository,
	attempts AttemptStore,
	currency string,
) *Service {
	return &Service{
		carts:    carts,
		gateway:  gateway,
		store:    store,
		orders:   orders,
		attempts: attempts,
		currency: currency,
	}
}

// Checkout prices the cart, charges the discounted total, then persists the
// order snapshot while clearing the cart and consuming discount usage.
func (s *Service) Checkout(ctx context.Context, ident auth.Identity, req Request) (*order.Order, error) {
	lg := zctx.From(ctx)

	if req.IdempotencyKey == "" {
		req.IdempotencyKey = uuid.New().String()
	} else if replayed, err := s.replay(ctx, req.IdempotencyKey); err != nil {
		return nil, err
	} else if replayed != nil {
		lg.Info("checkout replayed",
			zap.String("idempotency_key", req.IdempotencyKey),
			zap.String("order_id", replayed.ID))
		return replayed, nil
	}

	totals, err := s.carts.FindTotal(ctx, ident.CustomerID, req.DiscountCode)
	if err != nil {
		return nil, err
	}
	if len(totals.Lines) == 0 {
		return nil, ErrEmptyCart
	}

	s.record(ctx, req.IdempotencyKey, Attempt{State: StateCharging})

	charge, err := s.gateway.Charge(ctx, ChargeRequest{
		BillingProfile: ident.BillingProfile,
		AmountMinor:    toMinorUnits(totals.DiscountTotal),
		Currency:       s.currency,
		IdempotencyKey: req.IdempotencyKey,
		Metadata: map[string]string{
			"location": req.Location,
			"note":     req.Note,
		},
	})
	if err != nil {
		s.record(ctx, req.IdempotencyKey, Attempt{State: StateAborted})
		return nil, errors.Wrap(err, "charge")
	}

	s.record(ctx, req.IdempotencyKey, Attempt{State: StateCharged})
	lg.Info("customer charged",
		zap.String("charge_id", charge.ID),
		zap.String("customer_id", ident.CustomerID),
		zap.String("total", totals.DiscountTotal.String()))

	o := &order.Order{
		ID:            uuid.New().String(),
		CustomerID:    ident.CustomerID,
		Total:         totals.Total,
		DiscountTotal: totals.DiscountTotal,
		Location:      req.Location,
		Note:          req.Note,
		Items:         snapshotItems(totals.Lines),
		CreatedAt:     time.Now().UTC(),
	}

	// A discount consumes one use only when it actually lowered the total.
	decrement := req.DiscountCode != "" &&
		totals.ShouldDecrement &&
		totals.DiscountTotal.LessThan(totals.Total)

	if err := s.store.CompleteCheckout(ctx, o, req.DiscountCode, decrement); err != nil {
		s.record(ctx, req.IdempotencyKey, Attempt{State: StateInconsistent, OrderID: o.ID})
		lg.Error("CRITICAL: charged but order not persisted, manual reconciliation required",
			zap.String("charge_id", charge.ID),
			zap.String("order_id", o.ID),
			zap.String("customer_id", ident.CustomerID),
			zap.Error(err))
		return nil, &InconsistentStateError{ChargeID: charge.ID, OrderID: o.ID, Err: err}
	}

	s.record(ctx, req.IdempotencyKey, Attempt{State: StateDone, OrderID: o.ID})
	return o, nil
}

// replay returns the previously created order when the idempotency key
// belongs to a completed attempt, or nil when the attempt is new.
func (s *Service) replay(ctx context.Context, key string) (*order.Order, error) {
	if s.attempts == nil {
		return nil, nil
	}
	attempt, err := s.attempts.Get(ctx, key)
	if err != nil || attempt == nil {
		// A degraded attempt store must not block checkout.
		return nil, nil
	}
	if attempt.State != StateDone || attempt.OrderID == "" {
		return nil, nil
	}
	o, err := s.orders.GetByID(ctx, attempt.OrderID)
	if err != nil {
		return nil, errors.Wrap(err, "load replayed order")
	}
	return o, nil
}

// record best-effort persists attempt state. Failures are logged, never fatal.
func (s *Service) record(ctx context.Context, key string, attempt Attempt) {
	if s.attempts == nil {
		return
	}
	if err := s.attempts.Put(ctx, key, attempt); err != nil {
		zctx.From(ctx).Warn("record checkout attempt",
			zap.String("idempotency_key", key),
			zap.String("state", string(attempt.State)),
			zap.Error(err))
	}
}

func snapshotItems(lines []cart.Line) []order.Item {
	items := make([]order.Item, len(lines))
	for i, l := range lines {
		items[i] = order.Item{ProductID: l.ProductID, Quantity: l.Quantity}
	}
	return items
}

// toMinorUnits converts a major-unit decimal amount to minor currency units,
// rounding to the nearest unit.
func toMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
