// Package auth resolves API keys to customer identities.
package auth

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrKeyNotFound is returned when no active API key matches a hash.
var ErrKeyNotFound = errors.New("api key not found")

// Identity is the authenticated caller: the cart/order owner and the billing
// profile the payment gateway charges.
type Identity struct {
	CustomerID     string
	BillingProfile string
}

// APIKey is a stored key record. KeyHash is the hex HMAC-SHA256 of the raw
// key under the service pepper.
type APIKey struct {
	ID       string
	KeyHash  string
	Identity Identity
}

// Repository provides API key lookups by hash.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*APIKey, error)
}
