// Package httpapi exposes the cart, catalog, and checkout services over
// JSON/HTTP.
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/eminaliyev/gift-api/internal/domain/auth"
	"github.com/eminaliyev/gift-api/internal/domain/cart"
	"github.com/eminaliyev/gift-api/internal/domain/catalog"
	"github.com/eminaliyev/gift-api/internal/domain/checkout"
	"github.com/eminaliyev/gift-api/internal/domain/order"
)

// Handler serves the public API, delegating business logic to the injected
// domain services and repositories.
type Handler struct {
	products catalog.Repository
	carts    *cart.Service
	checkout *checkout.Service
	orders   order.Repository
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	products catalog.Repository,
	carts *cart.Service,
	checkoutSvc *checkout.Service,
	orders order.Repository,
) *Handler {
	return &Handler{
		products: products,
		carts:    carts,
		checkout: checkoutSvc,
		orders:   orders,
	}
}

type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Code: status, Message: message})
}

// identity extracts the authenticated caller set by the auth middleware.
func identity(r *http.Request) auth.Identity {
	ident, _ := r.Context().Value(identityKey{}).(auth.Identity)
	return ident
}
