package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/eminaliyev/gift-api/internal/domain/auth"
)

// NewRouter builds the /api route tree. Product reads are public; cart,
// checkout, and order routes require an API key.
func NewRouter(h *Handler, keys auth.Repository, pepper []byte) http.Handler {
	r := chi.NewRouter()

	r.Get("/products", h.ListProducts)
	r.Get("/products/{productId}", h.GetProduct)

	r.Group(func(r chi.Router) {
		r.Use(Auth(keys, pepper))

		r.Get("/cart", h.GetCart)
		r.Post("/cart", h.UpdateCart)
		r.Get("/cart/total", h.GetCartTotal)
		r.Post("/cart/checkout", h.Checkout)

		r.Get("/orders", h.ListOrders)
	})

	return r
}
