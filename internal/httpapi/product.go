package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"

	"github.com/eminaliyev/gift-api/internal/domain/catalog"
)

type priceResponse struct {
	ID        string     `json:"id"`
	Value     float64    `json:"value"`
	StartDate time.Time  `json:"startDate"`
	EndDate   *time.Time `json:"endDate"`
}

type productResponse struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Price       *float64        `json:"price"` // active price now, null if none
	Prices      []priceResponse `json:"prices"`
}

// ListProducts returns the whole catalog.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		h.internalError(w, r, err, "list products")
		return
	}

	now := time.Now()
	out := make([]productResponse, len(products))
	for i, p := range products {
		out[i] = productToResponse(p, now)
	}
	writeJSON(w, http.StatusOK, out)
}

// GetProduct returns a single product by ID.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.GetByID(r.Context(), chi.URLParam(r, "productId"))
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		h.internalError(w, r, err, "get product")
		return
	}
	writeJSON(w, http.StatusOK, productToResponse(*p, time.Now()))
}

func productToResponse(p catalog.Product, now time.Time) productResponse {
	resp := productResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Category:    p.Category,
		Prices:      make([]priceResponse, len(p.Prices)),
	}
	for i, price := range p.Prices {
		resp.Prices[i] = priceResponse{
			ID:        price.ID,
			Value:     price.Value.InexactFloat64(),
			StartDate: price.StartDate,
			EndDate:   price.EndDate,
		}
	}
	if active, err := catalog.ActivePriceAt(p.Prices, now); err == nil {
		v := active.InexactFloat64()
		resp.Price = &v
	}
	return resp
}
