package httpapi

import (
	"net/http"
	"time"

	"github.com/eminaliyev/gift-api/internal/domain/order"
)

type orderItemResponse struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type orderResponse struct {
	ID            string              `json:"id"`
	Total         float64             `json:"total"`
	DiscountTotal float64             `json:"discountTotal"`
	Location      string              `json:"location"`
	Note          string              `json:"note,omitempty"`
	Items         []orderItemResponse `json:"items"`
	CreatedAt     time.Time           `json:"createdAt"`
}

// ListOrders returns the caller's orders, newest first.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListByCustomer(r.Context(), identity(r).CustomerID)
	if err != nil {
		h.internalError(w, r, err, "list orders")
		return
	}

	out := make([]orderResponse, len(orders))
	for i, o := range orders {
		out[i] = orderToResponse(o)
	}
	writeJSON(w, http.StatusOK, out)
}

func orderToResponse(o order.Order) orderResponse {
	items := make([]orderItemResponse, len(o.Items))
	for i, item := range o.Items {
		items[i] = orderItemResponse{ProductID: item.ProductID, Quantity: item.Quantity}
	}
	return orderResponse{
		ID:            o.ID,
		Total:         o.Total.InexactFloat64(),
		DiscountTotal: o.DiscountTotal.InexactFloat64(),
		Location:      o.Location,
		Note:          o.Note,
		Items:         items,
		CreatedAt:     o.CreatedAt,
	}
}
