package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/eminaliyev/gift-api/internal/domain/cart"
	"github.com/eminaliyev/gift-api/internal/domain/catalog"
	"github.com/eminaliyev/gift-api/internal/domain/checkout"
)

type cartItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type updateCartRequest struct {
	Items []cartItemRequest `json:"items"`
}

type cartLineResponse struct {
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	Product   productResponse `json:"product"`
}

type totalsResponse struct {
	Total         float64 `json:"total"`
	DiscountTotal float64 `json:"discountTotal"`
}

// GetCart returns the caller's cart lines with product and price data.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	lines, err := h.carts.Get(r.Context(), identity(r).CustomerID)
	if err != nil {
		h.internalError(w, r, err, "get cart")
		return
	}
	writeJSON(w, http.StatusOK, linesToResponse(lines))
}

// UpdateCart reconciles the submitted item list against the stored cart and
// returns the result.
func (h *Handler) UpdateCart(w http.ResponseWriter, r *http.Request) {
	var req updateCartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	for _, item := range req.Items {
		if item.ProductID == "" {
			writeError(w, http.StatusBadRequest, "productId is required")
			return
		}
	}

	items := make([]cart.ItemInput, len(req.Items))
	for i, item := range req.Items {
		items[i] = cart.ItemInput{ProductID: item.ProductID, Quantity: item.Quantity}
	}

	lines, err := h.carts.AddToCart(r.Context(), identity(r).CustomerID, items)
	if err != nil {
		var iq *cart.ErrInvalidQuantity
		if errors.As(err, &iq) {
			writeError(w, http.StatusBadRequest, iq.Error())
			return
		}
		h.internalError(w, r, err, "update cart")
		return
	}
	writeJSON(w, http.StatusOK, linesToResponse(lines))
}

// GetCartTotal prices the caller's cart, applying the optional discountCode
// query parameter.
func (h *Handler) GetCartTotal(w http.ResponseWriter, r *http.Request) {
	totals, err := h.carts.FindTotal(r.Context(),
		identity(r).CustomerID, r.URL.Query().Get("discountCode"))
	if err != nil {
		if errors.Is(err, catalog.ErrNoActivePrice) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		h.internalError(w, r, err, "cart total")
		return
	}

	writeJSON(w, http.StatusOK, totalsResponse{
		Total:         totals.Total.InexactFloat64(),
		DiscountTotal: totals.DiscountTotal.InexactFloat64(),
	})
}

type checkoutRequest struct {
	Location     string `json:"location"`
	Note         string `json:"note,omitempty"`
	DiscountCode string `json:"discountCode,omitempty"`
}

// Checkout charges the caller for the discounted cart total and returns the
// created order.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Location == "" {
		writeError(w, http.StatusBadRequest, "location is required")
		return
	}

	o, err := h.checkout.Checkout(r.Context(), identity(r), checkout.Request{
		Location:       req.Location,
		Note:           req.Note,
		DiscountCode:   req.DiscountCode,
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
	})
	if err != nil {
		h.checkoutError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, orderToResponse(*o))
}

// checkoutError maps orchestrator failures to HTTP responses. Inconsistent
// states deliberately return a generic 500: the details are in the logs, not
// for the client.
func (h *Handler) checkoutError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, checkout.ErrEmptyCart):
		writeError(w, http.StatusBadRequest, "cart is empty")
	case errors.Is(err, catalog.ErrNoActivePrice):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		var pe *checkout.PaymentError
		if errors.As(err, &pe) {
			writeError(w, http.StatusPaymentRequired, pe.Message)
			return
		}
		h.internalError(w, r, err, "checkout")
	}
}

func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, err error, op string) {
	zctx.From(r.Context()).Error(op, zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}

func linesToResponse(lines []cart.Line) []cartLineResponse {
	now := time.Now()
	out := make([]cartLineResponse, len(lines))
	for i, l := range lines {
		out[i] = cartLineResponse{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			Product:   productToResponse(l.Product, now),
		}
	}
	return out
}
