//go:build integration

package integration

import (
	"net/http"
	"testing"
)

func TestCart_RequiresAuth(t *testing.T) {
	resp := doGet(t, "/api/cart")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestCart_InvalidKey(t *testing.T) {
	resp := doRequest(t, http.MethodGet, "/api/cart", nil, map[string]string{"api_key": "wrong-key"})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestCart_UpdateAndGet(t *testing.T) {
	setCart(t, []cartItemRequest{
		{ProductID: "gift-box-classic", Quantity: 1},
		{ProductID: "greeting-card", Quantity: 2},
	})

	resp := doGetWithAuth(t, "/api/cart")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	lines := decodeJSON[[]cartLineResponse](t, resp)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	for _, l := range lines {
		if l.Product.Name == "" {
			t.Errorf("line %s: product not resolved", l.ProductID)
		}
		if l.Product.Price == nil {
			t.Errorf("line %s: no active price", l.ProductID)
		}
	}
}

func TestCart_UpdateMerges(t *testing.T) {
	setCart(t, []cartItemRequest{
		{ProductID: "gift-box-classic", Quantity: 1},
		{ProductID: "greeting-card", Quantity: 2},
	})

	// Resubmit: classic bumped, card dropped, rose added.
	setCart(t, []cartItemRequest{
		{ProductID: "gift-box-classic", Quantity: 3},
		{ProductID: "flowers-rose-bouquet", Quantity: 1},
	})

	resp := doGetWithAuth(t, "/api/cart")
	defer resp.Body.Close()

	lines := decodeJSON[[]cartLineResponse](t, resp)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines after merge, got %d", len(lines))
	}

	byProduct := make(map[string]int, len(lines))
	for _, l := range lines {
		byProduct[l.ProductID] = l.Quantity
	}
	if byProduct["gift-box-classic"] != 3 {
		t.Errorf("classic quantity: got %d, want 3", byProduct["gift-box-classic"])
	}
	if byProduct["flowers-rose-bouquet"] != 1 {
		t.Errorf("rose quantity: got %d, want 1", byProduct["flowers-rose-bouquet"])
	}
	if _, ok := byProduct["greeting-card"]; ok {
		t.Error("greeting-card should have been removed")
	}
}

func TestCart_RejectsZeroQuantity(t *testing.T) {
	resp := doPostWithAuth(t, "/api/cart", updateCartRequest{
		Items: []cartItemRequest{{ProductID: "greeting-card", Quantity: 0}},
	}, nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestCartTotal_NoDiscount(t *testing.T) {
	setCart(t, []cartItemRequest{
		{ProductID: "gift-box-classic", Quantity: 1}, // 45.00
		{ProductID: "greeting-card", Quantity: 2},    // 2 x 5.00
	})

	resp := doGetWithAuth(t, "/api/cart/total")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	totals := decodeJSON[totalsResponse](t, resp)
	if totals.Total != 55 {
		t.Errorf("total: got %v, want 55", totals.Total)
	}
	if totals.DiscountTotal != 55 {
		t.Errorf("discountTotal: got %v, want 55", totals.DiscountTotal)
	}
}

func TestCartTotal_PercentageDiscount(t *testing.T) {
	setCart(t, []cartItemRequest{
		{ProductID: "gift-box-classic", Quantity: 1}, // 45.00
		{ProductID: "greeting-card", Quantity: 1},    // 5.00
	})

	resp := doGetWithAuth(t, "/api/cart/total?discountCode=WELCOME15")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	totals := decodeJSON[totalsResponse](t, resp)
	if totals.Total != 50 {
		t.Errorf("total: got %v, want 50", totals.Total)
	}
	if totals.DiscountTotal != 42.5 {
		t.Errorf("discountTotal: got %v, want 42.5", totals.DiscountTotal)
	}
}

func TestCartTotal_UnknownCodeIsNoop(t *testing.T) {
	setCart(t, []cartItemRequest{
		{ProductID: "greeting-card", Quantity: 1},
	})

	resp := doGetWithAuth(t, "/api/cart/total?discountCode=NONEXISTENT")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	totals := decodeJSON[totalsResponse](t, resp)
	if totals.DiscountTotal != totals.Total {
		t.Errorf("unknown code must not change the total: total %v, discountTotal %v",
			totals.Total, totals.DiscountTotal)
	}
}
