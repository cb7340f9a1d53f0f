package orders

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/joao-fontenele/groceryflow/internal/domain"
)

type submitResponse struct {
	IsSuccess bool     `json:"isSuccess"`
	Errors    []string `json:"errors"`
	Payload   Summary  `json:"payload"`
}

func seededStore() *memStore {
	store := newMemStore()
	store.users[user.ID] = user
	order := domain.Order{ID: "o_1", BasketID: "b_1", UserID: user.ID, DeliveryAddress: *address}
	store.orders[orderKey{order.BasketID, order.UserID}] = order

	gbp := func(v int64) domain.Money { return domain.NewMoney(domain.CurrencyGBP, v) }
	for _, item := range []domain.OrderItem{
		{ID: "i_1", OrderID: "o_1", ProductID: "p_milk", Quantity: 2, Price: gbp(10), DiscountedPrice: gbp(8), DiscountPercent: 2000, IncludeInDelivery: true},
		{ID: "i_2", OrderID: "o_1", ProductID: "p_bread", Quantity: 5, Price: gbp(15), DiscountedPrice: gbp(12), DiscountPercent: 2000, IncludeInDelivery: true},
		{ID: "i_3", OrderID: "o_1", ProductID: "p_coupon", Quantity: 1, Price: gbp(5), DiscountedPrice: gbp(5)},
	} {
		store.items[itemKey{item.OrderID, item.ProductID}] = item
	}
	return store
}

func submit(h *Handler, basketID string) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /Orders/Submit/{basketId}", h.HandleSubmit)

	req := httptest.NewRequest(http.MethodPost, "/Orders/Submit/"+basketID, nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestHandler_HandleSubmit(t *testing.T) {
	t.Run("returns summary valued over every item", func(t *testing.T) {
		h := NewHandler(seededStore(), discardLogger())
		rec := submit(h, "b_1")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
		}
		var resp submitResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if !resp.IsSuccess {
			t.Fatalf("expected success, got %+v", resp)
		}
		if resp.Payload.OrderID != "o_1" || resp.Payload.UserID != user.ID {
			t.Errorf("unexpected summary ids: %+v", resp.Payload)
		}
		if resp.Payload.BasketValue.AmountMinorUnits != 81 {
			t.Errorf("expected basket value 81, got %d", resp.Payload.BasketValue.AmountMinorUnits)
		}
		if resp.Payload.FirstName != user.FirstName || resp.Payload.LastName != user.LastName {
			t.Errorf("expected user names in summary, got %q %q", resp.Payload.FirstName, resp.Payload.LastName)
		}
		if len(resp.Payload.Products) != 2 {
			t.Errorf("expected 2 products, got %d", len(resp.Payload.Products))
		}
		if resp.Payload.DeliveryAddress.Postcode != address.Postcode {
			t.Errorf("unexpected address: %+v", resp.Payload.DeliveryAddress)
		}
	})

	t.Run("blank basket id", func(t *testing.T) {
		h := NewHandler(seededStore(), discardLogger())
		rec := submit(h, "%20")

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rec.Code)
		}
	})

	t.Run("no order", func(t *testing.T) {
		h := NewHandler(seededStore(), discardLogger())
		rec := submit(h, "b_404")

		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", rec.Code)
		}
	})

	t.Run("owning user missing", func(t *testing.T) {
		store := seededStore()
		delete(store.users, user.ID)
		h := NewHandler(store, discardLogger())
		rec := submit(h, "b_1")

		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", rec.Code)
		}
	})

	t.Run("store failure", func(t *testing.T) {
		store := seededStore()
		store.err = errBoom
		h := NewHandler(store, discardLogger())
		rec := submit(h, "b_1")

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected status 500, got %d", rec.Code)
		}
	})
}

func TestSummarize(t *testing.T) {
	order := &domain.Order{ID: "o_1", UserID: "u_1", Items: []domain.OrderItem{
		{ProductID: "p_1", Quantity: 3, DiscountedPrice: domain.NewMoney(domain.CurrencyGBP, 4), IncludeInDelivery: true},
		{ProductID: "p_2", Quantity: 1, DiscountedPrice: domain.NewMoney(domain.CurrencyGBP, 100)},
	}}

	s := Summarize(order, &domain.User{ID: "u_1", FirstName: "Ada", LastName: "Lovelace"})
	if s.BasketValue.AmountMinorUnits != 112 {
		t.Errorf("expected undelivered items to count towards the value, got %d", s.BasketValue.AmountMinorUnits)
	}
	if s.FirstName != "Ada" || s.LastName != "Lovelace" {
		t.Errorf("unexpected names: %q %q", s.FirstName, s.LastName)
	}
	if len(s.Products) != 1 || s.Products[0].ProductID != "p_1" {
		t.Errorf("unexpected products: %+v", s.Products)
	}
}
