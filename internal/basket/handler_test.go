package basket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/joao-fontenele/groceryflow/internal/domain"
)

type basketResponse struct {
	IsSuccess bool           `json:"isSuccess"`
	Errors    []string       `json:"errors"`
	Payload   *domain.Basket `json:"payload"`
}

func newTestHandler() (*Handler, *testEnv) {
	env := newTestEnv()
	return NewHandler(env.svc, discardLogger()), env
}

func serve(h *Handler, method, target, body string) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /Baskets/Product/Add", h.HandleAddItem)
	mux.HandleFunc("POST /Baskets/Product/Remove", h.HandleRemoveItem)
	mux.HandleFunc("POST /Baskets/Checkout/{basketId}", h.HandleCheckout)
	mux.HandleFunc("GET /Baskets/{basketId}/preview", h.HandlePreview)

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeBasket(t *testing.T, rec *httptest.ResponseRecorder) basketResponse {
	t.Helper()
	var resp basketResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp
}

func TestHandler_HandleAddItem(t *testing.T) {
	t.Run("returns basket", func(t *testing.T) {
		h, _ := newTestHandler()
		rec := serve(h, http.MethodPost, "/Baskets/Product/Add", `{"userId":"u_1","productId":"p_milk","quantity":2}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if rec.Header().Get("Content-Type") != "application/json" {
			t.Errorf("expected application/json, got %s", rec.Header().Get("Content-Type"))
		}
		resp := decodeBasket(t, rec)
		if !resp.IsSuccess || resp.Payload == nil {
			t.Fatalf("unexpected response: %+v", resp)
		}
		if resp.Payload.Status != domain.BasketStatusActive || len(resp.Payload.Lines) != 1 {
			t.Errorf("unexpected basket: %+v", resp.Payload)
		}
	})

	t.Run("invalid body", func(t *testing.T) {
		h, _ := newTestHandler()
		rec := serve(h, http.MethodPost, "/Baskets/Product/Add", `{`)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rec.Code)
		}
	})

	tests := []struct {
		name string
		body string
		want int
	}{
		{"missing user id", `{"productId":"p_milk","quantity":1}`, http.StatusBadRequest},
		{"zero quantity", `{"userId":"u_1","productId":"p_milk","quantity":0}`, http.StatusBadRequest},
		{"promotion quantity", `{"userId":"u_1","productId":"p_coupon","quantity":2}`, http.StatusBadRequest},
		{"unknown user", `{"userId":"u_404","productId":"p_milk","quantity":1}`, http.StatusNotFound},
		{"unknown product", `{"userId":"u_1","productId":"p_404","quantity":1}`, http.StatusNotFound},
		{"unknown basket", `{"basketId":"b_404","userId":"u_1","productId":"p_milk","quantity":1}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newTestHandler()
			rec := serve(h, http.MethodPost, "/Baskets/Product/Add", tt.body)

			if rec.Code != tt.want {
				t.Errorf("expected status %d, got %d", tt.want, rec.Code)
			}
			resp := decodeBasket(t, rec)
			if resp.IsSuccess || len(resp.Errors) == 0 {
				t.Errorf("expected failure envelope, got %+v", resp)
			}
		})
	}

	t.Run("store failure is internal", func(t *testing.T) {
		h, env := newTestHandler()
		env.catalog.err = errBoom
		rec := serve(h, http.MethodPost, "/Baskets/Product/Add", `{"userId":"u_1","productId":"p_milk","quantity":1}`)

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected status 500, got %d", rec.Code)
		}
	})
}

func TestHandler_HandleRemoveItem(t *testing.T) {
	h, env := newTestHandler()
	b := env.add(t, "", milk, 2)

	rec := serve(h, http.MethodPost, "/Baskets/Product/Remove", `{"basketId":"`+b.ID+`","userId":"u_1","productId":"p_milk","quantity":5}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
	if resp := decodeBasket(t, rec); resp.Errors[0] != "insufficient quantity to remove" {
		t.Errorf("unexpected errors: %v", resp.Errors)
	}

	rec = serve(h, http.MethodPost, "/Baskets/Product/Remove", `{"basketId":"`+b.ID+`","userId":"u_1","productId":"p_milk","quantity":2}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if resp := decodeBasket(t, rec); resp.Payload.Status != domain.BasketStatusEmpty {
		t.Errorf("expected empty basket, got %s", resp.Payload.Status)
	}
}

func TestHandler_HandleCheckout(t *testing.T) {
	t.Run("checks out active basket", func(t *testing.T) {
		h, env := newTestHandler()
		b := env.add(t, "", milk, 1)

		rec := serve(h, http.MethodPost, "/Baskets/Checkout/"+b.ID, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rec.Code)
		}
		if resp := decodeBasket(t, rec); resp.Payload.Status != domain.BasketStatusCheckedOut {
			t.Errorf("expected checked out, got %s", resp.Payload.Status)
		}
	})

	t.Run("not active", func(t *testing.T) {
		h, env := newTestHandler()
		b := env.add(t, "", milk, 1)
		serve(h, http.MethodPost, "/Baskets/Checkout/"+b.ID, "")

		rec := serve(h, http.MethodPost, "/Baskets/Checkout/"+b.ID, "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rec.Code)
		}
	})

	t.Run("missing basket", func(t *testing.T) {
		h, _ := newTestHandler()
		rec := serve(h, http.MethodPost, "/Baskets/Checkout/b_404", "")
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", rec.Code)
		}
	})
}

func TestHandler_HandlePreview(t *testing.T) {
	h, env := newTestHandler()
	b := env.add(t, "", bread, 2)

	rec := serve(h, http.MethodGet, "/Baskets/"+b.ID+"/preview", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var resp struct {
		IsSuccess bool    `json:"isSuccess"`
		Payload   Preview `json:"payload"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Payload.BasketValue.AmountMinorUnits != 30 {
		t.Errorf("expected basket value 30, got %d", resp.Payload.BasketValue.AmountMinorUnits)
	}
	if len(resp.Payload.Products) != 1 || resp.Payload.DeliveryAddress == nil {
		t.Errorf("unexpected preview: %+v", resp.Payload)
	}

	rec = serve(h, http.MethodGet, "/Baskets/b_404/preview", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rec.Code)
	}
}
