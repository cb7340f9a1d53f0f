package gateway

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/joao-fontenele/groceryflow/internal/envelope"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHandler_HandleBaskets(t *testing.T) {
	t.Run("proxies POST /Baskets/Product/Add with body", func(t *testing.T) {
		basketServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/Baskets/Product/Add" {
				t.Errorf("expected /Baskets/Product/Add, got %s", r.URL.Path)
			}
			if r.Method != http.MethodPost {
				t.Errorf("expected POST, got %s", r.Method)
			}
			body, _ := io.ReadAll(r.Body)
			if string(body) != `{"userId":"u_1","productId":"p_1","quantity":1}` {
				t.Errorf("unexpected body: %s", body)
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"isSuccess":true,"payload":{"id":"b_1"}}`))
		}))
		defer basketServer.Close()

		handler := NewHandler(
			NewServiceProxy(basketServer.URL, basketServer.Client()),
			NewServiceProxy("http://unused", http.DefaultClient),
			discardLogger(),
		)

		req := httptest.NewRequest(http.MethodPost, "/Baskets/Product/Add", strings.NewReader(`{"userId":"u_1","productId":"p_1","quantity":1}`))
		rec := httptest.NewRecorder()

		handler.HandleBaskets(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rec.Code)
		}
		if rec.Header().Get("Content-Type") != "application/json" {
			t.Errorf("expected application/json, got %s", rec.Header().Get("Content-Type"))
		}
		if rec.Body.String() != `{"isSuccess":true,"payload":{"id":"b_1"}}` {
			t.Errorf("unexpected body: %s", rec.Body.String())
		}
	})

	t.Run("preserves downstream error status", func(t *testing.T) {
		basketServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"isSuccess":false,"errors":["basket b_404 not found"]}`))
		}))
		defer basketServer.Close()

		handler := NewHandler(
			NewServiceProxy(basketServer.URL, basketServer.Client()),
			NewServiceProxy("http://unused", http.DefaultClient),
			discardLogger(),
		)

		req := httptest.NewRequest(http.MethodGet, "/Baskets/b_404/preview", nil)
		rec := httptest.NewRecorder()

		handler.HandleBaskets(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", rec.Code)
		}
	})
}

func TestHandler_HandleOrders(t *testing.T) {
	t.Run("proxies POST /Orders/Submit", func(t *testing.T) {
		ordersServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/Orders/Submit/b_1" {
				t.Errorf("expected /Orders/Submit/b_1, got %s", r.URL.Path)
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"isSuccess":true}`))
		}))
		defer ordersServer.Close()

		handler := NewHandler(
			NewServiceProxy("http://unused", http.DefaultClient),
			NewServiceProxy(ordersServer.URL, ordersServer.Client()),
			discardLogger(),
		)

		req := httptest.NewRequest(http.MethodPost, "/Orders/Submit/b_1", nil)
		rec := httptest.NewRecorder()

		handler.HandleOrders(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rec.Code)
		}
	})

	t.Run("returns 502 when orders service unavailable", func(t *testing.T) {
		handler := NewHandler(
			NewServiceProxy("http://unused", http.DefaultClient),
			NewServiceProxy("http://localhost:99999", &http.Client{}),
			discardLogger(),
		)

		req := httptest.NewRequest(http.MethodPost, "/Orders/Submit/b_1", nil)
		rec := httptest.NewRecorder()

		handler.HandleOrders(rec, req)

		if rec.Code != http.StatusBadGateway {
			t.Errorf("expected status 502, got %d", rec.Code)
		}

		var resp envelope.Response
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.IsSuccess || len(resp.Errors) != 1 || resp.Errors[0] != "service unavailable" {
			t.Errorf("unexpected body: %+v", resp)
		}
	})
}
