package gateway

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/joao-fontenele/groceryflow/internal/envelope"
)

type Handler struct {
	basketProxy *ServiceProxy
	ordersProxy *ServiceProxy
	logger      *slog.Logger
}

func NewHandler(basketProxy, ordersProxy *ServiceProxy, logger *slog.Logger) *Handler {
	return &Handler{
		basketProxy: basketProxy,
		ordersProxy: ordersProxy,
		logger:      logger,
	}
}

func (h *Handler) HandleBaskets(w http.ResponseWriter, r *http.Request) {
	h.proxyRequest(w, r, h.basketProxy, r.URL.Path)
}

func (h *Handler) HandleOrders(w http.ResponseWriter, r *http.Request) {
	h.proxyRequest(w, r, h.ordersProxy, r.URL.Path)
}

func (h *Handler) proxyRequest(w http.ResponseWriter, r *http.Request, proxy *ServiceProxy, path string) {
	resp, err := proxy.ForwardRequest(r.Context(), r, path)
	if err != nil {
		h.logger.Error("failed to forward request", "error", err, "path", path)
		envelope.Failure(w, h.logger, http.StatusBadGateway, "service unavailable")
		return
	}
	defer func() { _ = resp.Body.Close() }()

	if contentType := resp.Header.Get("Content-Type"); contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}

	w.WriteHeader(resp.StatusCode)

	h.logger.Info("request proxied", "method", r.Method, "path", path, "status", resp.StatusCode)

	if _, err := io.Copy(w, resp.Body); err != nil {
		h.logger.Error("failed to copy response body", "error", err)
	}
}
