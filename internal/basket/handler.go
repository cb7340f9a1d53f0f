package basket

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/joao-fontenele/groceryflow/internal/envelope"
)

type Handler struct {
	svc    *Service
	logger *slog.Logger
}

func NewHandler(svc *Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) HandleAddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		envelope.Failure(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}

	b, err := h.svc.AddItem(r.Context(), req)
	if err != nil {
		envelope.Error(w, h.logger, err)
		return
	}
	envelope.Success(w, h.logger, b)
}

func (h *Handler) HandleRemoveItem(w http.ResponseWriter, r *http.Request) {
	var req RemoveItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		envelope.Failure(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}

	b, err := h.svc.RemoveItem(r.Context(), req)
	if err != nil {
		envelope.Error(w, h.logger, err)
		return
	}
	envelope.Success(w, h.logger, b)
}

func (h *Handler) HandleCheckout(w http.ResponseWriter, r *http.Request) {
	b, err := h.svc.Checkout(r.Context(), r.PathValue("basketId"))
	if err != nil {
		envelope.Error(w, h.logger, err)
		return
	}
	envelope.Success(w, h.logger, b)
}

func (h *Handler) HandlePreview(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Preview(r.Context(), r.PathValue("basketId"))
	if err != nil {
		envelope.Error(w, h.logger, err)
		return
	}
	envelope.Success(w, h.logger, p)
}
