// Package envelope writes the {isSuccess, errors, payload} response body
// shared by the basket and orders HTTP services.
package envelope

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/joao-fontenele/groceryflow/internal/domain"
)

type Response struct {
	IsSuccess bool     `json:"isSuccess"`
	Errors    []string `json:"errors,omitempty"`
	Payload   any      `json:"payload,omitempty"`
}

func WriteJSON(w http.ResponseWriter, logger *slog.Logger, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

func Success(w http.ResponseWriter, logger *slog.Logger, payload any) {
	WriteJSON(w, logger, http.StatusOK, Response{IsSuccess: true, Payload: payload})
}

func Failure(w http.ResponseWriter, logger *slog.Logger, status int, messages ...string) {
	WriteJSON(w, logger, status, Response{IsSuccess: false, Errors: messages})
}

// StatusFor maps the domain error taxonomy onto HTTP status codes.
func StatusFor(err error) int {
	switch {
	case domain.IsValidation(err), domain.IsConflict(err):
		return http.StatusBadRequest
	case domain.IsNotFound(err):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Error writes err with the status from StatusFor. Unexpected errors are
// logged and their text is not exposed.
func Error(w http.ResponseWriter, logger *slog.Logger, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error("request failed", "error", err)
		Failure(w, logger, status, "internal server error")
		return
	}
	logger.Info("request rejected", "status", status, "reason", err.Error())
	Failure(w, logger, status, err.Error())
}
