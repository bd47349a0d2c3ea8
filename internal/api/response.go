package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"cv-intake/internal/apperr"
)

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

type errorBody struct {
	Success bool               `json:"success"`
	Message string             `json:"message"`
	Errors  []apperr.Violation `json:"errors,omitempty"`
}

type listBody struct {
	Success     bool `json:"success"`
	Data        any  `json:"data"`
	TotalPages  int  `json:"totalPages"`
	CurrentPage int  `json:"currentPage"`
	Total       int  `json:"total"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

// writeError maps err onto its status. Internal details are logged and
// replaced with a generic message.
func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		appErr = apperr.New(apperr.CodeInternal, "Server error", err)
	}
	status := apperr.HTTPStatus(appErr.Code)
	body := errorBody{Message: appErr.Message, Errors: appErr.Violations}
	if status >= http.StatusInternalServerError {
		a.logger.Error("request failed",
			slog.String("request_id", requestIDFrom(r.Context())),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()))
		body = errorBody{Message: "Server error"}
	}
	writeJSON(w, status, body)
}

// decodeJSON reads a small JSON request body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperr.New(apperr.CodeValidation, "Invalid request body", err)
	}
	return nil
}
