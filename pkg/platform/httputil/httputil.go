// Package httputil centralizes JSON envelopes and domain error translation
// so every handler returns the same shapes.
package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	derrors "haven/pkg/domain-errors"
)

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates a domain error into the error envelope. Non-domain
// errors map to internal_error without leaking their text.
func WriteError(w http.ResponseWriter, err error) {
	var de *derrors.Error
	if errors.As(err, &de) {
		WriteJSON(w, derrors.ToHTTPStatus(de.ErrCode), ErrorResponse{
			Code:    string(de.ErrCode),
			Message: de.Message,
		})
		return
	}
	WriteJSON(w, http.StatusInternalServerError, ErrorResponse{
		Code:    string(derrors.CodeInternal),
		Message: "internal error",
	})
}

// Decode parses the JSON request body into T. On failure it writes a
// bad_request envelope and returns ok=false.
func Decode[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger) (T, bool) {
	var v T
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		if logger != nil {
			logger.Debug("request decode failed", "error", err, "path", r.URL.Path)
		}
		WriteError(w, derrors.New(derrors.CodeBadRequest, "invalid request body"))
		return v, false
	}
	return v, true
}
