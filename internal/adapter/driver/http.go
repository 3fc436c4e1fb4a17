package driver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/alorle/iptv-relay/fetcher"
	"github.com/alorle/iptv-relay/internal/application"
	"github.com/alorle/iptv-relay/registry"
)

// errorResponse represents a JSON error response.
type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// statusFor maps service errors to HTTP status codes and client messages.
// Upstream details stay in the logs.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, registry.ErrNotFound):
		return http.StatusNotFound, "resource not found"
	case errors.Is(err, application.ErrUnknownProfile):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, application.ErrInvalidURL):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, fetcher.ErrExhaustedStrategies):
		return http.StatusBadGateway, "upstream unavailable"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// setNoCache marks a response as never cacheable
func setNoCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
}
