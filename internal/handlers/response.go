// Package handlers is the HTTP surface: request parsing, response
// envelopes, and routing into internal/elevation and internal/provider. It
// carries no elevation-lookup logic of its own.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// RespondJSON writes a success response with a consistent envelope: a
// JSON-encoded payload with the appropriate status code and content type.
func RespondJSON(w http.ResponseWriter, r *http.Request, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to encode response", "error", err, "path", r.URL.Path)
	}
}

type errorBody struct {
	Error string `json:"error"`
}

// RespondBadRequest surfaces a validation failure: bad coordinates, a batch
// that exceeds the configured size, or a body that doesn't parse. Never
// retried by a well-behaved client.
func RespondBadRequest(w http.ResponseWriter, r *http.Request, message string) {
	RespondJSON(w, r, http.StatusBadRequest, errorBody{Error: message})
}

// RespondNotFound surfaces a missing resource, e.g. an unknown campaign id.
func RespondNotFound(w http.ResponseWriter, r *http.Request, message string) {
	RespondJSON(w, r, http.StatusNotFound, errorBody{Error: message})
}

// RespondInternalError surfaces a bug or assertion failure as a 5xx without
// leaking internals into the response body.
func RespondInternalError(w http.ResponseWriter, r *http.Request, message string) {
	slog.Error("internal error", "message", message, "path", r.URL.Path)
	RespondJSON(w, r, http.StatusInternalServerError, errorBody{Error: message})
}
