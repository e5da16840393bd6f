// Package httputil provides shared HTTP utilities for consistent response handling.
//
// The control, mock, and proxy planes all respond with JSON or stream an
// upstream body verbatim; WriteJSON is the one wrapper every handler in
// pkg/serve shares, avoiding duplicated Content-Type/WriteHeader/nil-check
// logic at each call site.
package httputil

import (
	"encoding/json"
	"net/http"
)

// WriteJSON writes a JSON response with the given status code.
// It sets the Content-Type header to application/json.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}
