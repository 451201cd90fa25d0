package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/quillsound/booktunes/internal/shared"
)

// writeJSON encodes v as the JSON response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps a failure to the {"error": msg} envelope.
//
// Unauthorized callers get 401; every other categorized failure is a 400, the
// way the frontend expects.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	if errors.Is(err, shared.ErrUnauthorized) {
		status = http.StatusUnauthorized
	}

	writeJSON(w, status, map[string]string{"error": err.Error()})
}
