// Package respond centralizes JSON response writing. Payloads are emitted
// as-is; errors use the {"detail": ...} shape the API's clients consume.
package respond

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// JSON writes the payload with the given status code.
func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("respond: encode payload failed", "error", err)
	}
}

// Error writes an error response carrying a human-readable detail message.
func Error(w http.ResponseWriter, status int, detail string) {
	JSON(w, status, map[string]string{"detail": detail})
}
