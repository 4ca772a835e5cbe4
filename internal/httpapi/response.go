package httpapi

import (
	"encoding/json"
	"net/http"
)

// JSON serialises payload with the given status. Encode failures are
// dropped; the status line is already on the wire by then.
func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// ErrorResponse is the error envelope for every non-2xx body. Code is a
// machine-readable discriminator; Details carries optional structured
// context such as lockout retry hints.
type ErrorResponse struct {
	Error   string         `json:"error"`
	Code    string         `json:"code,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// Error writes an error response.
func Error(w http.ResponseWriter, status int, code string, message string, details map[string]any) {
	JSON(w, status, ErrorResponse{
		Error:   message,
		Code:    code,
		Details: details,
	})
}
