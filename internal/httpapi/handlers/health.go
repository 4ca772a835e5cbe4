package handlers

import (
	"net/http"
	"time"

	"github.com/vpnpanel/auth-service/internal/httpapi"
)

// NewHealth builds the liveness handler. It reports the service name so
// probes behind a shared ingress can tell which backend answered.
func NewHealth(service string) http.HandlerFunc {
	startedAt := time.Now().UTC()
	return func(w http.ResponseWriter, r *http.Request) {
		httpapi.JSON(w, http.StatusOK, map[string]any{
			"status":  "ok",
			"service": service,
			"uptime":  time.Since(startedAt).Round(time.Second).String(),
			"time":    time.Now().UTC(),
		})
	}
}
