package httpapi

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"
)

// DecodeJSON reads the request body into v.
func DecodeJSON(r *http.Request, v any) error {
	defer r.Body.Close() //nolint:errcheck
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}

// ClientIP extracts the caller IP, honoring proxy headers. A forwarded
// chain yields its first entry. Never used for authorization decisions,
// only session/audit metadata.
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// UserAgent returns the request user agent string.
func UserAgent(r *http.Request) string {
	return r.Header.Get("User-Agent")
}
