package security

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"mailledger/internal/log"
)

// HeaderAPIKey is the request header carrying the shared API key.
const HeaderAPIKey = "X-API-Key"

// APIKeyMiddleware rejects requests that do not present the configured key.
type APIKeyMiddleware struct {
	key      string
	exempt   map[string]bool
	detector *Detector
}

// NewAPIKeyMiddleware guards every path except the exempt ones. An empty key
// makes every guarded request fail with 500.
func NewAPIKeyMiddleware(key string, detector *Detector, exemptPaths ...string) *APIKeyMiddleware {
	exempt := make(map[string]bool, len(exemptPaths))
	for _, p := range exemptPaths {
		exempt[p] = true
	}
	return &APIKeyMiddleware{key: key, exempt: exempt, detector: detector}
}

func (m *APIKeyMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.exempt[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		if m.key == "" {
			log.FromContext(r.Context()).ErrorContext(r.Context(), "API key not configured",
				log.FieldComponent, log.ComponentSecurity, log.FieldPath, r.URL.Path)
			writeError(w, http.StatusInternalServerError, "API key not configured")
			return
		}

		provided := r.Header.Get(HeaderAPIKey)
		if subtle.ConstantTimeCompare([]byte(provided), []byte(m.key)) != 1 {
			if m.detector != nil {
				m.detector.recordRejectedKey()
			}
			log.FromContext(r.Context()).WarnContext(r.Context(), "Rejected API key",
				log.FieldComponent, log.ComponentSecurity, log.FieldPath, r.URL.Path)
			writeError(w, http.StatusForbidden, "invalid API key")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
