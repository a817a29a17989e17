package middleware

import (
	"net/http"

	"github.com/alif-arrizqy/jspro-powerdesk-sub000/internal/auth"
)

// MetricsAuth protects the /metrics endpoint with optional authentication.
// When enabled, requires a valid API token as a Bearer credential; sessions are not accepted.
// When disabled, /metrics is publicly accessible (default for Prometheus scraping).
func MetricsAuth(enabled bool, tokens *auth.TokenRegistry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/metrics" || !enabled {
				next.ServeHTTP(w, r)
				return
			}
			if token := extractBearer(r); token != "" && tokens != nil {
				res, err := tokens.Resolve(token)
				if err == nil && res.Kind == auth.TokenKindAPI {
					next.ServeHTTP(w, r)
					return
				}
			}
			w.Header().Set("WWW-Authenticate", "Bearer")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"Authentication required for metrics endpoint"}`))
		})
	}
}
