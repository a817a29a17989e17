package middleware

import (
	"net/http"

	"github.com/rs/cors"
	"go.uber.org/zap"
)

// CORS returns the cross-origin handler for the configured origins. Credentials are allowed so the
// session cookie works from a separately served frontend; wildcard origins are logged as a risk.
func CORS(origins []string, log *zap.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	for _, origin := range origins {
		if origin == "*" || origin == ".*" {
			log.Warn("CORS wildcard detected",
				zap.String("origin", origin),
				zap.String("risk", "any origin can call the API with the session cookie"),
			)
		}
	}
	c := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Request-ID"},
		ExposedHeaders:   []string{ResponseRequestIDHeader, TraceIDHeader, "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	})
	return c.Handler
}
