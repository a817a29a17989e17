package middleware

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/alif-arrizqy/jspro-powerdesk-sub000/internal/pkg/logger"
	"github.com/alif-arrizqy/jspro-powerdesk-sub000/internal/pkg/redact"
)

// Recovery turns a handler panic into a 500 and logs it with the request id.
func Recovery(l *zap.Logger) func(http.Handler) http.Handler {
	if l == nil {
		l = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					l.Error("panic recovered",
						zap.String("request_id", logger.FromContext(r.Context())),
						zap.String("method", r.Method),
						zap.String("path", r.URL.Path),
						zap.Strings("headers", redact.HeaderNames(r.Header)),
						zap.Any("panic", rec),
						zap.Stack("stack"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					w.Write([]byte(`{"error":"Internal server error"}`))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
