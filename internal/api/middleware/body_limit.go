package middleware

import (
	"net/http"
)

// DefaultMaxBodyBytes caps request bodies. Device settings and login forms are small JSON or form posts.
const DefaultMaxBodyBytes = 64 * 1024

// MaxBodySize returns middleware that limits request bodies of POST, PUT and PATCH requests to max bytes.
// Reading past the limit fails and the handler answers 413 or 400.
func MaxBodySize(max int64) func(http.Handler) http.Handler {
	if max <= 0 {
		max = DefaultMaxBodyBytes
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body == nil {
				next.ServeHTTP(w, r)
				return
			}
			switch r.Method {
			case http.MethodPost, http.MethodPut, http.MethodPatch:
				r.Body = http.MaxBytesReader(w, r.Body, max)
			}
			next.ServeHTTP(w, r)
		})
	}
}
