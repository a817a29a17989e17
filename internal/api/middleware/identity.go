package middleware

import (
	"net/http"
	"strings"

	"github.com/alif-arrizqy/jspro-powerdesk-sub000/internal/auth"
)

// Identity resolves the caller and stores it in the request context. It never rejects a request;
// the guard middleware decides what an anonymous caller may reach.
type Identity struct {
	authn         *auth.Authenticator
	codec         *auth.CookieCodec
	secureCookies bool
}

// NewIdentity returns the identity middleware set.
func NewIdentity(authn *auth.Authenticator, codec *auth.CookieCodec, secureCookies bool) *Identity {
	return &Identity{authn: authn, codec: codec, secureCookies: secureCookies}
}

// API accepts "Authorization: Bearer <token>" (API token or session token) and falls back to the
// session cookie.
func (m *Identity) API(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token := extractBearer(r); token != "" {
			next.ServeHTTP(w, m.resolve(r, token))
			return
		}
		m.Web(next).ServeHTTP(w, r)
	})
}

// Web resolves the session cookie only. Browsers never carry API tokens, so page routes ignore
// the Authorization header. A stale cookie is cleared.
func (m *Identity) Web(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(auth.SessionCookieName)
		if err != nil || c.Value == "" {
			next.ServeHTTP(w, r)
			return
		}
		token, err := m.codec.Decode(c.Value)
		if err != nil {
			http.SetCookie(w, auth.ClearSessionCookie(m.secureCookies))
			next.ServeHTTP(w, r)
			return
		}
		r = m.resolve(r, token)
		if auth.IdentityFromContext(r.Context()) == nil {
			http.SetCookie(w, auth.ClearSessionCookie(m.secureCookies))
		}
		next.ServeHTTP(w, r)
	})
}

func (m *Identity) resolve(r *http.Request, token string) *http.Request {
	id, err := m.authn.AuthenticateToken(r.Context(), token)
	if err != nil {
		return r
	}
	ctx := auth.WithIdentity(r.Context(), id)
	ctx = auth.WithToken(ctx, token)
	return r.WithContext(ctx)
}

func extractBearer(r *http.Request) string {
	s := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(s) > len(prefix) && strings.EqualFold(s[:len(prefix)], prefix) {
		return strings.TrimSpace(s[len(prefix):])
	}
	return ""
}
