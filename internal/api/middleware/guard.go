package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/alif-arrizqy/jspro-powerdesk-sub000/internal/auth"
	"github.com/alif-arrizqy/jspro-powerdesk-sub000/internal/guard"
)

const (
	msgAuthRequired      = "Authentication required"
	msgInsufficientPerms = "Insufficient permissions"

	flashLoginRequired = "Please log in to access this page."
	flashPageForbidden = "You do not have permission to access this page."
)

// Access binds guard decisions to HTTP. API routes answer 401/403 with a JSON error; page routes
// redirect with a flash notice. A deny never reaches the wrapped handler.
type Access struct {
	guard         *guard.Guard
	secureCookies bool
}

// NewAccess returns the access middleware set.
func NewAccess(g *guard.Guard, secureCookies bool) *Access {
	return &Access{guard: g, secureCookies: secureCookies}
}

// Page requires permission for pageID. Anonymous callers go to /login, forbidden ones to /.
func (a *Access) Page(pageID string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := a.guard.AuthorizePage(r.Context(), auth.IdentityFromContext(r.Context()), pageID)
			if d.Allowed {
				next.ServeHTTP(w, r)
				return
			}
			if d.Reason == guard.ReasonUnauthenticated {
				SetFlash(w, Flash{Category: FlashWarning, Message: flashLoginRequired}, a.secureCookies)
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}
			SetFlash(w, Flash{Category: FlashError, Message: flashPageForbidden}, a.secureCookies)
			http.Redirect(w, r, "/", http.StatusSeeOther)
		})
	}
}

// Action requires permission for actionID on an API route.
func (a *Access) Action(actionID string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := a.guard.AuthorizeAction(r.Context(), auth.IdentityFromContext(r.Context()), actionID)
			if !d.Allowed {
				writeDenied(w, d)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Authenticated requires any identity. Used by routes every role may call (logout, me, menu).
func (a *Access) Authenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d := a.guard.AuthorizeAuthenticated(r.Context(), auth.IdentityFromContext(r.Context()), r.URL.Path)
		if !d.Allowed {
			writeDenied(w, d)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Endpoint checks the request path against the caller's endpoint rules, then the action bound to
// the method and path, if any. Public endpoints pass without a decision.
func (a *Access) Endpoint(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		policy := a.guard.Policy()
		path := r.URL.Path
		if policy.IsPublicEndpoint(path) {
			next.ServeHTTP(w, r)
			return
		}
		id := auth.IdentityFromContext(r.Context())
		d := a.guard.AuthorizeEndpoint(r.Context(), id, path)
		if !d.Allowed {
			writeDenied(w, d)
			return
		}
		if action, ok := policy.ActionFor(r.Method, path); ok {
			if d := a.guard.AuthorizeAction(r.Context(), id, action); !d.Allowed {
				writeDenied(w, d)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func writeDenied(w http.ResponseWriter, d guard.Decision) {
	status, msg := http.StatusForbidden, msgInsufficientPerms
	if d.Reason == guard.ReasonUnauthenticated {
		w.Header().Set("WWW-Authenticate", "Bearer")
		status, msg = http.StatusUnauthorized, msgAuthRequired
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
