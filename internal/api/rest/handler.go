// Package rest serves the PowerDesk gateway: login and pages for the web UI, the auth API and the
// guarded proxy to the device API.
package rest

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/alif-arrizqy/jspro-powerdesk-sub000/internal/api/middleware"
	"github.com/alif-arrizqy/jspro-powerdesk-sub000/internal/audit"
	"github.com/alif-arrizqy/jspro-powerdesk-sub000/internal/auth"
	"github.com/alif-arrizqy/jspro-powerdesk-sub000/internal/guard"
	"github.com/alif-arrizqy/jspro-powerdesk-sub000/internal/rbac"
)

// Deps are the collaborators the handlers need.
type Deps struct {
	Authn    *auth.Authenticator
	Codec    *auth.CookieCodec
	Guard    *guard.Guard
	Audit    audit.Recorder
	AuditLog audit.Lister
	// Upstream serves everything under /api/v1/ that the gateway does not answer itself.
	Upstream http.Handler
	// AuditStream upgrades GET /api/v1/audit/stream to a live event feed. Optional.
	AuditStream   http.Handler
	SiteName      string
	SecureCookies bool
	LoginPerMin   int
	LoginBurst    int
	Logger        *zap.Logger
}

// Handler manages HTTP request handlers
type Handler struct {
	authn    *auth.Authenticator
	codec    *auth.CookieCodec
	policy   *rbac.Policy
	audit    audit.Recorder
	auditLog audit.Lister
	upstream http.Handler
	stream   http.Handler
	siteName string
	secure   bool
	log      *zap.Logger

	identity *middleware.Identity
	access   *middleware.Access
	loginMW  func(http.Handler) http.Handler
}

// NewHandler creates a new HTTP handler
func NewHandler(d Deps) *Handler {
	if d.Audit == nil {
		d.Audit = audit.Nop{}
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Upstream == nil {
		d.Upstream = http.HandlerFunc(upstreamNotConfigured)
	}
	return &Handler{
		authn:    d.Authn,
		codec:    d.Codec,
		policy:   d.Guard.Policy(),
		audit:    d.Audit,
		auditLog: d.AuditLog,
		upstream: d.Upstream,
		stream:   d.AuditStream,
		siteName: d.SiteName,
		secure:   d.SecureCookies,
		log:      d.Logger,
		identity: middleware.NewIdentity(d.Authn, d.Codec, d.SecureCookies),
		access:   middleware.NewAccess(d.Guard, d.SecureCookies),
		loginMW:  middleware.LoginRateLimit(d.LoginPerMin, d.LoginBurst),
	}
}

// SetupRoutes configures web and API routes.
func SetupRoutes(router *mux.Router, h *Handler) {
	router.HandleFunc("/health", h.Health).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(h.identity.API)
	api.Use(middleware.RateLimit())

	api.Handle("/auth/login", h.loginMW(http.HandlerFunc(h.APILogin))).Methods(http.MethodPost)
	api.Handle("/auth/logout", h.access.Authenticated(http.HandlerFunc(h.APILogout))).Methods(http.MethodPost)
	api.Handle("/auth/me", h.access.Authenticated(http.HandlerFunc(h.Me))).Methods(http.MethodGet)
	api.Handle("/auth/menu", h.access.Authenticated(http.HandlerFunc(h.Menu))).Methods(http.MethodGet)

	manageSessions := h.access.Action(rbac.ActionManageSessions)
	api.Handle("/auth/sessions", manageSessions(http.HandlerFunc(h.ListSessions))).Methods(http.MethodGet)
	api.Handle("/auth/sessions/{username}", manageSessions(http.HandlerFunc(h.RevokeUserSessions))).Methods(http.MethodDelete)

	manageUsers := h.access.Action(rbac.ActionManageUsers)
	api.Handle("/auth/users", manageUsers(http.HandlerFunc(h.ListUsers))).Methods(http.MethodGet)
	api.Handle("/auth/users/{username}/unlock", manageUsers(http.HandlerFunc(h.UnlockUser))).Methods(http.MethodPost)

	api.Handle("/audit", h.access.Action(rbac.ActionViewAudit)(http.HandlerFunc(h.ListAudit))).Methods(http.MethodGet)
	if h.stream != nil {
		api.Handle("/audit/stream", h.access.Action(rbac.ActionViewAudit)(h.stream)).Methods(http.MethodGet)
	}
	api.HandleFunc("/info", h.Info).Methods(http.MethodGet)

	api.PathPrefix("/").Handler(h.access.Endpoint(h.upstream))

	web := router.NewRoute().Subrouter()
	web.Use(h.identity.Web)
	web.Handle("/login", http.HandlerFunc(h.LoginPage)).Methods(http.MethodGet)
	web.Handle("/login", h.loginMW(http.HandlerFunc(h.LoginSubmit))).Methods(http.MethodPost)
	web.HandleFunc("/logout", h.WebLogout).Methods(http.MethodGet, http.MethodPost)
	for _, p := range pageRoutes {
		web.Handle(p.path, h.access.Page(p.pageID)(h.page(p.pageID))).Methods(http.MethodGet)
	}

	router.NotFoundHandler = http.HandlerFunc(notFound)
	router.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)
}

// Health handles GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":          "healthy",
		"active_sessions": h.authn.Tokens().Count(),
	})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
