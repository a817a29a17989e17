package rest

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/alif-arrizqy/jspro-powerdesk-sub000/internal/api/middleware"
	"github.com/alif-arrizqy/jspro-powerdesk-sub000/internal/auth"
	"github.com/alif-arrizqy/jspro-powerdesk-sub000/internal/rbac"
)

// loginFailedMessage is shown for wrong credentials and locked accounts alike.
const loginFailedMessage = "Invalid username or password. Too many attempts will temporarily lock the account."

type pageRoute struct {
	path   string
	pageID string
}

var pageRoutes = []pageRoute{
	{"/", rbac.PageDashboard},
	{"/scc", rbac.PageSCCMonitoring},
	{"/battery", rbac.PageBatteryMonitoring},
	{"/rectifier", rbac.PageRectifierMonitoring},
	{"/datalog", rbac.PageDatalog},
	{"/scc-alarm-log", rbac.PageSCCAlarmLog},
	{"/reboot-log", rbac.PageRebootLog},
	{"/mqtt", rbac.PageMQTTService},
	{"/snmp", rbac.PageSNMPService},
	{"/snmp-rectifier", rbac.PageSNMPRectifierService},
	{"/systemd", rbac.PageSystemdService},
	{"/site-information", rbac.PageSiteInformation},
	{"/setting-device", rbac.PageSettingDevice},
	{"/setting-ip", rbac.PageSettingIP},
	{"/setting-scc", rbac.PageSettingSCC},
	{"/config-value-scc", rbac.PageConfigValueSCC},
	{"/disk-storage", rbac.PageDiskStorage},
	{"/power", rbac.PagePowerManagement},
}

// PageContext is what a page template renders with.
type PageContext struct {
	Page     string            `json:"page"`
	Username string            `json:"username,omitempty"`
	Role     string            `json:"role,omitempty"`
	SiteName string            `json:"site_name"`
	Menu     *rbac.Menu        `json:"menu,omitempty"`
	Flash    *middleware.Flash `json:"flash,omitempty"`
}

func (h *Handler) pageContext(w http.ResponseWriter, r *http.Request, pageID string) PageContext {
	pc := PageContext{
		Page:     pageID,
		SiteName: h.siteName,
		Flash:    middleware.PopFlash(w, r, h.secure),
	}
	if id := auth.IdentityFromContext(r.Context()); id != nil {
		pc.Username = id.Username
		pc.Role = string(id.Role)
		if menu, ok := h.policy.Menu(id.Role); ok {
			pc.Menu = &menu
		}
	}
	return pc
}

// page renders a guarded page. The guard has already allowed the caller.
func (h *Handler) page(pageID string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pc := h.pageContext(w, r, pageID)
		respondJSON(w, http.StatusOK, pc)
	})
}

// LoginPage handles GET /login
func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	if auth.IdentityFromContext(r.Context()) != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	respondJSON(w, http.StatusOK, h.pageContext(w, r, "login"))
}

// LoginSubmit handles POST /login with form fields username and password.
func (h *Handler) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		middleware.SetFlash(w, middleware.Flash{Category: middleware.FlashError, Message: "Invalid login request"}, h.secure)
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	token, id, err := h.authn.Login(r.Context(), r.PostForm.Get("username"), r.PostForm.Get("password"))
	if err != nil {
		if !errors.Is(err, auth.ErrInvalidCredentials) && !errors.Is(err, auth.ErrAccountLocked) {
			h.log.Error("login failed", zap.Error(err))
		}
		middleware.SetFlash(w, middleware.Flash{Category: middleware.FlashError, Message: loginFailedMessage}, h.secure)
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	cookie, err := h.codec.Cookie(token, h.secure)
	if err != nil {
		h.authn.Tokens().Revoke(token)
		h.log.Error("session cookie", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to start session")
		return
	}
	http.SetCookie(w, cookie)
	middleware.SetFlash(w, middleware.Flash{Category: middleware.FlashSuccess, Message: "Welcome, " + id.Username}, h.secure)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// WebLogout handles GET|POST /logout
func (h *Handler) WebLogout(w http.ResponseWriter, r *http.Request) {
	if id := auth.IdentityFromContext(r.Context()); id != nil {
		h.authn.Logout(r.Context(), id, auth.TokenFromContext(r.Context()))
	}
	http.SetCookie(w, auth.ClearSessionCookie(h.secure))
	middleware.SetFlash(w, middleware.Flash{Category: middleware.FlashSuccess, Message: "You have been logged out."}, h.secure)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
