package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/alif-arrizqy/jspro-powerdesk-sub000/internal/audit"
	"github.com/alif-arrizqy/jspro-powerdesk-sub000/internal/auth"
	"github.com/alif-arrizqy/jspro-powerdesk-sub000/internal/pkg/validate"
	"github.com/alif-arrizqy/jspro-powerdesk-sub000/internal/rbac"
)

// LoginRequest is the body for POST /api/v1/auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is the response for POST /api/v1/auth/login.
type LoginResponse struct {
	Token     string `json:"token"`
	TokenType string `json:"token_type"`
	ExpiresIn int    `json:"expires_in"`
	Username  string `json:"username"`
	Role      string `json:"role"`
}

// MeResponse is the response for GET /api/v1/auth/me.
type MeResponse struct {
	Username string     `json:"username,omitempty"`
	Role     string     `json:"role"`
	Method   string     `json:"auth_method"`
	Pages    []string   `json:"pages"`
	Actions  []string   `json:"actions"`
	Menu     *rbac.Menu `json:"menu,omitempty"`
}

// UserResponse describes an account for administrators.
type UserResponse struct {
	auth.Account
	Locked bool `json:"locked"`
}

// APILogin handles POST /api/v1/auth/login
func (h *Handler) APILogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respondError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "username and password are required")
		return
	}
	if len(req.Username) > validate.UsernameMaxLen || !validate.Password(req.Password) {
		respondError(w, http.StatusBadRequest, "username or password too long")
		return
	}
	token, id, err := h.authn.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) || errors.Is(err, auth.ErrAccountLocked) {
			respondError(w, http.StatusUnauthorized, loginFailedMessage)
			return
		}
		h.log.Error("login failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to start session")
		return
	}
	respondJSON(w, http.StatusOK, LoginResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresIn: int(auth.SessionTTL.Seconds()),
		Username:  id.Username,
		Role:      string(id.Role),
	})
}

// APILogout handles POST /api/v1/auth/logout. API tokens have no session to end.
func (h *Handler) APILogout(w http.ResponseWriter, r *http.Request) {
	id := auth.IdentityFromContext(r.Context())
	if id.Method == auth.MethodAPIToken {
		respondError(w, http.StatusBadRequest, "API tokens cannot be logged out")
		return
	}
	h.authn.Logout(r.Context(), id, auth.TokenFromContext(r.Context()))
	http.SetCookie(w, auth.ClearSessionCookie(h.secure))
	respondJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

// Me handles GET /api/v1/auth/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	id := auth.IdentityFromContext(r.Context())
	resp := MeResponse{
		Username: id.Username,
		Role:     string(id.Role),
		Method:   string(id.Method),
		Pages:    h.policy.Pages(id.Role),
		Actions:  h.policy.Actions(id.Role),
	}
	if menu, ok := h.policy.Menu(id.Role); ok {
		resp.Menu = &menu
	}
	respondJSON(w, http.StatusOK, resp)
}

// Menu handles GET /api/v1/auth/menu
func (h *Handler) Menu(w http.ResponseWriter, r *http.Request) {
	id := auth.IdentityFromContext(r.Context())
	menu, ok := h.policy.Menu(id.Role)
	if !ok {
		respondError(w, http.StatusForbidden, "Insufficient permissions")
		return
	}
	respondJSON(w, http.StatusOK, menu)
}

// ListSessions handles GET /api/v1/auth/sessions
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.authn.Tokens().Sessions())
}

// RevokeUserSessions handles DELETE /api/v1/auth/sessions/{username}
func (h *Handler) RevokeUserSessions(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]
	if !validate.Username(username) {
		respondError(w, http.StatusBadRequest, "Invalid username")
		return
	}
	if _, ok := h.authn.Credentials().Role(username); !ok {
		respondError(w, http.StatusNotFound, "User not found")
		return
	}
	n := h.authn.Tokens().RevokeUser(username)
	h.recordAdmin(r, audit.EventSessionRevoked, username)
	respondJSON(w, http.StatusOK, map[string]any{"username": username, "revoked": n})
}

// ListUsers handles GET /api/v1/auth/users
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	creds := h.authn.Credentials()
	accounts := creds.Accounts()
	out := make([]UserResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, UserResponse{Account: a, Locked: creds.IsLocked(a.Username)})
	}
	respondJSON(w, http.StatusOK, out)
}

// UnlockUser handles POST /api/v1/auth/users/{username}/unlock
func (h *Handler) UnlockUser(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]
	if !validate.Username(username) {
		respondError(w, http.StatusBadRequest, "Invalid username")
		return
	}
	if err := h.authn.Credentials().Unlock(username); err != nil {
		if errors.Is(err, auth.ErrUnknownUser) {
			respondError(w, http.StatusNotFound, "User not found")
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.recordAdmin(r, audit.EventAccountUnlocked, username)
	respondJSON(w, http.StatusOK, map[string]string{"message": "Account unlocked", "username": username})
}

// recordAdmin audits an administrative change made by the caller to target's account.
func (h *Handler) recordAdmin(r *http.Request, t audit.EventType, target string) {
	id := auth.IdentityFromContext(r.Context())
	e := audit.NewEvent(t).WithResource(target, "user")
	if id != nil {
		e.WithUser(id.Subject(), string(id.Role)).WithAuthMethod(string(id.Method))
	}
	h.audit.Record(r.Context(), e)
}
