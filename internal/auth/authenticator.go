package auth

import (
	"context"
	"errors"

	"github.com/alif-arrizqy/jspro-powerdesk-sub000/internal/audit"
	"github.com/alif-arrizqy/jspro-powerdesk-sub000/internal/pkg/metrics"
	"github.com/alif-arrizqy/jspro-powerdesk-sub000/internal/rbac"
)

// Method is how an identity was established.
type Method string

const (
	MethodPassword Method = "password"
	MethodSession  Method = "session"
	MethodAPIToken Method = "api_token"
)

// Identity is an authenticated caller. Username is empty for API tokens, which carry a role only.
type Identity struct {
	Username string    `json:"username,omitempty"`
	Role     rbac.Role `json:"role"`
	Method   Method    `json:"method"`
}

// Subject names the caller for logs and audit records.
func (i *Identity) Subject() string {
	if i == nil {
		return ""
	}
	if i.Username != "" {
		return i.Username
	}
	return "api:" + string(i.Role)
}

// Authenticator checks passwords and bearer tokens and records one audit event per call.
type Authenticator struct {
	creds  *CredentialStore
	tokens *TokenRegistry
	audit  audit.Recorder
}

// NewAuthenticator wires the stores to an audit recorder.
func NewAuthenticator(creds *CredentialStore, tokens *TokenRegistry, rec audit.Recorder) *Authenticator {
	if rec == nil {
		rec = audit.Nop{}
	}
	return &Authenticator{creds: creds, tokens: tokens, audit: rec}
}

// Credentials returns the underlying credential store.
func (a *Authenticator) Credentials() *CredentialStore { return a.creds }

// Tokens returns the underlying token registry.
func (a *Authenticator) Tokens() *TokenRegistry { return a.tokens }

// Authenticate verifies a username and password. A locked account is rejected before any
// password check so the attempt does not count.
func (a *Authenticator) Authenticate(ctx context.Context, username, password string) (*Identity, error) {
	if a.creds.IsLocked(username) {
		a.recordLogin(ctx, audit.EventAccountLocked, username, "", "locked")
		return nil, ErrAccountLocked
	}
	switch a.creds.verify(username, password) {
	case verifyOK:
		role, _ := a.creds.Role(username)
		a.recordLogin(ctx, audit.EventLoginSuccess, username, role, "")
		return &Identity{Username: username, Role: role, Method: MethodPassword}, nil
	case verifyLocked:
		a.recordLogin(ctx, audit.EventAccountLocked, username, "", "locked")
		return nil, ErrAccountLocked
	case verifyLockTriggered:
		// Sessions of a locked account end with it.
		revoked := a.tokens.RevokeUser(username)
		reason := "too_many_failures"
		if revoked > 0 {
			reason = "too_many_failures_sessions_revoked"
		}
		a.recordLogin(ctx, audit.EventAccountLocked, username, "", reason)
		return nil, ErrAccountLocked
	default:
		a.recordLogin(ctx, audit.EventLoginFailure, username, "", "invalid_credentials")
		return nil, ErrInvalidCredentials
	}
}

// Login authenticates and opens a session, returning the raw session token.
func (a *Authenticator) Login(ctx context.Context, username, password string) (string, *Identity, error) {
	id, err := a.Authenticate(ctx, username, password)
	if err != nil {
		return "", nil, err
	}
	token, err := a.tokens.IssueSessionToken(username)
	if err != nil {
		return "", nil, err
	}
	id.Method = MethodSession
	return token, id, nil
}

// AuthenticateToken resolves a bearer or session token.
func (a *Authenticator) AuthenticateToken(ctx context.Context, token string) (*Identity, error) {
	res, err := a.tokens.Resolve(token)
	if err != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("token", "failure").Inc()
		reason := "unknown_or_expired"
		if errors.Is(err, ErrTokenInvalid) && ValidateTokenFormat(token) != nil {
			reason = "malformed"
		}
		a.audit.Record(ctx, audit.NewEvent(audit.EventTokenInvalid).WithReason(reason))
		return nil, ErrTokenInvalid
	}
	id := &Identity{Username: res.Username, Role: res.Role, Method: MethodSession}
	if res.Kind == TokenKindAPI {
		id.Method = MethodAPIToken
	}
	metrics.AuthAttemptsTotal.WithLabelValues("token", "success").Inc()
	a.audit.Record(ctx, audit.NewEvent(audit.EventTokenValid).
		WithUser(id.Username, string(id.Role)).
		WithAuthMethod(string(id.Method)))
	return id, nil
}

// Logout ends the session of token. It is safe to call with an unknown token.
func (a *Authenticator) Logout(ctx context.Context, id *Identity, token string) {
	a.tokens.Revoke(token)
	e := audit.NewEvent(audit.EventLogout)
	if id != nil {
		e.WithUser(id.Username, string(id.Role)).WithAuthMethod(string(id.Method))
	}
	a.audit.Record(ctx, e)
}

func (a *Authenticator) recordLogin(ctx context.Context, t audit.EventType, username string, role rbac.Role, reason string) {
	outcome := "failure"
	if t == audit.EventLoginSuccess {
		outcome = "success"
	}
	metrics.AuthAttemptsTotal.WithLabelValues("password", outcome).Inc()
	a.audit.Record(ctx, audit.NewEvent(t).
		WithUser(username, string(role)).
		WithAuthMethod(string(MethodPassword)).
		WithReason(reason))
}
