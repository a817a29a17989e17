// Package guard turns permission checks into audited allow/deny decisions.
package guard

import (
	"context"

	"github.com/alif-arrizqy/jspro-powerdesk-sub000/internal/audit"
	"github.com/alif-arrizqy/jspro-powerdesk-sub000/internal/auth"
	"github.com/alif-arrizqy/jspro-powerdesk-sub000/internal/pkg/metrics"
	"github.com/alif-arrizqy/jspro-powerdesk-sub000/internal/rbac"
)

// Kind is the type of resource being checked.
type Kind string

const (
	KindPage     Kind = "page"
	KindAction   Kind = "action"
	KindEndpoint Kind = "api_endpoint"
)

// Reason explains a deny.
type Reason string

const (
	ReasonNone            Reason = ""
	ReasonUnauthenticated Reason = "unauthenticated"
	ReasonForbidden       Reason = "forbidden"
)

// Request is one permission check: who, what kind, which target.
type Request struct {
	Username string
	Role     rbac.Role
	Kind     Kind
	Target   string
}

// Decision is the outcome of a check.
type Decision struct {
	Allowed bool
	Reason  Reason
	Request Request
}

// Err maps a deny to the auth error taxonomy; nil when allowed.
func (d Decision) Err() error {
	switch {
	case d.Allowed:
		return nil
	case d.Reason == ReasonUnauthenticated:
		return auth.ErrTokenInvalid
	default:
		return auth.ErrPermissionDenied
	}
}

// Guard decides and audits access for pages, actions and API endpoints.
type Guard struct {
	policy *rbac.Policy
	audit  audit.Recorder
}

// New returns a Guard over policy.
func New(policy *rbac.Policy, rec audit.Recorder) *Guard {
	if rec == nil {
		rec = audit.Nop{}
	}
	return &Guard{policy: policy, audit: rec}
}

// Policy returns the permission model the guard checks against.
func (g *Guard) Policy() *rbac.Policy { return g.policy }

// AuthorizePage checks a page id.
func (g *Guard) AuthorizePage(ctx context.Context, id *auth.Identity, pageID string) Decision {
	return g.decide(ctx, id, KindPage, pageID, g.policy.CanAccessPage)
}

// AuthorizeAction checks an action id.
func (g *Guard) AuthorizeAction(ctx context.Context, id *auth.Identity, actionID string) Decision {
	return g.decide(ctx, id, KindAction, actionID, g.policy.CanPerformAction)
}

// AuthorizeEndpoint checks a request path against the role's endpoint rules.
func (g *Guard) AuthorizeEndpoint(ctx context.Context, id *auth.Identity, path string) Decision {
	return g.decide(ctx, id, KindEndpoint, path, g.policy.CanAccessEndpoint)
}

// AuthorizeAuthenticated admits any identity to path; only anonymous callers are denied. Used for
// routes every role may call.
func (g *Guard) AuthorizeAuthenticated(ctx context.Context, id *auth.Identity, path string) Decision {
	return g.decide(ctx, id, KindEndpoint, path, func(rbac.Role, string) bool { return true })
}

func (g *Guard) decide(ctx context.Context, id *auth.Identity, kind Kind, target string, allowed func(rbac.Role, string) bool) Decision {
	d := Decision{Request: Request{Kind: kind, Target: target}}
	switch {
	case id == nil:
		d.Reason = ReasonUnauthenticated
	default:
		d.Request.Username = id.Username
		d.Request.Role = id.Role
		if allowed(id.Role, target) {
			d.Allowed = true
		} else {
			d.Reason = ReasonForbidden
		}
	}
	g.record(ctx, id, d)
	return d
}

func (g *Guard) record(ctx context.Context, id *auth.Identity, d Decision) {
	eventType := audit.EventAccessGranted
	decision := "allow"
	if !d.Allowed {
		eventType = audit.EventAccessDenied
		decision = "deny"
	}
	metrics.AccessDecisionsTotal.WithLabelValues(string(d.Request.Kind), decision).Inc()

	e := audit.NewEvent(eventType).
		WithUser(d.Request.Username, string(d.Request.Role)).
		WithResource(d.Request.Target, string(d.Request.Kind)).
		WithReason(string(d.Reason))
	if id != nil {
		e.WithAuthMethod(string(id.Method))
	}
	g.audit.Record(ctx, e)
}
