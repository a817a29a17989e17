package audit

import (
	"context"
	"time"
)

// EventType identifies what was audited.
type EventType string

const (
	// Authentication events
	EventLoginSuccess  EventType = "login_success"
	EventLoginFailure  EventType = "login_failure"
	EventAccountLocked EventType = "account_locked"
	EventTokenValid    EventType = "token_valid"
	EventTokenInvalid  EventType = "token_invalid"
	EventLogout        EventType = "logout"

	// Administration events
	EventSessionRevoked  EventType = "session_revoked"
	EventAccountUnlocked EventType = "account_unlocked"
	EventSessionsSwept   EventType = "sessions_swept"

	// Authorization events
	EventAccessGranted EventType = "access_granted"
	EventAccessDenied  EventType = "access_denied"
)

// Result is the outcome of the audited step.
type Result string

const (
	ResultSuccess Result = "success"
	ResultFailure Result = "failure"
	ResultAllowed Result = "allowed"
	ResultDenied  Result = "denied"
)

// Event is a single audit record.
type Event struct {
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	EventType    EventType `json:"event_type"`
	Result       Result    `json:"result"`
	Username     string    `json:"username,omitempty"`
	Role         string    `json:"role,omitempty"`
	AuthMethod   string    `json:"auth_method,omitempty"`
	Resource     string    `json:"resource,omitempty"`
	ResourceType string    `json:"resource_type,omitempty"`
	Reason       string    `json:"reason,omitempty"`
	SourceIP     string    `json:"source_ip,omitempty"`
	RequestID    string    `json:"request_id,omitempty"`
}

// NewEvent creates an event with a default result derived from its type.
func NewEvent(eventType EventType) *Event {
	e := &Event{EventType: eventType, Result: ResultSuccess}
	switch eventType {
	case EventLoginFailure, EventAccountLocked, EventTokenInvalid:
		e.Result = ResultFailure
	case EventAccessGranted:
		e.Result = ResultAllowed
	case EventAccessDenied:
		e.Result = ResultDenied
	}
	return e
}

// WithUser sets the actor.
func (e *Event) WithUser(username, role string) *Event {
	e.Username = username
	e.Role = role
	return e
}

// WithAuthMethod records how the actor authenticated.
func (e *Event) WithAuthMethod(method string) *Event {
	e.AuthMethod = method
	return e
}

// WithResource sets the resource being accessed
func (e *Event) WithResource(resource, resourceType string) *Event {
	e.Resource = resource
	e.ResourceType = resourceType
	return e
}

// WithReason records why the outcome happened, e.g. a deny reason.
func (e *Event) WithReason(reason string) *Event {
	e.Reason = reason
	return e
}

// WithResult overrides the result NewEvent derived from the event type.
func (e *Event) WithResult(result Result) *Event {
	e.Result = result
	return e
}

// Recorder accepts audit events. Implementations never fail the caller.
type Recorder interface {
	Record(ctx context.Context, e *Event)
}

// Query filters audit listings. Zero values match everything; Limit 0 means the default.
type Query struct {
	EventType EventType
	Username  string
	Since     time.Time
	Limit     int
}

const (
	DefaultListLimit = 100
	MaxListLimit     = 1000
)

// EffectiveLimit clamps q.Limit to [1, MaxListLimit].
func (q Query) EffectiveLimit() int {
	switch {
	case q.Limit <= 0:
		return DefaultListLimit
	case q.Limit > MaxListLimit:
		return MaxListLimit
	}
	return q.Limit
}

// Matches reports whether e passes the filter.
func (q Query) Matches(e *Event) bool {
	if q.EventType != "" && e.EventType != q.EventType {
		return false
	}
	if q.Username != "" && e.Username != q.Username {
		return false
	}
	if !q.Since.IsZero() && e.Timestamp.Before(q.Since) {
		return false
	}
	return true
}

// Lister returns recent events, newest first.
type Lister interface {
	List(ctx context.Context, q Query) ([]Event, error)
}

type contextKey string

const sourceIPKey contextKey = "audit_source_ip"

// WithSourceIP stores the client address for events recorded under ctx.
func WithSourceIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, sourceIPKey, ip)
}

// SourceIPFromContext returns the client address, or empty string.
func SourceIPFromContext(ctx context.Context) string {
	if ip, ok := ctx.Value(sourceIPKey).(string); ok {
		return ip
	}
	return ""
}
