package guard

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alif-arrizqy/jspro-powerdesk-sub000/internal/audit"
	"github.com/alif-arrizqy/jspro-powerdesk-sub000/internal/auth"
	"github.com/alif-arrizqy/jspro-powerdesk-sub000/internal/rbac"
)

func newTestGuard(t *testing.T) (*Guard, *audit.RingSink) {
	t.Helper()
	ring := audit.NewRingSink(50)
	return New(rbac.Default(), audit.NewLog(nil, nil, ring)), ring
}

func lastEvent(t *testing.T, ring *audit.RingSink) audit.Event {
	t.Helper()
	events, err := ring.List(context.Background(), audit.Query{Limit: 1})
	require.NoError(t, err)
	require.Len(t, events, 1)
	return events[0]
}

var (
	teknisi = &auth.Identity{Username: "teknisi", Role: rbac.RoleTeknisi, Method: auth.MethodSession}
	admin   = &auth.Identity{Username: "admin", Role: rbac.RoleAdmin, Method: auth.MethodSession}
	aptAPI  = &auth.Identity{Role: rbac.RoleApt, Method: auth.MethodAPIToken}
)

func TestAuthorizePage_TeknisiBatteryAllowedMQTTDenied(t *testing.T) {
	g, ring := newTestGuard(t)
	ctx := context.Background()

	d := g.AuthorizePage(ctx, teknisi, rbac.PageBatteryMonitoring)
	assert.True(t, d.Allowed)
	assert.NoError(t, d.Err())
	e := lastEvent(t, ring)
	assert.Equal(t, audit.EventAccessGranted, e.EventType)
	assert.Equal(t, rbac.PageBatteryMonitoring, e.Resource)

	d = g.AuthorizePage(ctx, teknisi, rbac.PageMQTTService)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonForbidden, d.Reason)
	assert.ErrorIs(t, d.Err(), auth.ErrPermissionDenied)

	e = lastEvent(t, ring)
	assert.Equal(t, audit.EventAccessDenied, e.EventType)
	assert.Equal(t, "teknisi", e.Username)
	assert.Equal(t, "teknisi", e.Role)
	assert.Equal(t, rbac.PageMQTTService, e.Resource)
	assert.Equal(t, string(KindPage), e.ResourceType)
	assert.Equal(t, "forbidden", e.Reason)
}

func TestAuthorize_Unauthenticated(t *testing.T) {
	g, ring := newTestGuard(t)
	ctx := context.Background()

	for _, d := range []Decision{
		g.AuthorizePage(ctx, nil, rbac.PageDashboard),
		g.AuthorizeAction(ctx, nil, rbac.ActionViewTelemetry),
		g.AuthorizeEndpoint(ctx, nil, "/api/v1/monitoring/scc"),
		g.AuthorizeAuthenticated(ctx, nil, "/api/v1/auth/me"),
	} {
		assert.False(t, d.Allowed)
		assert.Equal(t, ReasonUnauthenticated, d.Reason)
		assert.True(t, errors.Is(d.Err(), auth.ErrTokenInvalid))
	}
	assert.Equal(t, 4, ring.Len(), "every decision is audited")
	assert.Equal(t, "unauthenticated", lastEvent(t, ring).Reason)
}

func TestAuthorizeEndpoint(t *testing.T) {
	g, _ := newTestGuard(t)
	ctx := context.Background()

	assert.True(t, g.AuthorizeEndpoint(ctx, admin, "/api/v1/services/mqtt/logs").Allowed)
	assert.True(t, g.AuthorizeEndpoint(ctx, aptAPI, "/api/v1/monitoring/battery").Allowed)
	assert.False(t, g.AuthorizeEndpoint(ctx, aptAPI, "/api/v1/power/reboot").Allowed)
	assert.False(t, g.AuthorizeEndpoint(ctx, teknisi, "/api/v1/services/mqtt/logs").Allowed)
}

func TestAuthorizeAction(t *testing.T) {
	g, ring := newTestGuard(t)
	ctx := context.Background()

	assert.True(t, g.AuthorizeAction(ctx, teknisi, rbac.ActionReboot).Allowed)
	d := g.AuthorizeAction(ctx, teknisi, rbac.ActionShutdown)
	assert.False(t, d.Allowed)
	assert.Equal(t, KindAction, d.Request.Kind)
	assert.Equal(t, "action", lastEvent(t, ring).ResourceType)
}

func TestUnknownRoleIdentity_Denied(t *testing.T) {
	g, _ := newTestGuard(t)
	ghost := &auth.Identity{Username: "ghost", Role: rbac.Role("root")}

	d := g.AuthorizePage(context.Background(), ghost, rbac.PageDashboard)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonForbidden, d.Reason)
}

func TestNilRecorder(t *testing.T) {
	g := New(rbac.Default(), nil)
	assert.True(t, g.AuthorizePage(context.Background(), admin, rbac.PageDashboard).Allowed)
	assert.NotNil(t, g.Policy())
}

func TestAuthorizeAuthenticated(t *testing.T) {
	g, ring := newTestGuard(t)
	ctx := context.Background()

	d := g.AuthorizeAuthenticated(ctx, &auth.Identity{Username: "api:apt", Role: rbac.RoleApt, Method: auth.MethodAPIToken}, "/api/v1/auth/menu")
	assert.True(t, d.Allowed)
	assert.Equal(t, audit.EventAccessGranted, lastEvent(t, ring).EventType)

	d = g.AuthorizeAuthenticated(ctx, nil, "/api/v1/auth/logout")
	assert.False(t, d.Allowed)
	e := lastEvent(t, ring)
	assert.Equal(t, audit.EventAccessDenied, e.EventType)
	assert.Equal(t, "/api/v1/auth/logout", e.Resource)
	assert.Equal(t, string(KindEndpoint), e.ResourceType)
	assert.Equal(t, "unauthenticated", e.Reason)
}
