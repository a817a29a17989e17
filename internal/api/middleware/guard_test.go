package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alif-arrizqy/jspro-powerdesk-sub000/internal/audit"
	"github.com/alif-arrizqy/jspro-powerdesk-sub000/internal/rbac"
)

// reached fails the test if a denied request gets through.
func reached(t *testing.T, hit *bool) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*hit = true
		w.WriteHeader(http.StatusOK)
	})
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

func TestAccessEndpoint_Unauthenticated401(t *testing.T) {
	f := newFixture(t)
	var hit bool
	h := f.identity.API(f.access.Endpoint(reached(t, &hit)))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/monitoring/scc", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
	assert.Equal(t, "Authentication required", errorBody(t, rec))
	assert.False(t, hit)

	e := f.lastEvent(t)
	assert.Equal(t, audit.EventAccessDenied, e.EventType)
	assert.Equal(t, "unauthenticated", e.Reason)
	assert.Equal(t, "/api/v1/monitoring/scc", e.Resource)
}

func TestAccessEndpoint_Forbidden403(t *testing.T) {
	f := newFixture(t)
	var hit bool
	h := f.identity.API(f.access.Endpoint(reached(t, &hit)))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/power/reboot", nil)
	req.Header.Set("Authorization", "Bearer "+apiToken('p'))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, rec.Header().Get("WWW-Authenticate"))
	assert.Equal(t, "Insufficient permissions", errorBody(t, rec))
	assert.False(t, hit)
}

func TestAccessEndpoint_ActionChecked(t *testing.T) {
	f := newFixture(t)
	var hit bool
	h := f.identity.API(f.access.Endpoint(reached(t, &hit)))

	// teknisi may reach /api/v1/power/* and holds reboot, but not shutdown.
	req := httptest.NewRequest(http.MethodPost, "/api/v1/power/shutdown", nil)
	req.Header.Set("Authorization", "Bearer "+apiToken('t'))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, hit)
	e := f.lastEvent(t)
	assert.Equal(t, "action", e.ResourceType)
	assert.Equal(t, rbac.ActionShutdown, e.Resource)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/power/reboot", nil)
	req.Header.Set("Authorization", "Bearer "+apiToken('t'))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, hit)
}

func TestAccessEndpoint_AdminAllowed(t *testing.T) {
	f := newFixture(t)
	var hit bool
	h := f.identity.API(f.access.Endpoint(reached(t, &hit)))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/services/mqtt/logs", nil)
	req.Header.Set("Authorization", "Bearer "+apiToken('a'))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, hit)
	assert.Equal(t, audit.EventAccessGranted, f.lastEvent(t).EventType)
}

func TestAccessPage_AnonymousRedirectsToLogin(t *testing.T) {
	f := newFixture(t)
	var hit bool
	h := f.identity.Web(f.access.Page(rbac.PageBatteryMonitoring)(reached(t, &hit)))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/battery", nil))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
	assert.False(t, hit)

	flash := flashFromResponse(t, rec)
	require.NotNil(t, flash)
	assert.Equal(t, FlashWarning, flash.Category)
}

func TestAccessPage_TeknisiForbiddenMQTT(t *testing.T) {
	f := newFixture(t)
	cookie := f.sessionCookie(t, "teknisi", "teknisi-pass")

	var hit bool
	battery := f.identity.Web(f.access.Page(rbac.PageBatteryMonitoring)(reached(t, &hit)))
	req := httptest.NewRequest(http.MethodGet, "/battery", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	battery.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, hit)

	hit = false
	mqtt := f.identity.Web(f.access.Page(rbac.PageMQTTService)(reached(t, &hit)))
	req = httptest.NewRequest(http.MethodGet, "/mqtt", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	mqtt.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	assert.False(t, hit)
	flash := flashFromResponse(t, rec)
	require.NotNil(t, flash)
	assert.Equal(t, FlashError, flash.Category)

	e := f.lastEvent(t)
	assert.Equal(t, audit.EventAccessDenied, e.EventType)
	assert.Equal(t, rbac.PageMQTTService, e.Resource)
	assert.Equal(t, "teknisi", e.Username)
}

func TestAccessAction(t *testing.T) {
	f := newFixture(t)
	var hit bool
	h := f.identity.API(f.access.Action(rbac.ActionViewAudit)(reached(t, &hit)))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/audit", nil)
	req.Header.Set("Authorization", "Bearer "+apiToken('t'))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, hit)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/audit", nil)
	req.Header.Set("Authorization", "Bearer "+apiToken('a'))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, hit)
}

func TestAccessAuthenticated(t *testing.T) {
	f := newFixture(t)
	var hit bool
	h := f.identity.API(f.access.Authenticated(reached(t, &hit)))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, hit)
	e := f.lastEvent(t)
	assert.Equal(t, audit.EventAccessDenied, e.EventType)
	assert.Equal(t, "/api/v1/auth/me", e.Resource)
	assert.Equal(t, "unauthenticated", e.Reason)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+apiToken('p'))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func flashFromResponse(t *testing.T, rec *httptest.ResponseRecorder) *Flash {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	return PopFlash(httptest.NewRecorder(), req, false)
}
