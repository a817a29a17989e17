package middleware

import (
	"bytes"
	"context"
	"encoding/base64"
	"net/http"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/alif-arrizqy/jspro-powerdesk-sub000/internal/audit"
	"github.com/alif-arrizqy/jspro-powerdesk-sub000/internal/auth"
	"github.com/alif-arrizqy/jspro-powerdesk-sub000/internal/guard"
	"github.com/alif-arrizqy/jspro-powerdesk-sub000/internal/rbac"
)

const testSecret = "middleware-test-secret-key-0123456789abcdef"

func apiToken(b byte) string {
	return base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{b}, 32))
}

type fixture struct {
	clock    clockwork.FakeClock
	ring     *audit.RingSink
	authn    *auth.Authenticator
	codec    *auth.CookieCodec
	identity *Identity
	access   *Access
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	creds, err := auth.NewCredentialStore(clock, []auth.UserCredential{
		{Username: "admin", Password: "admin-pass", Role: rbac.RoleAdmin},
		{Username: "teknisi", Password: "teknisi-pass", Role: rbac.RoleTeknisi},
		{Username: "apt", Password: "apt-pass", Role: rbac.RoleApt},
	}, auth.WithBcryptCost(bcrypt.MinCost))
	require.NoError(t, err)
	tokens, err := auth.NewTokenRegistry(clock, creds, map[rbac.Role]string{
		rbac.RoleAdmin:   apiToken('a'),
		rbac.RoleTeknisi: apiToken('t'),
		rbac.RoleApt:     apiToken('p'),
	})
	require.NoError(t, err)
	codec, err := auth.NewCookieCodec(testSecret, clock)
	require.NoError(t, err)

	ring := audit.NewRingSink(200)
	rec := audit.NewLog(nil, clock, ring)
	authn := auth.NewAuthenticator(creds, tokens, rec)
	return &fixture{
		clock:    clock,
		ring:     ring,
		authn:    authn,
		codec:    codec,
		identity: NewIdentity(authn, codec, false),
		access:   NewAccess(guard.New(rbac.Default(), rec), false),
	}
}

// sessionCookie logs username in and returns the signed cookie.
func (f *fixture) sessionCookie(t *testing.T, username, password string) *http.Cookie {
	t.Helper()
	token, _, err := f.authn.Login(context.Background(), username, password)
	require.NoError(t, err)
	c, err := f.codec.Cookie(token, false)
	require.NoError(t, err)
	return c
}

func (f *fixture) lastEvent(t *testing.T) audit.Event {
	t.Helper()
	events, err := f.ring.List(context.Background(), audit.Query{Limit: 1})
	require.NoError(t, err)
	require.NotEmpty(t, events)
	return events[0]
}

// identityEcho reports the resolved identity in response headers.
func identityEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := auth.IdentityFromContext(r.Context()); id != nil {
			w.Header().Set("X-User", id.Username)
			w.Header().Set("X-Role", string(id.Role))
			w.Header().Set("X-Method", string(id.Method))
		}
		w.WriteHeader(http.StatusOK)
	})
}
