package auth

import (
	"context"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alif-arrizqy/jspro-powerdesk-sub000/internal/audit"
	"github.com/alif-arrizqy/jspro-powerdesk-sub000/internal/rbac"
)

type authFixture struct {
	clock  clockwork.FakeClock
	ring   *audit.RingSink
	authn  *Authenticator
	tokens *TokenRegistry
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	clock := clockwork.NewFakeClockAt(testEpoch)
	creds := newTestStore(t, clock)
	tokens, err := NewTokenRegistry(clock, creds, testAPITokens())
	require.NoError(t, err)
	ring := audit.NewRingSink(100)
	return &authFixture{
		clock:  clock,
		ring:   ring,
		authn:  NewAuthenticator(creds, tokens, audit.NewLog(nil, clock, ring)),
		tokens: tokens,
	}
}

func (f *authFixture) events(t *testing.T) []audit.Event {
	t.Helper()
	events, err := f.ring.List(context.Background(), audit.Query{})
	require.NoError(t, err)
	return events
}

func TestAuthenticate_Success(t *testing.T) {
	f := newAuthFixture(t)

	id, err := f.authn.Authenticate(context.Background(), "teknisi", "teknisi-pass")
	require.NoError(t, err)
	assert.Equal(t, "teknisi", id.Username)
	assert.Equal(t, rbac.RoleTeknisi, id.Role)
	assert.Equal(t, MethodPassword, id.Method)

	events := f.events(t)
	require.Len(t, events, 1)
	assert.Equal(t, audit.EventLoginSuccess, events[0].EventType)
	assert.Equal(t, "teknisi", events[0].Username)
}

func TestAuthenticate_WrongPasswordAndUnknownUserLookAlike(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, errKnown := f.authn.Authenticate(ctx, "admin", "nope")
	_, errUnknown := f.authn.Authenticate(ctx, "ghost", "nope")

	assert.ErrorIs(t, errKnown, ErrInvalidCredentials)
	assert.ErrorIs(t, errUnknown, ErrInvalidCredentials)
	assert.Equal(t, errKnown.Error(), errUnknown.Error())

	events := f.events(t)
	require.Len(t, events, 2)
	for _, e := range events {
		assert.Equal(t, audit.EventLoginFailure, e.EventType)
	}
}

func TestAuthenticate_Lockout(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	for i := 0; i < MaxFailedAttempts-1; i++ {
		_, err := f.authn.Authenticate(ctx, "apt", "wrong")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	}
	_, err := f.authn.Authenticate(ctx, "apt", "wrong")
	assert.ErrorIs(t, err, ErrAccountLocked, "the attempt that reaches the threshold reports the lock")

	_, err = f.authn.Authenticate(ctx, "apt", "apt-pass")
	assert.ErrorIs(t, err, ErrAccountLocked, "correct password is refused while locked")

	events := f.events(t)
	require.Len(t, events, MaxFailedAttempts+1, "one event per call")
	assert.Equal(t, audit.EventAccountLocked, events[0].EventType)
	assert.Equal(t, "locked", events[0].Reason)
	assert.Equal(t, audit.EventAccountLocked, events[1].EventType)
	assert.Equal(t, "too_many_failures", events[1].Reason)

	f.clock.Advance(LockoutDuration)
	id, err := f.authn.Authenticate(ctx, "apt", "apt-pass")
	require.NoError(t, err)
	assert.Equal(t, rbac.RoleApt, id.Role)
}

func TestAuthenticate_LockRevokesSessions(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	tok, _, err := f.authn.Login(ctx, "teknisi", "teknisi-pass")
	require.NoError(t, err)

	for i := 0; i < MaxFailedAttempts; i++ {
		_, _ = f.authn.Authenticate(ctx, "teknisi", "wrong")
	}
	_, err = f.authn.AuthenticateToken(ctx, tok)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestLogin_IssuesSession(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	tok, id, err := f.authn.Login(ctx, "admin", "admin-pass")
	require.NoError(t, err)
	assert.NotEmpty(t, tok)
	assert.Equal(t, MethodSession, id.Method)

	got, err := f.authn.AuthenticateToken(ctx, tok)
	require.NoError(t, err)
	assert.Equal(t, "admin", got.Username)
	assert.Equal(t, rbac.RoleAdmin, got.Role)
	assert.Equal(t, MethodSession, got.Method)

	_, _, err = f.authn.Login(ctx, "admin", "bad")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticateToken_APIToken(t *testing.T) {
	f := newAuthFixture(t)

	id, err := f.authn.AuthenticateToken(context.Background(), testAPITokens()[rbac.RoleApt])
	require.NoError(t, err)
	assert.Empty(t, id.Username)
	assert.Equal(t, rbac.RoleApt, id.Role)
	assert.Equal(t, MethodAPIToken, id.Method)
	assert.Equal(t, "api:apt", id.Subject())

	events := f.events(t)
	require.Len(t, events, 1)
	assert.Equal(t, audit.EventTokenValid, events[0].EventType)
	assert.Equal(t, "api_token", events[0].AuthMethod)
}

func TestAuthenticateToken_Invalid(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.authn.AuthenticateToken(ctx, "x")
	assert.ErrorIs(t, err, ErrTokenInvalid)

	tok, _, err := f.authn.Login(ctx, "apt", "apt-pass")
	require.NoError(t, err)
	f.clock.Advance(SessionTTL)
	_, err = f.authn.AuthenticateToken(ctx, tok)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	events := f.events(t)
	require.Len(t, events, 3)
	assert.Equal(t, audit.EventTokenInvalid, events[0].EventType)
	assert.Equal(t, "unknown_or_expired", events[0].Reason)
	assert.Equal(t, audit.EventTokenInvalid, events[2].EventType)
	assert.Equal(t, "malformed", events[2].Reason)
}

func TestLogout(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	tok, id, err := f.authn.Login(ctx, "admin", "admin-pass")
	require.NoError(t, err)

	f.authn.Logout(ctx, id, tok)
	f.authn.Logout(ctx, nil, tok)

	_, err = f.authn.AuthenticateToken(ctx, tok)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	events := f.events(t)
	require.GreaterOrEqual(t, len(events), 3)
	assert.Equal(t, audit.EventLogout, events[1].EventType)
	assert.Equal(t, audit.EventLogout, events[2].EventType)
	assert.Equal(t, "admin", events[2].Username)
}

func TestIdentitySubject(t *testing.T) {
	var nilID *Identity
	assert.Equal(t, "", nilID.Subject())
	assert.Equal(t, "teknisi", (&Identity{Username: "teknisi", Role: rbac.RoleTeknisi}).Subject())
}
