package auth

import (
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
)

const (
	// SessionCookieName carries the signed session token for browser logins.
	SessionCookieName = "powerdesk_session"
	// MinSecretKeyLength is the minimum length of the cookie signing key.
	MinSecretKeyLength = 32

	cookieIssuer = "powerdesk"
)

type sessionClaims struct {
	jwt.RegisteredClaims
	Token string `json:"tok"`
}

// CookieCodec signs session tokens into cookie values (HS256) and verifies them on the way back.
// The signature stops forged cookies before the session table is consulted.
type CookieCodec struct {
	secret []byte
	clock  clockwork.Clock
	ttl    time.Duration
}

// NewCookieCodec returns a codec signing with secret.
func NewCookieCodec(secret string, clock clockwork.Clock) (*CookieCodec, error) {
	if len(secret) < MinSecretKeyLength {
		return nil, fmt.Errorf("secret key must be at least %d characters", MinSecretKeyLength)
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &CookieCodec{secret: []byte(secret), clock: clock, ttl: SessionTTL}, nil
}

// Encode wraps a session token in a signed JWT.
func (c *CookieCodec) Encode(token string) (string, error) {
	now := c.clock.Now()
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cookieIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
		Token: token,
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(c.secret)
}

// Decode verifies a cookie value and returns the session token inside.
func (c *CookieCodec) Decode(value string) (string, error) {
	tok, err := jwt.ParseWithClaims(value, &sessionClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(cookieIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.clock.Now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	claims, ok := tok.Claims.(*sessionClaims)
	if !ok || !tok.Valid || claims.Token == "" {
		return "", ErrTokenInvalid
	}
	return claims.Token, nil
}

// Cookie builds the session cookie for token.
func (c *CookieCodec) Cookie(token string, secure bool) (*http.Cookie, error) {
	value, err := c.Encode(token)
	if err != nil {
		return nil, err
	}
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Path:     "/",
		Expires:  c.clock.Now().Add(c.ttl),
		MaxAge:   int(c.ttl.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}, nil
}

// ClearSessionCookie expires the session cookie in the browser.
func ClearSessionCookie(secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}
