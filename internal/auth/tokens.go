package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/alif-arrizqy/jspro-powerdesk-sub000/internal/rbac"
)

const (
	// SessionTTL is the lifetime of a login session.
	SessionTTL = 24 * time.Hour
	// MinTokenBytes is the minimum decoded length of any bearer token.
	MinTokenBytes = 16

	sessionTokenBytes = 32
	sessionIDLength   = 12
)

// TokenKind says where a token was resolved.
type TokenKind string

const (
	TokenKindAPI     TokenKind = "api_token"
	TokenKindSession TokenKind = "session"
)

// RoleLookup resolves the role of a username.
type RoleLookup interface {
	Role(username string) (rbac.Role, bool)
}

// Resolution is the result of a successful token lookup. Username is empty for API tokens.
type Resolution struct {
	Kind     TokenKind
	Role     rbac.Role
	Username string
}

// Session is a login session as seen by administrators. ID is a short prefix of the stored hash,
// never the token itself.
type Session struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Role      rbac.Role `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

type sessionEntry struct {
	username  string
	role      rbac.Role
	createdAt time.Time
	expiresAt time.Time
}

type apiToken struct {
	token []byte
	role  rbac.Role
}

// TokenRegistry resolves bearer tokens: a static table of API tokens plus a session table
// keyed by the SHA-256 of each session token.
type TokenRegistry struct {
	clock     clockwork.Clock
	users     RoleLookup
	apiTokens []apiToken
	ttl       time.Duration

	mu       sync.RWMutex
	sessions map[string]sessionEntry
}

// NewTokenRegistry validates the configured API tokens and returns an empty session table.
func NewTokenRegistry(clock clockwork.Clock, users RoleLookup, apiTokens map[rbac.Role]string) (*TokenRegistry, error) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	r := &TokenRegistry{
		clock:    clock,
		users:    users,
		ttl:      SessionTTL,
		sessions: make(map[string]sessionEntry),
	}
	for role := range apiTokens {
		if !role.Valid() {
			return nil, fmt.Errorf("api token for unknown role %q", role)
		}
	}
	seen := make(map[string]rbac.Role, len(apiTokens))
	for _, role := range rbac.AllRoles {
		tok, ok := apiTokens[role]
		if !ok {
			continue
		}
		if err := ValidateTokenFormat(tok); err != nil {
			return nil, fmt.Errorf("api token for %s: %w", role, err)
		}
		if other, dup := seen[tok]; dup {
			return nil, fmt.Errorf("api token for %s duplicates the token for %s", role, other)
		}
		seen[tok] = role
		r.apiTokens = append(r.apiTokens, apiToken{token: []byte(tok), role: role})
	}
	return r, nil
}

// ValidateTokenFormat rejects empty tokens, tokens that are not base64 in any of the standard
// or URL alphabets, and tokens shorter than MinTokenBytes once decoded.
func ValidateTokenFormat(token string) error {
	if token == "" {
		return fmt.Errorf("%w: empty", ErrTokenInvalid)
	}
	raw, ok := decodeToken(token)
	if !ok {
		return fmt.Errorf("%w: not base64", ErrTokenInvalid)
	}
	if len(raw) < MinTokenBytes {
		return fmt.Errorf("%w: shorter than %d bytes", ErrTokenInvalid, MinTokenBytes)
	}
	return nil
}

func decodeToken(token string) ([]byte, bool) {
	encodings := []*base64.Encoding{
		base64.RawURLEncoding,
		base64.URLEncoding,
		base64.StdEncoding,
		base64.RawStdEncoding,
	}
	for _, enc := range encodings {
		if b, err := enc.DecodeString(token); err == nil {
			return b, true
		}
	}
	return nil, false
}

// HashToken returns the storage key of a session token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// Resolve maps a presented token to a role. API tokens are compared in constant time; session
// tokens are looked up by hash and expired entries are removed on sight.
func (r *TokenRegistry) Resolve(token string) (Resolution, error) {
	if err := ValidateTokenFormat(token); err != nil {
		return Resolution{}, err
	}

	if role, ok := r.matchAPIToken(token); ok {
		return Resolution{Kind: TokenKindAPI, Role: role}, nil
	}

	key := HashToken(token)
	r.mu.RLock()
	entry, ok := r.sessions[key]
	r.mu.RUnlock()
	if !ok {
		return Resolution{}, ErrTokenInvalid
	}
	if !r.clock.Now().Before(entry.expiresAt) {
		r.mu.Lock()
		if e, still := r.sessions[key]; still && !r.clock.Now().Before(e.expiresAt) {
			delete(r.sessions, key)
		}
		r.mu.Unlock()
		return Resolution{}, ErrTokenInvalid
	}
	return Resolution{Kind: TokenKindSession, Role: entry.role, Username: entry.username}, nil
}

func (r *TokenRegistry) matchAPIToken(token string) (rbac.Role, bool) {
	presented := []byte(token)
	var match rbac.Role
	found := 0
	for _, t := range r.apiTokens {
		if subtle.ConstantTimeCompare(presented, t.token) == 1 {
			match = t.role
			found = 1
		}
	}
	return match, found == 1
}

// IssueSessionToken creates a session for username and returns the raw token. The raw token
// is not kept; only its hash is stored.
func (r *TokenRegistry) IssueSessionToken(username string) (string, error) {
	if r.users == nil {
		return "", ErrUnknownUser
	}
	role, ok := r.users.Role(username)
	if !ok {
		return "", ErrUnknownUser
	}
	buf := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(buf)
	now := r.clock.Now()

	r.mu.Lock()
	r.sessions[HashToken(token)] = sessionEntry{
		username:  username,
		role:      role,
		createdAt: now,
		expiresAt: now.Add(r.ttl),
	}
	r.mu.Unlock()
	return token, nil
}

// Revoke removes the session of token. Unknown, malformed and API tokens are ignored.
func (r *TokenRegistry) Revoke(token string) {
	if ValidateTokenFormat(token) != nil {
		return
	}
	key := HashToken(token)
	r.mu.Lock()
	delete(r.sessions, key)
	r.mu.Unlock()
}

// RevokeUser removes every session of username and returns how many were removed.
func (r *TokenRegistry) RevokeUser(username string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for key, e := range r.sessions {
		if e.username == username {
			delete(r.sessions, key)
			n++
		}
	}
	return n
}

// SweepExpired deletes every expired session and returns the count.
func (r *TokenRegistry) SweepExpired() int {
	now := r.clock.Now()
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for key, e := range r.sessions {
		if !now.Before(e.expiresAt) {
			delete(r.sessions, key)
			n++
		}
	}
	return n
}

// Count returns the number of stored sessions, expired ones included until swept.
func (r *TokenRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sessions lists live sessions, oldest first.
func (r *TokenRegistry) Sessions() []Session {
	now := r.clock.Now()
	r.mu.RLock()
	out := make([]Session, 0, len(r.sessions))
	for key, e := range r.sessions {
		if !now.Before(e.expiresAt) {
			continue
		}
		out = append(out, Session{
			ID:        key[:sessionIDLength],
			Username:  e.username,
			Role:      e.role,
			CreatedAt: e.createdAt,
			ExpiresAt: e.expiresAt,
		})
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// RunSweeper calls SweepExpired every interval until ctx is done. onSweep, if set, receives
// the number of removed sessions after each pass.
func (r *TokenRegistry) RunSweeper(ctx context.Context, interval time.Duration, onSweep func(removed int)) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := r.clock.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			n := r.SweepExpired()
			if onSweep != nil {
				onSweep(n)
			}
		}
	}
}
