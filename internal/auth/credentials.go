package auth

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/crypto/bcrypt"

	"github.com/alif-arrizqy/jspro-powerdesk-sub000/internal/rbac"
)

const (
	// MaxFailedAttempts consecutive failures lock the account.
	MaxFailedAttempts = 5
	// LockoutDuration is how long a locked account stays locked.
	LockoutDuration = 30 * time.Minute
)

// UserCredential is the startup input for one account. Password may be plaintext or a bcrypt hash.
type UserCredential struct {
	Username string
	Password string
	Role     rbac.Role
}

// Account is a point-in-time copy of an account's state.
type Account struct {
	Username       string     `json:"username"`
	Role           rbac.Role  `json:"role"`
	LastLogin      *time.Time `json:"last_login,omitempty"`
	FailedAttempts int        `json:"failed_attempts"`
	LockedUntil    *time.Time `json:"locked_until,omitempty"`
}

// IsLocked returns true if the account was locked at the time of the snapshot.
func (a Account) IsLocked(now time.Time) bool {
	return a.LockedUntil != nil && now.Before(*a.LockedUntil)
}

type account struct {
	mu             sync.Mutex
	username       string
	passwordHash   string
	role           rbac.Role
	lastLogin      *time.Time
	failedAttempts int
	lockedUntil    *time.Time
}

// checkLockLocked reports whether the account is locked at now and clears an expired lock.
// Caller must hold a.mu.
func (a *account) checkLockLocked(now time.Time) bool {
	if a.lockedUntil == nil {
		return false
	}
	if now.Before(*a.lockedUntil) {
		return true
	}
	a.lockedUntil = nil
	a.failedAttempts = 0
	return false
}

func (a *account) snapshotLocked() Account {
	s := Account{
		Username:       a.username,
		Role:           a.role,
		FailedAttempts: a.failedAttempts,
	}
	if a.lastLogin != nil {
		t := *a.lastLogin
		s.LastLogin = &t
	}
	if a.lockedUntil != nil {
		t := *a.lockedUntil
		s.LockedUntil = &t
	}
	return s
}

type verifyResult int

const (
	verifyOK verifyResult = iota
	verifyFailed
	verifyLocked
	verifyLockTriggered
)

// CredentialStore holds the fixed set of dashboard accounts and their lockout state.
// The account set is built once; each account serializes its own counter updates.
type CredentialStore struct {
	clock     clockwork.Clock
	accounts  map[string]*account
	dummyHash []byte
}

// CredentialOption customizes a CredentialStore.
type CredentialOption func(*credentialOptions)

type credentialOptions struct {
	cost int
}

// WithBcryptCost overrides the hashing cost for plaintext passwords.
func WithBcryptCost(cost int) CredentialOption {
	return func(o *credentialOptions) { o.cost = cost }
}

// NewCredentialStore hashes the given credentials and returns the store.
func NewCredentialStore(clock clockwork.Clock, users []UserCredential, opts ...CredentialOption) (*CredentialStore, error) {
	o := credentialOptions{cost: bcryptCost}
	for _, opt := range opts {
		opt(&o)
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	s := &CredentialStore{
		clock:    clock,
		accounts: make(map[string]*account, len(users)),
	}
	for _, u := range users {
		if u.Username == "" {
			return nil, fmt.Errorf("credential store: empty username")
		}
		if !u.Role.Valid() {
			return nil, fmt.Errorf("credential store: user %s: invalid role %q", u.Username, u.Role)
		}
		if u.Password == "" {
			return nil, fmt.Errorf("credential store: user %s: empty password", u.Username)
		}
		if _, dup := s.accounts[u.Username]; dup {
			return nil, fmt.Errorf("credential store: duplicate user %s", u.Username)
		}
		hash := u.Password
		if !IsBcryptHash(hash) {
			h, err := HashPasswordCost(u.Password, o.cost)
			if err != nil {
				return nil, fmt.Errorf("credential store: hash password for %s: %w", u.Username, err)
			}
			hash = h
		}
		s.accounts[u.Username] = &account{username: u.Username, passwordHash: hash, role: u.Role}
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte("powerdesk-dummy-password"), o.cost)
	if err != nil {
		return nil, fmt.Errorf("credential store: dummy hash: %w", err)
	}
	s.dummyHash = dummy
	return s, nil
}

// VerifyPassword checks a login attempt and updates the lockout state. It returns false for
// unknown usernames, wrong passwords and locked accounts.
func (s *CredentialStore) VerifyPassword(username, plaintext string) bool {
	return s.verify(username, plaintext) == verifyOK
}

func (s *CredentialStore) verify(username, plaintext string) verifyResult {
	acc, ok := s.accounts[username]
	if !ok {
		// Same bcrypt work as a known user with a wrong password.
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(plaintext))
		return verifyFailed
	}

	acc.mu.Lock()
	defer acc.mu.Unlock()

	if acc.checkLockLocked(s.clock.Now()) {
		return verifyLocked
	}
	if err := CheckPassword(acc.passwordHash, plaintext); err != nil {
		acc.failedAttempts++
		if acc.failedAttempts >= MaxFailedAttempts {
			until := s.clock.Now().Add(LockoutDuration)
			acc.lockedUntil = &until
			return verifyLockTriggered
		}
		return verifyFailed
	}
	now := s.clock.Now()
	acc.failedAttempts = 0
	acc.lastLogin = &now
	return verifyOK
}

// IsLocked reports whether username is inside its lockout window. An expired lock is cleared
// and the failure counter reset. Unknown usernames are never locked.
func (s *CredentialStore) IsLocked(username string) bool {
	acc, ok := s.accounts[username]
	if !ok {
		return false
	}
	acc.mu.Lock()
	defer acc.mu.Unlock()
	return acc.checkLockLocked(s.clock.Now())
}

// Role returns the role of username.
func (s *CredentialStore) Role(username string) (rbac.Role, bool) {
	acc, ok := s.accounts[username]
	if !ok {
		return "", false
	}
	return acc.role, true
}

// Snapshot returns a copy of one account's state.
func (s *CredentialStore) Snapshot(username string) (Account, bool) {
	acc, ok := s.accounts[username]
	if !ok {
		return Account{}, false
	}
	acc.mu.Lock()
	defer acc.mu.Unlock()
	acc.checkLockLocked(s.clock.Now())
	return acc.snapshotLocked(), true
}

// Accounts returns copies of all accounts sorted by username.
func (s *CredentialStore) Accounts() []Account {
	out := make([]Account, 0, len(s.accounts))
	for name := range s.accounts {
		if a, ok := s.Snapshot(name); ok {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out
}

// Unlock clears the lock and failure counter of username.
func (s *CredentialStore) Unlock(username string) error {
	acc, ok := s.accounts[username]
	if !ok {
		return ErrUnknownUser
	}
	acc.mu.Lock()
	defer acc.mu.Unlock()
	acc.lockedUntil = nil
	acc.failedAttempts = 0
	return nil
}
