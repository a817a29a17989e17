package auth

import "errors"

var (
	// ErrInvalidCredentials covers unknown usernames and wrong passwords alike.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountLocked is returned while an account is inside its lockout window.
	ErrAccountLocked = errors.New("account locked")
	// ErrTokenInvalid covers malformed, unknown, revoked and expired tokens.
	ErrTokenInvalid = errors.New("invalid or expired token")
	// ErrPermissionDenied is returned when an authenticated caller lacks a grant.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrUnknownUser is returned when a session is requested for a user that does not exist.
	ErrUnknownUser = errors.New("unknown user")
)
