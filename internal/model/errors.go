package model

import (
	"errors"
	"fmt"
	"time"
)

// Common errors used across the application
var (
	// Login / session errors
	ErrBadLoginCredentials  = errors.New("identifier or password did not match")
	ErrMissingAccessToken   = errors.New("access token absent or malformed bearer header")
	ErrBadAccessToken       = errors.New("access token unparseable or badly signed")
	ErrExpiredAccessToken   = errors.New("access token expired")
	ErrPrematureAccessToken = errors.New("access token issued before session invalidation")
	ErrBadPassword          = errors.New("password did not match")
	ErrNotConfirmed         = errors.New("account email not confirmed")

	// Refresh cookie errors
	ErrCookieNotSet         = errors.New("refresh cookie not set")
	ErrNonParseableCookie   = errors.New("refresh cookie not parseable")
	ErrBadCookieCredentials = errors.New("refresh token id or secret did not match")
	ErrExpiredRefreshToken  = errors.New("refresh token expired")
	ErrRevokedRefreshToken  = errors.New("refresh token revoked")

	// Player errors
	ErrPlayerNotFound = errors.New("player not found")
	ErrUsernameTaken  = errors.New("username already in use")
	ErrEmailTaken     = errors.New("email address already in use")

	// Persistent token errors
	ErrTokenNotFound          = errors.New("token not found")
	ErrPersistentTokenExpired = errors.New("token expired")
	ErrAlreadyConfirmed       = errors.New("account already confirmed")
	ErrNoPendingEmailChange   = errors.New("no email change pending")
	ErrPasswordReused         = errors.New("password matches one of the last five used")
)

// AccountLockedError reports that an account is locked and until when
type AccountLockedError struct {
	Until time.Time
}

func (e *AccountLockedError) Error() string {
	return fmt.Sprintf("account locked until %s", e.Until.Format(time.RFC3339))
}

// NewAccountLockedError creates an AccountLockedError for the given unlock time
func NewAccountLockedError(until time.Time) error {
	return &AccountLockedError{Until: until}
}
