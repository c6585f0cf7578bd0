package model

import (
	"strings"
	"time"
)

// PlayerID uniquely identifies a player across the system
type PlayerID string

// PasswordHistorySize is the number of superseded password digests kept per
// player. A new password is checked against the current digest plus this
// history, i.e. the five most recent passwords.
const PasswordHistorySize = 4

// Player represents a player account.
// All mutation goes through the credential manager or the lockout guard;
// handlers never write a Player directly.
type Player struct {
	ID       PlayerID
	Username string
	Email    string

	// PasswordDigest is the digest of the current password
	PasswordDigest string
	// PasswordHistory holds up to PasswordHistorySize prior digests,
	// most recent first
	PasswordHistory []string

	// Confirmed is true once the player has proven control of an email address
	Confirmed bool
	// ProposedEmail is non-empty while an email change awaits confirmation
	ProposedEmail string

	// SessionValidAfter rejects any access token issued before this instant
	SessionValidAfter time.Time

	CreatedAt time.Time
}

// EmailChangePending reports whether an email change awaits confirmation
func (p *Player) EmailChangePending() bool {
	return p.ProposedEmail != ""
}

// NormalizeIdentifier lowercases a username or email for case-insensitive
// lookup and uniqueness checks
func NormalizeIdentifier(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Lockout tracks consecutive failed logins for one player.
// Stored separately from the Player document so the counter can be
// incremented atomically at the storage layer.
type Lockout struct {
	FailedLogins int
	LockedUntil  time.Time
}

// Locked reports whether the account is locked at the given instant
func (l *Lockout) Locked(now time.Time) bool {
	return !l.LockedUntil.IsZero() && now.Before(l.LockedUntil)
}
