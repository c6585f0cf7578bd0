package model

import "time"

// Logical lifetimes for each token kind. Storage retention may be longer;
// callers must treat a token past its logical lifetime as gone regardless of
// whether the storage layer has purged it yet.
const (
	// AccessTokenLifetime is how long a signed access token validates
	AccessTokenLifetime = 15 * time.Minute
	// ConfirmationTokenLifetime is how long a confirmation token can be used
	ConfirmationTokenLifetime = 15 * time.Minute
	// ConfirmationTokenRetention is how long the storage layer keeps a
	// confirmation token before purging it
	ConfirmationTokenRetention = 48 * time.Hour
	// RefreshTokenLifetime is how long a refresh token can be exchanged
	RefreshTokenLifetime = 30 * 24 * time.Hour
	// UndoTokenLifetime is how long an undo link stays usable
	UndoTokenLifetime = 24 * time.Hour
)

// MaxRefreshTokensPerPlayer bounds the live refresh tokens per player;
// issuing one beyond the cap evicts the oldest
const MaxRefreshTokensPerPlayer = 3

// ConfirmationToken proves control of an email address, either at
// registration or when confirming a proposed address. At most one exists per
// player; issuing a new one supersedes any prior token.
type ConfirmationToken struct {
	ID        string
	PlayerID  PlayerID
	CreatedAt time.Time
}

// Expired reports whether the token is past its logical lifetime
func (t *ConfirmationToken) Expired(now time.Time) bool {
	return now.After(t.CreatedAt.Add(ConfirmationTokenLifetime))
}

// RefreshToken is a long-lived credential exchanged for new access tokens.
// Only the digest of its secret is stored.
type RefreshToken struct {
	ID           string
	PlayerID     PlayerID
	SecretDigest string
	CreatedAt    time.Time
	Revoked      bool
}

// Expired reports whether the token is past its logical lifetime
func (t *RefreshToken) Expired(now time.Time) bool {
	return now.After(t.CreatedAt.Add(RefreshTokenLifetime))
}

// CredentialKind scopes an undo token to the credential it can revert
type CredentialKind string

const (
	CredentialPassword CredentialKind = "password"
	CredentialEmail    CredentialKind = "email"
)

// UndoToken lets a player reverse a password or email change via an emailed
// link. At most one exists per (player, kind); it is consumed on first use.
type UndoToken struct {
	ID        string
	PlayerID  PlayerID
	Kind      CredentialKind
	CreatedAt time.Time
}

// Expired reports whether the token is past its logical lifetime
func (t *UndoToken) Expired(now time.Time) bool {
	return now.After(t.CreatedAt.Add(UndoTokenLifetime))
}
