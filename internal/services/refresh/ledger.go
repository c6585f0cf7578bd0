// Package refresh manages long-lived refresh tokens: issuing them under a
// per-player cap, rotating them on use, and revoking them when a session is
// invalidated.
package refresh

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/deckmate/deckmate/internal/dependencies/clock"
	"github.com/deckmate/deckmate/internal/model"
	"github.com/deckmate/deckmate/internal/storage"
)

const secretBytes = 32

// Issued is a freshly minted refresh token. The secret is only ever available
// here; storage keeps its digest.
type Issued struct {
	ID     string
	Secret string
}

// Ledger issues, rotates and revokes refresh tokens
type Ledger struct {
	store  storage.Store
	clock  clock.Clock
	logger *slog.Logger

	// revokeOnReuse revokes every token a player holds when a rotated-out
	// token is presented again, on the assumption the token leaked
	revokeOnReuse bool
}

// Config holds configuration for the refresh ledger
type Config struct {
	RevokeOnReuse bool
}

// DefaultConfig returns default ledger configuration
func DefaultConfig() Config {
	return Config{
		RevokeOnReuse: true,
	}
}

// NewLedger creates a Ledger
func NewLedger(store storage.Store, clk clock.Clock, logger *slog.Logger, cfg Config) *Ledger {
	return &Ledger{
		store:         store,
		clock:         clk,
		logger:        logger,
		revokeOnReuse: cfg.RevokeOnReuse,
	}
}

// Issue mints a refresh token for the player. If the player already holds the
// maximum number of live tokens the oldest is evicted.
func (l *Ledger) Issue(ctx context.Context, playerID model.PlayerID) (*Issued, error) {
	secret, err := generateSecret()
	if err != nil {
		return nil, err
	}

	now := l.clock.Now()

	tokens, err := l.store.ListRefreshTokens(ctx, playerID)
	if err != nil {
		return nil, err
	}

	live := 0
	for _, t := range tokens {
		if !t.Revoked && !t.Expired(now) {
			live++
		}
	}
	// tokens is oldest-first, so evicting in order removes the oldest live
	for _, t := range tokens {
		if live < model.MaxRefreshTokensPerPlayer {
			break
		}
		if t.Revoked || t.Expired(now) {
			continue
		}
		if _, err := l.store.DeleteRefreshToken(ctx, t.ID); err != nil {
			return nil, err
		}
		live--
	}

	token := &model.RefreshToken{
		ID:           uuid.NewString(),
		PlayerID:     playerID,
		SecretDigest: digest(secret),
		CreatedAt:    now,
	}
	if err := l.store.SaveRefreshToken(ctx, token); err != nil {
		return nil, err
	}

	return &Issued{ID: token.ID, Secret: secret}, nil
}

// Rotate exchanges a presented refresh token for a new one. The presented
// token is single-use: it is consumed here and kept only as a revoked marker
// so that a second presentation is detected as reuse.
func (l *Ledger) Rotate(ctx context.Context, id, secret string) (model.PlayerID, *Issued, error) {
	token, err := l.store.GetRefreshToken(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrTokenNotFound) {
			return "", nil, model.ErrBadCookieCredentials
		}
		return "", nil, err
	}

	if token.Expired(l.clock.Now()) {
		_, _ = l.store.DeleteRefreshToken(ctx, token.ID)
		return "", nil, model.ErrExpiredRefreshToken
	}

	if !secretMatches(secret, token.SecretDigest) {
		return "", nil, model.ErrBadCookieCredentials
	}

	if token.Revoked {
		if l.revokeOnReuse {
			l.logger.Warn("revoked refresh token presented, revoking all sessions",
				slog.String("player_id", string(token.PlayerID)),
				slog.String("token_id", token.ID),
			)
			if err := l.store.DeleteRefreshTokensForPlayer(ctx, token.PlayerID); err != nil {
				return "", nil, err
			}
		}
		return "", nil, model.ErrRevokedRefreshToken
	}

	// The delete decides the winner when the same token is rotated twice
	// concurrently
	consumed, err := l.store.DeleteRefreshToken(ctx, token.ID)
	if err != nil {
		return "", nil, err
	}
	if !consumed {
		return "", nil, model.ErrBadCookieCredentials
	}

	// Keep a revoked marker so later presentations are flagged as reuse
	token.Revoked = true
	if err := l.store.SaveRefreshToken(ctx, token); err != nil {
		return "", nil, err
	}

	issued, err := l.Issue(ctx, token.PlayerID)
	if err != nil {
		return "", nil, err
	}
	return token.PlayerID, issued, nil
}

// Revoke consumes one refresh token, e.g. on logout
func (l *Ledger) Revoke(ctx context.Context, id string) error {
	_, err := l.store.DeleteRefreshToken(ctx, id)
	return err
}

// RevokeAll removes every refresh token a player holds
func (l *Ledger) RevokeAll(ctx context.Context, playerID model.PlayerID) error {
	return l.store.DeleteRefreshTokensForPlayer(ctx, playerID)
}

func generateSecret() (string, error) {
	buf := make([]byte, secretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func digest(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

func secretMatches(secret, storedDigest string) bool {
	return subtle.ConstantTimeCompare([]byte(digest(secret)), []byte(storedDigest)) == 1
}
