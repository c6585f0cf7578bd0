// Package session authenticates players: login with lockout enforcement,
// bearer token validation and refresh token exchange.
package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/deckmate/deckmate/internal/dependencies/hash"
	"github.com/deckmate/deckmate/internal/model"
	"github.com/deckmate/deckmate/internal/services/lockout"
	"github.com/deckmate/deckmate/internal/services/refresh"
	"github.com/deckmate/deckmate/internal/services/token"
	"github.com/deckmate/deckmate/internal/storage"
)

// Tokens is the credential pair handed out after a successful login or
// refresh. RefreshCookie is the value for the HTTP-only refresh cookie.
type Tokens struct {
	Access        string
	RefreshID     string
	RefreshCookie string
}

// Authenticator handles login, access token validation and refresh
type Authenticator struct {
	store  storage.Store
	codec  *token.Codec
	ledger *refresh.Ledger
	guard  *lockout.Guard
	hasher hash.Hasher
	logger *slog.Logger
}

// NewAuthenticator creates an Authenticator
func NewAuthenticator(
	store storage.Store,
	codec *token.Codec,
	ledger *refresh.Ledger,
	guard *lockout.Guard,
	hasher hash.Hasher,
	logger *slog.Logger,
) *Authenticator {
	return &Authenticator{
		store:  store,
		codec:  codec,
		ledger: ledger,
		guard:  guard,
		hasher: hasher,
		logger: logger,
	}
}

// Login authenticates by username or email plus password.
// Unknown identifiers and wrong passwords both produce
// model.ErrBadLoginCredentials so callers cannot probe for accounts; a locked
// account produces an AccountLockedError instead.
func (a *Authenticator) Login(ctx context.Context, identifier, password string) (*Tokens, error) {
	player, err := a.store.FindPlayerByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, model.ErrPlayerNotFound) {
			return nil, model.ErrBadLoginCredentials
		}
		return nil, err
	}

	if err := a.guard.Check(ctx, player.ID); err != nil {
		return nil, err
	}

	if !a.hasher.Verify(password, player.PasswordDigest) {
		if err := a.guard.RecordFailure(ctx, player.ID); err != nil {
			return nil, err
		}
		return nil, model.ErrBadLoginCredentials
	}

	// No session is issued for an unconfirmed account, so the failure
	// counter is only reset once a login actually succeeds
	if !player.Confirmed {
		return nil, model.ErrNotConfirmed
	}

	if err := a.guard.RecordSuccess(ctx, player.ID); err != nil {
		return nil, err
	}

	return a.issue(ctx, player.ID)
}

// ValidateAccess verifies a bearer access token and returns its player.
// A token issued before the player's session cutoff is rejected even when its
// signature and expiry check out.
func (a *Authenticator) ValidateAccess(ctx context.Context, raw string) (*model.Player, error) {
	if raw == "" {
		return nil, model.ErrMissingAccessToken
	}

	claims, err := a.codec.Decode(raw)
	if err != nil {
		return nil, err
	}

	player, err := a.store.GetPlayer(ctx, claims.PlayerID)
	if err != nil {
		return nil, err
	}

	if claims.IssuedAt.Before(player.SessionValidAfter) {
		return nil, model.ErrPrematureAccessToken
	}

	return player, nil
}

// Refresh exchanges a refresh cookie for a fresh token pair, rotating the
// refresh token in the process
func (a *Authenticator) Refresh(ctx context.Context, cookieValue string) (*Tokens, error) {
	id, secret, err := ParseRefreshCookie(cookieValue)
	if err != nil {
		return nil, err
	}

	playerID, issued, err := a.ledger.Rotate(ctx, id, secret)
	if err != nil {
		return nil, err
	}

	access, err := a.codec.Issue(playerID)
	if err != nil {
		return nil, err
	}

	return &Tokens{
		Access:        access,
		RefreshID:     issued.ID,
		RefreshCookie: EncodeRefreshCookie(issued.ID, issued.Secret),
	}, nil
}

// Logout consumes the refresh token named by the cookie, if any
func (a *Authenticator) Logout(ctx context.Context, cookieValue string) error {
	id, _, err := ParseRefreshCookie(cookieValue)
	if err != nil {
		return err
	}
	return a.ledger.Revoke(ctx, id)
}

// RequirePassword re-checks the player's current password before a sensitive
// operation
func (a *Authenticator) RequirePassword(_ context.Context, player *model.Player, password string) error {
	if !a.hasher.Verify(password, player.PasswordDigest) {
		return model.ErrBadPassword
	}
	return nil
}

func (a *Authenticator) issue(ctx context.Context, playerID model.PlayerID) (*Tokens, error) {
	access, err := a.codec.Issue(playerID)
	if err != nil {
		return nil, err
	}

	issued, err := a.ledger.Issue(ctx, playerID)
	if err != nil {
		return nil, err
	}

	return &Tokens{
		Access:        access,
		RefreshID:     issued.ID,
		RefreshCookie: EncodeRefreshCookie(issued.ID, issued.Secret),
	}, nil
}

// EncodeRefreshCookie packs a refresh token id and secret into one cookie
// value
func EncodeRefreshCookie(id, secret string) string {
	return id + ":" + secret
}

// ParseRefreshCookie splits a refresh cookie value into id and secret
func ParseRefreshCookie(value string) (id, secret string, err error) {
	id, secret, ok := strings.Cut(value, ":")
	if !ok || id == "" || secret == "" {
		return "", "", model.ErrNonParseableCookie
	}
	return id, secret, nil
}
