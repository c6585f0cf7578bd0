package storage

import (
	"context"
	"time"

	"github.com/deckmate/deckmate/internal/model"
)

// Store defines the interface for data persistence.
//
// Implementations must make the marked operations atomic: the credential
// engine holds no in-process state, so races between concurrent requests are
// resolved here or not at all.
type Store interface {
	// Player operations.
	//
	// CreatePlayer is an atomic check-and-insert: it claims the username and
	// email case-insensitively and fails with model.ErrUsernameTaken or
	// model.ErrEmailTaken if either is held by another account.
	//
	// UpdatePlayer rewrites the player document. If the username or email
	// changed it migrates the uniqueness indexes, failing with the same taken
	// errors without modifying anything.
	CreatePlayer(ctx context.Context, player *model.Player) error
	GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error)
	FindPlayerByUsername(ctx context.Context, username string) (*model.Player, error)
	FindPlayerByEmail(ctx context.Context, email string) (*model.Player, error)
	FindPlayerByIdentifier(ctx context.Context, usernameOrEmail string) (*model.Player, error)
	UpdatePlayer(ctx context.Context, player *model.Player) error
	DeletePlayer(ctx context.Context, id model.PlayerID) error

	// Lockout operations.
	//
	// IncrementFailedLogins must be an atomic increment; concurrent failures
	// may never under-count. GetLockout returns a zero-valued Lockout when no
	// record exists.
	IncrementFailedLogins(ctx context.Context, id model.PlayerID) (int, error)
	SetLockedUntil(ctx context.Context, id model.PlayerID, until time.Time) error
	GetLockout(ctx context.Context, id model.PlayerID) (*model.Lockout, error)
	ClearLockout(ctx context.Context, id model.PlayerID) error

	// Confirmation token operations.
	//
	// UpsertConfirmationToken replaces any existing token for the same player;
	// at most one confirmation token per player ever exists.
	UpsertConfirmationToken(ctx context.Context, token *model.ConfirmationToken) error
	GetConfirmationToken(ctx context.Context, id string) (*model.ConfirmationToken, error)
	DeleteConfirmationToken(ctx context.Context, id string) error
	DeleteConfirmationTokenForPlayer(ctx context.Context, playerID model.PlayerID) error

	// Refresh token operations.
	//
	// DeleteRefreshToken reports whether this call removed the token; under
	// concurrent rotation of the same token exactly one caller observes true.
	// ListRefreshTokens returns tokens oldest-first.
	SaveRefreshToken(ctx context.Context, token *model.RefreshToken) error
	GetRefreshToken(ctx context.Context, id string) (*model.RefreshToken, error)
	ListRefreshTokens(ctx context.Context, playerID model.PlayerID) ([]*model.RefreshToken, error)
	DeleteRefreshToken(ctx context.Context, id string) (bool, error)
	DeleteRefreshTokensForPlayer(ctx context.Context, playerID model.PlayerID) error

	// Undo token operations.
	//
	// UpsertUndoToken replaces any existing token for the same player and
	// credential kind.
	UpsertUndoToken(ctx context.Context, token *model.UndoToken) error
	GetUndoToken(ctx context.Context, id string) (*model.UndoToken, error)
	DeleteUndoToken(ctx context.Context, id string) error
	DeleteUndoTokensForPlayer(ctx context.Context, playerID model.PlayerID, kind model.CredentialKind) error
}
