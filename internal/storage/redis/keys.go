package redis

import (
	"fmt"

	"github.com/deckmate/deckmate/internal/model"
)

// Key prefix for all account data
const keyPrefix = "deckmate"

// Key generation functions for each entity type.
// Uniqueness index keys always hold the normalized (lowercased) value.

// playerKey returns the Redis key for a Player document
func playerKey(id model.PlayerID) string {
	return fmt.Sprintf("%s:player:%s", keyPrefix, id)
}

// usernameIndexKey returns the Redis key for the username -> player_id index
func usernameIndexKey(username string) string {
	return fmt.Sprintf("%s:idx:username:%s", keyPrefix, model.NormalizeIdentifier(username))
}

// emailIndexKey returns the Redis key for the email -> player_id index
func emailIndexKey(email string) string {
	return fmt.Sprintf("%s:idx:email:%s", keyPrefix, model.NormalizeIdentifier(email))
}

// failedLoginsKey returns the Redis key for a player's failure counter
func failedLoginsKey(id model.PlayerID) string {
	return fmt.Sprintf("%s:lockout:fails:%s", keyPrefix, id)
}

// lockedUntilKey returns the Redis key for a player's lock deadline
func lockedUntilKey(id model.PlayerID) string {
	return fmt.Sprintf("%s:lockout:until:%s", keyPrefix, id)
}

// confirmationTokenKey returns the Redis key for a ConfirmationToken
func confirmationTokenKey(id string) string {
	return fmt.Sprintf("%s:confirmation:%s", keyPrefix, id)
}

// confirmationOwnerKey returns the Redis key for the player_id -> token id index
func confirmationOwnerKey(playerID model.PlayerID) string {
	return fmt.Sprintf("%s:idx:confirmation_for_player:%s", keyPrefix, playerID)
}

// refreshTokenKey returns the Redis key for a RefreshToken
func refreshTokenKey(id string) string {
	return fmt.Sprintf("%s:refresh:%s", keyPrefix, id)
}

// refreshOwnerKey returns the Redis key for the SET of a player's refresh tokens
func refreshOwnerKey(playerID model.PlayerID) string {
	return fmt.Sprintf("%s:idx:refresh_for_player:%s", keyPrefix, playerID)
}

// undoTokenKey returns the Redis key for an UndoToken
func undoTokenKey(id string) string {
	return fmt.Sprintf("%s:undo:%s", keyPrefix, id)
}

// undoOwnerKey returns the Redis key for the (player_id, kind) -> token id index
func undoOwnerKey(playerID model.PlayerID, kind model.CredentialKind) string {
	return fmt.Sprintf("%s:idx:undo_for_player:%s:%s", keyPrefix, playerID, kind)
}
