package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/deckmate/deckmate/internal/model"
)

type StorageSuite struct {
	suite.Suite
	storage *Storage
	ctx     context.Context
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.storage = New()
	s.ctx = context.Background()
}

func (s *StorageSuite) newPlayer(id, username, email string) *model.Player {
	return &model.Player{
		ID:             model.PlayerID(id),
		Username:       username,
		Email:          email,
		PasswordDigest: "digest",
		CreatedAt:      time.Now(),
	}
}

// Player tests

func (s *StorageSuite) TestCreateAndGetPlayer() {
	player := s.newPlayer("player-1", "alice_bob", "alice@example.com")

	err := s.storage.CreatePlayer(s.ctx, player)
	s.Require().NoError(err)

	retrieved, err := s.storage.GetPlayer(s.ctx, "player-1")
	s.Require().NoError(err)
	s.Equal(player.Username, retrieved.Username)
	s.Equal(player.Email, retrieved.Email)
}

func (s *StorageSuite) TestGetPlayerNotFound() {
	_, err := s.storage.GetPlayer(s.ctx, "nonexistent")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *StorageSuite) TestCreatePlayerUsernameTaken() {
	s.Require().NoError(s.storage.CreatePlayer(s.ctx, s.newPlayer("player-1", "alice_bob", "alice@example.com")))

	err := s.storage.CreatePlayer(s.ctx, s.newPlayer("player-2", "Alice_Bob", "other@example.com"))
	s.ErrorIs(err, model.ErrUsernameTaken)
}

func (s *StorageSuite) TestCreatePlayerEmailTaken() {
	s.Require().NoError(s.storage.CreatePlayer(s.ctx, s.newPlayer("player-1", "alice_bob", "alice@example.com")))

	err := s.storage.CreatePlayer(s.ctx, s.newPlayer("player-2", "carol_dee", "Alice@Example.com"))
	s.ErrorIs(err, model.ErrEmailTaken)
}

func (s *StorageSuite) TestFindPlayerByUsername() {
	s.Require().NoError(s.storage.CreatePlayer(s.ctx, s.newPlayer("player-1", "alice_bob", "alice@example.com")))

	found, err := s.storage.FindPlayerByUsername(s.ctx, "ALICE_BOB")
	s.Require().NoError(err)
	s.Equal(model.PlayerID("player-1"), found.ID)
}

func (s *StorageSuite) TestFindPlayerByIdentifier() {
	s.Require().NoError(s.storage.CreatePlayer(s.ctx, s.newPlayer("player-1", "alice_bob", "alice@example.com")))

	byUsername, err := s.storage.FindPlayerByIdentifier(s.ctx, "alice_bob")
	s.Require().NoError(err)
	s.Equal(model.PlayerID("player-1"), byUsername.ID)

	byEmail, err := s.storage.FindPlayerByIdentifier(s.ctx, "alice@example.com")
	s.Require().NoError(err)
	s.Equal(model.PlayerID("player-1"), byEmail.ID)

	_, err = s.storage.FindPlayerByIdentifier(s.ctx, "nobody")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *StorageSuite) TestUpdatePlayerMigratesIndexes() {
	player := s.newPlayer("player-1", "alice_bob", "alice@example.com")
	s.Require().NoError(s.storage.CreatePlayer(s.ctx, player))

	player.Username = "alice_new"
	s.Require().NoError(s.storage.UpdatePlayer(s.ctx, player))

	_, err := s.storage.FindPlayerByUsername(s.ctx, "alice_bob")
	s.ErrorIs(err, model.ErrPlayerNotFound)

	found, err := s.storage.FindPlayerByUsername(s.ctx, "alice_new")
	s.Require().NoError(err)
	s.Equal(model.PlayerID("player-1"), found.ID)
}

func (s *StorageSuite) TestUpdatePlayerUsernameTaken() {
	s.Require().NoError(s.storage.CreatePlayer(s.ctx, s.newPlayer("player-1", "alice_bob", "alice@example.com")))
	other := s.newPlayer("player-2", "carol_dee", "carol@example.com")
	s.Require().NoError(s.storage.CreatePlayer(s.ctx, other))

	other.Username = "alice_bob"
	err := s.storage.UpdatePlayer(s.ctx, other)
	s.ErrorIs(err, model.ErrUsernameTaken)

	// The old index entry must survive the failed update
	found, err := s.storage.FindPlayerByUsername(s.ctx, "carol_dee")
	s.Require().NoError(err)
	s.Equal(model.PlayerID("player-2"), found.ID)
}

func (s *StorageSuite) TestDeletePlayer() {
	s.Require().NoError(s.storage.CreatePlayer(s.ctx, s.newPlayer("player-1", "alice_bob", "alice@example.com")))

	s.Require().NoError(s.storage.DeletePlayer(s.ctx, "player-1"))

	_, err := s.storage.GetPlayer(s.ctx, "player-1")
	s.ErrorIs(err, model.ErrPlayerNotFound)
	_, err = s.storage.FindPlayerByUsername(s.ctx, "alice_bob")
	s.ErrorIs(err, model.ErrPlayerNotFound)

	// The freed identifiers can be claimed again
	s.NoError(s.storage.CreatePlayer(s.ctx, s.newPlayer("player-2", "alice_bob", "alice@example.com")))
}

// Lockout tests

func (s *StorageSuite) TestIncrementFailedLogins() {
	count, err := s.storage.IncrementFailedLogins(s.ctx, "player-1")
	s.Require().NoError(err)
	s.Equal(1, count)

	count, err = s.storage.IncrementFailedLogins(s.ctx, "player-1")
	s.Require().NoError(err)
	s.Equal(2, count)
}

func (s *StorageSuite) TestGetLockoutZeroValue() {
	lockout, err := s.storage.GetLockout(s.ctx, "player-1")
	s.Require().NoError(err)
	s.Equal(0, lockout.FailedLogins)
	s.True(lockout.LockedUntil.IsZero())
}

func (s *StorageSuite) TestSetAndClearLockout() {
	until := time.Now().Add(15 * time.Minute)
	_, err := s.storage.IncrementFailedLogins(s.ctx, "player-1")
	s.Require().NoError(err)
	s.Require().NoError(s.storage.SetLockedUntil(s.ctx, "player-1", until))

	lockout, err := s.storage.GetLockout(s.ctx, "player-1")
	s.Require().NoError(err)
	s.Equal(1, lockout.FailedLogins)
	s.WithinDuration(until, lockout.LockedUntil, time.Second)

	s.Require().NoError(s.storage.ClearLockout(s.ctx, "player-1"))

	lockout, err = s.storage.GetLockout(s.ctx, "player-1")
	s.Require().NoError(err)
	s.Equal(0, lockout.FailedLogins)
}

// Confirmation token tests

func (s *StorageSuite) TestUpsertConfirmationTokenSupersedes() {
	first := &model.ConfirmationToken{ID: "tok-1", PlayerID: "player-1", CreatedAt: time.Now()}
	s.Require().NoError(s.storage.UpsertConfirmationToken(s.ctx, first))

	second := &model.ConfirmationToken{ID: "tok-2", PlayerID: "player-1", CreatedAt: time.Now()}
	s.Require().NoError(s.storage.UpsertConfirmationToken(s.ctx, second))

	_, err := s.storage.GetConfirmationToken(s.ctx, "tok-1")
	s.ErrorIs(err, model.ErrTokenNotFound)

	got, err := s.storage.GetConfirmationToken(s.ctx, "tok-2")
	s.Require().NoError(err)
	s.Equal(model.PlayerID("player-1"), got.PlayerID)
}

func (s *StorageSuite) TestDeleteConfirmationTokenForPlayer() {
	token := &model.ConfirmationToken{ID: "tok-1", PlayerID: "player-1", CreatedAt: time.Now()}
	s.Require().NoError(s.storage.UpsertConfirmationToken(s.ctx, token))

	s.Require().NoError(s.storage.DeleteConfirmationTokenForPlayer(s.ctx, "player-1"))

	_, err := s.storage.GetConfirmationToken(s.ctx, "tok-1")
	s.ErrorIs(err, model.ErrTokenNotFound)

	// Deleting again is a no-op
	s.NoError(s.storage.DeleteConfirmationTokenForPlayer(s.ctx, "player-1"))
}

// Refresh token tests

func (s *StorageSuite) TestListRefreshTokensOldestFirst() {
	base := time.Now()
	for i, id := range []string{"tok-b", "tok-c", "tok-a"} {
		token := &model.RefreshToken{
			ID:        id,
			PlayerID:  "player-1",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		s.Require().NoError(s.storage.SaveRefreshToken(s.ctx, token))
	}

	tokens, err := s.storage.ListRefreshTokens(s.ctx, "player-1")
	s.Require().NoError(err)
	s.Require().Len(tokens, 3)
	s.Equal("tok-b", tokens[0].ID)
	s.Equal("tok-c", tokens[1].ID)
	s.Equal("tok-a", tokens[2].ID)
}

func (s *StorageSuite) TestDeleteRefreshTokenReportsRemoval() {
	token := &model.RefreshToken{ID: "tok-1", PlayerID: "player-1", CreatedAt: time.Now()}
	s.Require().NoError(s.storage.SaveRefreshToken(s.ctx, token))

	deleted, err := s.storage.DeleteRefreshToken(s.ctx, "tok-1")
	s.Require().NoError(err)
	s.True(deleted)

	deleted, err = s.storage.DeleteRefreshToken(s.ctx, "tok-1")
	s.Require().NoError(err)
	s.False(deleted)
}

func (s *StorageSuite) TestDeleteRefreshTokensForPlayer() {
	s.Require().NoError(s.storage.SaveRefreshToken(s.ctx, &model.RefreshToken{ID: "tok-1", PlayerID: "player-1"}))
	s.Require().NoError(s.storage.SaveRefreshToken(s.ctx, &model.RefreshToken{ID: "tok-2", PlayerID: "player-1"}))
	s.Require().NoError(s.storage.SaveRefreshToken(s.ctx, &model.RefreshToken{ID: "tok-3", PlayerID: "player-2"}))

	s.Require().NoError(s.storage.DeleteRefreshTokensForPlayer(s.ctx, "player-1"))

	tokens, err := s.storage.ListRefreshTokens(s.ctx, "player-1")
	s.Require().NoError(err)
	s.Empty(tokens)

	others, err := s.storage.ListRefreshTokens(s.ctx, "player-2")
	s.Require().NoError(err)
	s.Len(others, 1)
}

// Undo token tests

func (s *StorageSuite) TestUpsertUndoTokenSupersedesPerKind() {
	first := &model.UndoToken{ID: "undo-1", PlayerID: "player-1", Kind: model.CredentialPassword}
	s.Require().NoError(s.storage.UpsertUndoToken(s.ctx, first))

	emailUndo := &model.UndoToken{ID: "undo-2", PlayerID: "player-1", Kind: model.CredentialEmail}
	s.Require().NoError(s.storage.UpsertUndoToken(s.ctx, emailUndo))

	// Different kinds coexist
	_, err := s.storage.GetUndoToken(s.ctx, "undo-1")
	s.Require().NoError(err)

	second := &model.UndoToken{ID: "undo-3", PlayerID: "player-1", Kind: model.CredentialPassword}
	s.Require().NoError(s.storage.UpsertUndoToken(s.ctx, second))

	// Same kind supersedes
	_, err = s.storage.GetUndoToken(s.ctx, "undo-1")
	s.ErrorIs(err, model.ErrTokenNotFound)
	_, err = s.storage.GetUndoToken(s.ctx, "undo-2")
	s.NoError(err)
}

func (s *StorageSuite) TestDeleteUndoTokensForPlayer() {
	s.Require().NoError(s.storage.UpsertUndoToken(s.ctx, &model.UndoToken{ID: "undo-1", PlayerID: "player-1", Kind: model.CredentialPassword}))
	s.Require().NoError(s.storage.UpsertUndoToken(s.ctx, &model.UndoToken{ID: "undo-2", PlayerID: "player-1", Kind: model.CredentialEmail}))

	s.Require().NoError(s.storage.DeleteUndoTokensForPlayer(s.ctx, "player-1", model.CredentialEmail))

	_, err := s.storage.GetUndoToken(s.ctx, "undo-2")
	s.ErrorIs(err, model.ErrTokenNotFound)
	_, err = s.storage.GetUndoToken(s.ctx, "undo-1")
	s.NoError(err)
}
