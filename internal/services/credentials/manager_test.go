package credentials

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/deckmate/deckmate/internal/dependencies/mocks"
	"github.com/deckmate/deckmate/internal/email"
	"github.com/deckmate/deckmate/internal/model"
	"github.com/deckmate/deckmate/internal/services/refresh"
	"github.com/deckmate/deckmate/internal/storage/memory"
	"github.com/deckmate/deckmate/internal/testutil"
	"github.com/deckmate/deckmate/internal/validate"
)

type ManagerSuite struct {
	suite.Suite
	store   *memory.Storage
	clock   *mocks.MockClock
	hasher  *mocks.PlainHasher
	sender  *mocks.MockEmailSender
	ledger  *refresh.Ledger
	manager *Manager
	ctx     context.Context
}

func TestManagerSuite(t *testing.T) {
	suite.Run(t, new(ManagerSuite))
}

func (s *ManagerSuite) SetupTest() {
	s.store = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	s.hasher = mocks.NewPlainHasher()
	s.sender = mocks.NewMockEmailSender()

	logger := testutil.NopLogger()
	s.ledger = refresh.NewLedger(s.store, s.clock, logger, refresh.DefaultConfig())
	s.manager = NewManager(s.store, s.hasher, s.ledger, s.sender, s.clock, logger)
	s.ctx = context.Background()
}

// register creates an account through the manager and returns it
func (s *ManagerSuite) register() *model.Player {
	player, err := s.manager.Register(s.ctx, "alice_bob", "Sup3rSecret!", "alice@example.com", "en")
	s.Require().NoError(err)
	return player
}

// confirmed registers an account and confirms it via the emailed token
func (s *ManagerSuite) confirmed() *model.Player {
	player := s.register()
	s.Require().NoError(s.manager.Confirm(s.ctx, s.lastTokenID(player.Email, email.ParamTokenID)))
	s.sender.Reset()

	got, err := s.store.GetPlayer(s.ctx, player.ID)
	s.Require().NoError(err)
	return got
}

// lastTokenID pulls a token id out of the most recent email to an address
func (s *ManagerSuite) lastTokenID(to, param string) string {
	sent, ok := s.sender.LastTo(to)
	s.Require().True(ok, "no email sent to %s", to)
	id := sent.Params[param]
	s.Require().NotEmpty(id)
	return id
}

// Registration and confirmation

func (s *ManagerSuite) TestRegisterCreatesUnconfirmedAccount() {
	player := s.register()

	s.False(player.Confirmed)
	s.Equal("plain:Sup3rSecret!", player.PasswordDigest)

	sent, ok := s.sender.LastTo("alice@example.com")
	s.Require().True(ok)
	s.Equal(email.TemplateConfirmRegistration, sent.Template)
	s.NotEmpty(sent.Params[email.ParamTokenID])
}

func (s *ManagerSuite) TestRegisterRejectsInvalidInput() {
	var fieldErrs *validate.FieldErrors
	_, err := s.manager.Register(s.ctx, "x", "short", "not-an-email", "en")
	s.ErrorAs(err, &fieldErrs)
}

func (s *ManagerSuite) TestRegisterDuplicateUsername() {
	s.register()

	_, err := s.manager.Register(s.ctx, "Alice_Bob", "Sup3rSecret!", "other@example.com", "en")
	s.ErrorIs(err, model.ErrUsernameTaken)
}

func (s *ManagerSuite) TestConfirm() {
	player := s.register()
	tokenID := s.lastTokenID(player.Email, email.ParamTokenID)

	s.Require().NoError(s.manager.Confirm(s.ctx, tokenID))

	got, err := s.store.GetPlayer(s.ctx, player.ID)
	s.Require().NoError(err)
	s.True(got.Confirmed)

	// The token is single-use
	s.ErrorIs(s.manager.Confirm(s.ctx, tokenID), model.ErrTokenNotFound)
}

func (s *ManagerSuite) TestConfirmUnknownToken() {
	s.ErrorIs(s.manager.Confirm(s.ctx, "nonexistent"), model.ErrTokenNotFound)
}

func (s *ManagerSuite) TestConfirmExpiredToken() {
	player := s.register()
	tokenID := s.lastTokenID(player.Email, email.ParamTokenID)

	s.clock.Advance(model.ConfirmationTokenLifetime + time.Hour)

	s.ErrorIs(s.manager.Confirm(s.ctx, tokenID), model.ErrPersistentTokenExpired)
}

func (s *ManagerSuite) TestRejectRemovesAccount() {
	player := s.register()
	tokenID := s.lastTokenID(player.Email, email.ParamTokenID)

	s.Require().NoError(s.manager.Reject(s.ctx, tokenID))

	_, err := s.store.GetPlayer(s.ctx, player.ID)
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *ManagerSuite) TestRejectConfirmedAccount() {
	player := s.confirmed()

	// Reissue a confirmation token by hand; rejecting it must not delete the account
	token := &model.ConfirmationToken{ID: "tok-1", PlayerID: player.ID, CreatedAt: s.clock.Now()}
	s.Require().NoError(s.store.UpsertConfirmationToken(s.ctx, token))

	s.ErrorIs(s.manager.Reject(s.ctx, "tok-1"), model.ErrAlreadyConfirmed)
	_, err := s.store.GetPlayer(s.ctx, player.ID)
	s.NoError(err)
}

func (s *ManagerSuite) TestResendConfirmationSupersedes() {
	player := s.register()
	first := s.lastTokenID(player.Email, email.ParamTokenID)

	s.Require().NoError(s.manager.ResendConfirmation(s.ctx, player.Email, "en"))
	second := s.lastTokenID(player.Email, email.ParamTokenID)
	s.NotEqual(first, second)

	s.ErrorIs(s.manager.Confirm(s.ctx, first), model.ErrTokenNotFound)
	s.NoError(s.manager.Confirm(s.ctx, second))
}

func (s *ManagerSuite) TestResendConfirmationAlreadyConfirmed() {
	player := s.confirmed()
	s.ErrorIs(s.manager.ResendConfirmation(s.ctx, player.Email, "en"), model.ErrAlreadyConfirmed)
}

// Username change

func (s *ManagerSuite) TestChangeUsername() {
	player := s.confirmed()
	_, err := s.ledger.Issue(s.ctx, player.ID)
	s.Require().NoError(err)

	s.clock.Advance(time.Minute)
	s.Require().NoError(s.manager.ChangeUsername(s.ctx, player, "Sup3rSecret!", "new_name", "en"))

	got, err := s.store.GetPlayer(s.ctx, player.ID)
	s.Require().NoError(err)
	s.Equal("new_name", got.Username)

	// Sessions established under the old username are cut off
	s.Equal(s.clock.Now(), got.SessionValidAfter)
	tokens, err := s.store.ListRefreshTokens(s.ctx, player.ID)
	s.Require().NoError(err)
	s.Empty(tokens)

	sent, ok := s.sender.LastTo(player.Email)
	s.Require().True(ok)
	s.Equal(email.TemplateUsernameChanged, sent.Template)
}

func (s *ManagerSuite) TestChangeUsernameWrongPassword() {
	player := s.confirmed()
	s.ErrorIs(s.manager.ChangeUsername(s.ctx, player, "wrong", "new_name", "en"), model.ErrBadPassword)
}

func (s *ManagerSuite) TestChangeUsernameTaken() {
	player := s.confirmed()
	other := &model.Player{
		ID:        "other",
		Username:  "taken_name",
		Email:     "other@example.com",
		CreatedAt: s.clock.Now(),
	}
	s.Require().NoError(s.store.CreatePlayer(s.ctx, other))

	err := s.manager.ChangeUsername(s.ctx, player, "Sup3rSecret!", "taken_name", "en")
	s.ErrorIs(err, model.ErrUsernameTaken)
}

// Password change

func (s *ManagerSuite) TestChangePassword() {
	player := s.confirmed()
	_, err := s.ledger.Issue(s.ctx, player.ID)
	s.Require().NoError(err)

	s.clock.Advance(time.Minute)
	s.Require().NoError(s.manager.ChangePassword(s.ctx, player, "Sup3rSecret!", "Brand#NewPass1", "en"))

	got, err := s.store.GetPlayer(s.ctx, player.ID)
	s.Require().NoError(err)
	s.Equal("plain:Brand#NewPass1", got.PasswordDigest)
	s.Equal([]string{"plain:Sup3rSecret!"}, got.PasswordHistory)
	s.Equal(s.clock.Now(), got.SessionValidAfter)

	// Every refresh token is revoked
	tokens, err := s.store.ListRefreshTokens(s.ctx, player.ID)
	s.Require().NoError(err)
	for _, t := range tokens {
		s.True(t.Revoked)
	}

	sent, ok := s.sender.LastTo(player.Email)
	s.Require().True(ok)
	s.Equal(email.TemplatePasswordChanged, sent.Template)
	s.NotEmpty(sent.Params[email.ParamUndoTokenID])
}

func (s *ManagerSuite) TestChangePasswordWrongCurrent() {
	player := s.confirmed()
	err := s.manager.ChangePassword(s.ctx, player, "wrong", "Brand#NewPass1", "en")
	s.ErrorIs(err, model.ErrBadPassword)
}

func (s *ManagerSuite) TestChangePasswordReuseBanned() {
	player := s.confirmed()

	// Reusing the current password is refused
	err := s.manager.ChangePassword(s.ctx, player, "Sup3rSecret!", "Sup3rSecret!", "en")
	s.Require().ErrorIs(err, model.ErrPasswordReused)

	// Walk through enough generations to push the original out of history
	passwords := []string{"Gen#1Password", "Gen#2Password", "Gen#3Password", "Gen#4Password", "Gen#5Password"}
	current := "Sup3rSecret!"
	for _, next := range passwords {
		s.Require().NoError(s.manager.ChangePassword(s.ctx, player, current, next, "en"))
		current = next
	}

	// After five changes the original has aged out of the retained window
	// and becomes usable again
	s.Len(player.PasswordHistory, model.PasswordHistorySize)
	s.NoError(s.manager.ChangePassword(s.ctx, player, current, "Sup3rSecret!", "en"))
}

func (s *ManagerSuite) TestChangePasswordReuseFromHistory() {
	player := s.confirmed()

	s.Require().NoError(s.manager.ChangePassword(s.ctx, player, "Sup3rSecret!", "Brand#NewPass1", "en"))

	err := s.manager.ChangePassword(s.ctx, player, "Brand#NewPass1", "Sup3rSecret!", "en")
	s.ErrorIs(err, model.ErrPasswordReused)
}

func (s *ManagerSuite) TestUndoPasswordChange() {
	player := s.confirmed()
	s.Require().NoError(s.manager.ChangePassword(s.ctx, player, "Sup3rSecret!", "Brand#NewPass1", "en"))
	undoID := s.lastTokenID(player.Email, email.ParamUndoTokenID)

	s.clock.Advance(time.Minute)
	s.Require().NoError(s.manager.UndoPasswordChange(s.ctx, undoID, "Rec0vered#Pass"))

	got, err := s.store.GetPlayer(s.ctx, player.ID)
	s.Require().NoError(err)
	s.Equal("plain:Rec0vered#Pass", got.PasswordDigest)
	s.Equal([]string{"plain:Brand#NewPass1", "plain:Sup3rSecret!"}, got.PasswordHistory)
	s.Equal(s.clock.Now(), got.SessionValidAfter)

	// The undo link is single-use
	s.ErrorIs(s.manager.UndoPasswordChange(s.ctx, undoID, "An0ther#Pass"), model.ErrTokenNotFound)
}

func (s *ManagerSuite) TestUndoPasswordChangeReuseBanned() {
	player := s.confirmed()
	s.Require().NoError(s.manager.ChangePassword(s.ctx, player, "Sup3rSecret!", "Brand#NewPass1", "en"))
	undoID := s.lastTokenID(player.Email, email.ParamUndoTokenID)

	// Neither the hijacker's password nor the retained previous one may return
	s.ErrorIs(s.manager.UndoPasswordChange(s.ctx, undoID, "Brand#NewPass1"), model.ErrPasswordReused)
	s.ErrorIs(s.manager.UndoPasswordChange(s.ctx, undoID, "Sup3rSecret!"), model.ErrPasswordReused)

	var fieldErrs *validate.FieldErrors
	s.ErrorAs(s.manager.UndoPasswordChange(s.ctx, undoID, "weak"), &fieldErrs)

	// A refused undo leaves the token usable
	s.NoError(s.manager.UndoPasswordChange(s.ctx, undoID, "Rec0vered#Pass"))
}

func (s *ManagerSuite) TestUndoPasswordChangeClearsLockout() {
	player := s.confirmed()
	s.Require().NoError(s.manager.ChangePassword(s.ctx, player, "Sup3rSecret!", "Brand#NewPass1", "en"))
	undoID := s.lastTokenID(player.Email, email.ParamUndoTokenID)

	// The hijacker's old-password attempts locked the account
	for i := 0; i < 5; i++ {
		_, err := s.store.IncrementFailedLogins(s.ctx, player.ID)
		s.Require().NoError(err)
	}
	s.Require().NoError(s.store.SetLockedUntil(s.ctx, player.ID, s.clock.Now().Add(time.Hour)))

	s.Require().NoError(s.manager.UndoPasswordChange(s.ctx, undoID, "Rec0vered#Pass"))

	lock, err := s.store.GetLockout(s.ctx, player.ID)
	s.Require().NoError(err)
	s.Equal(0, lock.FailedLogins)
	s.True(lock.LockedUntil.IsZero())
}

func (s *ManagerSuite) TestUndoPasswordChangeExpired() {
	player := s.confirmed()
	s.Require().NoError(s.manager.ChangePassword(s.ctx, player, "Sup3rSecret!", "Brand#NewPass1", "en"))
	undoID := s.lastTokenID(player.Email, email.ParamUndoTokenID)

	s.clock.Advance(model.UndoTokenLifetime + time.Hour)

	s.ErrorIs(s.manager.UndoPasswordChange(s.ctx, undoID, "Rec0vered#Pass"), model.ErrPersistentTokenExpired)
}

// Email change

func (s *ManagerSuite) TestRequestEmailChange() {
	player := s.confirmed()

	s.Require().NoError(s.manager.RequestEmailChange(s.ctx, player, "Sup3rSecret!", "new@example.com", "en"))

	got, err := s.store.GetPlayer(s.ctx, player.ID)
	s.Require().NoError(err)
	s.Equal("new@example.com", got.ProposedEmail)
	s.Equal("alice@example.com", got.Email)

	// Confirmation link to the proposed address, warning with undo to the old one
	toNew, ok := s.sender.LastTo("new@example.com")
	s.Require().True(ok)
	s.Equal(email.TemplateConfirmEmailChange, toNew.Template)

	toOld, ok := s.sender.LastTo("alice@example.com")
	s.Require().True(ok)
	s.Equal(email.TemplateEmailChangeWarning, toOld.Template)
	s.NotEmpty(toOld.Params[email.ParamUndoTokenID])
}

func (s *ManagerSuite) TestRequestEmailChangeTakenAddress() {
	player := s.confirmed()
	other := &model.Player{
		ID:        "other",
		Username:  "someone_else",
		Email:     "new@example.com",
		CreatedAt: s.clock.Now(),
	}
	s.Require().NoError(s.store.CreatePlayer(s.ctx, other))

	err := s.manager.RequestEmailChange(s.ctx, player, "Sup3rSecret!", "new@example.com", "en")
	s.ErrorIs(err, model.ErrEmailTaken)
}

func (s *ManagerSuite) TestConfirmEmailChange() {
	player := s.confirmed()
	_, err := s.ledger.Issue(s.ctx, player.ID)
	s.Require().NoError(err)
	s.Require().NoError(s.manager.RequestEmailChange(s.ctx, player, "Sup3rSecret!", "new@example.com", "en"))
	tokenID := s.lastTokenID("new@example.com", email.ParamTokenID)
	undoID := s.lastTokenID("alice@example.com", email.ParamUndoTokenID)

	s.clock.Advance(time.Minute)
	s.Require().NoError(s.manager.ConfirmEmailChange(s.ctx, tokenID))

	got, err := s.store.GetPlayer(s.ctx, player.ID)
	s.Require().NoError(err)
	s.Equal("new@example.com", got.Email)
	s.Empty(got.ProposedEmail)

	// Applying the change cuts off every existing session
	s.Equal(s.clock.Now(), got.SessionValidAfter)
	tokens, err := s.store.ListRefreshTokens(s.ctx, player.ID)
	s.Require().NoError(err)
	s.Empty(tokens)

	// Once applied the undo window has closed
	s.ErrorIs(s.manager.UndoEmailChange(s.ctx, undoID), model.ErrNoPendingEmailChange)
}

func (s *ManagerSuite) TestConfirmEmailChangeNothingPending() {
	player := s.confirmed()

	token := &model.ConfirmationToken{ID: "tok-1", PlayerID: player.ID, CreatedAt: s.clock.Now()}
	s.Require().NoError(s.store.UpsertConfirmationToken(s.ctx, token))

	s.ErrorIs(s.manager.ConfirmEmailChange(s.ctx, "tok-1"), model.ErrNoPendingEmailChange)
}

func (s *ManagerSuite) TestUndoEmailChange() {
	player := s.confirmed()
	s.Require().NoError(s.manager.RequestEmailChange(s.ctx, player, "Sup3rSecret!", "new@example.com", "en"))
	tokenID := s.lastTokenID("new@example.com", email.ParamTokenID)
	undoID := s.lastTokenID("alice@example.com", email.ParamUndoTokenID)

	s.Require().NoError(s.manager.UndoEmailChange(s.ctx, undoID))

	got, err := s.store.GetPlayer(s.ctx, player.ID)
	s.Require().NoError(err)
	s.Empty(got.ProposedEmail)
	s.Equal("alice@example.com", got.Email)

	// The staged confirmation link dies with the request
	s.ErrorIs(s.manager.ConfirmEmailChange(s.ctx, tokenID), model.ErrTokenNotFound)
}

func (s *ManagerSuite) TestCancelEmailChange() {
	player := s.confirmed()
	s.Require().NoError(s.manager.RequestEmailChange(s.ctx, player, "Sup3rSecret!", "new@example.com", "en"))
	tokenID := s.lastTokenID("new@example.com", email.ParamTokenID)

	got, err := s.store.GetPlayer(s.ctx, player.ID)
	s.Require().NoError(err)
	s.Require().NoError(s.manager.CancelEmailChange(s.ctx, got))

	s.Empty(got.ProposedEmail)
	s.ErrorIs(s.manager.ConfirmEmailChange(s.ctx, tokenID), model.ErrTokenNotFound)
}

func (s *ManagerSuite) TestCancelEmailChangeNothingPending() {
	player := s.confirmed()
	s.ErrorIs(s.manager.CancelEmailChange(s.ctx, player), model.ErrNoPendingEmailChange)
}

func (s *ManagerSuite) TestUndoTokenKindsDoNotCross() {
	player := s.confirmed()
	s.Require().NoError(s.manager.ChangePassword(s.ctx, player, "Sup3rSecret!", "Brand#NewPass1", "en"))
	passwordUndo := s.lastTokenID(player.Email, email.ParamUndoTokenID)

	s.ErrorIs(s.manager.UndoEmailChange(s.ctx, passwordUndo), model.ErrTokenNotFound)
}

// Account deletion

func (s *ManagerSuite) TestDeleteAccount() {
	player := s.confirmed()
	s.Require().NoError(s.manager.RequestEmailChange(s.ctx, player, "Sup3rSecret!", "new@example.com", "en"))
	undoID := s.lastTokenID("alice@example.com", email.ParamUndoTokenID)
	_, err := s.ledger.Issue(s.ctx, player.ID)
	s.Require().NoError(err)

	s.Require().NoError(s.manager.DeleteAccount(s.ctx, player, "Sup3rSecret!"))

	_, err = s.store.GetPlayer(s.ctx, player.ID)
	s.ErrorIs(err, model.ErrPlayerNotFound)
	_, err = s.store.GetUndoToken(s.ctx, undoID)
	s.ErrorIs(err, model.ErrTokenNotFound)

	// The freed identifiers are reusable immediately
	_, err = s.manager.Register(s.ctx, "alice_bob", "Sup3rSecret!", "alice@example.com", "en")
	s.NoError(err)
}

func (s *ManagerSuite) TestDeleteAccountWrongPassword() {
	player := s.confirmed()
	s.ErrorIs(s.manager.DeleteAccount(s.ctx, player, "wrong"), model.ErrBadPassword)
}
