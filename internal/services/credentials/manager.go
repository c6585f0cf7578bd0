// Package credentials implements the account lifecycle: registration with
// email confirmation, and the password, username and email change workflows
// with their confirmation and undo tokens.
package credentials

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/deckmate/deckmate/internal/dependencies/clock"
	"github.com/deckmate/deckmate/internal/dependencies/hash"
	"github.com/deckmate/deckmate/internal/email"
	"github.com/deckmate/deckmate/internal/model"
	"github.com/deckmate/deckmate/internal/services/refresh"
	"github.com/deckmate/deckmate/internal/storage"
	"github.com/deckmate/deckmate/internal/validate"
)

// Manager drives the account lifecycle workflows
type Manager struct {
	store  storage.Store
	hasher hash.Hasher
	ledger *refresh.Ledger
	sender email.Sender
	clock  clock.Clock
	logger *slog.Logger
}

// NewManager creates a Manager
func NewManager(
	store storage.Store,
	hasher hash.Hasher,
	ledger *refresh.Ledger,
	sender email.Sender,
	clk clock.Clock,
	logger *slog.Logger,
) *Manager {
	return &Manager{
		store:  store,
		hasher: hasher,
		ledger: ledger,
		sender: sender,
		clock:  clk,
		logger: logger,
	}
}

// Register creates an unconfirmed account and emails a confirmation link.
// The account cannot log in until the link is used.
func (m *Manager) Register(ctx context.Context, username, password, emailAddr, locale string) (*model.Player, error) {
	if err := validate.NewPlayer(username, password, emailAddr); err != nil {
		return nil, err
	}

	digest, err := m.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	now := m.clock.Now()
	player := &model.Player{
		ID:             model.PlayerID(uuid.NewString()),
		Username:       username,
		Email:          emailAddr,
		PasswordDigest: digest,
		CreatedAt:      now,
	}

	if err := m.store.CreatePlayer(ctx, player); err != nil {
		return nil, err
	}

	if err := m.issueConfirmation(ctx, player, email.TemplateConfirmRegistration, player.Email, locale, nil); err != nil {
		return nil, err
	}

	m.logger.Info("player registered",
		slog.String("player_id", string(player.ID)),
		slog.String("username", player.Username),
	)
	return player, nil
}

// Confirm marks an account's email address as proven.
// Expired tokens are reported but kept, so the link can be re-requested.
func (m *Manager) Confirm(ctx context.Context, tokenID string) error {
	token, player, err := m.confirmationToken(ctx, tokenID)
	if err != nil {
		return err
	}

	if player.Confirmed {
		return model.ErrAlreadyConfirmed
	}

	player.Confirmed = true
	if err := m.store.UpdatePlayer(ctx, player); err != nil {
		return err
	}

	return m.store.DeleteConfirmationToken(ctx, token.ID)
}

// Reject handles a recipient denying they created the account: the
// unconfirmed account is removed entirely
func (m *Manager) Reject(ctx context.Context, tokenID string) error {
	token, player, err := m.confirmationToken(ctx, tokenID)
	if err != nil {
		return err
	}

	if player.Confirmed {
		return model.ErrAlreadyConfirmed
	}

	if err := m.store.DeletePlayer(ctx, player.ID); err != nil {
		return err
	}
	m.logger.Info("unconfirmed registration rejected",
		slog.String("player_id", string(player.ID)),
	)
	return m.store.DeleteConfirmationToken(ctx, token.ID)
}

// ResendConfirmation issues a fresh registration confirmation link,
// superseding any outstanding one
func (m *Manager) ResendConfirmation(ctx context.Context, emailAddr, locale string) error {
	player, err := m.store.FindPlayerByEmail(ctx, emailAddr)
	if err != nil {
		return err
	}

	if player.Confirmed {
		return model.ErrAlreadyConfirmed
	}

	return m.issueConfirmation(ctx, player, email.TemplateConfirmRegistration, player.Email, locale, nil)
}

// ChangeUsername replaces the player's username after re-checking the
// password, and notifies the account's email address. All existing sessions
// are invalidated, since the old username may be what an attacker knows.
func (m *Manager) ChangeUsername(ctx context.Context, player *model.Player, password, newUsername, locale string) error {
	if !m.hasher.Verify(password, player.PasswordDigest) {
		return model.ErrBadPassword
	}
	if err := validate.NewUsername(newUsername); err != nil {
		return err
	}

	player.Username = newUsername
	player.SessionValidAfter = m.clock.Now()
	if err := m.store.UpdatePlayer(ctx, player); err != nil {
		return err
	}
	if err := m.ledger.RevokeAll(ctx, player.ID); err != nil {
		return err
	}

	m.send(ctx, player.Email, email.TemplateUsernameChanged, locale, email.Params{
		email.ParamUsername: newUsername,
	})
	return nil
}

// ChangePassword replaces the player's password. The new password may not
// match the current one or any of the retained previous ones. All existing
// sessions are invalidated and an undo link is emailed.
func (m *Manager) ChangePassword(ctx context.Context, player *model.Player, currentPassword, newPassword, locale string) error {
	if !m.hasher.Verify(currentPassword, player.PasswordDigest) {
		return model.ErrBadPassword
	}
	if err := validate.NewPassword(newPassword); err != nil {
		return err
	}
	if m.passwordSeenBefore(newPassword, player) {
		return model.ErrPasswordReused
	}

	digest, err := m.hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	player.PasswordHistory = pushHistory(player.PasswordDigest, player.PasswordHistory)
	player.PasswordDigest = digest
	player.SessionValidAfter = m.clock.Now()

	if err := m.store.UpdatePlayer(ctx, player); err != nil {
		return err
	}
	if err := m.ledger.RevokeAll(ctx, player.ID); err != nil {
		return err
	}

	undoID, err := m.issueUndo(ctx, player.ID, model.CredentialPassword)
	if err != nil {
		return err
	}
	m.send(ctx, player.Email, email.TemplatePasswordChanged, locale, email.Params{
		email.ParamUsername:    player.Username,
		email.ParamUndoTokenID: undoID,
	})
	return nil
}

// UndoPasswordChange recovers from an unwanted password change via the
// emailed undo link: the holder picks a fresh password, subject to the same
// reuse ban as a normal change, and every session is invalidated again,
// cutting off whoever performed the change.
func (m *Manager) UndoPasswordChange(ctx context.Context, tokenID, newPassword string) error {
	token, player, err := m.undoToken(ctx, tokenID, model.CredentialPassword)
	if err != nil {
		return err
	}

	if err := validate.NewPassword(newPassword); err != nil {
		return err
	}
	if m.passwordSeenBefore(newPassword, player) {
		return model.ErrPasswordReused
	}

	digest, err := m.hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	player.PasswordHistory = pushHistory(player.PasswordDigest, player.PasswordHistory)
	player.PasswordDigest = digest
	player.SessionValidAfter = m.clock.Now()

	if err := m.store.UpdatePlayer(ctx, player); err != nil {
		return err
	}
	if err := m.ledger.RevokeAll(ctx, player.ID); err != nil {
		return err
	}
	if err := m.store.ClearLockout(ctx, player.ID); err != nil {
		return err
	}

	m.logger.Info("password change undone",
		slog.String("player_id", string(player.ID)),
	)
	return m.store.DeleteUndoToken(ctx, token.ID)
}

// RequestEmailChange stages a new email address. A confirmation link goes to
// the proposed address and a warning with an undo link goes to the current
// one; the account's address only changes once the link is confirmed.
func (m *Manager) RequestEmailChange(ctx context.Context, player *model.Player, password, newEmail, locale string) error {
	if !m.hasher.Verify(password, player.PasswordDigest) {
		return model.ErrBadPassword
	}
	if err := validate.NewEmail(newEmail); err != nil {
		return err
	}

	if _, err := m.store.FindPlayerByEmail(ctx, newEmail); err == nil {
		return model.ErrEmailTaken
	} else if !errors.Is(err, model.ErrPlayerNotFound) {
		return err
	}

	player.ProposedEmail = newEmail
	if err := m.store.UpdatePlayer(ctx, player); err != nil {
		return err
	}

	if err := m.issueConfirmation(ctx, player, email.TemplateConfirmEmailChange, newEmail, locale, email.Params{
		email.ParamNewEmail: newEmail,
	}); err != nil {
		return err
	}

	undoID, err := m.issueUndo(ctx, player.ID, model.CredentialEmail)
	if err != nil {
		return err
	}
	m.send(ctx, player.Email, email.TemplateEmailChangeWarning, locale, email.Params{
		email.ParamUsername:    player.Username,
		email.ParamOldEmail:    player.Email,
		email.ParamNewEmail:    newEmail,
		email.ParamUndoTokenID: undoID,
	})
	return nil
}

// ConfirmEmailChange applies a staged email change once the proposed address
// proves control of the confirmation link. All existing sessions are
// invalidated. The undo token is left in place so that a late undo attempt
// reports the closed window rather than an unknown token.
func (m *Manager) ConfirmEmailChange(ctx context.Context, tokenID string) error {
	token, player, err := m.confirmationToken(ctx, tokenID)
	if err != nil {
		return err
	}

	if !player.EmailChangePending() {
		return model.ErrNoPendingEmailChange
	}

	player.Email = player.ProposedEmail
	player.ProposedEmail = ""
	player.SessionValidAfter = m.clock.Now()
	if err := m.store.UpdatePlayer(ctx, player); err != nil {
		return err
	}
	if err := m.ledger.RevokeAll(ctx, player.ID); err != nil {
		return err
	}

	return m.store.DeleteConfirmationToken(ctx, token.ID)
}

// UndoEmailChange abandons a staged email change via the warning email's undo
// link. Once the change has been confirmed there is nothing left to undo.
func (m *Manager) UndoEmailChange(ctx context.Context, tokenID string) error {
	token, player, err := m.undoToken(ctx, tokenID, model.CredentialEmail)
	if err != nil {
		return err
	}

	if !player.EmailChangePending() {
		return model.ErrNoPendingEmailChange
	}

	player.ProposedEmail = ""
	if err := m.store.UpdatePlayer(ctx, player); err != nil {
		return err
	}

	if err := m.store.DeleteConfirmationTokenForPlayer(ctx, player.ID); err != nil {
		return err
	}
	return m.store.DeleteUndoToken(ctx, token.ID)
}

// CancelEmailChange abandons a staged email change from within the account
func (m *Manager) CancelEmailChange(ctx context.Context, player *model.Player) error {
	if !player.EmailChangePending() {
		return model.ErrNoPendingEmailChange
	}

	player.ProposedEmail = ""
	if err := m.store.UpdatePlayer(ctx, player); err != nil {
		return err
	}

	if err := m.store.DeleteConfirmationTokenForPlayer(ctx, player.ID); err != nil {
		return err
	}
	return m.store.DeleteUndoTokensForPlayer(ctx, player.ID, model.CredentialEmail)
}

// DeleteAccount removes the account and every credential attached to it
func (m *Manager) DeleteAccount(ctx context.Context, player *model.Player, password string) error {
	if !m.hasher.Verify(password, player.PasswordDigest) {
		return model.ErrBadPassword
	}

	if err := m.store.DeletePlayer(ctx, player.ID); err != nil {
		return err
	}
	if err := m.ledger.RevokeAll(ctx, player.ID); err != nil {
		return err
	}
	if err := m.store.DeleteConfirmationTokenForPlayer(ctx, player.ID); err != nil {
		return err
	}
	if err := m.store.DeleteUndoTokensForPlayer(ctx, player.ID, model.CredentialPassword); err != nil {
		return err
	}
	if err := m.store.DeleteUndoTokensForPlayer(ctx, player.ID, model.CredentialEmail); err != nil {
		return err
	}

	m.logger.Info("account deleted", slog.String("player_id", string(player.ID)))
	return nil
}

// confirmationToken resolves a confirmation token and its player, enforcing
// the logical expiry window
func (m *Manager) confirmationToken(ctx context.Context, tokenID string) (*model.ConfirmationToken, *model.Player, error) {
	token, err := m.store.GetConfirmationToken(ctx, tokenID)
	if err != nil {
		return nil, nil, err
	}
	if token.Expired(m.clock.Now()) {
		return nil, nil, model.ErrPersistentTokenExpired
	}

	player, err := m.store.GetPlayer(ctx, token.PlayerID)
	if err != nil {
		return nil, nil, err
	}
	return token, player, nil
}

// undoToken resolves an undo token of the given kind and its player
func (m *Manager) undoToken(ctx context.Context, tokenID string, kind model.CredentialKind) (*model.UndoToken, *model.Player, error) {
	token, err := m.store.GetUndoToken(ctx, tokenID)
	if err != nil {
		return nil, nil, err
	}
	if token.Kind != kind {
		return nil, nil, model.ErrTokenNotFound
	}
	if token.Expired(m.clock.Now()) {
		return nil, nil, model.ErrPersistentTokenExpired
	}

	player, err := m.store.GetPlayer(ctx, token.PlayerID)
	if err != nil {
		return nil, nil, err
	}
	return token, player, nil
}

// issueConfirmation mints a confirmation token for the player, superseding
// any outstanding one, and emails the link to the given address
func (m *Manager) issueConfirmation(ctx context.Context, player *model.Player, tmpl email.Template, to, locale string, extra email.Params) error {
	token := &model.ConfirmationToken{
		ID:        uuid.NewString(),
		PlayerID:  player.ID,
		CreatedAt: m.clock.Now(),
	}
	if err := m.store.UpsertConfirmationToken(ctx, token); err != nil {
		return err
	}

	params := email.Params{
		email.ParamUsername: player.Username,
		email.ParamTokenID:  token.ID,
	}
	for k, v := range extra {
		params[k] = v
	}
	m.send(ctx, to, tmpl, locale, params)
	return nil
}

// issueUndo mints an undo token for the player and kind, superseding any
// outstanding one
func (m *Manager) issueUndo(ctx context.Context, playerID model.PlayerID, kind model.CredentialKind) (string, error) {
	token := &model.UndoToken{
		ID:        uuid.NewString(),
		PlayerID:  playerID,
		Kind:      kind,
		CreatedAt: m.clock.Now(),
	}
	if err := m.store.UpsertUndoToken(ctx, token); err != nil {
		return "", err
	}
	return token.ID, nil
}

// passwordSeenBefore reports whether the candidate matches the current
// password or any retained previous one
func (m *Manager) passwordSeenBefore(candidate string, player *model.Player) bool {
	if m.hasher.Verify(candidate, player.PasswordDigest) {
		return true
	}
	for _, digest := range player.PasswordHistory {
		if m.hasher.Verify(candidate, digest) {
			return true
		}
	}
	return false
}

// send delivers a notification email. Failures are logged, not surfaced; a
// completed credential change never rolls back because a mail server was down.
func (m *Manager) send(ctx context.Context, to string, tmpl email.Template, locale string, params email.Params) {
	if err := m.sender.Send(ctx, to, tmpl, locale, params); err != nil {
		m.logger.Error("email delivery failed",
			slog.String("template", string(tmpl)),
			slog.Any("error", err),
		)
	}
}

// pushHistory prepends a digest to the history, keeping at most
// model.PasswordHistorySize entries
func pushHistory(digest string, history []string) []string {
	out := append([]string{digest}, history...)
	if len(out) > model.PasswordHistorySize {
		out = out[:model.PasswordHistorySize]
	}
	return out
}
