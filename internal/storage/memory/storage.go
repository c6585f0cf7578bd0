package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/deckmate/deckmate/internal/model"
	"github.com/deckmate/deckmate/internal/storage"
)

// Storage is an in-memory implementation of the storage interface.
// A single mutex covers every map, which trivially gives the atomicity the
// interface demands (check-and-insert, atomic increments, single-delete).
type Storage struct {
	mu sync.Mutex

	players       map[model.PlayerID]*model.Player
	usernameIndex map[string]model.PlayerID
	emailIndex    map[string]model.PlayerID

	lockouts map[model.PlayerID]*model.Lockout

	confirmationTokens  map[string]*model.ConfirmationToken
	confirmationByOwner map[model.PlayerID]string

	refreshTokens map[string]*model.RefreshToken

	undoTokens  map[string]*model.UndoToken
	undoByOwner map[undoOwnerKey]string
}

type undoOwnerKey struct {
	playerID model.PlayerID
	kind     model.CredentialKind
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		players:             make(map[model.PlayerID]*model.Player),
		usernameIndex:       make(map[string]model.PlayerID),
		emailIndex:          make(map[string]model.PlayerID),
		lockouts:            make(map[model.PlayerID]*model.Lockout),
		confirmationTokens:  make(map[string]*model.ConfirmationToken),
		confirmationByOwner: make(map[model.PlayerID]string),
		refreshTokens:       make(map[string]*model.RefreshToken),
		undoTokens:          make(map[string]*model.UndoToken),
		undoByOwner:         make(map[undoOwnerKey]string),
	}
}

// Ensure Storage implements the interface
var _ storage.Store = (*Storage)(nil)

// Player operations

func (s *Storage) CreatePlayer(ctx context.Context, player *model.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username := model.NormalizeIdentifier(player.Username)
	email := model.NormalizeIdentifier(player.Email)

	if _, taken := s.usernameIndex[username]; taken {
		return model.ErrUsernameTaken
	}
	if _, taken := s.emailIndex[email]; taken {
		return model.ErrEmailTaken
	}

	p := *player
	s.players[p.ID] = &p
	s.usernameIndex[username] = p.ID
	s.emailIndex[email] = p.ID
	return nil
}

func (s *Storage) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getPlayerLocked(id)
}

func (s *Storage) getPlayerLocked(id model.PlayerID) (*model.Player, error) {
	player, ok := s.players[id]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	p := *player
	return &p, nil
}

func (s *Storage) FindPlayerByUsername(ctx context.Context, username string) (*model.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.usernameIndex[model.NormalizeIdentifier(username)]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	return s.getPlayerLocked(id)
}

func (s *Storage) FindPlayerByEmail(ctx context.Context, email string) (*model.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.emailIndex[model.NormalizeIdentifier(email)]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	return s.getPlayerLocked(id)
}

func (s *Storage) FindPlayerByIdentifier(ctx context.Context, usernameOrEmail string) (*model.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := model.NormalizeIdentifier(usernameOrEmail)
	if id, ok := s.usernameIndex[key]; ok {
		return s.getPlayerLocked(id)
	}
	if id, ok := s.emailIndex[key]; ok {
		return s.getPlayerLocked(id)
	}
	return nil, model.ErrPlayerNotFound
}

func (s *Storage) UpdatePlayer(ctx context.Context, player *model.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.players[player.ID]
	if !ok {
		return model.ErrPlayerNotFound
	}

	oldUsername := model.NormalizeIdentifier(current.Username)
	newUsername := model.NormalizeIdentifier(player.Username)
	oldEmail := model.NormalizeIdentifier(current.Email)
	newEmail := model.NormalizeIdentifier(player.Email)

	if newUsername != oldUsername {
		if owner, taken := s.usernameIndex[newUsername]; taken && owner != player.ID {
			return model.ErrUsernameTaken
		}
	}
	if newEmail != oldEmail {
		if owner, taken := s.emailIndex[newEmail]; taken && owner != player.ID {
			return model.ErrEmailTaken
		}
	}

	if newUsername != oldUsername {
		delete(s.usernameIndex, oldUsername)
		s.usernameIndex[newUsername] = player.ID
	}
	if newEmail != oldEmail {
		delete(s.emailIndex, oldEmail)
		s.emailIndex[newEmail] = player.ID
	}

	p := *player
	s.players[p.ID] = &p
	return nil
}

func (s *Storage) DeletePlayer(ctx context.Context, id model.PlayerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	player, ok := s.players[id]
	if !ok {
		return model.ErrPlayerNotFound
	}

	delete(s.usernameIndex, model.NormalizeIdentifier(player.Username))
	delete(s.emailIndex, model.NormalizeIdentifier(player.Email))
	delete(s.players, id)
	delete(s.lockouts, id)
	return nil
}

// Lockout operations

func (s *Storage) IncrementFailedLogins(ctx context.Context, id model.PlayerID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lockout, ok := s.lockouts[id]
	if !ok {
		lockout = &model.Lockout{}
		s.lockouts[id] = lockout
	}
	lockout.FailedLogins++
	return lockout.FailedLogins, nil
}

func (s *Storage) SetLockedUntil(ctx context.Context, id model.PlayerID, until time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lockout, ok := s.lockouts[id]
	if !ok {
		lockout = &model.Lockout{}
		s.lockouts[id] = lockout
	}
	lockout.LockedUntil = until
	return nil
}

func (s *Storage) GetLockout(ctx context.Context, id model.PlayerID) (*model.Lockout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lockout, ok := s.lockouts[id]
	if !ok {
		return &model.Lockout{}, nil
	}
	l := *lockout
	return &l, nil
}

func (s *Storage) ClearLockout(ctx context.Context, id model.PlayerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.lockouts, id)
	return nil
}

// Confirmation token operations

func (s *Storage) UpsertConfirmationToken(ctx context.Context, token *model.ConfirmationToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if oldID, ok := s.confirmationByOwner[token.PlayerID]; ok {
		delete(s.confirmationTokens, oldID)
	}

	t := *token
	s.confirmationTokens[t.ID] = &t
	s.confirmationByOwner[t.PlayerID] = t.ID
	return nil
}

func (s *Storage) GetConfirmationToken(ctx context.Context, id string) (*model.ConfirmationToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, ok := s.confirmationTokens[id]
	if !ok {
		return nil, model.ErrTokenNotFound
	}
	t := *token
	return &t, nil
}

func (s *Storage) DeleteConfirmationToken(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if token, ok := s.confirmationTokens[id]; ok {
		delete(s.confirmationByOwner, token.PlayerID)
		delete(s.confirmationTokens, id)
	}
	return nil
}

func (s *Storage) DeleteConfirmationTokenForPlayer(ctx context.Context, playerID model.PlayerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.confirmationByOwner[playerID]; ok {
		delete(s.confirmationTokens, id)
		delete(s.confirmationByOwner, playerID)
	}
	return nil
}

// Refresh token operations

func (s *Storage) SaveRefreshToken(ctx context.Context, token *model.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := *token
	s.refreshTokens[t.ID] = &t
	return nil
}

func (s *Storage) GetRefreshToken(ctx context.Context, id string) (*model.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, ok := s.refreshTokens[id]
	if !ok {
		return nil, model.ErrTokenNotFound
	}
	t := *token
	return &t, nil
}

func (s *Storage) ListRefreshTokens(ctx context.Context, playerID model.PlayerID) ([]*model.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var tokens []*model.RefreshToken
	for _, token := range s.refreshTokens {
		if token.PlayerID == playerID {
			t := *token
			tokens = append(tokens, &t)
		}
	}

	sort.Slice(tokens, func(i, j int) bool {
		return tokens[i].CreatedAt.Before(tokens[j].CreatedAt)
	})
	return tokens, nil
}

func (s *Storage) DeleteRefreshToken(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.refreshTokens[id]
	delete(s.refreshTokens, id)
	return ok, nil
}

func (s *Storage) DeleteRefreshTokensForPlayer(ctx context.Context, playerID model.PlayerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, token := range s.refreshTokens {
		if token.PlayerID == playerID {
			delete(s.refreshTokens, id)
		}
	}
	return nil
}

// Undo token operations

func (s *Storage) UpsertUndoToken(ctx context.Context, token *model.UndoToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	owner := undoOwnerKey{playerID: token.PlayerID, kind: token.Kind}
	if oldID, ok := s.undoByOwner[owner]; ok {
		delete(s.undoTokens, oldID)
	}

	t := *token
	s.undoTokens[t.ID] = &t
	s.undoByOwner[owner] = t.ID
	return nil
}

func (s *Storage) GetUndoToken(ctx context.Context, id string) (*model.UndoToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, ok := s.undoTokens[id]
	if !ok {
		return nil, model.ErrTokenNotFound
	}
	t := *token
	return &t, nil
}

func (s *Storage) DeleteUndoToken(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if token, ok := s.undoTokens[id]; ok {
		delete(s.undoByOwner, undoOwnerKey{playerID: token.PlayerID, kind: token.Kind})
		delete(s.undoTokens, id)
	}
	return nil
}

func (s *Storage) DeleteUndoTokensForPlayer(ctx context.Context, playerID model.PlayerID, kind model.CredentialKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	owner := undoOwnerKey{playerID: playerID, kind: kind}
	if id, ok := s.undoByOwner[owner]; ok {
		delete(s.undoTokens, id)
		delete(s.undoByOwner, owner)
	}
	return nil
}
