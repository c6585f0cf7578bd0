package redis

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/deckmate/deckmate/internal/model"
	"github.com/deckmate/deckmate/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface.
// Documents are stored as JSON blobs; uniqueness and ownership are kept in
// secondary index keys claimed with SETNX so check-and-insert is atomic.
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Store = (*Storage)(nil)

// Player operations

func (s *Storage) CreatePlayer(ctx context.Context, player *model.Player) error {
	data, err := json.Marshal(player)
	if err != nil {
		return err
	}

	// Claim the uniqueness indexes first; SETNX makes each claim atomic
	usernameClaimed, err := s.client.SetNX(ctx, usernameIndexKey(player.Username), string(player.ID), 0).Result()
	if err != nil {
		return err
	}
	if !usernameClaimed {
		return model.ErrUsernameTaken
	}

	emailClaimed, err := s.client.SetNX(ctx, emailIndexKey(player.Email), string(player.ID), 0).Result()
	if err != nil {
		return err
	}
	if !emailClaimed {
		// Release the username claim before reporting the conflict
		_ = s.client.Del(ctx, usernameIndexKey(player.Username)).Err()
		return model.ErrEmailTaken
	}

	return s.client.Set(ctx, playerKey(player.ID), data, 0).Err()
}

func (s *Storage) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	data, err := s.client.Get(ctx, playerKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrPlayerNotFound
		}
		return nil, err
	}

	var player model.Player
	if err := json.Unmarshal(data, &player); err != nil {
		return nil, err
	}
	return &player, nil
}

func (s *Storage) FindPlayerByUsername(ctx context.Context, username string) (*model.Player, error) {
	return s.findPlayerByIndex(ctx, usernameIndexKey(username))
}

func (s *Storage) FindPlayerByEmail(ctx context.Context, email string) (*model.Player, error) {
	return s.findPlayerByIndex(ctx, emailIndexKey(email))
}

func (s *Storage) FindPlayerByIdentifier(ctx context.Context, usernameOrEmail string) (*model.Player, error) {
	player, err := s.FindPlayerByUsername(ctx, usernameOrEmail)
	if err == nil || !errors.Is(err, model.ErrPlayerNotFound) {
		return player, err
	}
	return s.FindPlayerByEmail(ctx, usernameOrEmail)
}

func (s *Storage) findPlayerByIndex(ctx context.Context, indexKey string) (*model.Player, error) {
	playerID, err := s.client.Get(ctx, indexKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrPlayerNotFound
		}
		return nil, err
	}
	return s.GetPlayer(ctx, model.PlayerID(playerID))
}

func (s *Storage) UpdatePlayer(ctx context.Context, player *model.Player) error {
	current, err := s.GetPlayer(ctx, player.ID)
	if err != nil {
		return err
	}

	data, err := json.Marshal(player)
	if err != nil {
		return err
	}

	usernameChanged := model.NormalizeIdentifier(player.Username) != model.NormalizeIdentifier(current.Username)
	emailChanged := model.NormalizeIdentifier(player.Email) != model.NormalizeIdentifier(current.Email)

	if usernameChanged {
		claimed, err := s.client.SetNX(ctx, usernameIndexKey(player.Username), string(player.ID), 0).Result()
		if err != nil {
			return err
		}
		if !claimed {
			return model.ErrUsernameTaken
		}
	}
	if emailChanged {
		claimed, err := s.client.SetNX(ctx, emailIndexKey(player.Email), string(player.ID), 0).Result()
		if err != nil {
			if usernameChanged {
				_ = s.client.Del(ctx, usernameIndexKey(player.Username)).Err()
			}
			return err
		}
		if !claimed {
			if usernameChanged {
				_ = s.client.Del(ctx, usernameIndexKey(player.Username)).Err()
			}
			return model.ErrEmailTaken
		}
	}

	// Write the document and drop superseded index entries together
	pipe := s.client.Pipeline()
	pipe.Set(ctx, playerKey(player.ID), data, 0)
	if usernameChanged {
		pipe.Del(ctx, usernameIndexKey(current.Username))
	}
	if emailChanged {
		pipe.Del(ctx, emailIndexKey(current.Email))
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) DeletePlayer(ctx context.Context, id model.PlayerID) error {
	player, err := s.GetPlayer(ctx, id)
	if err != nil {
		return err
	}

	pipe := s.client.Pipeline()
	pipe.Del(ctx, playerKey(id))
	pipe.Del(ctx, usernameIndexKey(player.Username))
	pipe.Del(ctx, emailIndexKey(player.Email))
	pipe.Del(ctx, failedLoginsKey(id))
	pipe.Del(ctx, lockedUntilKey(id))
	_, err = pipe.Exec(ctx)
	return err
}

// Lockout operations

func (s *Storage) IncrementFailedLogins(ctx context.Context, id model.PlayerID) (int, error) {
	count, err := s.client.Incr(ctx, failedLoginsKey(id)).Result()
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

func (s *Storage) SetLockedUntil(ctx context.Context, id model.PlayerID, until time.Time) error {
	return s.client.Set(ctx, lockedUntilKey(id), until.Format(time.RFC3339Nano), 0).Err()
}

func (s *Storage) GetLockout(ctx context.Context, id model.PlayerID) (*model.Lockout, error) {
	values, err := s.client.MGet(ctx, failedLoginsKey(id), lockedUntilKey(id)).Result()
	if err != nil {
		return nil, err
	}

	lockout := &model.Lockout{}
	if raw, ok := values[0].(string); ok {
		if count, err := strconv.Atoi(raw); err == nil {
			lockout.FailedLogins = count
		}
	}
	if raw, ok := values[1].(string); ok {
		if until, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			lockout.LockedUntil = until
		}
	}
	return lockout, nil
}

func (s *Storage) ClearLockout(ctx context.Context, id model.PlayerID) error {
	return s.client.Del(ctx, failedLoginsKey(id), lockedUntilKey(id)).Err()
}

// Confirmation token operations

func (s *Storage) UpsertConfirmationToken(ctx context.Context, token *model.ConfirmationToken) error {
	data, err := json.Marshal(token)
	if err != nil {
		return err
	}

	// Drop any superseded token for this player before writing the new one
	oldID, err := s.client.Get(ctx, confirmationOwnerKey(token.PlayerID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}

	pipe := s.client.Pipeline()
	if oldID != "" && oldID != token.ID {
		pipe.Del(ctx, confirmationTokenKey(oldID))
	}
	pipe.Set(ctx, confirmationTokenKey(token.ID), data, s.cfg.ConfirmationTokenTTL)
	pipe.Set(ctx, confirmationOwnerKey(token.PlayerID), token.ID, s.cfg.ConfirmationTokenTTL)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetConfirmationToken(ctx context.Context, id string) (*model.ConfirmationToken, error) {
	data, err := s.client.Get(ctx, confirmationTokenKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrTokenNotFound
		}
		return nil, err
	}

	var token model.ConfirmationToken
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, err
	}
	return &token, nil
}

func (s *Storage) DeleteConfirmationToken(ctx context.Context, id string) error {
	token, err := s.GetConfirmationToken(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrTokenNotFound) {
			return nil
		}
		return err
	}

	pipe := s.client.Pipeline()
	pipe.Del(ctx, confirmationTokenKey(id))
	pipe.Del(ctx, confirmationOwnerKey(token.PlayerID))
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) DeleteConfirmationTokenForPlayer(ctx context.Context, playerID model.PlayerID) error {
	id, err := s.client.Get(ctx, confirmationOwnerKey(playerID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return err
	}

	pipe := s.client.Pipeline()
	pipe.Del(ctx, confirmationTokenKey(id))
	pipe.Del(ctx, confirmationOwnerKey(playerID))
	_, err = pipe.Exec(ctx)
	return err
}

// Refresh token operations

func (s *Storage) SaveRefreshToken(ctx context.Context, token *model.RefreshToken) error {
	data, err := json.Marshal(token)
	if err != nil {
		return err
	}

	ownerKey := refreshOwnerKey(token.PlayerID)

	pipe := s.client.Pipeline()
	pipe.Set(ctx, refreshTokenKey(token.ID), data, s.cfg.RefreshTokenTTL)
	pipe.SAdd(ctx, ownerKey, token.ID)
	pipe.Expire(ctx, ownerKey, s.cfg.RefreshTokenTTL) // Keep index TTL in sync
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetRefreshToken(ctx context.Context, id string) (*model.RefreshToken, error) {
	data, err := s.client.Get(ctx, refreshTokenKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrTokenNotFound
		}
		return nil, err
	}

	var token model.RefreshToken
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, err
	}
	return &token, nil
}

func (s *Storage) ListRefreshTokens(ctx context.Context, playerID model.PlayerID) ([]*model.RefreshToken, error) {
	ids, err := s.client.SMembers(ctx, refreshOwnerKey(playerID)).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = refreshTokenKey(id)
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	tokens := make([]*model.RefreshToken, 0, len(values))
	for i, val := range values {
		if val == nil {
			// Token expired out from under the index; tidy up
			_ = s.client.SRem(ctx, refreshOwnerKey(playerID), ids[i]).Err()
			continue
		}
		var token model.RefreshToken
		if err := json.Unmarshal([]byte(val.(string)), &token); err != nil {
			continue // Skip invalid data
		}
		tokens = append(tokens, &token)
	}

	sort.Slice(tokens, func(i, j int) bool {
		return tokens[i].CreatedAt.Before(tokens[j].CreatedAt)
	})
	return tokens, nil
}

func (s *Storage) DeleteRefreshToken(ctx context.Context, id string) (bool, error) {
	token, err := s.GetRefreshToken(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrTokenNotFound) {
			return false, nil
		}
		return false, err
	}

	// DEL's removal count decides the winner when two rotations race
	removed, err := s.client.Del(ctx, refreshTokenKey(id)).Result()
	if err != nil {
		return false, err
	}
	_ = s.client.SRem(ctx, refreshOwnerKey(token.PlayerID), id).Err()
	return removed > 0, nil
}

func (s *Storage) DeleteRefreshTokensForPlayer(ctx context.Context, playerID model.PlayerID) error {
	ownerKey := refreshOwnerKey(playerID)

	ids, err := s.client.SMembers(ctx, ownerKey).Result()
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	pipe := s.client.Pipeline()
	for _, id := range ids {
		pipe.Del(ctx, refreshTokenKey(id))
	}
	pipe.Del(ctx, ownerKey)
	_, err = pipe.Exec(ctx)
	return err
}

// Undo token operations

func (s *Storage) UpsertUndoToken(ctx context.Context, token *model.UndoToken) error {
	data, err := json.Marshal(token)
	if err != nil {
		return err
	}

	ownerKey := undoOwnerKey(token.PlayerID, token.Kind)

	oldID, err := s.client.Get(ctx, ownerKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}

	pipe := s.client.Pipeline()
	if oldID != "" && oldID != token.ID {
		pipe.Del(ctx, undoTokenKey(oldID))
	}
	pipe.Set(ctx, undoTokenKey(token.ID), data, s.cfg.UndoTokenTTL)
	pipe.Set(ctx, ownerKey, token.ID, s.cfg.UndoTokenTTL)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetUndoToken(ctx context.Context, id string) (*model.UndoToken, error) {
	data, err := s.client.Get(ctx, undoTokenKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrTokenNotFound
		}
		return nil, err
	}

	var token model.UndoToken
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, err
	}
	return &token, nil
}

func (s *Storage) DeleteUndoToken(ctx context.Context, id string) error {
	token, err := s.GetUndoToken(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrTokenNotFound) {
			return nil
		}
		return err
	}

	pipe := s.client.Pipeline()
	pipe.Del(ctx, undoTokenKey(id))
	pipe.Del(ctx, undoOwnerKey(token.PlayerID, token.Kind))
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) DeleteUndoTokensForPlayer(ctx context.Context, playerID model.PlayerID, kind model.CredentialKind) error {
	ownerKey := undoOwnerKey(playerID, kind)

	id, err := s.client.Get(ctx, ownerKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return err
	}

	pipe := s.client.Pipeline()
	pipe.Del(ctx, undoTokenKey(id))
	pipe.Del(ctx, ownerKey)
	_, err = pipe.Exec(ctx)
	return err
}
