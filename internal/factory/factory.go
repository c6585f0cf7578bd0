// Package factory wires the application together from configuration.
package factory

import (
	"errors"
	"io"
	"log/slog"

	"github.com/deckmate/deckmate/internal/dependencies/clock"
	"github.com/deckmate/deckmate/internal/dependencies/hash"
	"github.com/deckmate/deckmate/internal/email"
	"github.com/deckmate/deckmate/internal/services/credentials"
	"github.com/deckmate/deckmate/internal/services/lockout"
	"github.com/deckmate/deckmate/internal/services/refresh"
	"github.com/deckmate/deckmate/internal/services/session"
	"github.com/deckmate/deckmate/internal/services/token"
	"github.com/deckmate/deckmate/internal/storage"
	"github.com/deckmate/deckmate/internal/storage/memory"
	redisstorage "github.com/deckmate/deckmate/internal/storage/redis"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Store

	// External dependencies
	Clock  clock.Clock
	Hasher hash.Hasher
	Sender email.Sender

	// Services
	TokenCodec    *token.Codec
	LockoutGuard  *lockout.Guard
	RefreshLedger *refresh.Ledger
	Authenticator *session.Authenticator
	Credentials   *credentials.Manager
}

// Config holds configuration for the application factory
type Config struct {
	// JWTSecret signs access tokens (required)
	JWTSecret string
	// BcryptCost tunes password hashing; 0 selects the bcrypt default
	BcryptCost int
	// RefreshConfig holds refresh ledger settings (optional)
	// If zero value, defaults to refresh.DefaultConfig()
	RefreshConfig *refresh.Config
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory" or "redis")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// SMTPConfig enables real email delivery; if nil, emails are logged
	SMTPConfig *email.SMTPConfig
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	if cfg.JWTSecret == "" {
		return nil, errors.New("JWTSecret is required")
	}

	// Create storage based on type
	var store storage.Store
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		store = memory.New()
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		store = redisStore
	default:
		return nil, errors.New("invalid StorageType: must be 'memory' or 'redis'")
	}

	// Create external dependencies
	clk := clock.New()
	hasher := hash.NewBcrypt(cfg.BcryptCost)

	var sender email.Sender
	if cfg.SMTPConfig != nil {
		sender = email.NewSMTPSender(*cfg.SMTPConfig)
	} else {
		sender = email.NewLogSender(logger)
	}

	refreshCfg := refresh.DefaultConfig()
	if cfg.RefreshConfig != nil {
		refreshCfg = *cfg.RefreshConfig
	}

	return newWithDependencies(store, clk, hasher, sender, []byte(cfg.JWTSecret), refreshCfg, logger), nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(
	store storage.Store,
	clk clock.Clock,
	hasher hash.Hasher,
	sender email.Sender,
	jwtSecret []byte,
	refreshCfg refresh.Config,
	logger *slog.Logger,
) *App {
	// Create services
	codec := token.NewCodec(jwtSecret, clk, 0)
	guard := lockout.NewGuard(store, clk, logger)
	ledger := refresh.NewLedger(store, clk, logger, refreshCfg)
	authenticator := session.NewAuthenticator(store, codec, ledger, guard, hasher, logger)
	manager := credentials.NewManager(store, hasher, ledger, sender, clk, logger)

	return &App{
		Storage:       store,
		Clock:         clk,
		Hasher:        hasher,
		Sender:        sender,
		TokenCodec:    codec,
		LockoutGuard:  guard,
		RefreshLedger: ledger,
		Authenticator: authenticator,
		Credentials:   manager,
	}
}
