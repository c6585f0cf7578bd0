package redis

import (
	"time"

	"github.com/deckmate/deckmate/internal/model"
)

// Config holds Redis connection and retention settings
type Config struct {
	// URL is the Redis connection URL (e.g., redis://localhost:6379)
	URL string

	// Pool settings
	PoolSize     int
	MinIdleConns int

	// Storage retention per token kind. These are cleanup horizons only; the
	// services enforce the logical expiry windows themselves.
	ConfirmationTokenTTL time.Duration
	RefreshTokenTTL      time.Duration
	UndoTokenTTL         time.Duration
}

// DefaultConfig returns sensible defaults for Redis configuration
func DefaultConfig() Config {
	return Config{
		URL:                  "redis://localhost:6379",
		PoolSize:             10,
		MinIdleConns:         2,
		ConfirmationTokenTTL: model.ConfirmationTokenRetention,
		RefreshTokenTTL:      model.RefreshTokenLifetime,
		UndoTokenTTL:         model.UndoTokenLifetime,
	}
}
