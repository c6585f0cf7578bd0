// Package config loads server configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"errors"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
)

// Config holds the full server configuration
type Config struct {
	// Host and Port for the HTTP listener
	Host string
	Port int

	// StorageType selects the storage backend ("memory" or "redis")
	StorageType string
	// RedisURL is the Redis connection URL (required for redis storage)
	RedisURL string

	// JWTSecret signs access tokens
	JWTSecret string
	// BcryptCost tunes password hashing; 0 selects the bcrypt default
	BcryptCost int

	// SecureCookies marks the refresh cookie Secure; disable only for
	// local plain-HTTP development
	SecureCookies bool
	// RevokeOnReuse revokes all of a player's refresh tokens when a
	// rotated-out token is presented again
	RevokeOnReuse bool

	// SMTP settings; when SMTPHost is empty, emails are logged instead
	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	SMTPFrom string
	// FrontendURL is the base URL used in emailed links
	FrontendURL string
}

// Load reads configuration from the environment. A .env file in the working
// directory is merged in first if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Host:          os.Getenv("HOST"),
		Port:          envInt("PORT", 8080),
		StorageType:   envDefault("STORAGE_TYPE", StorageTypeMemory),
		RedisURL:      os.Getenv("REDIS_URL"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		BcryptCost:    envInt("BCRYPT_COST", 0),
		SecureCookies: envBool("SECURE_COOKIES", true),
		RevokeOnReuse: envBool("REVOKE_ON_REUSE", true),
		SMTPHost:      os.Getenv("SMTP_HOST"),
		SMTPPort:      envInt("SMTP_PORT", 587),
		SMTPUser:      os.Getenv("SMTP_USER"),
		SMTPPass:      os.Getenv("SMTP_PASS"),
		SMTPFrom:      os.Getenv("SMTP_FROM"),
		FrontendURL:   envDefault("FRONTEND_URL", "http://localhost:8080"),
	}

	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	if cfg.StorageType == StorageTypeRedis && cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL required when STORAGE_TYPE=redis")
	}

	return cfg, nil
}

func envDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
