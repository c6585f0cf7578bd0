// Package token signs and verifies the short-lived access tokens handed to
// clients after login or refresh.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/deckmate/deckmate/internal/dependencies/clock"
	"github.com/deckmate/deckmate/internal/model"
)

// Claims is the decoded content of a verified access token
type Claims struct {
	PlayerID model.PlayerID
	IssuedAt time.Time
}

// Codec issues and verifies HS256-signed access tokens
type Codec struct {
	secret   []byte
	clock    clock.Clock
	lifetime time.Duration
}

// NewCodec creates a Codec. A lifetime of 0 selects the default access token
// lifetime.
func NewCodec(secret []byte, clk clock.Clock, lifetime time.Duration) *Codec {
	if lifetime == 0 {
		lifetime = model.AccessTokenLifetime
	}
	return &Codec{
		secret:   secret,
		clock:    clk,
		lifetime: lifetime,
	}
}

// Issue signs a new access token for the given player
func (c *Codec) Issue(playerID model.PlayerID) (string, error) {
	now := c.clock.Now()

	claims := jwt.RegisteredClaims{
		Subject:   string(playerID),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(c.lifetime)),
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

// Decode verifies a raw access token and returns its claims.
// Returns model.ErrExpiredAccessToken for an expired token and
// model.ErrBadAccessToken for anything else that fails verification.
func (c *Codec) Decode(raw string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.clock.Now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, model.ErrExpiredAccessToken
		}
		return nil, model.ErrBadAccessToken
	}

	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" || claims.IssuedAt == nil {
		return nil, model.ErrBadAccessToken
	}

	return &Claims{
		PlayerID: model.PlayerID(claims.Subject),
		IssuedAt: claims.IssuedAt.Time,
	}, nil
}
