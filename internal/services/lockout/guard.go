// Package lockout tracks consecutive failed logins and escalates lock
// durations once an account crosses the failure threshold.
package lockout

import (
	"context"
	"log/slog"
	"time"

	"github.com/deckmate/deckmate/internal/dependencies/clock"
	"github.com/deckmate/deckmate/internal/model"
	"github.com/deckmate/deckmate/internal/storage"
)

const (
	// FailureThreshold is the consecutive-failure count at which the first
	// lock is applied
	FailureThreshold = 5
	// LockStep is the base lock duration; each failure past the threshold
	// adds another step
	LockStep = 15 * time.Minute
)

// Guard applies the account lockout policy around login attempts
type Guard struct {
	store  storage.Store
	clock  clock.Clock
	logger *slog.Logger
}

// NewGuard creates a Guard
func NewGuard(store storage.Store, clk clock.Clock, logger *slog.Logger) *Guard {
	return &Guard{
		store:  store,
		clock:  clk,
		logger: logger,
	}
}

// Check returns an AccountLockedError if the account is currently locked
func (g *Guard) Check(ctx context.Context, id model.PlayerID) error {
	lock, err := g.store.GetLockout(ctx, id)
	if err != nil {
		return err
	}
	if lock.Locked(g.clock.Now()) {
		return model.NewAccountLockedError(lock.LockedUntil)
	}
	return nil
}

// RecordFailure counts a failed login. On the Nth consecutive failure at or
// past the threshold the account is locked for LockStep * (N - threshold + 1),
// so locks grow by fifteen minutes per further failure.
func (g *Guard) RecordFailure(ctx context.Context, id model.PlayerID) error {
	count, err := g.store.IncrementFailedLogins(ctx, id)
	if err != nil {
		return err
	}
	if count < FailureThreshold {
		return nil
	}

	until := g.clock.Now().Add(LockStep * time.Duration(count-FailureThreshold+1))
	if err := g.store.SetLockedUntil(ctx, id, until); err != nil {
		return err
	}

	g.logger.Warn("account locked after repeated login failures",
		slog.String("player_id", string(id)),
		slog.Int("failed_logins", count),
		slog.Time("locked_until", until),
	)
	return nil
}

// RecordSuccess resets the failure counter and clears any lock
func (g *Guard) RecordSuccess(ctx context.Context, id model.PlayerID) error {
	return g.store.ClearLockout(ctx, id)
}
