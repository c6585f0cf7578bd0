package refresh

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/deckmate/deckmate/internal/dependencies/mocks"
	"github.com/deckmate/deckmate/internal/model"
	"github.com/deckmate/deckmate/internal/storage/memory"
	"github.com/deckmate/deckmate/internal/testutil"
)

type LedgerSuite struct {
	suite.Suite
	store  *memory.Storage
	clock  *mocks.MockClock
	ledger *Ledger
	ctx    context.Context
}

func TestLedgerSuite(t *testing.T) {
	suite.Run(t, new(LedgerSuite))
}

func (s *LedgerSuite) SetupTest() {
	s.store = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	s.ledger = NewLedger(s.store, s.clock, testutil.NopLogger(), DefaultConfig())
	s.ctx = context.Background()
}

func (s *LedgerSuite) liveTokens(playerID model.PlayerID) []*model.RefreshToken {
	tokens, err := s.store.ListRefreshTokens(s.ctx, playerID)
	s.Require().NoError(err)
	var live []*model.RefreshToken
	for _, t := range tokens {
		if !t.Revoked {
			live = append(live, t)
		}
	}
	return live
}

func (s *LedgerSuite) TestIssueStoresDigestNotSecret() {
	issued, err := s.ledger.Issue(s.ctx, "player-1")
	s.Require().NoError(err)
	s.NotEmpty(issued.ID)
	s.NotEmpty(issued.Secret)

	stored, err := s.store.GetRefreshToken(s.ctx, issued.ID)
	s.Require().NoError(err)
	s.NotEqual(issued.Secret, stored.SecretDigest)
	s.Equal(digest(issued.Secret), stored.SecretDigest)
}

func (s *LedgerSuite) TestIssueEvictsOldestAtCap() {
	var first *Issued
	for i := 0; i < model.MaxRefreshTokensPerPlayer; i++ {
		issued, err := s.ledger.Issue(s.ctx, "player-1")
		s.Require().NoError(err)
		if first == nil {
			first = issued
		}
		s.clock.Advance(time.Minute)
	}

	_, err := s.ledger.Issue(s.ctx, "player-1")
	s.Require().NoError(err)

	s.Len(s.liveTokens("player-1"), model.MaxRefreshTokensPerPlayer)
	_, err = s.store.GetRefreshToken(s.ctx, first.ID)
	s.ErrorIs(err, model.ErrTokenNotFound)
}

func (s *LedgerSuite) TestRotateIssuesNewAndConsumesOld() {
	issued, err := s.ledger.Issue(s.ctx, "player-1")
	s.Require().NoError(err)

	playerID, next, err := s.ledger.Rotate(s.ctx, issued.ID, issued.Secret)
	s.Require().NoError(err)
	s.Equal(model.PlayerID("player-1"), playerID)
	s.NotEqual(issued.ID, next.ID)

	// The consumed token survives only as a revoked marker
	old, err := s.store.GetRefreshToken(s.ctx, issued.ID)
	s.Require().NoError(err)
	s.True(old.Revoked)
}

func (s *LedgerSuite) TestRotateWrongSecret() {
	issued, err := s.ledger.Issue(s.ctx, "player-1")
	s.Require().NoError(err)

	_, _, err = s.ledger.Rotate(s.ctx, issued.ID, "wrong")
	s.ErrorIs(err, model.ErrBadCookieCredentials)
}

func (s *LedgerSuite) TestRotateUnknownToken() {
	_, _, err := s.ledger.Rotate(s.ctx, "nonexistent", "secret")
	s.ErrorIs(err, model.ErrBadCookieCredentials)
}

func (s *LedgerSuite) TestRotateExpiredToken() {
	issued, err := s.ledger.Issue(s.ctx, "player-1")
	s.Require().NoError(err)

	s.clock.Advance(model.RefreshTokenLifetime + time.Hour)

	_, _, err = s.ledger.Rotate(s.ctx, issued.ID, issued.Secret)
	s.ErrorIs(err, model.ErrExpiredRefreshToken)
}

func (s *LedgerSuite) TestRotateExpiryCheckedBeforeSecretAndRevocation() {
	issued, err := s.ledger.Issue(s.ctx, "player-1")
	s.Require().NoError(err)

	s.clock.Advance(model.RefreshTokenLifetime + time.Hour)

	// An expired token reports expiry even when the secret is wrong
	_, _, err = s.ledger.Rotate(s.ctx, issued.ID, "wrong")
	s.ErrorIs(err, model.ErrExpiredRefreshToken)

	// Same for an expired revoked marker
	stale, err := s.ledger.Issue(s.ctx, "player-1")
	s.Require().NoError(err)
	stored, err := s.store.GetRefreshToken(s.ctx, stale.ID)
	s.Require().NoError(err)
	stored.Revoked = true
	stored.CreatedAt = stored.CreatedAt.Add(-model.RefreshTokenLifetime - time.Hour)
	s.Require().NoError(s.store.SaveRefreshToken(s.ctx, stored))

	_, _, err = s.ledger.Rotate(s.ctx, stale.ID, stale.Secret)
	s.ErrorIs(err, model.ErrExpiredRefreshToken)
}

func (s *LedgerSuite) TestReuseRevokesEverything() {
	issued, err := s.ledger.Issue(s.ctx, "player-1")
	s.Require().NoError(err)

	_, next, err := s.ledger.Rotate(s.ctx, issued.ID, issued.Secret)
	s.Require().NoError(err)

	// Presenting the consumed token again burns the whole session set
	_, _, err = s.ledger.Rotate(s.ctx, issued.ID, issued.Secret)
	s.Require().ErrorIs(err, model.ErrRevokedRefreshToken)

	_, _, err = s.ledger.Rotate(s.ctx, next.ID, next.Secret)
	s.ErrorIs(err, model.ErrBadCookieCredentials)
}

func (s *LedgerSuite) TestReuseWithoutRevocationPolicy() {
	ledger := NewLedger(s.store, s.clock, testutil.NopLogger(), Config{RevokeOnReuse: false})

	issued, err := ledger.Issue(s.ctx, "player-1")
	s.Require().NoError(err)
	_, next, err := ledger.Rotate(s.ctx, issued.ID, issued.Secret)
	s.Require().NoError(err)

	_, _, err = ledger.Rotate(s.ctx, issued.ID, issued.Secret)
	s.Require().ErrorIs(err, model.ErrRevokedRefreshToken)

	// The live token keeps working
	_, _, err = ledger.Rotate(s.ctx, next.ID, next.Secret)
	s.NoError(err)
}

func (s *LedgerSuite) TestRevokeAll() {
	for i := 0; i < 2; i++ {
		_, err := s.ledger.Issue(s.ctx, "player-1")
		s.Require().NoError(err)
	}

	s.Require().NoError(s.ledger.RevokeAll(s.ctx, "player-1"))
	s.Empty(s.liveTokens("player-1"))
}
