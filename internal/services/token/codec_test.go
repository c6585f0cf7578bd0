package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/deckmate/deckmate/internal/dependencies/mocks"
	"github.com/deckmate/deckmate/internal/model"
)

type CodecSuite struct {
	suite.Suite
	clock *mocks.MockClock
	codec *Codec
}

func TestCodecSuite(t *testing.T) {
	suite.Run(t, new(CodecSuite))
}

func (s *CodecSuite) SetupTest() {
	s.clock = mocks.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	s.codec = NewCodec([]byte("test-secret"), s.clock, 0)
}

func (s *CodecSuite) TestIssueAndDecode() {
	raw, err := s.codec.Issue("player-1")
	s.Require().NoError(err)

	claims, err := s.codec.Decode(raw)
	s.Require().NoError(err)
	s.Equal(model.PlayerID("player-1"), claims.PlayerID)
	s.Equal(s.clock.Now().Unix(), claims.IssuedAt.Unix())
}

func (s *CodecSuite) TestDecodeExpired() {
	raw, err := s.codec.Issue("player-1")
	s.Require().NoError(err)

	s.clock.Advance(model.AccessTokenLifetime + time.Minute)

	_, err = s.codec.Decode(raw)
	s.ErrorIs(err, model.ErrExpiredAccessToken)
}

func (s *CodecSuite) TestDecodeJustBeforeExpiry() {
	raw, err := s.codec.Issue("player-1")
	s.Require().NoError(err)

	s.clock.Advance(model.AccessTokenLifetime - time.Minute)

	_, err = s.codec.Decode(raw)
	s.NoError(err)
}

func (s *CodecSuite) TestDecodeWrongSecret() {
	other := NewCodec([]byte("other-secret"), s.clock, 0)
	raw, err := other.Issue("player-1")
	s.Require().NoError(err)

	_, err = s.codec.Decode(raw)
	s.ErrorIs(err, model.ErrBadAccessToken)
}

func (s *CodecSuite) TestDecodeGarbage() {
	_, err := s.codec.Decode("not-a-token")
	s.ErrorIs(err, model.ErrBadAccessToken)
}

func (s *CodecSuite) TestCustomLifetime() {
	codec := NewCodec([]byte("test-secret"), s.clock, time.Minute)
	raw, err := codec.Issue("player-1")
	s.Require().NoError(err)

	s.clock.Advance(2 * time.Minute)

	_, err = codec.Decode(raw)
	s.ErrorIs(err, model.ErrExpiredAccessToken)
}
