package response

import (
	"time"

	"github.com/deckmate/deckmate/internal/model"
)

// Player represents a player in API responses
type Player struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	Confirmed     bool      `json:"confirmed"`
	ProposedEmail string    `json:"proposed_email,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// PlayerFromModel converts a model.Player to a response Player
func PlayerFromModel(p *model.Player) Player {
	return Player{
		ID:            string(p.ID),
		Username:      p.Username,
		Email:         p.Email,
		Confirmed:     p.Confirmed,
		ProposedEmail: p.ProposedEmail,
		CreatedAt:     p.CreatedAt,
	}
}

// TokenResponse is the response for login and refresh.
// The rotated refresh token travels separately in an HTTP-only cookie.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// NewTokenResponse builds a TokenResponse for an access token
func NewTokenResponse(accessToken string) TokenResponse {
	return TokenResponse{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int(model.AccessTokenLifetime.Seconds()),
	}
}
