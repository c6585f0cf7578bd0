package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/deckmate/deckmate/internal/api/apierr"
	"github.com/deckmate/deckmate/internal/model"
	"github.com/deckmate/deckmate/internal/services/session"
)

type contextKey string

const playerContextKey contextKey = "player"

// Auth creates authentication middleware. The bearer access token is
// verified and the resolved player stored in the request context.
func Auth(authenticator *session.Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := extractBearer(r)
			if err != nil {
				apierr.WriteError(w, err)
				return
			}

			player, err := authenticator.ValidateAccess(r.Context(), raw)
			if err != nil {
				apierr.WriteError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), playerContextKey, player)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractBearer pulls the access token out of the Authorization header
func extractBearer(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", model.ErrMissingAccessToken
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return "", model.ErrMissingAccessToken
	}
	return token, nil
}

// GetPlayer returns the authenticated player from the request context
func GetPlayer(ctx context.Context) *model.Player {
	player, _ := ctx.Value(playerContextKey).(*model.Player)
	return player
}

// MustGetPlayer returns the authenticated player or panics
func MustGetPlayer(ctx context.Context) *model.Player {
	player := GetPlayer(ctx)
	if player == nil {
		panic("no player in context - auth middleware not applied?")
	}
	return player
}
