package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/deckmate/deckmate/internal/api/middleware"
	"github.com/deckmate/deckmate/internal/api/request"
	"github.com/deckmate/deckmate/internal/api/response"
	"github.com/deckmate/deckmate/internal/model"
	"github.com/deckmate/deckmate/internal/services/credentials"
	"github.com/deckmate/deckmate/internal/services/session"
)

// RefreshCookieName is the name of the HTTP-only refresh token cookie
const RefreshCookieName = "refresh_token"

// refreshCookiePath scopes the cookie to the endpoints that read it
const refreshCookiePath = "/api/v1/players"

// PlayerHandler handles account and session endpoints
type PlayerHandler struct {
	authenticator *session.Authenticator
	manager       *credentials.Manager
	secureCookies bool
}

// NewPlayerHandler creates a new player handler
func NewPlayerHandler(authenticator *session.Authenticator, manager *credentials.Manager, secureCookies bool) *PlayerHandler {
	return &PlayerHandler{
		authenticator: authenticator,
		manager:       manager,
		secureCookies: secureCookies,
	}
}

// Register handles POST /api/v1/players
func (h *PlayerHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req request.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	if req.Username == "" {
		WriteError(w, NewInvalidRequestError("username is required"))
		return
	}
	if req.Password == "" {
		WriteError(w, NewInvalidRequestError("password is required"))
		return
	}
	if req.Email == "" {
		WriteError(w, NewInvalidRequestError("email is required"))
		return
	}

	player, err := h.manager.Register(r.Context(), req.Username, req.Password, req.Email, requestLocale(r))
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.PlayerFromModel(player))
}

// Login handles POST /api/v1/players/login
func (h *PlayerHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req request.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	if req.Identifier == "" {
		WriteError(w, NewInvalidRequestError("identifier is required"))
		return
	}
	if req.Password == "" {
		WriteError(w, NewInvalidRequestError("password is required"))
		return
	}

	tokens, err := h.authenticator.Login(r.Context(), req.Identifier, req.Password)
	if err != nil {
		WriteError(w, err)
		return
	}

	h.setRefreshCookie(w, tokens.RefreshCookie)
	response.JSON(w, http.StatusOK, response.NewTokenResponse(tokens.Access))
}

// Refresh handles POST /api/v1/players/refresh.
// The refresh token arrives and leaves via the HTTP-only cookie; presenting
// it rotates it.
func (h *PlayerHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(RefreshCookieName)
	if err != nil {
		WriteError(w, model.ErrCookieNotSet)
		return
	}

	tokens, err := h.authenticator.Refresh(r.Context(), cookie.Value)
	if err != nil {
		if !errors.Is(err, model.ErrNonParseableCookie) {
			h.clearRefreshCookie(w)
		}
		WriteError(w, err)
		return
	}

	h.setRefreshCookie(w, tokens.RefreshCookie)
	response.JSON(w, http.StatusOK, response.NewTokenResponse(tokens.Access))
}

// Logout handles POST /api/v1/players/logout
func (h *PlayerHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(RefreshCookieName); err == nil {
		// Best effort; an unparseable or already-consumed cookie still logs out
		_ = h.authenticator.Logout(r.Context(), cookie.Value)
	}

	h.clearRefreshCookie(w)
	response.NoContent(w)
}

// GetMe handles GET /api/v1/players/me
func (h *PlayerHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())
	response.JSON(w, http.StatusOK, response.PlayerFromModel(player))
}

// Delete handles DELETE /api/v1/players
func (h *PlayerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var req request.DeleteAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}
	if req.Password == "" {
		WriteError(w, NewInvalidRequestError("password is required"))
		return
	}

	player := middleware.MustGetPlayer(r.Context())
	if err := h.manager.DeleteAccount(r.Context(), player, req.Password); err != nil {
		WriteError(w, err)
		return
	}

	h.clearRefreshCookie(w)
	response.NoContent(w)
}

func (h *PlayerHandler) setRefreshCookie(w http.ResponseWriter, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    value,
		Path:     refreshCookiePath,
		MaxAge:   int(model.RefreshTokenLifetime.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *PlayerHandler) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    "",
		Path:     refreshCookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteStrictMode,
	})
}

// requestLocale picks the preferred language out of the Accept-Language
// header, falling back to English
func requestLocale(r *http.Request) string {
	header := r.Header.Get("Accept-Language")
	if header == "" {
		return "en"
	}
	first, _, _ := strings.Cut(header, ",")
	tag, _, _ := strings.Cut(strings.TrimSpace(first), ";")
	if tag == "" || tag == "*" {
		return "en"
	}
	return tag
}
