package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/deckmate/deckmate/internal/api/middleware"
	"github.com/deckmate/deckmate/internal/api/request"
	"github.com/deckmate/deckmate/internal/api/response"
	"github.com/deckmate/deckmate/internal/services/credentials"
)

// CredentialHandler handles confirmation, change and undo endpoints
type CredentialHandler struct {
	manager *credentials.Manager
}

// NewCredentialHandler creates a new credential handler
func NewCredentialHandler(manager *credentials.Manager) *CredentialHandler {
	return &CredentialHandler{
		manager: manager,
	}
}

// Confirm handles POST /api/v1/players/confirm/{token_id}
func (h *CredentialHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.Confirm(r.Context(), mux.Vars(r)["token_id"]); err != nil {
		WriteError(w, err)
		return
	}
	response.NoContent(w)
}

// Reject handles DELETE /api/v1/players/confirm/{token_id}.
// The recipient denies creating the account, which removes it.
func (h *CredentialHandler) Reject(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.Reject(r.Context(), mux.Vars(r)["token_id"]); err != nil {
		WriteError(w, err)
		return
	}
	response.NoContent(w)
}

// ResendConfirmation handles POST /api/v1/players/resend-confirmation
func (h *CredentialHandler) ResendConfirmation(w http.ResponseWriter, r *http.Request) {
	var req request.ResendConfirmationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}
	if req.Email == "" {
		WriteError(w, NewInvalidRequestError("email is required"))
		return
	}

	if err := h.manager.ResendConfirmation(r.Context(), req.Email, requestLocale(r)); err != nil {
		WriteError(w, err)
		return
	}
	response.NoContent(w)
}

// ChangePassword handles PUT /api/v1/players/password
func (h *CredentialHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req request.ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}
	if req.CurrentPassword == "" {
		WriteError(w, NewInvalidRequestError("current_password is required"))
		return
	}
	if req.NewPassword == "" {
		WriteError(w, NewInvalidRequestError("new_password is required"))
		return
	}

	player := middleware.MustGetPlayer(r.Context())
	if err := h.manager.ChangePassword(r.Context(), player, req.CurrentPassword, req.NewPassword, requestLocale(r)); err != nil {
		WriteError(w, err)
		return
	}
	response.NoContent(w)
}

// ChangeUsername handles PUT /api/v1/players/username
func (h *CredentialHandler) ChangeUsername(w http.ResponseWriter, r *http.Request) {
	var req request.ChangeUsernameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}
	if req.Password == "" {
		WriteError(w, NewInvalidRequestError("password is required"))
		return
	}
	if req.Username == "" {
		WriteError(w, NewInvalidRequestError("username is required"))
		return
	}

	player := middleware.MustGetPlayer(r.Context())
	if err := h.manager.ChangeUsername(r.Context(), player, req.Password, req.Username, requestLocale(r)); err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.PlayerFromModel(player))
}

// RequestEmailChange handles PUT /api/v1/players/email.
// The change is staged; it applies once the proposed address confirms it.
func (h *CredentialHandler) RequestEmailChange(w http.ResponseWriter, r *http.Request) {
	var req request.ChangeEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
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

	player := middleware.MustGetPlayer(r.Context())
	if err := h.manager.RequestEmailChange(r.Context(), player, req.Password, req.Email, requestLocale(r)); err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusAccepted, response.PlayerFromModel(player))
}

// ConfirmEmailChange handles POST /api/v1/players/confirm-email/{token_id}
func (h *CredentialHandler) ConfirmEmailChange(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.ConfirmEmailChange(r.Context(), mux.Vars(r)["token_id"]); err != nil {
		WriteError(w, err)
		return
	}
	response.NoContent(w)
}

// UndoEmailChange handles POST /api/v1/players/undo/email/{token_id}
func (h *CredentialHandler) UndoEmailChange(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.UndoEmailChange(r.Context(), mux.Vars(r)["token_id"]); err != nil {
		WriteError(w, err)
		return
	}
	response.NoContent(w)
}

// UndoPasswordChange handles POST /api/v1/players/undo/password/{token_id}
func (h *CredentialHandler) UndoPasswordChange(w http.ResponseWriter, r *http.Request) {
	var req request.UndoPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}
	if req.NewPassword == "" {
		WriteError(w, NewInvalidRequestError("new_password is required"))
		return
	}

	if err := h.manager.UndoPasswordChange(r.Context(), mux.Vars(r)["token_id"], req.NewPassword); err != nil {
		WriteError(w, err)
		return
	}
	response.NoContent(w)
}

// CancelEmailChange handles DELETE /api/v1/players/email/pending
func (h *CredentialHandler) CancelEmailChange(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())
	if err := h.manager.CancelEmailChange(r.Context(), player); err != nil {
		WriteError(w, err)
		return
	}
	response.NoContent(w)
}
