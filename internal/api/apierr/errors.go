package apierr

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/deckmate/deckmate/internal/model"
	"github.com/deckmate/deckmate/internal/validate"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`

	// Details carries field-level validation problems on INVALID_INPUT
	Details *validate.FieldErrors `json:"details,omitempty"`
	// LockedUntil is set on ACCOUNT_LOCKED
	LockedUntil *time.Time `json:"locked_until,omitempty"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Error codes
const (
	CodeInvalidRequest       = "INVALID_REQUEST"
	CodeInvalidInput         = "INVALID_INPUT"
	CodeBadLoginCredentials  = "BAD_LOGIN_CREDENTIALS"
	CodeMissingAccessToken   = "MISSING_ACCESS_TOKEN"
	CodeBadAccessToken       = "BAD_ACCESS_TOKEN"
	CodeExpiredAccessToken   = "EXPIRED_ACCESS_TOKEN"
	CodePrematureAccessToken = "PREMATURE_ACCESS_TOKEN"
	CodeBadPassword          = "BAD_PASSWORD"
	CodeNotConfirmed         = "NOT_CONFIRMED"
	CodeCookieNotSet         = "REFRESH_COOKIE_NOT_SET"
	CodeBadCookie            = "BAD_REFRESH_COOKIE"
	CodeBadCookieCredentials = "BAD_COOKIE_CREDENTIALS"
	CodeExpiredRefreshToken  = "EXPIRED_REFRESH_TOKEN"
	CodeRevokedRefreshToken  = "REFRESH_REVOKED"
	CodeAccountLocked        = "ACCOUNT_LOCKED"
	CodePlayerNotFound       = "PLAYER_NOT_FOUND"
	CodeUsernameTaken        = "USERNAME_TAKEN"
	CodeEmailTaken           = "EMAIL_TAKEN"
	CodeTokenNotFound        = "TOKEN_NOT_FOUND"
	CodeTokenExpired         = "TOKEN_EXPIRED"
	CodeAlreadyConfirmed     = "ALREADY_CONFIRMED"
	CodeNoPendingChange      = "NO_PENDING_CHANGE"
	CodePasswordReused       = "PASSWORD_REUSED"
	CodeInternalError        = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	// Check for specific error types
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	var locked *model.AccountLockedError
	if errors.As(err, &locked) {
		until := locked.Until
		return &httpError{http.StatusForbidden, APIError{
			Code:        CodeAccountLocked,
			Message:     "Account is temporarily locked",
			LockedUntil: &until,
		}}
	}

	var fields *validate.FieldErrors
	if errors.As(err, &fields) {
		return &httpError{http.StatusBadRequest, APIError{
			Code:    CodeInvalidInput,
			Message: "One or more fields are invalid",
			Details: fields,
		}}
	}

	switch {
	// Login and access token errors
	case errors.Is(err, model.ErrBadLoginCredentials):
		return &httpError{http.StatusUnauthorized, APIError{Code: CodeBadLoginCredentials, Message: "Identifier or password did not match"}}
	case errors.Is(err, model.ErrMissingAccessToken):
		return &httpError{http.StatusUnauthorized, APIError{Code: CodeMissingAccessToken, Message: "Authentication required"}}
	case errors.Is(err, model.ErrBadAccessToken):
		return &httpError{http.StatusUnauthorized, APIError{Code: CodeBadAccessToken, Message: "Access token is not valid"}}
	case errors.Is(err, model.ErrExpiredAccessToken):
		return &httpError{http.StatusUnauthorized, APIError{Code: CodeExpiredAccessToken, Message: "Access token has expired"}}
	case errors.Is(err, model.ErrPrematureAccessToken):
		return &httpError{http.StatusUnauthorized, APIError{Code: CodePrematureAccessToken, Message: "Access token predates a session reset"}}
	case errors.Is(err, model.ErrBadPassword):
		return &httpError{http.StatusUnauthorized, APIError{Code: CodeBadPassword, Message: "Password did not match"}}

	// Refresh cookie errors
	case errors.Is(err, model.ErrCookieNotSet):
		return &httpError{http.StatusUnauthorized, APIError{Code: CodeCookieNotSet, Message: "Refresh cookie not set"}}
	case errors.Is(err, model.ErrNonParseableCookie):
		return &httpError{http.StatusUnauthorized, APIError{Code: CodeBadCookie, Message: "Refresh cookie is not valid"}}
	case errors.Is(err, model.ErrBadCookieCredentials):
		return &httpError{http.StatusUnauthorized, APIError{Code: CodeBadCookieCredentials, Message: "Refresh token did not match"}}
	case errors.Is(err, model.ErrExpiredRefreshToken):
		return &httpError{http.StatusUnauthorized, APIError{Code: CodeExpiredRefreshToken, Message: "Refresh token has expired"}}
	case errors.Is(err, model.ErrRevokedRefreshToken):
		return &httpError{http.StatusUnauthorized, APIError{Code: CodeRevokedRefreshToken, Message: "Refresh token has been revoked"}}

	// Player errors
	case errors.Is(err, model.ErrPlayerNotFound):
		return &httpError{http.StatusNotFound, APIError{Code: CodePlayerNotFound, Message: "Player not found"}}
	case errors.Is(err, model.ErrUsernameTaken):
		return &httpError{http.StatusConflict, APIError{Code: CodeUsernameTaken, Message: "Username is already in use"}}
	case errors.Is(err, model.ErrEmailTaken):
		return &httpError{http.StatusConflict, APIError{Code: CodeEmailTaken, Message: "Email address is already in use"}}
	case errors.Is(err, model.ErrNotConfirmed):
		return &httpError{http.StatusConflict, APIError{Code: CodeNotConfirmed, Message: "Account email has not been confirmed"}}

	// Confirmation and undo token errors
	case errors.Is(err, model.ErrTokenNotFound):
		return &httpError{http.StatusNotFound, APIError{Code: CodeTokenNotFound, Message: "Token not found"}}
	case errors.Is(err, model.ErrPersistentTokenExpired):
		return &httpError{http.StatusGone, APIError{Code: CodeTokenExpired, Message: "Token has expired"}}
	case errors.Is(err, model.ErrAlreadyConfirmed):
		return &httpError{http.StatusConflict, APIError{Code: CodeAlreadyConfirmed, Message: "Account is already confirmed"}}
	case errors.Is(err, model.ErrNoPendingEmailChange):
		return &httpError{http.StatusConflict, APIError{Code: CodeNoPendingChange, Message: "No email change is pending"}}
	case errors.Is(err, model.ErrPasswordReused):
		return &httpError{http.StatusConflict, APIError{Code: CodePasswordReused, Message: "Password matches one of the last five used"}}

	default:
		return &httpError{http.StatusInternalServerError, APIError{Code: CodeInternalError, Message: "Internal server error"}}
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{Code: CodeInvalidRequest, Message: message}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{Code: CodeInternalError, Message: "Internal server error"}}
}
