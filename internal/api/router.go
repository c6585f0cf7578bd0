package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/deckmate/deckmate/internal/api/handler"
	"github.com/deckmate/deckmate/internal/api/middleware"
	"github.com/deckmate/deckmate/internal/services/credentials"
	"github.com/deckmate/deckmate/internal/services/session"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger        *slog.Logger
	Authenticator *session.Authenticator
	Credentials   *credentials.Manager
	SecureCookies bool
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	// Create handlers
	playerHandler := handler.NewPlayerHandler(cfg.Authenticator, cfg.Credentials, cfg.SecureCookies)
	credentialHandler := handler.NewCredentialHandler(cfg.Credentials)

	// Create middleware
	authMiddleware := middleware.Auth(cfg.Authenticator)
	loggingMiddleware := middleware.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger)

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(recoveryMiddleware)
	api.Use(loggingMiddleware)

	// Account and session routes (no access token required)
	api.HandleFunc("/players", playerHandler.Register).Methods(http.MethodPost)
	api.HandleFunc("/players/login", playerHandler.Login).Methods(http.MethodPost)
	api.HandleFunc("/players/refresh", playerHandler.Refresh).Methods(http.MethodPost)
	api.HandleFunc("/players/logout", playerHandler.Logout).Methods(http.MethodPost)

	// Emailed-link routes; the link itself is the credential
	api.HandleFunc("/players/confirm/{token_id}", credentialHandler.Confirm).Methods(http.MethodPost)
	api.HandleFunc("/players/confirm/{token_id}", credentialHandler.Reject).Methods(http.MethodDelete)
	api.HandleFunc("/players/resend-confirmation", credentialHandler.ResendConfirmation).Methods(http.MethodPost)
	api.HandleFunc("/players/confirm-email/{token_id}", credentialHandler.ConfirmEmailChange).Methods(http.MethodPost)
	api.HandleFunc("/players/undo/email/{token_id}", credentialHandler.UndoEmailChange).Methods(http.MethodPost)
	api.HandleFunc("/players/undo/password/{token_id}", credentialHandler.UndoPasswordChange).Methods(http.MethodPost)

	// Protected routes
	protected := api.PathPrefix("/players").Subrouter()
	protected.Use(authMiddleware)
	protected.HandleFunc("/me", playerHandler.GetMe).Methods(http.MethodGet)
	protected.HandleFunc("", playerHandler.Delete).Methods(http.MethodDelete)
	protected.HandleFunc("/password", credentialHandler.ChangePassword).Methods(http.MethodPut)
	protected.HandleFunc("/username", credentialHandler.ChangeUsername).Methods(http.MethodPut)
	protected.HandleFunc("/email", credentialHandler.RequestEmailChange).Methods(http.MethodPut)
	protected.HandleFunc("/email/pending", credentialHandler.CancelEmailChange).Methods(http.MethodDelete)

	// Health check endpoint (no auth)
	api.HandleFunc("/health", healthHandler).Methods(http.MethodGet)

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
