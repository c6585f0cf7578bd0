// Package email defines the outbound email boundary. The engine only ever
// hands a recipient, a template id, a locale and parameters to a Sender;
// rendering and transport live behind the interface.
package email

import (
	"context"
	"log/slog"
)

// Template identifies an email template
type Template string

// Templates sent by the credential workflows
const (
	// TemplateConfirmRegistration carries the initial confirmation link
	TemplateConfirmRegistration Template = "confirm_registration"
	// TemplateConfirmEmailChange goes to a proposed address with its confirmation link
	TemplateConfirmEmailChange Template = "confirm_email_change"
	// TemplateEmailChangeWarning goes to the current address with an undo link
	TemplateEmailChangeWarning Template = "email_change_warning"
	// TemplatePasswordChanged warns the current address, with an undo link
	TemplatePasswordChanged Template = "password_changed"
	// TemplateUsernameChanged notifies the current address
	TemplateUsernameChanged Template = "username_changed"
)

// Params carries template placeholder values
type Params map[string]string

// Common parameter keys
const (
	ParamUsername    = "username"
	ParamTokenID     = "token_id"
	ParamUndoTokenID = "undo_token_id"
	ParamOldEmail    = "old_email"
	ParamNewEmail    = "new_email"
)

// Sender delivers a templated email to one recipient.
// Delivery is best-effort from the engine's point of view; a failed send is
// an infrastructure error, never an authentication failure.
type Sender interface {
	Send(ctx context.Context, to string, tmpl Template, locale string, params Params) error
}

// LogSender writes would-be emails to the log instead of sending them.
// Used in development and as the fallback when SMTP is not configured.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a LogSender
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

var _ Sender = (*LogSender)(nil)

// Send logs the email instead of delivering it
func (s *LogSender) Send(_ context.Context, to string, tmpl Template, locale string, params Params) error {
	s.logger.Info("email suppressed (log sender)",
		slog.String("to", to),
		slog.String("template", string(tmpl)),
		slog.String("locale", locale),
		slog.Any("params", params),
	)
	return nil
}
