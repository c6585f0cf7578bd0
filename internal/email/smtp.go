package email

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// SMTPConfig holds SMTP relay settings
type SMTPConfig struct {
	Host string
	Port string
	User string
	Pass string
	From string
	// FrontendURL is the base URL embedded in confirmation and undo links
	FrontendURL string
}

// SMTPSender delivers rendered templates over an SMTP relay
type SMTPSender struct {
	cfg  SMTPConfig
	auth smtp.Auth
}

// NewSMTPSender creates an SMTPSender
func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	if cfg.Port == "" {
		cfg.Port = "587"
	}
	if cfg.From == "" {
		cfg.From = cfg.User
	}
	return &SMTPSender{
		cfg:  cfg,
		auth: smtp.PlainAuth("", cfg.User, cfg.Pass, cfg.Host),
	}
}

var _ Sender = (*SMTPSender)(nil)

// Send renders the template for the locale (falling back to English) and
// delivers it
func (s *SMTPSender) Send(_ context.Context, to string, tmpl Template, locale string, params Params) error {
	t, err := lookupTemplate(tmpl, locale)
	if err != nil {
		return err
	}

	subject := render(t.subject, params, s.cfg.FrontendURL)
	body := render(t.body, params, s.cfg.FrontendURL)

	msg := []byte("From: " + s.cfg.From + "\r\n" +
		"To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/plain; charset=\"utf-8\"\r\n\r\n" +
		body + "\r\n")

	addr := s.cfg.Host + ":" + s.cfg.Port
	return smtp.SendMail(addr, s.auth, s.cfg.From, []string{to}, msg)
}

type renderedTemplate struct {
	subject string
	body    string
}

// templates maps template id -> locale -> content. English is the fallback
// for any unknown locale.
var templates = map[Template]map[string]renderedTemplate{
	TemplateConfirmRegistration: {
		"en": {
			subject: "Confirm your Deckmate account",
			body: "Hi {{username}},\n\n" +
				"Welcome to Deckmate! Confirm your email address within 15 minutes:\n\n" +
				"{{frontend_url}}/confirm/{{token_id}}\n\n" +
				"If you did not create this account, you can reject it here:\n" +
				"{{frontend_url}}/reject/{{token_id}}\n",
		},
	},
	TemplateConfirmEmailChange: {
		"en": {
			subject: "Confirm your new Deckmate email address",
			body: "Hi {{username}},\n\n" +
				"Confirm {{new_email}} as your new email address within 15 minutes:\n\n" +
				"{{frontend_url}}/confirm-email/{{token_id}}\n",
		},
	},
	TemplateEmailChangeWarning: {
		"en": {
			subject: "Your Deckmate email address is being changed",
			body: "Hi {{username}},\n\n" +
				"A change of your email address to {{new_email}} was requested.\n" +
				"If this was not you, undo it within 24 hours:\n\n" +
				"{{frontend_url}}/undo-email/{{undo_token_id}}\n",
		},
	},
	TemplatePasswordChanged: {
		"en": {
			subject: "Your Deckmate password was changed",
			body: "Hi {{username}},\n\n" +
				"Your password was just changed. If this was not you, undo it within\n" +
				"24 hours and pick a new password:\n\n" +
				"{{frontend_url}}/undo-password/{{undo_token_id}}\n",
		},
	},
	TemplateUsernameChanged: {
		"en": {
			subject: "Your Deckmate username was changed",
			body: "Hi {{username}},\n\n" +
				"Your username is now {{username}}. If this was not you, change your\n" +
				"password immediately.\n",
		},
	},
}

func lookupTemplate(tmpl Template, locale string) (renderedTemplate, error) {
	variants, ok := templates[tmpl]
	if !ok {
		return renderedTemplate{}, fmt.Errorf("unknown email template %q", tmpl)
	}
	if t, ok := variants[locale]; ok {
		return t, nil
	}
	return variants["en"], nil
}

// render substitutes {{key}} placeholders from params, plus {{frontend_url}}
func render(text string, params Params, frontendURL string) string {
	text = strings.ReplaceAll(text, "{{frontend_url}}", frontendURL)
	for key, value := range params {
		text = strings.ReplaceAll(text, "{{"+key+"}}", value)
	}
	return text
}
