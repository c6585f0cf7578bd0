package mocks

import (
	"context"
	"sync"

	"github.com/deckmate/deckmate/internal/email"
)

// SentEmail records one call to MockEmailSender.Send
type SentEmail struct {
	To       string
	Template email.Template
	Locale   string
	Params   email.Params
}

// MockEmailSender records emails instead of sending them
type MockEmailSender struct {
	mu   sync.Mutex
	sent []SentEmail

	// Err, when set, is returned by every Send call
	Err error
}

// Ensure MockEmailSender implements Sender
var _ email.Sender = (*MockEmailSender)(nil)

// NewMockEmailSender creates a MockEmailSender
func NewMockEmailSender() *MockEmailSender {
	return &MockEmailSender{}
}

// Send records the email
func (s *MockEmailSender) Send(_ context.Context, to string, tmpl email.Template, locale string, params email.Params) error {
	if s.Err != nil {
		return s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, SentEmail{To: to, Template: tmpl, Locale: locale, Params: params})
	return nil
}

// Sent returns a copy of all recorded emails
func (s *MockEmailSender) Sent() []SentEmail {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SentEmail, len(s.sent))
	copy(out, s.sent)
	return out
}

// LastTo returns the most recent email sent to the given address, if any
func (s *MockEmailSender) LastTo(to string) (SentEmail, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.sent) - 1; i >= 0; i-- {
		if s.sent[i].To == to {
			return s.sent[i], true
		}
	}
	return SentEmail{}, false
}

// Reset clears the recorded emails
func (s *MockEmailSender) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = nil
}
