// Package validate checks user-supplied account fields before they reach the
// credential layer. Uniqueness is a storage concern and is not checked here.
package validate

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	usernameChars = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
	lowerLetter   = regexp.MustCompile(`[a-z]`)
	upperLetter   = regexp.MustCompile(`[A-Z]`)
	digit         = regexp.MustCompile(`[0-9]`)
	symbol        = regexp.MustCompile(`[!@#$%^&*+=?]`)
	passwordChars = regexp.MustCompile(`^[A-Za-z0-9!@#$%^&*+=?]+$`)
	emailShape    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// FieldErrors lists the problems found with each account field
type FieldErrors struct {
	Username []string `json:"username,omitempty"`
	Password []string `json:"password,omitempty"`
	Email    []string `json:"email,omitempty"`
}

func (e *FieldErrors) Error() string {
	n := len(e.Username) + len(e.Password) + len(e.Email)
	return fmt.Sprintf("invalid player input (%d problems)", n)
}

func (e *FieldErrors) empty() bool {
	return len(e.Username) == 0 && len(e.Password) == 0 && len(e.Email) == 0
}

// Username checks a candidate username:
// 6-16 characters; letters, digits and underscores only; no leading
// underscore; no consecutive underscores.
func Username(input string) []string {
	var problems []string

	if l := len(input); l < 6 || l > 16 {
		problems = append(problems, fmt.Sprintf("username must be between 6 and 16 characters - found %d", l))
	}
	if !usernameChars.MatchString(input) {
		problems = append(problems, "username may only include letters, numbers, and underscores")
	}
	if strings.HasPrefix(input, "_") {
		problems = append(problems, "username cannot start with an underscore")
	}
	if strings.Contains(input, "__") {
		problems = append(problems, "username may not contain consecutive underscores")
	}

	return problems
}

// Password checks a candidate password:
// 8-32 characters; at least one lowercase letter, uppercase letter, digit and
// symbol from !@#$%^&*+=?; no other characters.
func Password(input string) []string {
	var problems []string

	if l := len(input); l < 8 || l > 32 {
		problems = append(problems, fmt.Sprintf("password must be between 8 and 32 characters - found %d", l))
	}
	if !lowerLetter.MatchString(input) {
		problems = append(problems, "password must include a lowercase letter")
	}
	if !upperLetter.MatchString(input) {
		problems = append(problems, "password must include an uppercase letter")
	}
	if !digit.MatchString(input) {
		problems = append(problems, "password must include a number")
	}
	if !symbol.MatchString(input) {
		problems = append(problems, "password must include one of: ! @ # $ % ^ & * + = ?")
	}
	if !passwordChars.MatchString(input) {
		problems = append(problems, "password includes illegal characters")
	}

	return problems
}

// Email checks that a candidate email address is shaped like one
func Email(input string) []string {
	if !emailShape.MatchString(input) {
		return []string{"email address is not valid"}
	}
	return nil
}

// NewPlayer validates all registration fields at once.
// Returns nil or a *FieldErrors describing every problem found.
func NewPlayer(username, password, email string) error {
	fe := &FieldErrors{
		Username: Username(username),
		Password: Password(password),
		Email:    Email(email),
	}
	if fe.empty() {
		return nil
	}
	return fe
}

// NewUsername validates a username change
func NewUsername(username string) error {
	if problems := Username(username); len(problems) > 0 {
		return &FieldErrors{Username: problems}
	}
	return nil
}

// NewPassword validates a password change
func NewPassword(password string) error {
	if problems := Password(password); len(problems) > 0 {
		return &FieldErrors{Password: problems}
	}
	return nil
}

// NewEmail validates an email change
func NewEmail(email string) error {
	if problems := Email(email); len(problems) > 0 {
		return &FieldErrors{Email: problems}
	}
	return nil
}
