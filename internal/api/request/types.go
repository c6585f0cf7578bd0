package request

// RegisterRequest is the request body for registering a player
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

// LoginRequest is the request body for logging in.
// Identifier may be a username or an email address.
type LoginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// ResendConfirmationRequest is the request body for re-sending a
// registration confirmation email
type ResendConfirmationRequest struct {
	Email string `json:"email"`
}

// ChangePasswordRequest is the request body for changing the password
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// UndoPasswordRequest is the request body for recovering from a password
// change via an undo link
type UndoPasswordRequest struct {
	NewPassword string `json:"new_password"`
}

// ChangeUsernameRequest is the request body for changing the username
type ChangeUsernameRequest struct {
	Password string `json:"password"`
	Username string `json:"username"`
}

// ChangeEmailRequest is the request body for requesting an email change
type ChangeEmailRequest struct {
	Password string `json:"password"`
	Email    string `json:"email"`
}

// DeleteAccountRequest is the request body for deleting the account
type DeleteAccountRequest struct {
	Password string `json:"password"`
}
