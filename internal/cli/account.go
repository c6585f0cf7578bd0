package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newAccountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Account management commands",
	}

	cmd.AddCommand(newAccountRegisterCmd())
	cmd.AddCommand(newAccountLoginCmd())
	cmd.AddCommand(newAccountLogoutCmd())
	cmd.AddCommand(newAccountMeCmd())
	cmd.AddCommand(newAccountDeleteCmd())
	cmd.AddCommand(newAccountConfirmCmd())
	cmd.AddCommand(newAccountRejectCmd())
	cmd.AddCommand(newAccountResendConfirmationCmd())
	cmd.AddCommand(newAccountChangePasswordCmd())
	cmd.AddCommand(newAccountChangeUsernameCmd())
	cmd.AddCommand(newAccountChangeEmailCmd())
	cmd.AddCommand(newAccountConfirmEmailCmd())
	cmd.AddCommand(newAccountCancelEmailCmd())
	cmd.AddCommand(newAccountUndoPasswordCmd())
	cmd.AddCommand(newAccountUndoEmailCmd())

	return cmd
}

func newAccountRegisterCmd() *cobra.Command {
	var user, pass, mail string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a new account",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]string{
				"username": user,
				"password": pass,
				"email":    mail,
			}
			var result Player

			if err := client.Post("/api/v1/players", req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			out.PrintMessage("Check your email for a confirmation link.")
			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "Username (required)")
	cmd.Flags().StringVar(&pass, "pass", "", "Password (required)")
	cmd.Flags().StringVar(&mail, "email", "", "Email address (required)")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("pass")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func newAccountLoginCmd() *cobra.Command {
	var identifier, pass string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Login with username or email",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]string{
				"identifier": identifier,
				"password":   pass,
			}
			var result TokenResult

			if err := client.Post("/api/v1/players/login", req, &result); err != nil {
				return err
			}

			// Save the access token and the rotated refresh cookie
			if err := cfg.SaveSession(result.AccessToken, client.RefreshCookie()); err != nil {
				return fmt.Errorf("failed to save session: %w", err)
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&identifier, "user", "", "Username or email (required)")
	cmd.Flags().StringVar(&pass, "pass", "", "Password (required)")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("pass")

	return cmd
}

func newAccountLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Logout and discard the saved session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.Post("/api/v1/players/logout", nil, nil); err != nil {
				return err
			}
			if err := cfg.ClearSession(); err != nil {
				return fmt.Errorf("failed to clear session: %w", err)
			}

			NewOutput(cfg.Output).PrintMessage("Logged out.")
			return nil
		},
	}
}

func newAccountMeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show current account info",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Player

			if err := client.Get("/api/v1/players/me", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newAccountDeleteCmd() *cobra.Command {
	var pass string

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete the account permanently",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]string{"password": pass}

			if err := client.Delete("/api/v1/players", req); err != nil {
				return err
			}
			if err := cfg.ClearSession(); err != nil {
				return fmt.Errorf("failed to clear session: %w", err)
			}

			NewOutput(cfg.Output).PrintMessage("Account deleted.")
			return nil
		},
	}

	cmd.Flags().StringVar(&pass, "pass", "", "Current password (required)")
	_ = cmd.MarkFlagRequired("pass")

	return cmd
}

func newAccountConfirmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "confirm <token-id>",
		Short: "Confirm a registration using an emailed token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.Post("/api/v1/players/confirm/"+args[0], nil, nil); err != nil {
				return err
			}

			NewOutput(cfg.Output).PrintMessage("Account confirmed. You can now log in.")
			return nil
		},
	}
}

func newAccountRejectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reject <token-id>",
		Short: "Reject a registration you did not make",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.Delete("/api/v1/players/confirm/"+args[0], nil); err != nil {
				return err
			}

			NewOutput(cfg.Output).PrintMessage("Registration rejected and removed.")
			return nil
		},
	}
}

func newAccountResendConfirmationCmd() *cobra.Command {
	var mail string

	cmd := &cobra.Command{
		Use:   "resend-confirmation",
		Short: "Resend the registration confirmation email",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]string{"email": mail}

			if err := client.Post("/api/v1/players/resend-confirmation", req, nil); err != nil {
				return err
			}

			NewOutput(cfg.Output).PrintMessage("Confirmation email sent.")
			return nil
		},
	}

	cmd.Flags().StringVar(&mail, "email", "", "Account email address (required)")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func newAccountChangePasswordCmd() *cobra.Command {
	var current, next string

	cmd := &cobra.Command{
		Use:   "change-password",
		Short: "Change the account password",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]string{
				"current_password": current,
				"new_password":     next,
			}

			if err := client.Put("/api/v1/players/password", req, nil); err != nil {
				return err
			}

			// The change invalidates every session, including this one
			if err := cfg.ClearSession(); err != nil {
				return fmt.Errorf("failed to clear session: %w", err)
			}

			NewOutput(cfg.Output).PrintMessage("Password changed. Log in again with the new password.")
			return nil
		},
	}

	cmd.Flags().StringVar(&current, "current", "", "Current password (required)")
	cmd.Flags().StringVar(&next, "new", "", "New password (required)")
	_ = cmd.MarkFlagRequired("current")
	_ = cmd.MarkFlagRequired("new")

	return cmd
}

func newAccountChangeUsernameCmd() *cobra.Command {
	var pass, user string

	cmd := &cobra.Command{
		Use:   "change-username",
		Short: "Change the account username",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]string{
				"password": pass,
				"username": user,
			}
			var result Player

			if err := client.Put("/api/v1/players/username", req, &result); err != nil {
				return err
			}

			// The change invalidates every session, including this one
			if err := cfg.ClearSession(); err != nil {
				return fmt.Errorf("failed to clear session: %w", err)
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			out.PrintMessage("Username changed. Log in again.")
			return nil
		},
	}

	cmd.Flags().StringVar(&pass, "pass", "", "Current password (required)")
	cmd.Flags().StringVar(&user, "user", "", "New username (required)")
	_ = cmd.MarkFlagRequired("pass")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func newAccountChangeEmailCmd() *cobra.Command {
	var pass, mail string

	cmd := &cobra.Command{
		Use:   "change-email",
		Short: "Request an email address change",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]string{
				"password": pass,
				"email":    mail,
			}
			var result Player

			if err := client.Put("/api/v1/players/email", req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			out.PrintMessage("Check the new address for a confirmation link.")
			return nil
		},
	}

	cmd.Flags().StringVar(&pass, "pass", "", "Current password (required)")
	cmd.Flags().StringVar(&mail, "email", "", "New email address (required)")
	_ = cmd.MarkFlagRequired("pass")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func newAccountConfirmEmailCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "confirm-email <token-id>",
		Short: "Confirm an email change using an emailed token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.Post("/api/v1/players/confirm-email/"+args[0], nil, nil); err != nil {
				return err
			}

			NewOutput(cfg.Output).PrintMessage("Email address updated.")
			return nil
		},
	}
}

func newAccountCancelEmailCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel-email-change",
		Short: "Abandon a pending email change",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.Delete("/api/v1/players/email/pending", nil); err != nil {
				return err
			}

			NewOutput(cfg.Output).PrintMessage("Pending email change cancelled.")
			return nil
		},
	}
}

func newAccountUndoPasswordCmd() *cobra.Command {
	var next string

	cmd := &cobra.Command{
		Use:   "undo-password <token-id>",
		Short: "Recover from a password change using an emailed token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]string{"new_password": next}

			if err := client.Post("/api/v1/players/undo/password/"+args[0], req, nil); err != nil {
				return err
			}

			NewOutput(cfg.Output).PrintMessage("Password reset. Log in with the new password.")
			return nil
		},
	}

	cmd.Flags().StringVar(&next, "new", "", "New password (required)")
	_ = cmd.MarkFlagRequired("new")

	return cmd
}

func newAccountUndoEmailCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "undo-email <token-id>",
		Short: "Undo a pending email change using an emailed token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.Post("/api/v1/players/undo/email/"+args[0], nil, nil); err != nil {
				return err
			}

			NewOutput(cfg.Output).PrintMessage("Email change undone.")
			return nil
		},
	}
}
