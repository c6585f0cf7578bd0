package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Token commands",
	}

	cmd.AddCommand(newTokenRefreshCmd())

	return cmd
}

func newTokenRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Exchange the saved refresh token for a new token pair",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result TokenResult

			if err := client.Post("/api/v1/players/refresh", nil, &result); err != nil {
				return err
			}

			// The refresh token rotates on every use
			if err := cfg.SaveSession(result.AccessToken, client.RefreshCookie()); err != nil {
				return fmt.Errorf("failed to save session: %w", err)
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}
