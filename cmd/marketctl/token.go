package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/spec-kit/marketplace-bot/internal/auth"
	"github.com/spec-kit/marketplace-bot/internal/service"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage operator API tokens",
}

var tokenIssueCmd = &cobra.Command{
	Use:   "issue <user-id>",
	Short: "Sign a bearer token for an existing user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := parseIDs(args)
		if err != nil {
			return err
		}
		e, err := openEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer e.Close()

		tokens := auth.NewTokenManager(e.cfg.Auth.JWTSecret, e.cfg.Auth.AccessTokenTTLMinutes)
		token, expiresAt, err := service.NewAuthService(e.repos.Users, tokens).IssueToken(cmd.Context(), ids[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		fmt.Fprintf(cmd.ErrOrStderr(), "expires at %s\n", expiresAt.Format(time.RFC3339))
		return nil
	},
}

func init() {
	tokenCmd.AddCommand(tokenIssueCmd)
	rootCmd.AddCommand(tokenCmd)
}
