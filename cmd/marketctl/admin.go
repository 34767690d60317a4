package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/spec-kit/marketplace-bot/internal/service"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage administrators",
}

var adminSeedCmd = &cobra.Command{
	Use:   "seed <user-id>...",
	Short: "Grant the admin role to chat users, creating them if needed",
	Args:  cobra.MinimumNArgs(1),
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

		if err := service.NewUserService(e.repos.Users, e.logger).SeedAdmins(cmd.Context(), ids); err != nil {
			return err
		}
		for _, id := range ids {
			fmt.Fprintf(cmd.OutOrStdout(), "user %d is an administrator\n", id)
		}
		return nil
	},
}

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid user id %q", arg)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func init() {
	adminCmd.AddCommand(adminSeedCmd)
	rootCmd.AddCommand(adminCmd)
}
